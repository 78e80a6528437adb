package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation は PostgreSQL の一意制約違反 (SQLSTATE 23505) です。
const uniqueViolation = "23505"

const userColumns = `id::text, username, first_name, last_name, password_hash, email, is_admin, created_at`

// DB は PostgresStore が必要とするクエリ操作です。*pgxpool.Pool が満たします。
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore は users テーブルを使う Store 実装です。
type PostgresStore struct {
	db  DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// GetByID は ID でユーザーを取得します。
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*User, error) {
	// 形式が不正な ID はどのユーザーにも一致しない
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// GetByUsername はユーザー名でユーザーを取得します。
func (s *PostgresStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// ValidateLogin はユーザー名とパスワードを照合し、一致したユーザーを返します。
func (s *PostgresStore) ValidateLogin(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !CheckPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

// AddUser はユーザーを登録します。ユーザー名が重複した場合は ErrUsernameTaken を返します。
func (s *PostgresStore) AddUser(ctx context.Context, nu NewUser) (*User, error) {
	hash, err := HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		PasswordHash: hash,
		Email:        nu.Email,
		IsAdmin:      nu.IsAdmin,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, username, first_name, last_name, password_hash, email, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, u.ID, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Email, u.IsAdmin, s.now().UTC())

	if err := row.Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Email, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
