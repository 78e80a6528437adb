package allocations

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB は PostgresStore が必要とする操作です。*pgxpool.Pool が満たします。
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore は allocations テーブルを使う Store 実装です。
type PostgresStore struct {
	db  DB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore は PostgresStore を作成します。
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Upsert はユーザーの配分を保存します。既に存在する場合は上書きします。
func (s *PostgresStore) Upsert(ctx context.Context, userID string, stocks, funds, bonds int) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO allocations (user_id, stocks, funds, bonds, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET stocks = EXCLUDED.stocks,
		    funds = EXCLUDED.funds,
		    bonds = EXCLUDED.bonds,
		    updated_at = EXCLUDED.updated_at
	`, userID, stocks, funds, bonds, s.now().UTC())
	if err != nil {
		return fmt.Errorf("upsert allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert allocation: no row written for user %s", userID)
	}
	return nil
}
