package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内のマップに保存する Store 実装です。
// DATABASE_URL が未設定のローカル開発で使います。
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
	}
}

// GetByID は ID でユーザーを取得します。
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return clone(u), nil
}

// GetByUsername はユーザー名でユーザーを取得します。
func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	return clone(s.byID[id]), nil
}

// ValidateLogin はユーザー名とパスワードを照合します。
func (s *MemoryStore) ValidateLogin(ctx context.Context, username, password string) (*User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil || u == nil {
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, nil
	}
	return u, nil
}

// AddUser はユーザーを登録します。
func (s *MemoryStore) AddUser(ctx context.Context, nu NewUser) (*User, error) {
	hash, err := HashPassword(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[nu.Username]; exists {
		return nil, ErrUsernameTaken
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		FirstName:    nu.FirstName,
		LastName:     nu.LastName,
		PasswordHash: hash,
		Email:        nu.Email,
		IsAdmin:      nu.IsAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return clone(u), nil
}

func clone(u *User) *User {
	c := *u
	return &c
}
