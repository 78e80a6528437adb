// Package users はユーザーの永続化と資格情報の検証を提供します。
package users

import (
	"context"
	"errors"
	"time"
)

// ErrUsernameTaken は同じユーザー名が既に登録されている場合に返されます。
var ErrUsernameTaken = errors.New("username already taken")

// User は登録済みユーザーを表します。
// PasswordHash は bcrypt のハッシュで、画面には一切出しません。
type User struct {
	ID           string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Email        string
	IsAdmin      bool
	CreatedAt    time.Time
}

// NewUser は AddUser に渡す登録内容です。Password は平文で受け取り、ストア側でハッシュ化します。
type NewUser struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
	Email     string
	IsAdmin   bool
}

// Store はユーザーの参照・登録・資格情報検証を行うストアです。
// 見つからない場合や資格情報が一致しない場合は (nil, nil) を返します。
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ValidateLogin(ctx context.Context, username, password string) (*User, error)
	AddUser(ctx context.Context, u NewUser) (*User, error)
}
