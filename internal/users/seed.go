package users

import (
	"context"
	"errors"
	"fmt"
)

// EnsureAdmin は管理者アカウントが無ければ作成します。既に存在する場合は何もしません。
// 既存ユーザーが管理者でない場合はエラーを返します（権限の昇格はここでは行わない）。
func EnsureAdmin(ctx context.Context, store Store, username, password string) (*User, bool, error) {
	if username == "" || password == "" {
		return nil, false, errors.New("admin username and password are required")
	}

	existing, err := store.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, fmt.Errorf("look up admin: %w", err)
	}
	if existing != nil {
		if !existing.IsAdmin {
			return nil, false, fmt.Errorf("user %q exists but is not an admin", username)
		}
		return existing, false, nil
	}

	u, err := store.AddUser(ctx, NewUser{
		Username:  username,
		FirstName: "Portal",
		LastName:  "Administrator",
		Password:  password,
		IsAdmin:   true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return u, true, nil
}
