package auth

import (
	"errors"
	"net/http"
	"testing"

	"github.com/yourusername/retire-easy/internal/users"
	"github.com/yourusername/retire-easy/internal/views"
)

func TestRequireLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/test/protected", nil, nil)
	assertRedirect(t, rec, PathLogin)

	// ユーザーの存在は確認しない
	cookies := env.loginAs(t, "not-in-store")
	rec = env.do(http.MethodGet, "/test/protected", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "not-in-store" {
		t.Fatalf("context user id = %q", got)
	}
	if env.users.getByIDCalls != 0 {
		t.Fatal("RequireLogin must not hit the store")
	}
}

func TestRequireAdminDenies(t *testing.T) {
	tests := []struct {
		name    string
		store   func() *fakeUserStore
		session string
	}{
		{name: "no session", store: func() *fakeUserStore { return newFakeUserStore() }},
		{
			name:    "regular user",
			store:   func() *fakeUserStore { return newFakeUserStore(&users.User{ID: "u-1", Username: "ann"}) },
			session: "u-1",
		},
		{
			name:    "unknown user",
			store:   func() *fakeUserStore { return newFakeUserStore() },
			session: "ghost",
		},
		{
			name: "lookup error",
			store: func() *fakeUserStore {
				s := newFakeUserStore(&users.User{ID: "u-2", Username: "admin", IsAdmin: true})
				s.getByIDErr = errors.New("timeout")
				return s
			},
			session: "u-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.store())
			var cookies []*http.Cookie
			if tt.session != "" {
				cookies = env.loginAs(t, tt.session)
			}

			rec := env.do(http.MethodGet, "/benefits", nil, cookies)

			assertRedirect(t, rec, PathLogin)
			if env.views.count() != 0 {
				t.Fatal("benefits must not render for a denied request")
			}
		})
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	admin := &users.User{ID: "u-2", Username: "admin", FirstName: "Portal", LastName: "Administrator", IsAdmin: true}
	env := newTestEnv(t, newFakeUserStore(admin))
	cookies := env.loginAs(t, admin.ID)

	rec := env.do(http.MethodGet, "/benefits", nil, cookies)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	v := env.views.last(t)
	if v.Name != views.Benefits {
		t.Fatalf("rendered %q, want benefits", v.Name)
	}
	assertData(t, v, "userId", "u-2")
	assertData(t, v, "userName", "admin")
	assertData(t, v, "isAdmin", true)
	if env.users.getByIDCalls != 1 {
		t.Fatalf("GetByID calls = %d, want 1", env.users.getByIDCalls)
	}
}

func TestSessionUserID(t *testing.T) {
	env := newTestEnv(t, nil)

	if got := env.sessionUser(t, nil); got != "" {
		t.Fatalf("empty session returned %q", got)
	}
	if got := env.sessionUser(t, env.loginAs(t, "u-9")); got != "u-9" {
		t.Fatalf("session user = %q, want u-9", got)
	}
}
