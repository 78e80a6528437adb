package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	gsessions "github.com/gorilla/sessions"

	"github.com/yourusername/retire-easy/internal/allocations"
	"github.com/yourusername/retire-easy/internal/config"
	"github.com/yourusername/retire-easy/internal/logging"
	"github.com/yourusername/retire-easy/internal/users"
)

const testScripts = `<script src="/env.js"></script>`

const (
	testSessionName   = "test_session"
	testSessionSecret = "test-secret"
)

type renderedView struct {
	Name string
	Data gin.H
}

// recordingRender は c.HTML に渡されたテンプレート名とデータを記録します。
type recordingRender struct {
	mu    sync.Mutex
	views []renderedView
}

func (r *recordingRender) Instance(name string, data any) render.Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, _ := data.(gin.H)
	r.views = append(r.views, renderedView{Name: name, Data: h})
	return render.Data{ContentType: "text/html; charset=utf-8", Data: []byte(name)}
}

func (r *recordingRender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *recordingRender) last(t *testing.T) renderedView {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		t.Fatal("no view was rendered")
	}
	return r.views[len(r.views)-1]
}

type fakeUserStore struct {
	byID map[string]*users.User

	getByIDErr   error
	getByNameErr error
	validateErr  error
	validateUser *users.User
	addErr       error
	panicOnLogin bool

	getByIDCalls   int
	getByNameCalls int
	validateCalls  int
	addCalls       []users.NewUser
}

func newFakeUserStore(existing ...*users.User) *fakeUserStore {
	s := &fakeUserStore{byID: make(map[string]*users.User)}
	for _, u := range existing {
		s.byID[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*users.User, error) {
	s.getByIDCalls++
	if s.getByIDErr != nil {
		return nil, s.getByIDErr
	}
	return s.byID[id], nil
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	s.getByNameCalls++
	if s.getByNameErr != nil {
		return nil, s.getByNameErr
	}
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) ValidateLogin(ctx context.Context, username, password string) (*users.User, error) {
	s.validateCalls++
	if s.panicOnLogin {
		panic("driver exploded")
	}
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return s.validateUser, nil
}

func (s *fakeUserStore) AddUser(ctx context.Context, nu users.NewUser) (*users.User, error) {
	s.addCalls = append(s.addCalls, nu)
	if s.addErr != nil {
		return nil, s.addErr
	}
	u := &users.User{
		ID:        "user-" + nu.Username,
		Username:  nu.Username,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     nu.Email,
		IsAdmin:   nu.IsAdmin,
	}
	s.byID[u.ID] = u
	return u, nil
}

type upsertCall struct {
	userID               string
	stocks, funds, bonds int
}

type fakeAllocationStore struct {
	err   error
	calls []upsertCall
}

func (s *fakeAllocationStore) Upsert(ctx context.Context, userID string, stocks, funds, bonds int) error {
	s.calls = append(s.calls, upsertCall{userID: userID, stocks: stocks, funds: funds, bonds: bonds})
	return s.err
}

type testEnv struct {
	router      *gin.Engine
	views       *recordingRender
	users       *fakeUserStore
	allocations *fakeAllocationStore
	handler     *Handler
}

func newTestEnv(t *testing.T, us *fakeUserStore, opts ...Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if us == nil {
		us = newFakeUserStore()
	}
	as := &fakeAllocationStore{}
	cfg := &config.Config{EnvironmentalScripts: testScripts}
	h := NewHandler(cfg, us, as, logging.Discard(), opts...)

	views := &recordingRender{}
	router := gin.New()
	router.HTMLRender = views
	router.Use(sessions.Sessions(testSessionName, cookie.NewStore([]byte(testSessionSecret))))
	router.Use(logging.Errors(logging.Discard()))

	router.GET("/login", h.ShowLogin)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/signup", h.ShowSignup)
	router.POST("/signup", h.Signup)
	router.GET("/dashboard", h.RequireLogin(), h.Dashboard)
	router.GET("/benefits", h.RequireAdmin(), h.Benefits)

	// テスト用: セッションを直接設定・参照する
	router.GET("/test/session/:id", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(sessionKeyUserID, c.Param("id"))
		if err := session.Save(); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/test/whoami", func(c *gin.Context) {
		id, _ := SessionUserID(c)
		c.String(http.StatusOK, id)
	})
	router.GET("/test/ungated-dashboard", h.Dashboard)
	router.GET("/test/protected", h.RequireLogin(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserIDKey))
	})

	return &testEnv{router: router, views: views, users: us, allocations: as, handler: h}
}

func (e *testEnv) do(method, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// loginAs はセッションに userID を保存し、そのクッキーを返します。
func (e *testEnv) loginAs(t *testing.T, userID string) []*http.Cookie {
	t.Helper()
	rec := e.do(http.MethodGet, "/test/session/"+userID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed to seed session: %d", rec.Code)
	}
	return rec.Result().Cookies()
}

// sessionUser は与えたクッキーのセッションに入っているユーザーIDを返します。
func (e *testEnv) sessionUser(t *testing.T, cookies []*http.Cookie) string {
	t.Helper()
	rec := e.do(http.MethodGet, "/test/whoami", nil, cookies)
	return rec.Body.String()
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (body=%s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Fatalf("Location = %q, want %q", loc, want)
	}
}

func assertData(t *testing.T, v renderedView, key string, want any) {
	t.Helper()
	if got := v.Data[key]; got != want {
		t.Fatalf("%s[%q] = %#v, want %#v", v.Name, key, got, want)
	}
}

func fixedGenerator(values ...int) *allocations.Generator {
	return allocations.NewGenerator(func(int) int {
		v := values[0]
		values = values[1:]
		return v
	})
}

// failingSaveStore はクッキーの読み込みはできるが保存には必ず失敗するストアです。
type failingSaveStore struct {
	cookie.Store
}

func newFailingSaveStore() failingSaveStore {
	return failingSaveStore{Store: cookie.NewStore([]byte(testSessionSecret))}
}

func (f failingSaveStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(f, name)
}

func (f failingSaveStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	loaded, err := f.Store.New(r, name)
	s := gsessions.NewSession(f, name)
	if loaded != nil {
		s.ID = loaded.ID
		s.Values = loaded.Values
		s.Options = loaded.Options
		s.IsNew = loaded.IsNew
	}
	return s, err
}

func (f failingSaveStore) Save(r *http.Request, w http.ResponseWriter, s *gsessions.Session) error {
	return errors.New("session backend unavailable")
}
