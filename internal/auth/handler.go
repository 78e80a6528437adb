// Package auth はセッションによる認証（ログイン・サインアップ・ログアウト）と
// ログイン後のダッシュボード表示、アクセス制御用のミドルウェアを提供します。
package auth

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/retire-easy/internal/allocations"
	"github.com/yourusername/retire-easy/internal/config"
	"github.com/yourusername/retire-easy/internal/logging"
	"github.com/yourusername/retire-easy/internal/users"
	"github.com/yourusername/retire-easy/internal/views"
)

const (
	sessionKeyUserID = "userId"

	// リダイレクト先
	PathHome      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
	PathBenefits  = "/benefits"
)

// 利用者に見せるメッセージ。どちらの入力が誤っていたかは区別しない。
const (
	msgMissingCredentials = "Please provide both username and password"
	msgInvalidCredentials = "Invalid username or password"
	msgAllFieldsRequired  = "All fields are required"
	msgPasswordsDiffer    = "Passwords do not match"
	msgUsernameInUse      = "Username already in use"
	msgGenericError       = "An error occurred. Please try again."
	msgUnexpectedError    = "An unexpected error occurred"
)

// ContextUserIDKey はゲート通過後のユーザーIDを共有するためのキーです。Dashboard はここから読みます。
const ContextUserIDKey = "auth.userId"

// ContextUserKey は RequireAdmin が読み込んだ *users.User を共有するためのキーです。
const ContextUserKey = "auth.user"

// Handler はログイン・サインアップ・ログアウトとダッシュボード表示をまとめたコントローラーです。
type Handler struct {
	users       users.Store
	allocations allocations.Store
	generator   *allocations.Generator
	validator   *SignupValidator
	logger      logrus.FieldLogger
	scripts     template.HTML
}

// Option は Handler の任意設定です。
type Option func(*Handler)

// WithGenerator は初期配分の生成器を差し替えます。
func WithGenerator(g *allocations.Generator) Option {
	return func(h *Handler) {
		h.generator = g
	}
}

// NewHandler は Handler を作成します。ストアと設定は呼び出し側から注入します。
func NewHandler(cfg *config.Config, userStore users.Store, allocationStore allocations.Store, logger logrus.FieldLogger, opts ...Option) *Handler {
	h := &Handler{
		users:       userStore,
		allocations: allocationStore,
		generator:   allocations.NewGenerator(nil),
		validator:   NewSignupValidator(cfg.StrongPasswords),
		logger:      logger,
		// 設定ファイル由来の信頼済みスクリプトなのでエスケープしない
		scripts: template.HTML(cfg.EnvironmentalScripts),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type loginForm struct {
	UserName string `form:"userName"`
	Password string `form:"password"`
}

// ShowLogin は GET /login のハンドラーです。
func (h *Handler) ShowLogin(c *gin.Context) {
	h.render(c, views.Login, loginData("", ""))
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	defer h.recoverForm(c, views.Login, func() gin.H {
		return loginData(form.UserName, msgUnexpectedError)
	})

	if err := c.ShouldBind(&form); err != nil {
		h.log(c).WithError(err).Warn("failed to bind login form")
		h.render(c, views.Login, loginData(form.UserName, msgUnexpectedError))
		return
	}

	if form.UserName == "" || form.Password == "" {
		h.render(c, views.Login, loginData(form.UserName, msgMissingCredentials))
		return
	}

	user, err := h.users.ValidateLogin(c.Request.Context(), form.UserName, form.Password)
	if err != nil {
		// 照合の失敗と見分けがつかないよう、同じ表示にする
		h.log(c).WithError(err).Error("failed to validate login")
		h.render(c, views.Login, loginData(form.UserName, msgInvalidCredentials))
		return
	}
	if user == nil {
		h.render(c, views.Login, loginData(form.UserName, msgInvalidCredentials))
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.log(c).WithError(err).Error("failed to save session")
		h.render(c, views.Login, loginData(form.UserName, msgUnexpectedError))
		return
	}

	target := PathDashboard
	if user.IsAdmin {
		target = PathBenefits
	}
	c.Redirect(http.StatusFound, target)
}

// Logout は GET /logout のハンドラーです。保存に失敗してもログアウト済みとして扱います。
func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		h.log(c).WithError(err).Warn("failed to save cleared session")
	}
	c.Redirect(http.StatusFound, PathHome)
}

// ShowSignup は GET /signup のハンドラーです。
func (h *Handler) ShowSignup(c *gin.Context) {
	data := signupData(SignupForm{})
	for k, v := range emptyFieldErrors() {
		data[k] = v
	}
	h.render(c, views.Signup, data)
}

// Signup は POST /signup のハンドラーです。
// 入力チェック → 重複確認 → 登録 → 初期配分の作成 → セッション開始の順に実行し、
// 途中で失敗した時点で打ち切ります。登録済みのユーザーは巻き戻しません。
func (h *Handler) Signup(c *gin.Context) {
	var form SignupForm
	defer h.recoverForm(c, views.Signup, func() gin.H {
		return unexpectedSignupData(form)
	})

	if err := c.ShouldBind(&form); err != nil {
		h.log(c).WithError(err).Warn("failed to bind signup form")
		h.render(c, views.Signup, unexpectedSignupData(form))
		return
	}

	if form.UserName == "" || form.FirstName == "" || form.LastName == "" || form.Password == "" || form.Verify == "" {
		h.render(c, views.Signup, withMessage(signupData(form), msgAllFieldsRequired))
		return
	}

	if form.Password != form.Verify {
		h.render(c, views.Signup, withMessage(signupData(form), msgPasswordsDiffer))
		return
	}

	if fe := h.validator.Validate(form); fe != nil {
		data := signupData(form)
		for k, v := range emptyFieldErrors() {
			data[k] = v
		}
		data[fe.Field] = fe.Message
		h.render(c, views.Signup, data)
		return
	}

	ctx := c.Request.Context()

	existing, err := h.users.GetByUsername(ctx, form.UserName)
	if err != nil {
		h.renderStoreError(c, views.Signup, err, signupData(form))
		return
	}
	if existing != nil {
		h.render(c, views.Signup, withMessage(signupData(form), msgUsernameInUse))
		return
	}

	user, err := h.users.AddUser(ctx, users.NewUser{
		Username:  form.UserName,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
		Email:     form.Email,
	})
	if err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			h.render(c, views.Signup, withMessage(signupData(form), msgUsernameInUse))
			return
		}
		h.renderStoreError(c, views.Signup, err, signupData(form))
		return
	}

	stocks, funds, bonds := h.generator.Random()
	if err := h.allocations.Upsert(ctx, user.ID, stocks, funds, bonds); err != nil {
		h.renderStoreError(c, views.Signup, fmt.Errorf("allocation for user %s: %w", user.ID, err), signupData(form))
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.log(c).WithError(err).Error("failed to save session")
		h.render(c, views.Signup, unexpectedSignupData(form))
		return
	}

	h.log(c).WithField("user_id", user.ID).Info("user signed up")
	c.Redirect(http.StatusFound, PathDashboard)
}

// Dashboard は GET /dashboard のハンドラーです。RequireLogin の後ろに置きます。
// ストアのエラーはここでは描画せず、c.Error で外側のエラーミドルウェアに任せます。
func (h *Handler) Dashboard(c *gin.Context) {
	userID := c.GetString(ContextUserIDKey)
	if userID == "" {
		c.Redirect(http.StatusFound, PathLogin)
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(fmt.Errorf("load dashboard user %s: %w", userID, err))
		c.Abort()
		return
	}
	if user == nil {
		// セッションが存在しないユーザーを指している
		h.log(c).WithField("user_id", userID).Warn("session user not found, clearing session")
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			h.log(c).WithError(err).Warn("failed to save cleared session")
		}
		c.Redirect(http.StatusFound, PathLogin)
		return
	}

	data := userData(user)
	data["userId"] = userID
	h.render(c, views.Dashboard, data)
}

// Benefits は GET /benefits のハンドラーです。RequireAdmin の後ろに置きます。
func (h *Handler) Benefits(c *gin.Context) {
	v, ok := c.Get(ContextUserKey)
	user, _ := v.(*users.User)
	if !ok || user == nil {
		c.Redirect(http.StatusFound, PathLogin)
		return
	}
	data := userData(user)
	data["userId"] = user.ID
	h.render(c, views.Benefits, data)
}

// SessionUserID はセッションに保存されたユーザーIDを返します。
func SessionUserID(c *gin.Context) (string, bool) {
	id, ok := sessions.Default(c).Get(sessionKeyUserID).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (h *Handler) startSession(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(sessionKeyUserID, userID)
	return session.Save()
}

func (h *Handler) render(c *gin.Context, view string, data gin.H) {
	data["environmentalScripts"] = h.scripts
	if _, ok := data["title"]; !ok {
		data["title"] = titles[view]
	}
	c.HTML(http.StatusOK, view, data)
}

// renderStoreError はストアのエラーを記録し、詳細を伏せた汎用メッセージでフォームを再描画します。
func (h *Handler) renderStoreError(c *gin.Context, view string, err error, data gin.H) {
	h.log(c).WithError(err).Error("store operation failed")
	h.render(c, view, withMessage(data, msgGenericError))
}

// recoverForm は panic を回収し、フォームを汎用メッセージ付きで再描画します。
func (h *Handler) recoverForm(c *gin.Context, view string, data func() gin.H) {
	if p := recover(); p != nil {
		h.log(c).WithField("panic", p).Error("unexpected error while handling form")
		if c.Writer.Written() {
			return
		}
		h.render(c, view, data())
	}
}

func (h *Handler) log(c *gin.Context) *logrus.Entry {
	return logging.FromContext(c, h.logger)
}

var titles = map[string]string{
	views.Login:     "Log in",
	views.Signup:    "Sign up",
	views.Dashboard: "Dashboard",
	views.Benefits:  "Benefits",
}

func loginData(userName, loginError string) gin.H {
	return gin.H{
		"userName":   userName,
		"password":   "",
		"loginError": loginError,
	}
}

// signupData は入力値をそのまま戻します（パスワード欄も入力どおり）。
func signupData(f SignupForm) gin.H {
	return gin.H{
		"userName":  f.UserName,
		"firstName": f.FirstName,
		"lastName":  f.LastName,
		"password":  f.Password,
		"verify":    f.Verify,
		"email":     f.Email,
	}
}

func unexpectedSignupData(f SignupForm) gin.H {
	data := signupData(f)
	data["password"] = ""
	data["verify"] = ""
	return withMessage(data, msgUnexpectedError)
}

func emptyFieldErrors() gin.H {
	return gin.H{
		"userNameError":  "",
		"firstNameError": "",
		"lastNameError":  "",
		"passwordError":  "",
		"verifyError":    "",
		"emailError":     "",
	}
}

func withMessage(data gin.H, msg string) gin.H {
	data["errorMessage"] = msg
	return data
}

func userData(u *users.User) gin.H {
	return gin.H{
		"userName":  u.Username,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"email":     u.Email,
		"isAdmin":   u.IsAdmin,
	}
}
