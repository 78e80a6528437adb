package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/retire-easy/internal/auth"
	"github.com/yourusername/retire-easy/internal/config"
	"github.com/yourusername/retire-easy/internal/logging"
	"github.com/yourusername/retire-easy/internal/views"
)

// 開発時に SESSION_SECRET が未設定の場合だけ使う署名鍵
const devSessionSecret = "insecure-development-session-secret"

// newRouter はミドルウェアとルーティングを設定したエンジンを返します。
func newRouter(cfg *config.Config, logger *logrus.Logger, st *stores) (*gin.Engine, error) {
	router := gin.New()
	router.Use(
		logging.RequestID(),
		logging.AccessLog(logger),
		logging.Recovery(logger),
		logging.Errors(logger),
	)

	tmpl, err := views.Load()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	// セッションストアの設定
	secret := cfg.SessionSecret
	if secret == "" {
		logger.Warn("SESSION_SECRET is not set, using an insecure development secret")
		secret = devSessionSecret
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeSeconds,
		HttpOnly: true,
		Secure:   cfg.IsRelease(),
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(cfg.SessionCookieName, store))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	setupRoutes(router, auth.NewHandler(cfg, st.users, st.allocations, logger))
	return router, nil
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "retire-easy",
	})
}

func setupRoutes(router *gin.Engine, h *auth.Handler) {
	router.GET("/health", handleHealth)

	// ログイン・サインアップ
	router.GET("/login", h.ShowLogin)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/signup", h.ShowSignup)
	router.POST("/signup", h.Signup)

	// ログインが必要な画面
	router.GET("/", h.RequireLogin(), h.Dashboard)
	router.GET("/dashboard", h.RequireLogin(), h.Dashboard)

	// 管理者のみ
	router.GET("/benefits", h.RequireAdmin(), h.Benefits)
}
