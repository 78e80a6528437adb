// Package main はポータルサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/retire-easy/internal/config"
	"github.com/yourusername/retire-easy/internal/logging"
	"github.com/yourusername/retire-easy/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// ストアの初期化（DATABASE_URL が無ければインメモリ）
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize stores: %v", err)
	}
	defer st.Close()

	// 管理者アカウントの初期投入
	if cfg.AdminUsername != "" {
		admin, created, err := users.EnsureAdmin(ctx, st.users, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			logger.Fatalf("Failed to seed admin user: %v", err)
		}
		if created {
			logger.WithField("user_id", admin.ID).Info("admin user created")
		}
	}

	router, err := newRouter(cfg, logger, st)
	if err != nil {
		logger.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s (mode: %s)", srv.Addr, cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// シグナルを受けたら処理中のリクエストを待って停止
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited")
}
