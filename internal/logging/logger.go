// Package logging はアプリケーション共通のロガーと、Gin 用のリクエストログ系ミドルウェアを提供します。
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ContextRequestIDKey は gin.Context にリクエストIDを保存するキーです。
const ContextRequestIDKey = "request_id"

// New は設定に従った logrus ロガーを作成します。
// format が "json" なら JSONFormatter、それ以外はタイムスタンプ付きのテキスト出力になります。
func New(level, format string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, format)
}

// NewWithOutput は出力先を指定してロガーを作成します。
func NewWithOutput(out io.Writer, level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard はテスト用に何も出力しないロガーを返します。
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// FromContext はリクエストIDを付与したログエントリを返します。
func FromContext(c *gin.Context, logger logrus.FieldLogger) *logrus.Entry {
	entry := logger.WithField("path", c.Request.URL.Path)
	if id := c.GetString(ContextRequestIDKey); id != "" {
		entry = entry.WithField(ContextRequestIDKey, id)
	}
	return entry
}
