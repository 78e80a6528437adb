package logging

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-Id"

	// ErrorView は 5xx 応答で描画するテンプレート名です。
	ErrorView = "error"
)

// RequestID はリクエストごとに一意なIDを払い出すミドルウェアです。
// クライアントが X-Request-Id を送ってきた場合はそれを引き継ぎます。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLog はリクエストの結果をステータスに応じたレベルで記録します。
//   - 5xx: ERROR
//   - 4xx: WARN
//   - それ以外: INFO
func AccessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := FromContext(c, logger).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// Recovery はハンドラー内の panic を回収し、スタックを記録してエラーページを返します。
func Recovery(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if p := recover(); p != nil {
				FromContext(c, logger).WithFields(logrus.Fields{
					"panic": p,
					"stack": string(debug.Stack()),
				}).Error("request panic")
				c.Abort()
				if !c.Writer.Written() {
					renderError(c)
				}
			}
		}()
		c.Next()
	}
}

// Errors は c.Error で積まれたエラーを記録し、未応答ならエラーページを描画します。
// ハンドラーは詳細を利用者に見せず、ここで一括して 500 を返します。
func Errors(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, e := range c.Errors {
			FromContext(c, logger).WithError(e.Err).Error("request failed")
		}
		if c.Writer.Written() {
			return
		}
		renderError(c)
	}
}

func renderError(c *gin.Context) {
	c.HTML(http.StatusInternalServerError, ErrorView, gin.H{
		"status":  http.StatusInternalServerError,
		"message": "An error occurred. Please try again.",
	})
}
