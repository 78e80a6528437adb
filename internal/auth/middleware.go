package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireLogin はセッションにユーザーIDが無ければ /login へリダイレクトするミドルウェアです。
// ユーザーの存在確認は行いません（後続のハンドラーの責務）。
func (h *Handler) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := SessionUserID(c)
		if !ok {
			h.log(c).Debug("redirecting to login")
			c.Redirect(http.StatusFound, PathLogin)
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// RequireAdmin は管理者だけを通すミドルウェアです。
// ユーザーの取得に失敗した場合も管理者でない場合と同じく /login へリダイレクトします。
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := SessionUserID(c)
		if !ok {
			h.log(c).Debug("redirecting to login")
			c.Redirect(http.StatusFound, PathLogin)
			c.Abort()
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			h.log(c).WithError(err).WithField("user_id", userID).Warn("admin check failed, redirecting to login")
			c.Redirect(http.StatusFound, PathLogin)
			c.Abort()
			return
		}
		if user == nil || !user.IsAdmin {
			h.log(c).WithField("user_id", userID).Info("non-admin denied, redirecting to login")
			c.Redirect(http.StatusFound, PathLogin)
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserKey, user)
		c.Next()
	}
}
