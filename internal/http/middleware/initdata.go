package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	apperrors "github.com/open-builders/reward-rush-bot/internal/common/errors"
)

// Context keys set by InitData.
const (
	UserCtxKey   = "user"
	UserIDCtxKey = "user_id"
)

// InitDataHeader carries the raw Mini App init data.
const InitDataHeader = "X-Telegram-Init-Data"

// InitData validates Telegram Mini App init data signed with the bot token
// and stores the parsed user in the context. The raw string is read from the
// X-Telegram-Init-Data header, falling back to the init_data query parameter.
// ttl 0 disables the expiry check.
func InitData(token string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			Abort(c, apperrors.New(apperrors.ErrCodeInternal, "init data validation is not configured"))
			return
		}

		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing init data"})
			return
		}

		if err := initdata.Validate(raw, token, ttl); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			Abort(c, apperrors.NewValidationError("init_data", err.Error()))
			return
		}
		if parsed.User.ID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "init data has no user"})
			return
		}

		c.Set(UserCtxKey, parsed.User)
		c.Set(UserIDCtxKey, parsed.User.ID)
		c.Next()
	}
}

// RequireAdmin lets through only users for which isAdmin holds. It must run
// after InitData.
func RequireAdmin(isAdmin func(id int64) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetInt64(UserIDCtxKey)
		if id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Telegram Init Data required"})
			return
		}
		if !isAdmin(id) {
			Abort(c, apperrors.NewForbiddenError("admin access required").WithUserID(id))
			return
		}
		c.Next()
	}
}
