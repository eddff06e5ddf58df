package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/session"
)

// ContextSessionKey is the gin context key storing the browser's container.
const ContextSessionKey = "session"

// deviceCookieMaxAge keeps the device cookie for a year.
const deviceCookieMaxAge = 365 * 24 * 60 * 60

// SessionOptions configures the device cookie.
type SessionOptions struct {
	CookieName string
	Secure     bool
}

// Session identifies the browser by its signed device cookie, issuing a new
// one when missing or invalid, and attaches its session container.
func Session(registry *session.Registry, codec *session.DeviceCodec, opts SessionOptions, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		deviceID := ""
		if raw, err := c.Cookie(opts.CookieName); err == nil && raw != "" {
			if id, err := codec.Parse(raw); err == nil {
				deviceID = id
			} else {
				logger.Debug("rejecting device cookie", zap.Error(err))
			}
		}
		if deviceID == "" {
			deviceID = session.NewDeviceID()
			token, err := codec.Issue(deviceID)
			if err != nil {
				logger.Error("issue device cookie failed", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, token, deviceCookieMaxAge, "/", "", opts.Secure, true)
		}

		c.Set(ContextSessionKey, registry.Get(c.Request.Context(), deviceID))
		c.Next()
	}
}

// CurrentSession returns the container attached by Session.
func CurrentSession(c *gin.Context) *session.Container {
	if value, ok := c.Get(ContextSessionKey); ok {
		if container, ok := value.(*session.Container); ok {
			return container
		}
	}
	return nil
}

// RequireStudent redirects anonymous browsers to the login page.
func RequireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		container := CurrentSession(c)
		if container == nil || !container.Snapshot().Authenticated() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedirectIfAuthenticated sends logged-in browsers to the dashboard.
func RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if container := CurrentSession(c); container != nil && container.Snapshot().Authenticated() {
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
