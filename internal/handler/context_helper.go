package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/middleware"
	"github.com/noah-isme/sma-reading-log/internal/session"
)

func sessionFromContext(c *gin.Context) *session.Container {
	return middleware.CurrentSession(c)
}

// remoteContext detaches backend calls from the browser request so a call
// that was issued always settles, even if the browser goes away.
func remoteContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}
