package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	scriptMethods = "GET, POST, OPTIONS"
	scriptHeaders = "Content-Type, X-Request-ID"
	// Preflights are rare; script clients post text/plain.
	preflightMaxAge = "600"
)

// New returns the CORS middleware guarding the script endpoint. An empty
// origin list answers every origin, matching the hosted spreadsheet script.
// Preflight requests are answered here and never reach the handler.
func New(allowedOrigins []string) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[normalizeOrigin(origin)] = struct{}{}
	}
	allowAny := len(origins) == 0

	return func(c *gin.Context) {
		header := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin == "" && allowAny:
			header.Set("Access-Control-Allow-Origin", "*")
		case origin == "":
		case allowAny:
			header.Set("Access-Control-Allow-Origin", origin)
		default:
			if _, ok := origins[normalizeOrigin(origin)]; ok {
				header.Set("Access-Control-Allow-Origin", origin)
			}
		}

		header.Set("Vary", "Origin")
		header.Set("Access-Control-Allow-Methods", scriptMethods)
		header.Set("Access-Control-Allow-Headers", scriptHeaders)
		header.Set("Access-Control-Max-Age", preflightMaxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
