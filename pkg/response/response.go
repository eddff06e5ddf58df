package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/models"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

// JSON writes a successful envelope. The script endpoint always answers 200
// and lets callers branch on success.
func JSON[T any](c *gin.Context, data T) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, models.OK(data))
}

// Error writes a failed envelope with the error's student-facing message.
// Throttled requests are answered with 200 too, so clients that treat any
// non-2xx as a transport failure still show the message.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, models.Fail[struct{}](appErr.Message))
}
