package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

const (
	loginFailedMessage     = "로그인에 실패했습니다."
	loginIncompleteMessage = "번호, 이름, 비밀번호를 모두 입력해주세요."
)

type loginLimiter interface {
	Allow(key string) bool
}

// LoginHandler serves the login view and the logout action.
type LoginHandler struct {
	api     sheetapi.API
	limiter loginLimiter
	hint    string
	logger  *zap.Logger
}

// NewLoginHandler constructs the handler. defaultPassword is advertised to
// first-time students.
func NewLoginHandler(api sheetapi.API, limiter loginLimiter, defaultPassword string, logger *zap.Logger) *LoginHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPassword == "" {
		defaultPassword = "0000"
	}
	return &LoginHandler{
		api:     api,
		limiter: limiter,
		hint:    fmt.Sprintf("처음 방문하시는 분은 비밀번호 '%s'으로 입력해주세요.", defaultPassword),
		logger:  logger,
	}
}

// Show renders the login form, prefilled with a remembered identity.
func (h *LoginHandler) Show(c *gin.Context) {
	form := models.LoginCredentials{}
	if prefill := sessionFromContext(c).Prefill(); prefill != nil {
		form.Number = prefill.Number
		form.Name = prefill.Name
	}
	h.render(c, http.StatusOK, form, "")
}

// Submit authenticates against the record backend.
func (h *LoginHandler) Submit(c *gin.Context) {
	container := sessionFromContext(c)

	var form models.LoginCredentials
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, form, loginIncompleteMessage)
		return
	}
	if h.limiter != nil && !h.limiter.Allow(c.ClientIP()) {
		h.render(c, http.StatusTooManyRequests, form, appErrors.ErrTooManyRequests.Message)
		return
	}
	if !container.TryBegin() {
		h.render(c, http.StatusConflict, form, appErrors.ErrConflict.Message)
		return
	}
	defer container.End()

	ctx := remoteContext(c)
	resp := h.api.Login(ctx, form)
	if !resp.Success || resp.Data == nil {
		message := resp.Message
		if message == "" {
			message = loginFailedMessage
		}
		h.render(c, http.StatusUnauthorized, form, message)
		return
	}

	if err := container.LoginSucceeded(ctx, resp.Data.Student, resp.Data.History); err != nil {
		h.logger.Warn("persist identity failed", zap.String("device_id", container.DeviceID()), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout clears the session and returns to the login page.
func (h *LoginHandler) Logout(c *gin.Context) {
	container := sessionFromContext(c)
	if err := container.Logout(c.Request.Context()); err != nil {
		h.logger.Warn("remove identity failed", zap.String("device_id", container.DeviceID()), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

func (h *LoginHandler) render(c *gin.Context, status int, form models.LoginCredentials, message string) {
	form.Password = ""
	c.HTML(status, view.PageLogin, gin.H{
		"Hint":  h.hint,
		"Form":  form,
		"Error": message,
	})
}
