package handler

import (
	"context"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
	"github.com/noah-isme/sma-reading-log/pkg/response"
)

const maxScriptBody = 1 << 20

type readingService interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginData, error)
	AddEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) (*models.BookEntry, error)
	Dashboard(ctx context.Context) ([]models.Student, bool, error)
}

// ScriptHandler is a self-hosted drop-in for the spreadsheet script
// endpoint. It answers every request with an envelope.
type ScriptHandler struct {
	service readingService
	limiter loginLimiter
	logger  *zap.Logger
}

// NewScriptHandler constructs the handler. limiter throttles logins per
// student number and must not be shared with the login view.
func NewScriptHandler(service readingService, limiter loginLimiter, logger *zap.Logger) *ScriptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptHandler{service: service, limiter: limiter, logger: logger}
}

// Get godoc
// @Summary Query the record backend
// @Tags Script
// @Produce json
// @Param action query string true "Only getDashboard is supported"
// @Success 200 {object} models.APIResponse[[]models.Student]
// @Router /exec [get]
func (h *ScriptHandler) Get(c *gin.Context) {
	if c.Query("action") != models.ActionGetDashboard {
		response.Error(c, appErrors.ErrUnknownAction)
		return
	}
	h.dashboard(c)
}

// Post godoc
// @Summary Run a record backend action
// @Tags Script
// @Accept json
// @Produce json
// @Param payload body models.ScriptRequest true "login, addEntry or getDashboard"
// @Success 200 {object} models.APIResponse[models.LoginData]
// @Router /exec [post]
func (h *ScriptHandler) Post(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScriptBody))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "요청 형식이 올바르지 않습니다."))
		return
	}
	var req models.ScriptRequest
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "요청 형식이 올바르지 않습니다."))
		return
	}

	switch req.Action {
	case models.ActionLogin:
		h.login(c, req)
	case models.ActionAddEntry:
		h.addEntry(c, req)
	case models.ActionGetDashboard:
		h.dashboard(c)
	default:
		h.logger.Info("unknown script action", zap.String("action", req.Action))
		response.Error(c, appErrors.ErrUnknownAction)
	}
}

func (h *ScriptHandler) login(c *gin.Context, req models.ScriptRequest) {
	// Keyed by student number: behind the views every request arrives
	// from the app's own address.
	if h.limiter != nil && !h.limiter.Allow("login:"+strings.TrimSpace(req.Number)) {
		h.logger.Info("script login throttled", zap.String("number", req.Number))
		response.Error(c, appErrors.ErrTooManyRequests)
		return
	}
	data, err := h.service.Login(c.Request.Context(), models.LoginCredentials{
		Number:   req.Number,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.JSON(c, *data)
}

func (h *ScriptHandler) addEntry(c *gin.Context, req models.ScriptRequest) {
	if req.Student == nil || req.Entry == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "학생 정보와 기록을 모두 보내주세요."))
		return
	}
	created, err := h.service.AddEntry(c.Request.Context(), *req.Student, *req.Entry)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.JSON(c, *created)
}

func (h *ScriptHandler) dashboard(c *gin.Context) {
	students, _, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.JSON(c, students)
}
