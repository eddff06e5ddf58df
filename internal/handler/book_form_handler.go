package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

const (
	entrySavedMessage  = "독서 기록이 저장되었습니다!"
	entryFailedMessage = "저장 중 오류가 발생했습니다."
)

// BookFormHandler serves the new entry form.
type BookFormHandler struct {
	api sheetapi.API
	now func() time.Time
}

// NewBookFormHandler constructs the handler.
func NewBookFormHandler(api sheetapi.API) *BookFormHandler {
	return &BookFormHandler{api: api, now: time.Now}
}

// Show renders an empty form dated today.
func (h *BookFormHandler) Show(c *gin.Context) {
	snap := sessionFromContext(c).Snapshot()
	h.render(c, http.StatusOK, snap.Student, models.NewBookEntry{Date: h.now().Format(models.DateLayout)}, "")
}

// Submit validates the form and stores the entry through the backend.
func (h *BookFormHandler) Submit(c *gin.Context) {
	container := sessionFromContext(c)
	snap := container.Snapshot()
	if snap.Student == nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	var form models.NewBookEntry
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, snap.Student, form, appErrors.ErrValidation.Message)
		return
	}
	if !container.TryBegin() {
		h.render(c, http.StatusConflict, snap.Student, form, appErrors.ErrConflict.Message)
		return
	}
	defer container.End()

	resp := h.api.AddBookEntry(remoteContext(c), *snap.Student, form)
	if !resp.Success || resp.Data == nil {
		message := resp.Message
		if message == "" {
			message = entryFailedMessage
		}
		h.render(c, http.StatusUnprocessableEntity, snap.Student, form, message)
		return
	}

	container.EntryAdded(*resp.Data)
	container.SetFlash(entrySavedMessage)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *BookFormHandler) render(c *gin.Context, status int, student *models.Student, form models.NewBookEntry, message string) {
	c.HTML(status, view.PageBookForm, gin.H{
		"Student": student,
		"Form":    form,
		"Error":   message,
	})
}
