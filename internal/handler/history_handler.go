package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/view"
)

type historyExporter interface {
	History(student models.Student, history []models.BookEntry, format service.ExportFormat) (*service.ExportResult, error)
}

// HistoryHandler lists and exports the full in-memory history.
type HistoryHandler struct {
	exporter historyExporter
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(exporter historyExporter) *HistoryHandler {
	return &HistoryHandler{exporter: exporter}
}

// Show renders every entry, newest first.
func (h *HistoryHandler) Show(c *gin.Context) {
	snap := sessionFromContext(c).Snapshot()
	c.HTML(http.StatusOK, view.PageHistory, gin.H{
		"Student": snap.Student,
		"History": snap.History,
	})
}

// Export downloads the history as CSV or PDF.
func (h *HistoryHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		c.String(http.StatusBadRequest, "지원하지 않는 형식입니다.")
		return
	}
	snap := sessionFromContext(c).Snapshot()
	if snap.Student == nil {
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	result, err := h.exporter.History(*snap.Student, snap.History, format)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "내보내기 중 오류가 발생했습니다.")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
