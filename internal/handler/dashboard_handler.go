package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/view"
)

// DashboardHandler renders statistics from the in-memory history. It never
// calls the record backend.
type DashboardHandler struct{}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Show renders the dashboard.
func (h *DashboardHandler) Show(c *gin.Context) {
	container := sessionFromContext(c)
	snap := container.Snapshot()
	dashboard := service.BuildDashboard(snap.Student, snap.History)
	dashboard.Flash = container.TakeFlash()
	c.HTML(http.StatusOK, view.PageDashboard, gin.H{
		"Student":   snap.Student,
		"Dashboard": dashboard,
	})
}
