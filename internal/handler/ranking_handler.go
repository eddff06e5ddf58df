package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-reading-log/internal/dto"
	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
)

// RankingHandler shows every student's total pages.
type RankingHandler struct {
	api sheetapi.API
}

// NewRankingHandler constructs the handler.
func NewRankingHandler(api sheetapi.API) *RankingHandler {
	return &RankingHandler{api: api}
}

// Show fetches the aggregate dashboard and renders the ranking.
func (h *RankingHandler) Show(c *gin.Context) {
	snap := sessionFromContext(c).Snapshot()
	resp := h.api.GetDashboard(remoteContext(c))

	var ranking dto.Ranking
	if resp.Success && resp.Data != nil {
		ranking = service.BuildRanking(*resp.Data, snap.Student)
	} else {
		ranking.Message = resp.Message
		if ranking.Message == "" {
			ranking.Message = sheetapi.MessageDashboardFailed
		}
	}
	c.HTML(http.StatusOK, view.PageRanking, gin.H{
		"Student": snap.Student,
		"Ranking": ranking,
	})
}
