package service

import (
	"sort"

	"github.com/noah-isme/sma-reading-log/internal/dto"
	"github.com/noah-isme/sma-reading-log/internal/models"
)

const (
	chartSize        = 5
	recentSize       = 5
	chartTitleRunes  = 8
	chartTitleSuffix = "..."
	emptyDate        = "-"
)

// BuildDashboard derives the dashboard statistics from the in-memory history,
// which is ordered newest first. It performs no I/O.
func BuildDashboard(student *models.Student, history []models.BookEntry) dto.Dashboard {
	view := dto.Dashboard{
		TotalBooks: len(history),
		LatestDate: emptyDate,
		Chart:      ChartSeries(history),
		Recent:     make([]models.BookEntry, 0, recentSize),
	}
	if student != nil {
		view.StudentName = student.Name
	}
	for _, entry := range history {
		view.TotalPages += entry.Pages
	}
	if len(history) > 0 && history[0].Date != "" {
		view.LatestDate = history[0].Date
	}
	for i := 0; i < len(history) && i < recentSize; i++ {
		view.Recent = append(view.Recent, history[i])
	}
	return view
}

// ChartSeries returns the most recent entries in chronological order, at most
// five, with the newest bar highlighted.
func ChartSeries(history []models.BookEntry) []dto.ChartBar {
	n := len(history)
	if n > chartSize {
		n = chartSize
	}
	bars := make([]dto.ChartBar, 0, n)
	maxPages := 0
	for i := n - 1; i >= 0; i-- {
		entry := history[i]
		bars = append(bars, dto.ChartBar{
			Title:     TruncateTitle(entry.Title),
			FullTitle: entry.Title,
			Pages:     entry.Pages,
		})
		if entry.Pages > maxPages {
			maxPages = entry.Pages
		}
	}
	for i := range bars {
		if maxPages > 0 {
			bars[i].HeightPct = bars[i].Pages * 100 / maxPages
		}
		bars[i].Highlight = i == len(bars)-1
	}
	return bars
}

// TruncateTitle shortens titles longer than eight characters.
func TruncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= chartTitleRunes {
		return title
	}
	return string(runes[:chartTitleRunes]) + chartTitleSuffix
}

// BuildRanking orders the aggregate student list by total pages and marks
// the current student. Equal totals share a rank.
func BuildRanking(students []models.Student, current *models.Student) dto.Ranking {
	ranking := dto.Ranking{Rows: make([]dto.RankingRow, 0, len(students))}
	for _, s := range students {
		row := dto.RankingRow{Number: s.Number, Name: s.Name}
		if s.TotalPageCount != nil {
			row.TotalPages = *s.TotalPageCount
		}
		row.IsCurrent = current != nil && current.Number == s.Number
		ranking.Rows = append(ranking.Rows, row)
	}
	sort.SliceStable(ranking.Rows, func(i, j int) bool {
		return ranking.Rows[i].TotalPages > ranking.Rows[j].TotalPages
	})
	for i := range ranking.Rows {
		ranking.Rows[i].Rank = i + 1
		if i > 0 && ranking.Rows[i].TotalPages == ranking.Rows[i-1].TotalPages {
			ranking.Rows[i].Rank = ranking.Rows[i-1].Rank
		}
	}
	return ranking
}
