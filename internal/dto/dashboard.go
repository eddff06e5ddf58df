package dto

import "github.com/noah-isme/sma-reading-log/internal/models"

// Dashboard is the view model for the student dashboard.
type Dashboard struct {
	StudentName string
	TotalBooks  int
	TotalPages  int
	LatestDate  string
	Chart       []ChartBar
	Recent      []models.BookEntry
	Flash       string
}

// ChartBar is one bar of the recent pages chart. HeightPct is relative to
// the tallest bar in the series.
type ChartBar struct {
	Title     string
	FullTitle string
	Pages     int
	HeightPct int
	Highlight bool
}

// Ranking is the view model built from the aggregate student dashboard.
type Ranking struct {
	Rows    []RankingRow
	Message string
}

// RankingRow is one student in the ranking table.
type RankingRow struct {
	Rank       int
	Number     string
	Name       string
	TotalPages int
	IsCurrent  bool
}
