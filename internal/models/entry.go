package models

import "time"

// DateLayout is the calendar date format used by entries.
const DateLayout = "2006-01-02"

// BookEntry is one recorded reading session. No and CumulativePages are
// assigned by the backend.
type BookEntry struct {
	No              int    `json:"no" db:"no"`
	Date            string `json:"date" db:"date"`
	Title           string `json:"title" db:"title"`
	Publisher       string `json:"publisher" db:"publisher"`
	Impression      string `json:"impression" db:"impression"`
	Pages           int    `json:"pages" db:"pages"`
	CumulativePages int    `json:"cumulativePages" db:"cumulative_pages"`
}

// NewBookEntry carries the fields a student submits for a new entry.
type NewBookEntry struct {
	Date       string `json:"date" form:"date" binding:"required,datetime=2006-01-02" validate:"required,datetime=2006-01-02"`
	Title      string `json:"title" form:"title" binding:"required" validate:"required"`
	Publisher  string `json:"publisher" form:"publisher" binding:"required" validate:"required"`
	Impression string `json:"impression" form:"impression" binding:"required" validate:"required"`
	Pages      int    `json:"pages" form:"pages" binding:"required,min=1" validate:"required,min=1"`
}

// EntryRecord is the persisted row behind a BookEntry.
type EntryRecord struct {
	StudentNumber string    `db:"student_number"`
	CreatedAt     time.Time `db:"created_at"`
	BookEntry
}
