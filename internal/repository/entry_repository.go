package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-reading-log/internal/models"
)

// EntryRepository manages the per-student reading entries.
type EntryRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewEntryRepository constructs an EntryRepository.
func NewEntryRepository(db *sqlx.DB, metrics QueryObserver) *EntryRepository {
	return &EntryRepository{db: db, metrics: metrics}
}

const entryColumns = `no, to_char(date, 'YYYY-MM-DD') AS date, title, publisher, impression, pages, cumulative_pages`

// ListByStudent returns the student's entries, newest first.
func (r *EntryRepository) ListByStudent(ctx context.Context, number string) ([]models.BookEntry, error) {
	defer observe(r.metrics, "entries_list", time.Now())
	query := `SELECT ` + entryColumns + ` FROM book_entries WHERE student_number = $1 ORDER BY no DESC`
	entries := make([]models.BookEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, number); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Append stores a new entry for the student, assigning the next sequence
// number and the running page total. The student row is locked for the
// duration of the transaction so concurrent appends stay sequential. It
// returns sql.ErrNoRows when the student does not exist.
func (r *EntryRepository) Append(ctx context.Context, number string, entry models.NewBookEntry) (*models.BookEntry, error) {
	defer observe(r.metrics, "entries_append", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append entry: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.GetContext(ctx, &locked, `SELECT number FROM students WHERE number = $1 FOR UPDATE`, number); err != nil {
		return nil, err
	}

	var last struct {
		No              int `db:"no"`
		CumulativePages int `db:"cumulative_pages"`
	}
	err = tx.GetContext(ctx, &last, `SELECT no, cumulative_pages FROM book_entries WHERE student_number = $1 ORDER BY no DESC LIMIT 1`, number)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load last entry: %w", err)
	}

	created := &models.BookEntry{
		No:              last.No + 1,
		Date:            entry.Date,
		Title:           entry.Title,
		Publisher:       entry.Publisher,
		Impression:      entry.Impression,
		Pages:           entry.Pages,
		CumulativePages: last.CumulativePages + entry.Pages,
	}

	const insert = `INSERT INTO book_entries (student_number, no, date, title, publisher, impression, pages, cumulative_pages, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err = tx.ExecContext(ctx, insert, number, created.No, created.Date, created.Title, created.Publisher,
		created.Impression, created.Pages, created.CumulativePages, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit entry: %w", err)
	}
	return created, nil
}
