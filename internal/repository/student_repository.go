package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-reading-log/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db      *sqlx.DB
	metrics QueryObserver
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, metrics QueryObserver) *StudentRepository {
	return &StudentRepository{db: db, metrics: metrics}
}

// FindByNumber fetches a student by number. It returns sql.ErrNoRows when the
// student does not exist.
func (r *StudentRepository) FindByNumber(ctx context.Context, number string) (*models.StudentRecord, error) {
	defer observe(r.metrics, "students_find", time.Now())
	const query = `SELECT number, name, password_hash, created_at, updated_at FROM students WHERE number = $1`
	var record models.StudentRecord
	if err := r.db.GetContext(ctx, &record, query, number); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, record *models.StudentRecord) error {
	defer observe(r.metrics, "students_create", time.Now())
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO students (number, name, password_hash, created_at, updated_at)
        VALUES (:number, :name, :password_hash, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ListTotals returns every student with the sum of their recorded pages,
// most pages first.
func (r *StudentRepository) ListTotals(ctx context.Context) ([]models.StudentTotal, error) {
	defer observe(r.metrics, "students_totals", time.Now())
	const query = `SELECT s.number, s.name, COALESCE(SUM(e.pages), 0) AS total_page_count
        FROM students s LEFT JOIN book_entries e ON e.student_number = s.number
        GROUP BY s.number, s.name
        ORDER BY total_page_count DESC, s.number ASC`
	totals := make([]models.StudentTotal, 0)
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("list student totals: %w", err)
	}
	return totals, nil
}
