package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-reading-log/internal/models"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

type readingStudentRepository interface {
	FindByNumber(ctx context.Context, number string) (*models.StudentRecord, error)
	Create(ctx context.Context, record *models.StudentRecord) error
	ListTotals(ctx context.Context) ([]models.StudentTotal, error)
}

type readingEntryRepository interface {
	ListByStudent(ctx context.Context, number string) ([]models.BookEntry, error)
	Append(ctx context.Context, number string, entry models.NewBookEntry) (*models.BookEntry, error)
}

const dashboardCacheKey = "reading:dashboard"

// ReadingConfig tunes the record backend.
type ReadingConfig struct {
	DefaultPassword   string
	DashboardCacheTTL time.Duration
}

// ReadingService implements the three script actions on top of Postgres.
type ReadingService struct {
	students  readingStudentRepository
	entries   readingEntryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    ReadingConfig
}

// NewReadingService constructs a ReadingService.
func NewReadingService(students readingStudentRepository, entries readingEntryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config ReadingConfig) *ReadingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultPassword == "" {
		config.DefaultPassword = "0000"
	}
	return &ReadingService{
		students:  students,
		entries:   entries,
		cache:     cache,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Login authenticates a student and returns their full history, newest
// first. An unknown number logging in with the default password is
// registered on the spot.
func (s *ReadingService) Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginData, error) {
	creds.Number = strings.TrimSpace(creds.Number)
	creds.Name = strings.TrimSpace(creds.Name)
	if err := s.validator.Struct(creds); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "번호, 이름, 비밀번호를 모두 입력해주세요.")
	}

	record, err := s.students.FindByNumber(ctx, creds.Number)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
		}
		if creds.Password != s.config.DefaultPassword {
			return nil, appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("등록되지 않은 학생입니다. 처음이라면 비밀번호 '%s'을 입력하세요.", s.config.DefaultPassword))
		}
		return s.register(ctx, creds)
	}

	if record.Name != creds.Name {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "이름이 일치하지 않습니다.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	history, err := s.entries.ListByStudent(ctx, record.Number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}

	student := record.ToStudent()
	total := 0
	if len(history) > 0 {
		total = history[0].CumulativePages
	}
	student.TotalPageCount = &total

	s.logger.Info("student logged in", zap.String("number", student.Number), zap.Int("entries", len(history)))
	return &models.LoginData{Student: student, History: history}, nil
}

func (s *ReadingService) register(ctx context.Context, creds models.LoginCredentials) (*models.LoginData, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	record := &models.StudentRecord{Number: creds.Number, Name: creds.Name, PasswordHash: string(hash)}
	if err := s.students.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.invalidateDashboard(ctx)

	student := record.ToStudent()
	zero := 0
	student.TotalPageCount = &zero
	s.logger.Info("student registered", zap.String("number", student.Number))
	return &models.LoginData{Student: student, History: []models.BookEntry{}}, nil
}

// AddEntry appends an entry for the student and returns it with the
// server-assigned sequence number and running page total.
func (s *ReadingService) AddEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) (*models.BookEntry, error) {
	number := strings.TrimSpace(student.Number)
	if number == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "학생 정보가 없습니다. 다시 로그인해주세요.")
	}
	entry.Title = strings.TrimSpace(entry.Title)
	entry.Publisher = strings.TrimSpace(entry.Publisher)
	if err := s.validator.Struct(entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "입력값을 확인해주세요.")
	}

	created, err := s.entries.Append(ctx, number, entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	s.invalidateDashboard(ctx)

	s.logger.Info("entry added", zap.String("number", number), zap.Int("no", created.No), zap.Int("pages", created.Pages))
	return created, nil
}

// Dashboard lists every student with their total page count, most pages
// first. The boolean reports a cache hit.
func (s *ReadingService) Dashboard(ctx context.Context) ([]models.Student, bool, error) {
	var cached []models.Student
	if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	totals, err := s.students.ListTotals(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
	}
	students := make([]models.Student, 0, len(totals))
	for _, t := range totals {
		total := t.TotalPageCount
		students = append(students, models.Student{Number: t.Number, Name: t.Name, TotalPageCount: &total})
	}

	_ = s.cache.Set(ctx, dashboardCacheKey, students, s.config.DashboardCacheTTL)
	return students, false, nil
}

func (s *ReadingService) invalidateDashboard(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, dashboardCacheKey+"*")
}
