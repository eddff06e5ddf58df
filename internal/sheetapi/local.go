package sheetapi

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

// Backend is the in-process record store, implemented by service.ReadingService.
type Backend interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginData, error)
	AddEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) (*models.BookEntry, error)
	Dashboard(ctx context.Context) ([]models.Student, bool, error)
}

// Local serves the API from a Backend in the same process.
type Local struct {
	backend Backend
	logger  *zap.Logger
	metrics CallObserver
}

// NewLocal constructs an in-process API.
func NewLocal(backend Backend, logger *zap.Logger, metrics CallObserver) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{backend: backend, logger: logger, metrics: metrics}
}

// Login authenticates against the backend.
func (l *Local) Login(ctx context.Context, creds models.LoginCredentials) models.APIResponse[models.LoginData] {
	start := time.Now()
	data, err := l.backend.Login(ctx, creds)
	if err != nil {
		return localFailure[models.LoginData](l, models.ActionLogin, MessageLoginFailed, start, err)
	}
	l.observe(models.ActionLogin, OutcomeSuccess, start)
	return models.OK(*data)
}

// AddBookEntry stores an entry through the backend.
func (l *Local) AddBookEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) models.APIResponse[models.BookEntry] {
	start := time.Now()
	created, err := l.backend.AddEntry(ctx, student.Identity(), entry)
	if err != nil {
		return localFailure[models.BookEntry](l, models.ActionAddEntry, MessageAddEntryFailed, start, err)
	}
	l.observe(models.ActionAddEntry, OutcomeSuccess, start)
	return models.OK(*created)
}

// GetDashboard lists students with their totals.
func (l *Local) GetDashboard(ctx context.Context) models.APIResponse[[]models.Student] {
	start := time.Now()
	students, _, err := l.backend.Dashboard(ctx)
	if err != nil {
		return localFailure[[]models.Student](l, models.ActionGetDashboard, MessageDashboardFailed, start, err)
	}
	l.observe(models.ActionGetDashboard, OutcomeSuccess, start)
	return models.OK(students)
}

// localFailure surfaces student-facing backend messages and hides internal
// failures behind the per-operation fallback.
func localFailure[T any](l *Local, action, fallback string, start time.Time, err error) models.APIResponse[T] {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code {
		l.observe(action, OutcomeFailure, start)
		return models.Fail[T](appErr.Message)
	}
	l.observe(action, OutcomeNetwork, start)
	l.logger.Error("record backend failed", zap.String("action", action), zap.Error(err))
	return models.Fail[T](fallback)
}

func (l *Local) observe(action, outcome string, start time.Time) {
	if l.metrics != nil {
		l.metrics.ObserveRemoteCall(action, outcome, time.Since(start))
	}
}
