// Package sheetapi talks to the record backend that stores students and
// their reading entries. Every operation answers with an APIResponse
// envelope; failures are reported inside the envelope, never as errors.
package sheetapi

import (
	"context"
	"time"

	"github.com/noah-isme/sma-reading-log/internal/models"
)

// Messages returned when the backend cannot be reached or answers garbage.
const (
	MessageLoginFailed     = "네트워크 오류가 발생했습니다."
	MessageAddEntryFailed  = "기록 저장 중 오류가 발생했습니다."
	MessageDashboardFailed = "대시보드 로드 중 오류가 발생했습니다."
)

// Call outcomes recorded by CallObserver.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNetwork = "network"
)

// API is the narrow surface the web views depend on.
type API interface {
	Login(ctx context.Context, creds models.LoginCredentials) models.APIResponse[models.LoginData]
	AddBookEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) models.APIResponse[models.BookEntry]
	GetDashboard(ctx context.Context) models.APIResponse[[]models.Student]
}

// CallObserver receives timing for each backend call.
type CallObserver interface {
	ObserveRemoteCall(action, outcome string, duration time.Duration)
}

func outcomeOf(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
