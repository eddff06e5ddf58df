package handler

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/middleware"
	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	appErrors "github.com/noah-isme/sma-reading-log/pkg/errors"
)

// newSelfHostedClient serves /exec over HTTP and points a remote client at
// it, the way the views reach a self-hosted script endpoint.
func newSelfHostedClient(t *testing.T, svc *fakeReadingService, perSecond float64, burst int) *sheetapi.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(perSecond, burst, zap.NewNop())
	router := NewRouter(RouterDeps{
		Logger: zap.NewNop(),
		Script: NewScriptHandler(svc, limiter, zap.NewNop()),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return sheetapi.NewClient(sheetapi.ClientConfig{URL: srv.URL + "/exec"}, zap.NewNop(), nil)
}

func TestSelfHostedLoginsThrottledPerStudent(t *testing.T) {
	svc := &fakeReadingService{loginData: &models.LoginData{Student: models.Student{Number: "1", Name: "Kim"}}}
	client := newSelfHostedClient(t, svc, 0.001, 5)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		creds := models.LoginCredentials{Number: fmt.Sprintf("%d", 10200+i), Name: "Kim", Password: "0000"}
		resp := client.Login(ctx, creds)
		require.True(t, resp.Success, "student %s", creds.Number)
	}
	assert.Equal(t, 12, svc.loginCalls)
}

func TestSelfHostedThrottleMessageReachesStudent(t *testing.T) {
	svc := &fakeReadingService{loginData: &models.LoginData{Student: models.Student{Number: "1", Name: "Kim"}}}
	client := newSelfHostedClient(t, svc, 0.001, 2)
	ctx := context.Background()
	creds := models.LoginCredentials{Number: "10201", Name: "Kim", Password: "0000"}

	require.True(t, client.Login(ctx, creds).Success)
	require.True(t, client.Login(ctx, creds).Success)
	resp := client.Login(ctx, creds)

	assert.False(t, resp.Success)
	assert.Equal(t, appErrors.ErrTooManyRequests.Message, resp.Message)
	assert.NotEqual(t, sheetapi.MessageLoginFailed, resp.Message)
	assert.Equal(t, 2, svc.loginCalls)
}

func TestSelfHostedApplicationFailureVerbatim(t *testing.T) {
	svc := &fakeReadingService{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "이름이 일치하지 않습니다.")}
	client := newSelfHostedClient(t, svc, 0, 1)

	resp := client.Login(context.Background(), models.LoginCredentials{Number: "1", Name: "Lee", Password: "0000"})

	assert.Equal(t, models.APIResponse[models.LoginData]{Success: false, Message: "이름이 일치하지 않습니다."}, resp)
}
