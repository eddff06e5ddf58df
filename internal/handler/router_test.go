package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/middleware"
	"github.com/noah-isme/sma-reading-log/internal/models"
	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/session"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
)

type fakeAPI struct {
	mu         sync.Mutex
	loginResp  models.APIResponse[models.LoginData]
	addResp    models.APIResponse[models.BookEntry]
	dashResp   models.APIResponse[[]models.Student]
	loginCalls int
	addCalls   int
	lastEntry  models.NewBookEntry
	lastCreds  models.LoginCredentials
}

func (f *fakeAPI) Login(_ context.Context, creds models.LoginCredentials) models.APIResponse[models.LoginData] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	f.lastCreds = creds
	return f.loginResp
}

func (f *fakeAPI) AddBookEntry(_ context.Context, _ models.Student, entry models.NewBookEntry) models.APIResponse[models.BookEntry] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	f.lastEntry = entry
	return f.addResp
}

func (f *fakeAPI) GetDashboard(context.Context) models.APIResponse[[]models.Student] {
	return f.dashResp
}

type testApp struct {
	router   *gin.Engine
	registry *session.Registry
	provider *session.MemoryProvider
	codec    *session.DeviceCodec
	api      *fakeAPI
	cookie   *http.Cookie
}

func newTestApp(t *testing.T, api *fakeAPI, restoreMode string) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	renderer, err := view.New()
	require.NoError(t, err)

	provider := session.NewMemoryProvider()
	registry := session.NewRegistry(provider, restoreMode, zap.NewNop(), nil)
	codec := session.NewDeviceCodec("test-secret")
	router := NewRouter(RouterDeps{
		Logger:         zap.NewNop(),
		Renderer:       renderer,
		API:            api,
		Registry:       registry,
		DeviceCodec:    codec,
		SessionOptions: middleware.SessionOptions{CookieName: "device"},
		Exporter:       service.NewExportService(zap.NewNop(), nil, nil),
	})
	return &testApp{router: router, registry: registry, provider: provider, codec: codec, api: api}
}

// do sends a request as one browser, keeping the device cookie.
func (a *testApp) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if a.cookie != nil {
		req.AddCookie(a.cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "device" {
			a.cookie = c
		}
	}
	return rec
}

func (a *testApp) container(t *testing.T) *session.Container {
	t.Helper()
	require.NotNil(t, a.cookie)
	deviceID, err := a.codec.Parse(a.cookie.Value)
	require.NoError(t, err)
	return a.registry.Get(context.Background(), deviceID)
}

func (a *testApp) storage(t *testing.T) session.Storage {
	t.Helper()
	return a.provider.For(a.container(t).DeviceID())
}

func loginForm() url.Values {
	return url.Values{"number": {"1"}, "name": {"Kim"}, "password": {"0000"}}
}

func entryForm(pages string) url.Values {
	return url.Values{
		"date":       {"2024-03-09"},
		"title":      {"Emma"},
		"publisher":  {"Penguin"},
		"impression": {"witty"},
		"pages":      {pages},
	}
}

func loggedInAPI() *fakeAPI {
	total := 80
	return &fakeAPI{
		loginResp: models.OK(models.LoginData{
			Student: models.Student{Number: "1", Name: "Kim", TotalPageCount: &total},
			History: []models.BookEntry{
				{No: 2, Date: "2024-03-05", Title: "Dune", Pages: 50, CumulativePages: 80},
				{No: 1, Date: "2024-03-01", Title: "Hobbit", Pages: 30, CumulativePages: 30},
			},
		}),
		addResp: models.OK(models.BookEntry{No: 3, Date: "2024-03-09", Title: "Emma", Publisher: "Penguin", Impression: "witty", Pages: 45, CumulativePages: 125}),
	}
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.RestoreIdentity)

	for _, path := range []string{"/", "/add", "/history", "/history/export", "/ranking"} {
		rec := app.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := app.do(http.MethodGet, "/somewhere/else", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = app.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "비밀번호 &#39;0000&#39;으로 입력해주세요.")
}

func TestLoginSuccessShowsDashboard(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)

	rec := app.do(http.MethodPost, "/login", loginForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, models.LoginCredentials{Number: "1", Name: "Kim", Password: "0000"}, app.api.lastCreds)

	snap := app.container(t).Snapshot()
	require.True(t, snap.Authenticated())
	assert.Len(t, snap.History, 2)
	raw, ok, err := app.storage(t).Get(context.Background(), session.IdentityKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"number":"1","name":"Kim"}`, raw)

	rec = app.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "안녕하세요, Kim 학생!")
	assert.Contains(t, body, "2권")
	assert.Contains(t, body, "80p")
	assert.Contains(t, body, "2024-03-05")

	rec = app.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestLoginFailureKeepsAnonymous(t *testing.T) {
	api := &fakeAPI{loginResp: models.Fail[models.LoginData]("비밀번호가 일치하지 않습니다.")}
	app := newTestApp(t, api, session.RestoreIdentity)

	rec := app.do(http.MethodPost, "/login", loginForm())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "비밀번호가 일치하지 않습니다.")
	assert.Contains(t, rec.Body.String(), `value="Kim"`)
	assert.NotContains(t, rec.Body.String(), `value="0000"`)

	assert.False(t, app.container(t).Snapshot().Authenticated())
	_, ok, err := app.storage(t).Get(context.Background(), session.IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)

	api.loginResp = models.APIResponse[models.LoginData]{}
	rec = app.do(http.MethodPost, "/login", loginForm())
	assert.Contains(t, rec.Body.String(), "로그인에 실패했습니다.")
}

func TestLoginNetworkFailureMessage(t *testing.T) {
	api := &fakeAPI{loginResp: models.Fail[models.LoginData](sheetapi.MessageLoginFailed)}
	app := newTestApp(t, api, session.RestoreIdentity)

	rec := app.do(http.MethodPost, "/login", loginForm())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "네트워크 오류가 발생했습니다.")
}

func TestLoginValidationSkipsAPI(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)

	rec := app.do(http.MethodPost, "/login", url.Values{"number": {"1"}, "name": {"Kim"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, app.api.loginCalls)
}

func TestAddEntryPrependsAndFlashes(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	rec := app.do(http.MethodGet, "/add", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "새로운 독서 기록")

	rec = app.do(http.MethodPost, "/add", entryForm("45"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, 45, app.api.lastEntry.Pages)

	snap := app.container(t).Snapshot()
	require.Len(t, snap.History, 3)
	assert.Equal(t, 3, snap.History[0].No)
	assert.Equal(t, 125, snap.History[0].CumulativePages)

	body := app.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, body, "독서 기록이 저장되었습니다!")
	assert.Contains(t, body, "3권")
	assert.Contains(t, body, "125p")

	body = app.do(http.MethodGet, "/", nil).Body.String()
	assert.NotContains(t, body, "독서 기록이 저장되었습니다!")
}

func TestAddEntryValidationSkipsAPI(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	for _, form := range []url.Values{entryForm("0"), entryForm("abc"), {"title": {"only"}}} {
		rec := app.do(http.MethodPost, "/add", form)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Equal(t, 0, app.api.addCalls)
	assert.Len(t, app.container(t).Snapshot().History, 2)
}

func TestAddEntryFailureKeepsValues(t *testing.T) {
	api := loggedInAPI()
	app := newTestApp(t, api, session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	api.addResp = models.Fail[models.BookEntry]("학생 정보를 찾을 수 없습니다.")
	rec := app.do(http.MethodPost, "/add", entryForm("45"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "학생 정보를 찾을 수 없습니다.")
	assert.Contains(t, rec.Body.String(), `value="Emma"`)

	api.addResp = models.APIResponse[models.BookEntry]{}
	rec = app.do(http.MethodPost, "/add", entryForm("45"))
	assert.Contains(t, rec.Body.String(), "저장 중 오류가 발생했습니다.")
	assert.Len(t, app.container(t).Snapshot().History, 2)
}

func TestConcurrentSubmissionRejected(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	container := app.container(t)
	require.True(t, container.TryBegin())
	rec := app.do(http.MethodPost, "/add", entryForm("45"))
	container.End()

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "이미 요청을 처리하고 있습니다.")
	assert.Equal(t, 0, app.api.addCalls)
}

func TestLogoutScenario(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	rec := app.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	snap := app.container(t).Snapshot()
	assert.False(t, snap.Authenticated())
	assert.Empty(t, snap.History)
	_, ok, err := app.storage(t).Get(context.Background(), session.IdentityKey)
	require.NoError(t, err)
	assert.False(t, ok)

	rec = app.do(http.MethodGet, "/", nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRestoredIdentityModes(t *testing.T) {
	app := newTestApp(t, &fakeAPI{}, session.RestoreRelogin)
	app.do(http.MethodGet, "/login", nil)
	require.NoError(t, app.storage(t).Set(context.Background(), session.IdentityKey, `{"number":"7","name":"Lee"}`))
	app.registry.Sweep(-1)

	rec := app.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Lee"`)

	identity := newTestApp(t, &fakeAPI{}, session.RestoreIdentity)
	identity.do(http.MethodGet, "/login", nil)
	require.NoError(t, identity.storage(t).Set(context.Background(), session.IdentityKey, `{"number":"7","name":"Lee"}`))
	identity.registry.Sweep(-1)

	rec = identity.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0권")
	assert.Contains(t, rec.Body.String(), "기록이 없습니다.")
}

func TestHistoryAndExport(t *testing.T) {
	app := newTestApp(t, loggedInAPI(), session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	rec := app.do(http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hobbit")

	rec = app.do(http.MethodGet, "/history/export?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reading-log-1-")
	assert.Contains(t, rec.Body.String(), "Dune")

	rec = app.do(http.MethodGet, "/history/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRankingView(t *testing.T) {
	api := loggedInAPI()
	top, mine := 300, 80
	api.dashResp = models.OK([]models.Student{{Number: "2", Name: "Lee", TotalPageCount: &top}, {Number: "1", Name: "Kim", TotalPageCount: &mine}})
	app := newTestApp(t, api, session.RestoreIdentity)
	app.do(http.MethodPost, "/login", loginForm())

	rec := app.do(http.MethodGet, "/ranking", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lee")
	assert.Contains(t, rec.Body.String(), `class="current"`)

	api.dashResp = models.Fail[[]models.Student](sheetapi.MessageDashboardFailed)
	rec = app.do(http.MethodGet, "/ranking", nil)
	assert.Contains(t, rec.Body.String(), "대시보드 로드 중 오류가 발생했습니다.")
}
