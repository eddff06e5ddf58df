package sheetapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxResponseBytes = 4 << 20

// ClientConfig points the HTTP client at the script endpoint.
type ClientConfig struct {
	URL string
	// Timeout bounds each call when positive. Zero leaves calls unbounded.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls a remote script endpoint over HTTP.
type Client struct {
	url     string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	metrics CallObserver
}

// NewClient constructs an HTTP backed API.
func NewClient(cfg ClientConfig, logger *zap.Logger, metrics CallObserver) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{url: cfg.URL, http: hc, timeout: cfg.Timeout, logger: logger, metrics: metrics}
}

// Login posts the credentials and returns the student with their history.
func (c *Client) Login(ctx context.Context, creds models.LoginCredentials) models.APIResponse[models.LoginData] {
	body := models.ScriptRequest{
		Action:   models.ActionLogin,
		Number:   creds.Number,
		Name:     creds.Name,
		Password: creds.Password,
	}
	return post[models.LoginData](ctx, c, body, MessageLoginFailed)
}

// AddBookEntry posts a new entry for the student.
func (c *Client) AddBookEntry(ctx context.Context, student models.Student, entry models.NewBookEntry) models.APIResponse[models.BookEntry] {
	identity := student.Identity()
	body := models.ScriptRequest{
		Action:  models.ActionAddEntry,
		Student: &identity,
		Entry:   &entry,
	}
	return post[models.BookEntry](ctx, c, body, MessageAddEntryFailed)
}

// GetDashboard fetches every student with their total page count.
func (c *Client) GetDashboard(ctx context.Context) models.APIResponse[[]models.Student] {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	target, err := url.Parse(c.url)
	if err != nil {
		return failure[[]models.Student](c, models.ActionGetDashboard, MessageDashboardFailed, time.Now(), err)
	}
	query := target.Query()
	query.Set("action", models.ActionGetDashboard)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return failure[[]models.Student](c, models.ActionGetDashboard, MessageDashboardFailed, time.Now(), err)
	}
	return do[[]models.Student](c, req, models.ActionGetDashboard, MessageDashboardFailed)
}

func post[T any](ctx context.Context, c *Client, body models.ScriptRequest, fallback string) models.APIResponse[T] {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return failure[T](c, body.Action, fallback, time.Now(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return failure[T](c, body.Action, fallback, time.Now(), err)
	}
	// Apps Script web apps only accept simple requests.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	return do[T](c, req, body.Action, fallback)
}

func do[T any](c *Client, req *http.Request, action, fallback string) models.APIResponse[T] {
	start := time.Now()
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return failure[T](c, action, fallback, start, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return failure[T](c, action, fallback, start, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return failure[T](c, action, fallback, start, fmt.Errorf("read body: %w", err))
	}

	var envelope models.APIResponse[T]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return failure[T](c, action, fallback, start, fmt.Errorf("decode body: %w", err))
	}
	if envelope.Success && envelope.Data == nil {
		return failure[T](c, action, fallback, start, fmt.Errorf("success envelope without data"))
	}
	if !envelope.Success && envelope.Message == "" {
		return failure[T](c, action, fallback, start, fmt.Errorf("failure envelope without message"))
	}

	c.observe(action, outcomeOf(envelope.Success), start)
	if !envelope.Success {
		c.logger.Info("record api rejected request", zap.String("action", action), zap.String("message", envelope.Message))
	}
	return envelope
}

func failure[T any](c *Client, action, message string, start time.Time, err error) models.APIResponse[T] {
	c.observe(action, OutcomeNetwork, start)
	c.logger.Warn("record api call failed", zap.String("action", action), zap.Error(err))
	return models.Fail[T](message)
}

func (c *Client) observe(action, outcome string, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveRemoteCall(action, outcome, time.Since(start))
	}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return ctx, func() {}
}
