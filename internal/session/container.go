package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-reading-log/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Restore modes, matching config.RestoreModeIdentity and config.RestoreModeRelogin.
const (
	RestoreIdentity = "identity"
	RestoreRelogin  = "relogin"
)

type identity struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Container owns the State of one browser. All methods are safe for
// concurrent use.
type Container struct {
	mu       sync.Mutex
	deviceID string
	state    State
	storage  Storage
	logger   *zap.Logger
	prefill  *models.Student
	flash    string
	busy     bool
	lastSeen time.Time

	restoreOnce sync.Once
}

// NewContainer constructs an Anonymous container backed by storage.
func NewContainer(deviceID string, storage Storage, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Container{
		deviceID: deviceID,
		state:    Anonymous(),
		storage:  storage,
		logger:   logger,
		lastSeen: time.Now(),
	}
}

// DeviceID identifies the browser owning the container.
func (c *Container) DeviceID() string {
	return c.deviceID
}

// Restore reads the persisted identity. In identity mode a well-formed
// identity authenticates the container with an empty history; in relogin
// mode it is only kept as a login form prefill. Malformed values are removed.
func (c *Container) Restore(ctx context.Context, mode string) error {
	raw, ok, err := c.storage.Get(ctx, IdentityKey)
	if err != nil {
		return fmt.Errorf("read identity: %w", err)
	}
	if !ok {
		return nil
	}

	var id identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || strings.TrimSpace(id.Number) == "" || strings.TrimSpace(id.Name) == "" {
		c.logger.Warn("discarding malformed stored identity", zap.String("device_id", c.deviceID))
		if err := c.storage.Remove(ctx, IdentityKey); err != nil {
			return fmt.Errorf("remove identity: %w", err)
		}
		return nil
	}

	student := models.Student{Number: id.Number, Name: id.Name}
	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == RestoreRelogin {
		c.prefill = &student
		return nil
	}
	c.state = ApplyLoginSuccess(c.state, student, nil)
	return nil
}

// LoginSucceeded stores the login response and persists the identity.
// The in-memory transition happens even when persisting fails.
func (c *Container) LoginSucceeded(ctx context.Context, student models.Student, history []models.BookEntry) error {
	c.mu.Lock()
	c.state = ApplyLoginSuccess(c.state, student, history)
	c.prefill = nil
	c.mu.Unlock()

	payload, err := json.Marshal(identity{Number: student.Number, Name: student.Name})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := c.storage.Set(ctx, IdentityKey, string(payload)); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}

// Logout clears the state and the persisted identity.
func (c *Container) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.state = ApplyLogout(c.state)
	c.prefill = nil
	c.flash = ""
	c.mu.Unlock()

	if err := c.storage.Remove(ctx, IdentityKey); err != nil {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

// EntryAdded prepends a server-confirmed entry to the history.
func (c *Container) EntryAdded(entry models.BookEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ApplyEntryAdded(c.state, entry)
}

// Snapshot returns a deep copy of the current state.
func (c *Container) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Prefill returns the identity kept for the login form, if any.
func (c *Container) Prefill() *models.Student {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prefill == nil {
		return nil
	}
	student := *c.prefill
	return &student
}

// TryBegin claims the single in-flight submission slot. Callers that get
// true must call End exactly once.
func (c *Container) TryBegin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return false
	}
	c.busy = true
	return true
}

// End releases the submission slot.
func (c *Container) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
}

// SetFlash stores a one-shot notice.
func (c *Container) SetFlash(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flash = message
}

// TakeFlash returns and clears the pending notice.
func (c *Container) TakeFlash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	message := c.flash
	c.flash = ""
	return message
}

func (c *Container) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

// idle reports whether the container has been unused for longer than ttl
// and holds no in-flight submission.
func (c *Container) idle(now time.Time, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busy && now.Sub(c.lastSeen) > ttl
}
