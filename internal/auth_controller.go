package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Status is the tri-state authentication knowledge of the client
type Status string

const (
	StatusLoading Status = "loading"
	StatusGuest   Status = "guest"
	StatusAuthed  Status = "authed"
)

// AuthState is the shared snapshot published to every consumer
type AuthState struct {
	Status Status
	User   *User
	Token  string
}

// LoginMeta is the one-shot welcome data recorded by a successful login
type LoginMeta struct {
	At   time.Time
	Name string
}

// AuthAPI is the slice of the backend the controller depends on
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (map[string]any, error)
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// AuthController owns the session status and mediates every transition
type AuthController struct {
	store *SessionStore
	api   AuthAPI
	now   func() time.Time

	mu           sync.Mutex
	state        AuthState
	lastLogin    *LoginMeta
	listeners    map[int]func(AuthState)
	nextListener int

	bootOnce sync.Once

	loginInFlight    *semaphore.Weighted
	registerInFlight *semaphore.Weighted
	logoutInFlight   *semaphore.Weighted
}

// AuthOption customizes an AuthController
type AuthOption func(*AuthController)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) AuthOption {
	return func(c *AuthController) {
		c.now = now
	}
}

// NewAuthController creates a controller in the loading state
func NewAuthController(store *SessionStore, api AuthAPI, opts ...AuthOption) *AuthController {
	c := &AuthController{
		store:            store,
		api:              api,
		now:              time.Now,
		state:            AuthState{Status: StatusLoading},
		listeners:        make(map[int]func(AuthState)),
		loginInFlight:    semaphore.NewWeighted(1),
		registerInFlight: semaphore.NewWeighted(1),
		logoutInFlight:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot
func (c *AuthController) State() AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every transition. The returned
// func removes it.
func (c *AuthController) Subscribe(fn func(AuthState)) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// setState swaps the snapshot and notifies listeners outside the lock.
func (c *AuthController) setState(next AuthState, meta *LoginMeta, clearMeta bool) {
	c.mu.Lock()
	c.state = next
	if meta != nil {
		c.lastLogin = meta
	} else if clearMeta {
		c.lastLogin = nil
	}
	fns := make([]func(AuthState), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

// Boot resolves the loading state once per controller. A stored token is
// trusted without asking the server; otherwise a silent refresh is tried.
// Errors never escape: anything but a fresh non-empty token means guest.
func (c *AuthController) Boot(ctx context.Context) Status {
	c.bootOnce.Do(func() {
		stored := c.store.Read(ctx)
		if stored.Token != "" {
			LogDebug("Restoring stored session %s", RedactToken(stored.Token))
			c.setState(AuthState{Status: StatusAuthed, User: stored.User, Token: stored.Token}, nil, false)
			return
		}

		token, err := c.api.Refresh(ctx)
		if err != nil {
			LogDebug("Silent refresh failed: %v", err)
			c.setState(AuthState{Status: StatusGuest}, nil, false)
			return
		}
		if token == "" {
			LogDebug("Silent refresh returned no token")
			c.setState(AuthState{Status: StatusGuest}, nil, false)
			return
		}

		if err := c.store.Write(ctx, token, stored.User); err != nil {
			LogWarn("Failed to persist refreshed session: %v", err)
		}
		c.setState(AuthState{Status: StatusAuthed, User: stored.User, Token: token}, nil, false)
	})
	return c.State().Status
}

// Login authenticates against the backend and persists the session. On any
// failure the state is left as it was.
func (c *AuthController) Login(ctx context.Context, email, password string) (*User, error) {
	if !c.loginInFlight.TryAcquire(1) {
		return nil, ErrRequestInFlight
	}
	defer c.loginInFlight.Release(1)

	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		return nil, toAuthError("login", err, "Login failed")
	}
	if resp.AccessToken == "" {
		return nil, &AuthError{Op: "login", Message: "Login failed: no access token in response"}
	}

	user := NormalizeUser(resp.User, email)
	if err := c.store.Write(ctx, resp.AccessToken, user); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	name := user.DisplayName()
	if name == "" {
		name = email
	}
	meta := &LoginMeta{At: c.now(), Name: name}
	c.setState(AuthState{Status: StatusAuthed, User: user, Token: resp.AccessToken}, meta, false)
	LogInfo("Logged in as %s", user.Email)
	return user, nil
}

// Register forwards the form to the backend. It does not touch local state.
func (c *AuthController) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	if !c.registerInFlight.TryAcquire(1) {
		return nil, ErrRequestInFlight
	}
	defer c.registerInFlight.Release(1)

	resp, err := c.api.Register(ctx, req)
	if err != nil {
		return nil, toAuthError("register", err, "Registration failed")
	}
	return resp, nil
}

// Logout always ends the local session. The server call is best effort.
func (c *AuthController) Logout(ctx context.Context) {
	if c.logoutInFlight.TryAcquire(1) {
		if err := c.api.Logout(ctx); err != nil {
			LogWarn("Server logout failed, clearing local session anyway: %v", err)
		}
		c.logoutInFlight.Release(1)
	} else {
		LogDebug("Logout already in flight, skipping server call")
	}

	if err := c.store.Clear(ctx); err != nil {
		LogError("Failed to clear stored session: %v", err)
	}
	c.setState(AuthState{Status: StatusGuest}, nil, true)
}

// ConsumeLastLoginMeta returns the welcome data of the last login once, then nil.
func (c *AuthController) ConsumeLastLoginMeta() *LoginMeta {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta := c.lastLogin
	c.lastLogin = nil
	return meta
}

// RequireAuthed fails unless a session is active
func (c *AuthController) RequireAuthed() error {
	if c.State().Status != StatusAuthed {
		return ErrNotAuthenticated
	}
	return nil
}

// RequireGuest fails when a session is already active
func (c *AuthController) RequireGuest() error {
	if c.State().Status == StatusAuthed {
		return ErrAlreadyAuthenticated
	}
	return nil
}

func toAuthError(op string, err error, fallback string) *AuthError {
	ae := &AuthError{Op: op, Message: fallback, Err: err}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		ae.Status = apiErr.Status
		if apiErr.Detail != "" {
			ae.Message = apiErr.Detail
		}
	}
	return ae
}
