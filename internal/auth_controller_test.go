package internal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeAuthAPI is a scriptable AuthAPI. block, when set, holds Login until closed.
type fakeAuthAPI struct {
	mu sync.Mutex

	loginResp *LoginResponse
	loginErr  error
	block     chan struct{}
	entered   chan struct{}

	registerResp map[string]any
	registerErr  error

	refreshToken string
	refreshErr   error

	logoutErr error

	calls []string
}

func (f *fakeAuthAPI) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAuthAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAuthAPI) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	f.record("login")
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.loginResp, f.loginErr
}

func (f *fakeAuthAPI) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	f.record("register")
	return f.registerResp, f.registerErr
}

func (f *fakeAuthAPI) Refresh(ctx context.Context) (string, error) {
	f.record("refresh")
	return f.refreshToken, f.refreshErr
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	f.record("logout")
	return f.logoutErr
}

func newTestController(t *testing.T, api *fakeAuthAPI) (*AuthController, *SessionStore) {
	t.Helper()
	store := NewSessionStore(newTestKV(t))
	return NewAuthController(store, api), store
}

// The scenario from a fresh install: refresh rejected, then a first login.
func TestAuthController_FreshBootThenLogin(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{
		refreshErr: &APIError{Status: 401},
		loginResp: &LoginResponse{
			AccessToken: "tok1",
			User:        map[string]any{"email": "a@b.com", "first_name": "Ada"},
		},
	}
	ctrl, store := newTestController(t, api)

	if got := ctrl.State().Status; got != StatusLoading {
		t.Fatalf("initial status = %s, want loading", got)
	}
	if got := ctrl.Boot(ctx); got != StatusGuest {
		t.Fatalf("Boot() = %s, want guest", got)
	}

	user, err := ctrl.Login(ctx, "a@b.com", "pw123456")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.FirstName != "Ada" {
		t.Errorf("user.FirstName = %q, want Ada", user.FirstName)
	}

	state := ctrl.State()
	if state.Status != StatusAuthed || state.Token != "tok1" {
		t.Errorf("state = %+v, want authed with tok1", state)
	}

	stored := store.Read(ctx)
	if stored.Token != "tok1" {
		t.Errorf("stored token = %q, want tok1", stored.Token)
	}
	if stored.User == nil || stored.User.Email != "a@b.com" || stored.User.FirstName != "Ada" {
		t.Errorf("stored user = %+v", stored.User)
	}
}

func TestAuthController_LoginStoresTypedEmail(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{loginResp: &LoginResponse{AccessToken: "tok"}}
	ctrl, store := newTestController(t, api)

	if _, err := ctrl.Login(ctx, "typed@example.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := store.Read(ctx).User; got == nil || got.Email != "typed@example.com" {
		t.Errorf("stored user = %+v, want the typed email", got)
	}
}

// A stored token is trusted as-is, even an obviously stale one. This is the
// known trade-off of optimistic restore: no refresh call, no validation.
func TestAuthController_BootTrustsStoredToken(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{refreshErr: errors.New("must not be called")}
	ctrl, store := newTestController(t, api)

	user := &User{Email: "a@b.c", FirstName: "Ada"}
	if err := store.Write(ctx, "expired-or-revoked", user); err != nil {
		t.Fatal(err)
	}

	if got := ctrl.Boot(ctx); got != StatusAuthed {
		t.Fatalf("Boot() = %s, want authed", got)
	}
	if api.count("refresh") != 0 {
		t.Errorf("refresh called %d times, want 0", api.count("refresh"))
	}
	if diff := cmp.Diff(user, ctrl.State().User); diff != "" {
		t.Errorf("state user mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthController_BootRefresh(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		err        error
		wantStatus Status
		wantStored string
	}{
		{name: "refresh rejected", err: &APIError{Status: 401}, wantStatus: StatusGuest},
		{name: "network error", err: errors.New("dial tcp: refused"), wantStatus: StatusGuest},
		{name: "empty token", token: "", wantStatus: StatusGuest},
		{name: "fresh token", token: "fresh", wantStatus: StatusAuthed, wantStored: "fresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := &fakeAuthAPI{refreshToken: tt.token, refreshErr: tt.err}
			ctrl, store := newTestController(t, api)

			if got := ctrl.Boot(ctx); got != tt.wantStatus {
				t.Errorf("Boot() = %s, want %s", got, tt.wantStatus)
			}
			if got := store.Read(ctx).Token; got != tt.wantStored {
				t.Errorf("stored token = %q, want %q", got, tt.wantStored)
			}
		})
	}
}

func TestAuthController_BootRunsOnce(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{refreshErr: errors.New("no cookie")}
	ctrl, _ := newTestController(t, api)

	ctrl.Boot(ctx)
	ctrl.Boot(ctx)
	if api.count("refresh") != 1 {
		t.Errorf("refresh called %d times, want 1", api.count("refresh"))
	}
}

func TestAuthController_LoginErrors(t *testing.T) {
	tests := []struct {
		name        string
		resp        *LoginResponse
		err         error
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "server detail",
			err:         &APIError{Status: 401, Detail: "Invalid credentials"},
			wantMessage: "Invalid credentials",
			wantStatus:  401,
		},
		{
			name:        "no detail",
			err:         &APIError{Status: 500},
			wantMessage: "Login failed",
			wantStatus:  500,
		},
		{
			name:        "network failure",
			err:         errors.New("connection refused"),
			wantMessage: "Login failed",
		},
		{
			name:        "missing token",
			resp:        &LoginResponse{User: map[string]any{"email": "a@b.c"}},
			wantMessage: "Login failed: no access token in response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := &fakeAuthAPI{loginResp: tt.resp, loginErr: tt.err, refreshErr: errors.New("none")}
			ctrl, store := newTestController(t, api)
			ctrl.Boot(ctx)

			_, err := ctrl.Login(ctx, "a@b.c", "pw")
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("Login() error = %v, want *AuthError", err)
			}
			if authErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", authErr.Message, tt.wantMessage)
			}
			if authErr.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", authErr.Status, tt.wantStatus)
			}
			if ctrl.State().Status != StatusGuest {
				t.Errorf("status = %s, want guest after failed login", ctrl.State().Status)
			}
			if store.HasSession(ctx) {
				t.Error("failed login must not store a session")
			}
			if ctrl.ConsumeLastLoginMeta() != nil {
				t.Error("failed login must not record welcome metadata")
			}
		})
	}
}

func TestAuthController_LoginInFlight(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{
		loginResp: &LoginResponse{AccessToken: "tok"},
		block:     make(chan struct{}),
		entered:   make(chan struct{}, 1),
	}
	ctrl, _ := newTestController(t, api)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Login(ctx, "a@b.c", "pw")
		done <- err
	}()
	<-api.entered

	if _, err := ctrl.Login(ctx, "a@b.c", "pw"); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("second Login() error = %v, want ErrRequestInFlight", err)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	if api.count("login") != 1 {
		t.Errorf("login called %d times, want 1", api.count("login"))
	}
}

func TestAuthController_ConsumeLastLoginMeta(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAuthAPI{loginResp: &LoginResponse{
		AccessToken: "tok",
		User:        map[string]any{"first_name": "Ada", "last_name": "Lovelace"},
	}}
	store := NewSessionStore(newTestKV(t))
	ctrl := NewAuthController(store, api, WithClock(func() time.Time { return now }))

	if ctrl.ConsumeLastLoginMeta() != nil {
		t.Fatal("ConsumeLastLoginMeta() before any login should be nil")
	}
	if _, err := ctrl.Login(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}

	meta := ctrl.ConsumeLastLoginMeta()
	want := &LoginMeta{At: now, Name: "Ada Lovelace"}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("ConsumeLastLoginMeta() mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < 3; i++ {
		if ctrl.ConsumeLastLoginMeta() != nil {
			t.Fatalf("ConsumeLastLoginMeta() call %d should be nil", i+2)
		}
	}

	if _, err := ctrl.Login(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	if ctrl.ConsumeLastLoginMeta() == nil {
		t.Error("a new login should record metadata again")
	}
}

func TestAuthController_LoginMetaFallsBackToEmail(t *testing.T) {
	api := &fakeAuthAPI{loginResp: &LoginResponse{AccessToken: "tok"}}
	ctrl, _ := newTestController(t, api)

	if _, err := ctrl.Login(context.Background(), "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	if meta := ctrl.ConsumeLastLoginMeta(); meta == nil || meta.Name != "a@b.c" {
		t.Errorf("meta = %+v, want the email as name", meta)
	}
}

func TestAuthController_Logout(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
	}{
		{name: "server ok"},
		{name: "server fails", logoutErr: errors.New("network down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := &fakeAuthAPI{logoutErr: tt.logoutErr}
			ctrl, store := newTestController(t, api)
			if err := store.Write(ctx, "tok", &User{Email: "a@b.c"}); err != nil {
				t.Fatal(err)
			}
			ctrl.Boot(ctx)

			ctrl.Logout(ctx)

			if ctrl.State().Status != StatusGuest {
				t.Errorf("status = %s, want guest", ctrl.State().Status)
			}
			if got := store.Read(ctx); got.Token != "" || got.User != nil {
				t.Errorf("store after logout = %+v, want empty", got)
			}
			if api.count("logout") != 1 {
				t.Errorf("logout called %d times, want 1", api.count("logout"))
			}
		})
	}
}

func TestAuthController_LogoutClearsMeta(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{loginResp: &LoginResponse{AccessToken: "tok"}}
	ctrl, _ := newTestController(t, api)

	if _, err := ctrl.Login(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	ctrl.Logout(ctx)
	if ctrl.ConsumeLastLoginMeta() != nil {
		t.Error("logout should drop unread welcome metadata")
	}
}

func TestAuthController_RegisterLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{
		refreshErr:   errors.New("none"),
		registerResp: map[string]any{"requires_verification": true},
	}
	ctrl, store := newTestController(t, api)
	ctrl.Boot(ctx)

	resp, err := ctrl.Register(ctx, RegisterRequest{Email: "a@b.c", Password: "pw", Mode: "single"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp["requires_verification"] != true {
		t.Errorf("Register() response = %v", resp)
	}
	if ctrl.State().Status != StatusGuest || store.HasSession(ctx) {
		t.Error("Register() must not log in")
	}

	api.registerErr = &APIError{Status: 409, Detail: "Email already registered"}
	_, err = ctrl.Register(ctx, RegisterRequest{Email: "a@b.c"})
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Message != "Email already registered" {
		t.Errorf("Register() error = %v, want server detail", err)
	}

	api.registerErr = errors.New("offline")
	_, err = ctrl.Register(ctx, RegisterRequest{Email: "a@b.c"})
	if !errors.As(err, &authErr) || authErr.Message != "Registration failed" {
		t.Errorf("Register() error = %v, want generic message", err)
	}
}

func TestAuthController_Subscribe(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{
		refreshErr: errors.New("none"),
		loginResp:  &LoginResponse{AccessToken: "tok"},
	}
	ctrl, _ := newTestController(t, api)

	var seen []Status
	unsubscribe := ctrl.Subscribe(func(s AuthState) {
		seen = append(seen, s.Status)
	})

	ctrl.Boot(ctx)
	if _, err := ctrl.Login(ctx, "a@b.c", "pw"); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	ctrl.Logout(ctx)

	want := []Status{StatusGuest, StatusAuthed}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthController_Require(t *testing.T) {
	ctx := context.Background()
	ctrl, store := newTestController(t, &fakeAuthAPI{refreshErr: errors.New("none")})

	if err := ctrl.RequireAuthed(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("RequireAuthed() while loading = %v", err)
	}

	if err := store.Write(ctx, "tok", nil); err != nil {
		t.Fatal(err)
	}
	ctrl.Boot(ctx)

	if err := ctrl.RequireAuthed(); err != nil {
		t.Errorf("RequireAuthed() = %v, want nil", err)
	}
	if err := ctrl.RequireGuest(); !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Errorf("RequireGuest() = %v, want ErrAlreadyAuthenticated", err)
	}
}
