package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diaguide/diaguide/internal/config"
	"github.com/diaguide/diaguide/internal/domain/identity"
	"github.com/diaguide/diaguide/internal/platform/apperr"
	"github.com/diaguide/diaguide/internal/platform/auth"
	"github.com/diaguide/diaguide/internal/platform/websocket"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		RequestTimeout: 5 * time.Second,
	}
}

func testRouter(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	v, err := auth.NewVerifier(context.Background(), auth.Config{SigningKey: testKey})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return newRouter(routerDeps{
		cfg:      cfg,
		logger:   zerolog.Nop(),
		verifier: v,
		dbHealth: func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		},
		live: websocket.NewHub(zerolog.Nop()),
	})
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestRouter_HealthIsPublic(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	for _, path := range []string{"/health", "/health/db"} {
		rec := do(e, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: expected a request id header", path)
		}
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/medecins", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorOf(t, rec); msg != "missing authorization header" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestRouter_DevHeaderIgnoredOutsideDevelopment(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/medecins", nil)
	req.Header.Set(auth.DevUserHeader, uuid.NewString())
	if rec := do(e, req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_RejectsForgedToken(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	forged, err := auth.IssueToken(auth.Config{SigningKey: []byte("another-key-another-key-another!!")}, uuid.NewString(), "", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/medecins", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := do(e, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorOf(t, rec); msg != "invalid token" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestRouter_SubjectMustBeUserID(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	signed, err := auth.IssueToken(auth.Config{SigningKey: testKey}, "not-a-user-id", "", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/interactions/my/assignment", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := do(e, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorOf(t, rec); msg != "unknown user" {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	e := testRouter(t, testConfig("production"))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/interactions/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := do(e, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig("production")
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	e := testRouter(t, cfg)

	first := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/medecins", nil))
	if first.Code != http.StatusUnauthorized {
		t.Fatalf("expected first request to reach auth, got %d", first.Code)
	}
	second := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/medecins", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if health := do(e, httptest.NewRequest(http.MethodGet, "/health", nil)); health.Code != http.StatusOK {
		t.Errorf("health must not be rate limited, got %d", health.Code)
	}
}

type stubUsers struct {
	identity.UserRepository
	byID    map[uuid.UUID]*identity.User
	byEmail map[string]*identity.User
}

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user not found")
}

func TestLookupUser(t *testing.T) {
	u := &identity.User{ID: uuid.New(), Email: "amina@diaguide.ma"}
	users := &stubUsers{
		byID:    map[uuid.UUID]*identity.User{u.ID: u},
		byEmail: map[string]*identity.User{u.Email: u},
	}
	ctx := context.Background()

	for _, ref := range []string{u.ID.String(), u.Email} {
		got, err := lookupUser(ctx, users, ref)
		if err != nil {
			t.Fatalf("lookupUser(%q): %v", ref, err)
		}
		if got.ID != u.ID {
			t.Errorf("lookupUser(%q) = %s", ref, got.ID)
		}
	}

	if _, err := lookupUser(ctx, users, "nobody@diaguide.ma"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
