// Package testutil provides a fake school health REST API and the fixtures tests share.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/services/session"
)

// TestSecret signs the tokens of NewToken.
const TestSecret = "test-secret"

// Request is a request received by the Backend.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	Body          []byte
}

// Backend is a fake REST API recording the requests it receives.
type Backend struct {
	*httptest.Server
	Echo *echo.Echo

	mu       sync.Mutex
	requests []Request
}

// NewBackend starts a Backend, closed when the test ends.
// Routes without a handler answer 404 with an envelope.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{Echo: echo.New()}
	b.Echo.HideBanner = true
	b.Echo.Use(b.record)
	b.Echo.HTTPErrorHandler = func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		if herr, ok := err.(*echo.HTTPError); ok {
			code = herr.Code
		}
		_ = ctx.JSON(code, echo.Map{"error": true, "message": http.StatusText(code)})
	}
	b.Server = httptest.NewServer(b.Echo)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		body, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        req.Method,
			Path:          req.URL.Path,
			Query:         req.URL.RawQuery,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
			ContentType:   req.Header.Get(echo.HeaderContentType),
			Body:          body,
		})
		b.mu.Unlock()
		return next(ctx)
	}
}

// Handle routes method and path (echo syntax, eg. "/send-drug-request/:id/accept") to h.
func (b *Backend) Handle(method, path string, h echo.HandlerFunc) {
	b.Echo.Add(method, path, h)
}

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests were sent with method to path.
func (b *Backend) Count(method, path string) int {
	var n int
	for _, req := range b.Requests() {
		if req.Method == method && req.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) Config() core.APIConfig {
	return core.APIConfig{BaseURL: b.URL, Timeout: 5 * time.Second}
}

// Data answers 200 with data in an envelope.
func Data(data interface{}) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"error": false, "data": data})
	}
}

// OK answers 200 with an empty envelope.
func OK() echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{"error": false, "message": "ok"})
	}
}

// Fail answers code with message in an error envelope.
func Fail(code int, message string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(code, echo.Map{"error": true, "message": message})
	}
}

// Slow delays h by d, or until the request is cancelled.
func Slow(d time.Duration, h echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		select {
		case <-time.After(d):
		case <-ctx.Request().Context().Done():
		}
		return h(ctx)
	}
}

// NewToken returns a token for usr signed with TestSecret, expiring in ttl.
func NewToken(t *testing.T, id, name, role string, ttl time.Duration) string {
	t.Helper()
	claims := session.Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   id,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
		UserID: core.ID(id),
		Name:   name,
		Email:  name + "@school.test",
		Role:   role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("NewToken() failed: %v", err)
	}
	return token
}

// NewConfig returns the configuration of tests, without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "SchoolHealth",
		Build:    "test",
		API:      core.APIConfig{BaseURL: "http://localhost:3000/api", Timeout: 5 * time.Second},
		Server: core.ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
		},
		Dashboard: core.DashboardConfig{PageSize: 10},
		Storage:   core.StorageConfig{Engine: "memory"},
		Email:     core.EmailConfig{DefaultFromEmail: "noreply@school.test"},
	}
}
