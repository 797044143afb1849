package web

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"replykit/pkg/log"
	"replykit/pkg/log/transporters"
)

// captureLogs installs a JSON logger writing to a buffer. The returned
// function flushes it and returns the output.
func captureLogs(t *testing.T) func() string {
	t.Helper()
	var buf bytes.Buffer
	logger := log.New(log.Info, transporters.NewStdoutWithWriter(&buf))
	log.SetDefault(logger)
	t.Cleanup(func() {
		logger.Close()
		log.SetDefault(nil)
	})
	return func() string {
		logger.Close()
		return buf.String()
	}
}

func do(t *testing.T, app *fiber.App, method, path string, header map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRequestIDToContext_GeneratesID(t *testing.T) {
	// Arrange
	app := NewApp("test")
	var captured string
	app.Get("/test", func(c *fiber.Ctx) error {
		captured = log.RequestIDFromContext(c.UserContext())
		return c.SendString("ok")
	})

	// Act
	req := httptest.NewRequest("GET", "/test", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	// Assert
	if len(captured) != 36 {
		t.Errorf("request id = %q, want a UUID", captured)
	}
	if got := resp.Header.Get("X-Request-ID"); got != captured {
		t.Errorf("response header = %q, context = %q, should match", got, captured)
	}
}

func TestRequestIDToContext_UsesProvidedID(t *testing.T) {
	app := NewApp("test")
	var captured string
	app.Get("/test", func(c *fiber.Ctx) error {
		captured = log.RequestIDFromContext(c.UserContext())
		return c.SendString("ok")
	})

	do(t, app, "GET", "/test", map[string]string{"X-Request-ID": "custom-trace-id-123"})

	if captured != "custom-trace-id-123" {
		t.Errorf("request_id = %q, want %q", captured, "custom-trace-id-123")
	}
}

func TestRequestLoggerMiddleware_LevelsByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "ok", status: 200, level: `"level":"INFO"`},
		{name: "client error", status: 404, level: `"level":"WARN"`},
		{name: "server error", status: 500, level: `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			flush := captureLogs(t)
			app := NewApp("test")
			app.Get("/path", func(c *fiber.Ctx) error {
				return c.Status(tt.status).SendString("x")
			})

			// Act
			do(t, app, "GET", "/path", map[string]string{"X-Request-ID": "req-42"})
			output := flush()

			// Assert
			if !strings.Contains(output, "request completed") || !strings.Contains(output, "req-42") {
				t.Errorf("log should carry the message and request id, got: %s", output)
			}
			if !strings.Contains(output, tt.level) {
				t.Errorf("log should contain %s, got: %s", tt.level, output)
			}
			if !strings.Contains(output, `"path":"/path"`) {
				t.Errorf("log should contain the path, got: %s", output)
			}
		})
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	// Arrange
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	// Act / Assert
	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Error("budget should refill after the window")
	}
}

func TestRateLimiter_DisabledWhenLimitNotPositive(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)

	for i := 0; i < 100; i++ {
		if !rl.Allow("ip") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestRateLimiter_CleanupDropsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }
	rl.Allow("idle")

	now = now.Add(2 * time.Minute)
	rl.cleanup()

	if _, ok := rl.hits["idle"]; ok {
		t.Error("idle client should be removed")
	}
}

func TestRateLimiter_Middleware_Returns429(t *testing.T) {
	// Arrange
	app := NewApp("test")
	rl := NewRateLimiter(1, time.Minute)
	app.Post("/limited", rl.Middleware(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	// Act
	first, _ := do(t, app, "POST", "/limited", nil)
	second, body := do(t, app, "POST", "/limited", nil)

	// Assert
	if first != fiber.StatusOK {
		t.Errorf("first status = %d, want 200", first)
	}
	if second != fiber.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", second)
	}
	if !strings.Contains(body, `"kind":"rate-limited"`) {
		t.Errorf("body = %s", body)
	}
}

func TestErrorHandler_UnknownRouteUsesErrorShape(t *testing.T) {
	app := NewApp("test")

	status, body := do(t, app, "GET", "/nope", nil)

	if status != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if !strings.Contains(body, `"error":{"kind":"http"`) {
		t.Errorf("body = %s", body)
	}
}
