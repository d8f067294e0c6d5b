package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newTestApp(token string) *fiber.App {
	app := fiber.New()
	app.Use(GatewayAuthMiddleware(token))
	app.Use(UserContextMiddleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	secured := app.Group("/s")
	secured.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	admin := secured.Group("/admin", RequireRole("admin"))
	admin.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestMiddlewareChain(t *testing.T) {
	app := newTestApp("svc-token")

	tests := []struct {
		name     string
		path     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"no gateway token", "/health", nil, fiber.StatusUnauthorized, ""},
		{"wrong gateway token", "/health", map[string]string{"Authorization": "Bearer nope"}, fiber.StatusUnauthorized, ""},
		{"raw token public", "/health", map[string]string{"Authorization": "svc-token"}, fiber.StatusOK, "ok"},
		{"secured without user", "/s/whoami", map[string]string{"Authorization": "Bearer svc-token"}, fiber.StatusUnauthorized, ""},
		{"secured with user", "/s/whoami", map[string]string{"Authorization": "Bearer svc-token", "X-User-ID": " u1 "}, fiber.StatusOK, "u1"},
		{"admin without role", "/s/admin/ping", map[string]string{"Authorization": "Bearer svc-token", "X-User-ID": "u1", "X-User-Roles": "player"}, fiber.StatusForbidden, ""},
		{"admin with role", "/s/admin/ping", map[string]string{"Authorization": "Bearer svc-token", "X-User-ID": "u1", "X-User-Roles": "player, admin"}, fiber.StatusOK, "pong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}
