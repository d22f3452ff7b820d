package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

func TestAdminKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		configured string
		header     string
		value      string
		want       int
	}{
		{name: "missing config", configured: "", header: adminKeyHeader, value: "anything", want: 401},
		{name: "missing header", configured: "admin-secret", want: 401},
		{name: "wrong key", configured: "admin-secret", header: adminKeyHeader, value: "nope", want: 401},
		{name: "header key", configured: "admin-secret", header: adminKeyHeader, value: "admin-secret", want: 0},
		{name: "bearer key", configured: "admin-secret", header: "Authorization", value: "Bearer admin-secret", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(AdminKeyMiddleware(tc.configured))
			r.GET("/admin/ping", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status_code": 0})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			r.ServeHTTP(w, req)

			var resp struct {
				StatusCode int `json:"status_code"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response failed: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestTenantAuthMiddleware(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(t, http.MethodGet, "/api/v1/pos/customers/lookup?phone=9800000001", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("missing key want 401 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/pos/customers/lookup?phone=9800000001", "", map[string]string{apiKeyHeader: "unknown-key-000000"})
	if resp.StatusCode != 401 {
		t.Fatalf("unknown key want 401 got %d", resp.StatusCode)
	}

	if err := env.db.Exec("UPDATE tenants SET is_active = ? WHERE id = ?", false, env.tenantID).Error; err != nil {
		t.Fatalf("deactivate tenant failed: %v", err)
	}
	resp = env.do(t, http.MethodGet, "/api/v1/pos/customers/lookup?phone=9800000001", "", map[string]string{apiKeyHeader: routerTestAPIKey})
	if resp.StatusCode != 403 {
		t.Fatalf("inactive tenant want 403 got %d", resp.StatusCode)
	}
}
