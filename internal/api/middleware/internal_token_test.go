package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTokenTestRouter(token string) *gin.Engine {
	router := gin.New()
	router.GET("/guarded", InternalTokenAuth(token), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func performGuarded(router *gin.Engine, remoteAddr string, headers map[string]string, query string) int {
	req := httptest.NewRequest(http.MethodGet, "/guarded"+query, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder.Code
}

func TestInternalTokenAuth_AcceptsMatchingToken(t *testing.T) {
	router := newTokenTestRouter("secret-token")

	cases := []struct {
		name    string
		headers map[string]string
		query   string
	}{
		{"header", map[string]string{"X-Internal-Token": "secret-token"}, ""},
		{"query", nil, "?internal_token=secret-token"},
		{"bearer", map[string]string{"Authorization": "Bearer secret-token"}, ""},
	}

	for _, tc := range cases {
		if got := performGuarded(router, "203.0.113.10:4444", tc.headers, tc.query); got != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.name, got)
		}
	}
}

func TestInternalTokenAuth_RejectsBadOrMissingToken(t *testing.T) {
	router := newTokenTestRouter("secret-token")

	if got := performGuarded(router, "203.0.113.10:4444", nil, ""); got != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", got)
	}
	if got := performGuarded(router, "203.0.113.10:4444", map[string]string{"X-Internal-Token": "wrong"}, ""); got != http.StatusUnauthorized {
		t.Fatalf("wrong token: expected 401, got %d", got)
	}
}

func TestInternalTokenAuth_EmptyConfiguredTokenDeniesRemote(t *testing.T) {
	router := newTokenTestRouter("")

	if got := performGuarded(router, "203.0.113.10:4444", map[string]string{"X-Internal-Token": ""}, ""); got != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no token is configured, got %d", got)
	}
}

func TestInternalTokenAuth_LoopbackBypass(t *testing.T) {
	router := newTokenTestRouter("secret-token")

	if got := performGuarded(router, "127.0.0.1:5555", nil, ""); got != http.StatusOK {
		t.Fatalf("loopback ipv4: expected 200, got %d", got)
	}
	if got := performGuarded(router, "[::1]:5555", nil, ""); got != http.StatusOK {
		t.Fatalf("loopback ipv6: expected 200, got %d", got)
	}
}
