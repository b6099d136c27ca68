package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"kritic-backend/internal/shared/auth"
)

type capturedIdentity struct {
	userID string
	email  string
}

func newAuthRouter() (*gin.Engine, *capturedIdentity) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	captured := &capturedIdentity{}
	router.GET("/api/v1/analyze/history", func(c *gin.Context) {
		captured.userID = UserIDFromContext(c)
		captured.email = UserEmailFromContext(c)
		c.Status(http.StatusOK)
	})
	return router, captured
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router, _ := newAuthRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze/history", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	router, captured := newAuthRouter()

	token, err := auth.SignJWT(auth.Claims{Sub: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if captured.userID != "user-1" {
		t.Fatalf("user id: %q", captured.userID)
	}
	if captured.email != "a@example.com" {
		t.Fatalf("email: %q", captured.email)
	}
}

func TestAuthRejectsBadBearerToken(t *testing.T) {
	router, _ := newAuthRouter()

	for _, header := range []string{"Bearer not.a.token", "Bearer ", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/history", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAuthMapsGuestHeader(t *testing.T) {
	router, captured := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/history", nil)
	req.Header.Set("X-Guest-Id", "abc-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if captured.userID != "guest:abc-123" {
		t.Fatalf("user id: %q", captured.userID)
	}
}

func TestAuthRejectsMissingIdentity(t *testing.T) {
	router, _ := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/history", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthSkipsPublicPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth("dev"))
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
