package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "exam-test-secret"

func mintToken(t *testing.T, secret, sub, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Could not sign token: %v", err)
	}
	return signed
}

func TestVerifyBearer(t *testing.T) {
	identity, err := VerifyBearer(testSecret, "Bearer "+mintToken(t, testSecret, "alice", "student"))
	if err != nil {
		t.Fatalf("Valid token rejected: %v", err)
	}
	if identity.UserID != "alice" || identity.Role != "student" {
		t.Errorf("Unexpected identity: %+v", identity)
	}
}

func TestVerifyBearerRejectsWrongSecret(t *testing.T) {
	if _, err := VerifyBearer(testSecret, "Bearer "+mintToken(t, "other-secret", "alice", "student")); err == nil {
		t.Error("Token signed with the wrong secret must be rejected")
	}
}

func TestVerifyBearerRejectsMissingSub(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "student"})
	signed, _ := token.SignedString([]byte(testSecret))
	if _, err := VerifyBearer(testSecret, "Bearer "+signed); err == nil {
		t.Error("Token without a subject must be rejected")
	}
}

func TestVerifyBearerRejectsMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "Bearer ", "Basic abc", mintToken(t, testSecret, "alice", "")} {
		if _, err := VerifyBearer(testSecret, header); err == nil {
			t.Errorf("Header %q must be rejected", header)
		}
	}
}

func TestAuthMiddlewarePopulatesContext(t *testing.T) {
	var seen Identity
	wrapped := AuthMiddleware(testSecret, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, testSecret, "bob", "tutor"))
	rr := httptest.NewRecorder()
	wrapped(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if seen.UserID != "bob" {
		t.Errorf("Identity not on context, got %+v", seen)
	}
}

func TestAuthMiddlewareBlocksAnonymous(t *testing.T) {
	called := false
	wrapped := AuthMiddleware(testSecret, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rr := httptest.NewRecorder()
	wrapped(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
	if called {
		t.Error("Handler must not run for anonymous requests")
	}
}
