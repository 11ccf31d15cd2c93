package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken(7, "operator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.AdminID != 7 || claims.Username != "operator" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "couchgate" {
		t.Errorf("issuer = %q", claims.Issuer)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := ValidateToken(bad); err == nil {
			t.Errorf("token %q: expected an error", bad)
		}
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-one")
	token, err := GenerateToken(1, "operator")
	if err != nil {
		t.Fatal(err)
	}

	t.Setenv("JWT_SECRET", "secret-two")
	if _, err := ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var sawClaims *Claims
	protected := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawClaims, _ = AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No token.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/user-codes", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d", rec.Code)
	}

	// Wrong scheme.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/user-codes", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong scheme: status = %d", rec.Code)
	}

	// Valid token passes and claims reach the handler.
	token, err := GenerateToken(3, "operator")
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/admin/user-codes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
	if sawClaims == nil || sawClaims.AdminID != 3 {
		t.Errorf("claims not propagated: %+v", sawClaims)
	}

	// Login endpoint is exempt.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/login", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("login exemption: status = %d", rec.Code)
	}
}
