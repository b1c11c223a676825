package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/lead-manager/internal/tenancy"
)

type stubAuthenticator map[string]tenancy.Owner

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (tenancy.Owner, error) {
	owner, ok := s[token]
	if !ok {
		return tenancy.Owner{}, errors.New("invalid token")
	}
	return owner, nil
}

func TestRequireUserMissingHeader(t *testing.T) {
	mw := RequireUser(stubAuthenticator{})
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireUserWrongScheme(t *testing.T) {
	mw := RequireUser(stubAuthenticator{"good": {ID: 1}})
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Authorization", "Basic good")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireUserInvalidToken(t *testing.T) {
	mw := RequireUser(stubAuthenticator{"good": {ID: 1}})
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireUserValidToken(t *testing.T) {
	mw := RequireUser(stubAuthenticator{"good": {ID: 7, Username: "alice"}})
	req := httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()

	var got tenancy.Owner
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = tenancy.OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got.ID != 7 || got.Username != "alice" {
		t.Fatalf("expected owner in context, got %+v", got)
	}
}
