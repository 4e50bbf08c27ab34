package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/medilink/internal/application"
)

type sessionValidatorStub struct {
	principal application.Principal
	err       error
	token     string
}

func (s *sessionValidatorStub) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	s.token = token
	if s.err != nil {
		return application.Principal{}, s.err
	}
	return s.principal, nil
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{}
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("next handler should not run")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		rec := httptest.NewRecorder()
		RequireSession(validator, nil)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if resp := decodeErrorResponse(t, rec); resp.ErrorCode != "AUTH_REQUIRED" {
			t.Fatalf("unexpected error code %q", resp.ErrorCode)
		}
	})

	t.Run("rejects invalid tokens", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{err: application.ErrUnauthenticated}
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("next handler should not run")
		})

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		rec := httptest.NewRecorder()
		RequireSession(validator, nil)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if validator.token != "expired-token" {
			t.Fatalf("expected bearer token forwarded, got %q", validator.token)
		}
	})

	t.Run("injects the principal from a bearer token", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{principal: application.Principal{
			IdentityID: "provider-1",
			Role:       application.RoleProvider,
		}}

		var seen application.Principal
		var ok bool
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, ok = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()
		RequireSession(validator, nil)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if !ok || seen.IdentityID != "provider-1" {
			t.Fatalf("expected principal in context, got %+v (ok=%v)", seen, ok)
		}
	})

	t.Run("accepts the session cookie as a fallback", func(t *testing.T) {
		t.Parallel()

		validator := &sessionValidatorStub{principal: application.Principal{
			IdentityID: "patient-1",
			Role:       application.RolePatient,
		}}
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})
		rec := httptest.NewRecorder()
		RequireSession(validator, nil)(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if validator.token != "cookie-token" {
			t.Fatalf("expected cookie token forwarded, got %q", validator.token)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var sawLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	RequestLogger(nil)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sawLogger {
		t.Fatal("expected request logger in context")
	}
}
