package tenancy

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeChecker struct {
	members map[[2]int64]bool
}

func (f *fakeChecker) HasAccess(_ context.Context, userID, companyID int64) (bool, error) {
	return f.members[[2]int64{userID, companyID}], nil
}

func newGuardRouter(checker AccessChecker) *chi.Mux {
	guard := NewGuard(checker, slog.Default())
	r := chi.NewRouter()
	r.Route("/api/companies/{companyID}", func(r chi.Router) {
		r.Use(guard.RequireMember)
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			if shared.CompanyFromContext(r.Context()) == 0 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func requestWithSession(method, target string, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	sess := &shared.Session{ID: "s1", UserID: userID, IssuedAt: time.Now()}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireMemberAllowsMember(t *testing.T) {
	router := newGuardRouter(&fakeChecker{members: map[[2]int64]bool{{7, 42}: true}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithSession(http.MethodGet, "/api/companies/42/ping", 7))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireMemberRejectsNonMember(t *testing.T) {
	router := newGuardRouter(&fakeChecker{members: map[[2]int64]bool{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithSession(http.MethodGet, "/api/companies/42/ping", 7))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireMemberRejectsAnonymous(t *testing.T) {
	router := newGuardRouter(&fakeChecker{members: map[[2]int64]bool{{7, 42}: true}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies/42/ping", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireMemberRejectsBadCompanyID(t *testing.T) {
	router := newGuardRouter(&fakeChecker{members: map[[2]int64]bool{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, requestWithSession(http.MethodGet, "/api/companies/abc/ping", 7))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
