package tenancy

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AccessChecker is the slice of Repository the guard needs.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, companyID int64) (bool, error)
}

// Guard gates company-scoped routes on membership.
type Guard struct {
	Checker AccessChecker
	Logger  *slog.Logger
}

func NewGuard(checker AccessChecker, logger *slog.Logger) *Guard {
	return &Guard{Checker: checker, Logger: logger}
}

// RequireMember requires an authenticated session whose user belongs to the
// company named by the {companyID} URL parameter. The resolved company id is
// stored on the request context for handlers downstream.
func (g *Guard) RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}

		companyID, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
		if err != nil || companyID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid company id")
			return
		}

		ok, err := g.Checker.HasAccess(r.Context(), sess.UserID, companyID)
		if err != nil {
			g.Logger.Error("tenancy: membership lookup failed", "error", err, "user_id", sess.UserID, "company_id", companyID)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "could not verify company access")
			return
		}
		if !ok {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "not a member of this company")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.ContextWithCompany(r.Context(), companyID)))
	})
}
