package tenancy

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CompanyLister is the slice of Repository the handler needs.
type CompanyLister interface {
	ListCompanies(ctx context.Context, userID int64) ([]CompanyView, error)
}

// Handler answers which companies the signed-in user belongs to.
type Handler struct {
	logger *slog.Logger
	repo   CompanyLister
}

func NewHandler(logger *slog.Logger, repo CompanyLister) *Handler {
	return &Handler{logger: logger, repo: repo}
}

type companiesResponse struct {
	Companies []CompanyView `json:"companies"`
}

// HandleList serves GET /api/companies.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}

	companies, err := h.repo.ListCompanies(r.Context(), sess.UserID)
	if err != nil {
		h.logger.Error("tenancy: list companies failed", "error", err, "user_id", sess.UserID)
		httpx.RespondError(w, err)
		return
	}
	if companies == nil {
		companies = []CompanyView{}
	}
	httpx.JSON(w, http.StatusOK, companiesResponse{Companies: companies})
}
