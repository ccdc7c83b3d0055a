package warehouse

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// mutationRejection is the fixed policy answer for every verb that would
// write: stock only moves through documents.
const mutationRejection = "Direct warehouse modification is not allowed. Use Purchases or Sales."

// Handler exposes the warehouse read model over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the warehouse view on a company-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleView)
	r.Post("/", h.rejectMutation)
	r.Put("/", h.rejectMutation)
	r.Patch("/", h.rejectMutation)
	r.Delete("/", h.rejectMutation)
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	f := Filter{
		CompanyID:  companyID,
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("active") != "false",
	}
	status := Status(r.URL.Query().Get("status"))
	if status != "" && !ValidStatus(status) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}

	view, err := h.service.View(r.Context(), f, status)
	if err != nil {
		h.logger.Error("warehouse: view failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) rejectMutation(w http.ResponseWriter, r *http.Request) {
	httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", mutationRejection)
}
