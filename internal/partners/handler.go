package partners

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the party registry over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers party routes on a company-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{partyID}", h.handleGet)
	r.Put("/{partyID}", h.handleUpdate)
}

type listResponse struct {
	Items []Party `json:"items"`
	Total int     `json:"total"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	req := ListPartiesRequest{
		CompanyID: companyID,
		Role:      Role(r.URL.Query().Get("role")),
		Search:    r.URL.Query().Get("q"),
	}
	if req.Role != "" && !ValidRole(req.Role) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role filter")
		return
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("partners: list failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Party{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	companyID := shared.CompanyFromContext(r.Context())
	party, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		h.logger.Error("partners: create failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, party)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "partyID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid party id")
		return
	}
	party, err := h.service.Get(r.Context(), shared.CompanyFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "party not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "partyID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid party id")
		return
	}
	var req UpdatePartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	party, err := h.service.Update(r.Context(), shared.CompanyFromContext(r.Context()), id, req)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "party not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, party)
}
