package purchases

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

// Handler exposes purchase documents over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchase routes on a company-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{purchaseID}", h.handleGet)
}

type listResponse struct {
	Items []Purchase `json:"items"`
	Total int        `json:"total"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	req := ListPurchasesRequest{
		CompanyID:      companyID,
		DocumentStatus: r.URL.Query().Get("status"),
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("purchases: list failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Purchase{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	companyID := shared.CompanyFromContext(r.Context())
	sess := shared.SessionFromContext(r.Context())
	var actorID int64
	if sess != nil {
		actorID = sess.UserID
	}

	doc, err := h.service.Create(r.Context(), companyID, actorID, req)
	if err != nil {
		// Missing supplier or products is a request defect, not a 404.
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, httpx.ErrNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrInvalidRole) {
			h.logger.Error("purchases: create failed", "error", err, "company_id", companyID, "document_number", req.Number)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "purchaseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase id")
		return
	}
	doc, err := h.service.Get(r.Context(), shared.CompanyFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "purchase not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
