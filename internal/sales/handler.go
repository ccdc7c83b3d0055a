package sales

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

// Handler exposes sale documents over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sale routes on a company-scoped router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{saleID}", h.handleGet)
}

type listResponse struct {
	Items []Sale `json:"items"`
	Total int    `json:"total"`
}

// insufficientStockResponse mirrors the contract consumers already parse:
// a details list plus the structured shortfall array.
type insufficientStockResponse struct {
	Error             string      `json:"error"`
	Details           []string    `json:"details"`
	InsufficientStock []Shortfall `json:"insufficientStock"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID := shared.CompanyFromContext(r.Context())
	req := ListSalesRequest{
		CompanyID:      companyID,
		DocumentStatus: r.URL.Query().Get("status"),
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("sales: list failed", "error", err, "company_id", companyID)
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
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
		var insuf *InsufficientStockError
		if errors.As(err, &insuf) {
			httpx.JSON(w, http.StatusBadRequest, insufficientStockResponse{
				Error:             "Insufficient stock",
				Details:           insuf.Details(),
				InsufficientStock: insuf.Shortfalls,
			})
			return
		}
		// Missing client or products is a request defect, not a 404.
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, httpx.ErrNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrInvalidRole) {
			h.logger.Error("sales: create failed", "error", err, "company_id", companyID, "document_number", req.Number)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "saleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	doc, err := h.service.Get(r.Context(), shared.CompanyFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}
