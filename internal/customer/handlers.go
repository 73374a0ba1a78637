package customer

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/orderhub/backend-oms/internal/common"
)

// Handler exposes customer and special margin endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(service *Service, validate *validator.Validate) *Handler {
	if validate == nil {
		validate = validator.New()
	}
	return &Handler{service: service, validate: validate}
}

// List handles GET /api/v1/customers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 25, 100)
	customers, total, err := h.service.List(r.Context(), r.URL.Query().Get("search"), perPage, (page-1)*perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"customers":  customers,
		"total":      total,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get handles GET /api/v1/customers/{customerId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// SpecialMargins handles GET /api/v1/admin/customer/special_margins/{customerId}.
func (h *Handler) SpecialMargins(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SpecialMargins(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": entries})
}

type specialMarginPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Margin    string `json:"margin" validate:"required"`
}

// CreateSpecialMargin handles POST /api/v1/admin/customer/special_margins/{customerId}.
func (h *Handler) CreateSpecialMargin(w http.ResponseWriter, r *http.Request) {
	var payload specialMarginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.BadRequest("", "invalid JSON body", err))
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		common.WriteError(w, common.BadRequest("", "product_id and margin are required", err))
		return
	}
	entry, err := h.service.SetSpecialMargin(r.Context(), chi.URLParam(r, "customerId"), payload.ProductID, payload.Margin)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": entry})
}

// DeleteSpecialMargin handles DELETE /api/v1/admin/customer/special_margins/{customerId}/{productId}.
func (h *Handler) DeleteSpecialMargin(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteSpecialMargin(r.Context(), chi.URLParam(r, "customerId"), chi.URLParam(r, "productId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}
