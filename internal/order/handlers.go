package order

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/orderhub/backend-oms/internal/common"
	"github.com/orderhub/backend-oms/internal/repo"
)

// Handler exposes the order lifecycle endpoints.
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

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.WriteError(w, common.BadRequest("", "invalid JSON body", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		common.WriteError(w, common.BadRequest("", "missing required fields", err))
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, status int, res Result) {
	body := map[string]any{"data": res.Order}
	if len(res.Notices) > 0 {
		body["notices"] = res.Notices
	}
	common.JSON(w, status, body)
}

// Create handles POST /api/v1/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !h.decode(w, r, &in) {
		return
	}
	if userID, ok := common.UserID(r.Context()); ok {
		in.CreatedBy = userID
	}
	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 25, 100)
	q := r.URL.Query()
	orders, total, err := h.service.List(r.Context(), repo.ListOrdersParams{
		CustomerID: q.Get("customer_id"),
		Status:     q.Get("status"),
		Kind:       q.Get("kind"),
		Limit:      perPage,
		Offset:     (page - 1) * perPage,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"total":      total,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

type replacePayload struct {
	Items []ItemInput `json:"items" validate:"required,dive"`
}

// Replace handles PUT /api/v1/orders/{orderId}: the request's item list
// becomes the order's complete line set and totals are recomputed from it.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	var payload replacePayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := h.service.ReplaceProducts(r.Context(), chi.URLParam(r, "orderId"), payload.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

// Clear handles PUT /api/v1/orders/clear/{orderId}.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Clear(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

type addLinePayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// AddLine handles POST /api/v1/orders/{orderId}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var payload addLinePayload
	if !h.decode(w, r, &payload) {
		return
	}
	res, err := h.service.AddLine(r.Context(), chi.URLParam(r, "orderId"), payload.ProductID, payload.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

type quantityPayload struct {
	Quantity int `json:"quantity"`
}

// SetQuantity handles PUT /api/v1/orders/{orderId}/lines/{productId}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload quantityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.WriteError(w, common.BadRequest("", "invalid JSON body", err))
		return
	}
	res, err := h.service.SetQuantity(r.Context(), chi.URLParam(r, "orderId"), chi.URLParam(r, "productId"), payload.Quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

// RemoveLine handles DELETE /api/v1/orders/{orderId}/lines/{productId}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "orderId"), chi.URLParam(r, "productId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

type statusPayload struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus handles PUT /api/v1/orders/{orderId}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusPayload
	if !h.decode(w, r, &payload) {
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), payload.Status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

type returnPayload struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateReturn handles POST /api/v1/orders/{orderId}/returns.
func (h *Handler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var payload returnPayload
	if !h.decode(w, r, &payload) {
		return
	}
	createdBy, _ := common.UserID(r.Context())
	res, err := h.service.CreateReturn(r.Context(), chi.URLParam(r, "orderId"), payload.Items, createdBy)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}
