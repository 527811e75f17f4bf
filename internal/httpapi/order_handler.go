package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"order-service/internal/apperror"
	"order-service/internal/order"
	"order-service/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var errMalformedRequest = errors.New("malformed request")

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Routes mounts the order endpoints on r.
func (h *OrderHandler) Routes(r chi.Router) {
	r.Post("/", h.CreateOrder)
	r.Get("/", h.ListOrders)
	r.Get("/{id}", h.GetOrder)
	r.Get("/user/{userId}", h.ListOrdersByUser)
	r.Get("/status/{status}", h.ListOrdersByStatus)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/cancel", h.CancelOrder)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&input); err != nil {
		writeError(w, r, apperror.BadRequest(errMalformedRequest, "Invalid request body"))
		return
	}

	// Authenticated callers may omit the user id.
	if input.UserID == 0 {
		if uid, ok := utils.GetUserIDFromContext(r.Context()); ok {
			input.UserID = uid
		}
	}

	o, err := h.svc.CreateOrder(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Order created successfully", order.ToResponse(o))
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Order retrieved successfully", order.ToResponse(o))
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Orders retrieved successfully", order.ToResponses(orders))
}

func (h *OrderHandler) ListOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	page, err := utils.QueryInt(r, "page", 0)
	if err != nil {
		writeError(w, r, apperror.BadRequest(errMalformedRequest, "Invalid page parameter"))
		return
	}
	size, err := utils.QueryInt(r, "size", 10)
	if err != nil {
		writeError(w, r, apperror.BadRequest(errMalformedRequest, "Invalid size parameter"))
		return
	}

	q := r.URL.Query()
	result, err := h.svc.ListOrdersByUser(r.Context(), userID, order.ListOptions{
		Page:    page,
		Size:    size,
		SortBy:  q.Get("sortBy"),
		SortDir: q.Get("sortDir"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Orders retrieved successfully", order.ToPageResponse(result))
}

func (h *OrderHandler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := order.ParseStatus(chi.URLParam(r, "status"))
	if !ok {
		writeError(w, r, apperror.BadRequest(order.ErrInvalidStatus, "Invalid order status: %s", chi.URLParam(r, "status")))
		return
	}

	orders, err := h.svc.ListOrdersByStatus(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Orders retrieved successfully", order.ToResponses(orders))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	raw := r.URL.Query().Get("status")
	status, ok := order.ParseStatus(raw)
	if !ok {
		writeError(w, r, apperror.BadRequest(order.ErrInvalidStatus, "Invalid order status: %s", raw))
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Order status updated successfully", order.ToResponse(o))
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.CancelOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Order cancelled successfully", nil)
}

// pathID parses a positive id URL param, answering 400 itself on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := utils.ParseID(raw)
	if err != nil {
		writeError(w, r, apperror.BadRequest(err, "Invalid %s: %s", name, raw))
		return 0, false
	}
	return id, true
}
