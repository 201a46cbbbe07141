package orders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maiway/commerce-ai-platform/internal/auth"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// OrderHistory is the read side the handler needs beyond the service.
type OrderHistory interface {
	Since(ctx context.Context, userID string, cutoff time.Time) ([]Order, error)
}

// Handler exposes the order endpoints. All routes require an
// authenticated identity; the user id comes from the bearer token, never
// the body.
type Handler struct {
	service *Service
	history OrderHistory
	logger  *logging.Logger
}

func NewHandler(service *Service, history OrderHistory, logger *logging.Logger) *Handler {
	if service == nil {
		panic("orders: service required")
	}
	if history == nil {
		panic("orders: order history required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, history: history, logger: logger}
}

type createOrderRequest struct {
	Items []struct {
		ProductID string  `json:"product_id"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	} `json:"items"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type orderResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func toOrderResponse(o *Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item required")
		return
	}

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.Price < 0 {
			writeError(w, http.StatusBadRequest, "invalid order item")
			return
		}
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	order, err := h.service.Create(r.Context(), identity.UserID, items, PaymentInfo{
		Method:        req.PaymentMethod,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		h.logger.Error("order creation failed", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toOrderResponse(order))
}

// List handles GET /api/orders, returning the caller's orders newest
// first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	list, err := h.history.Since(r.Context(), identity.UserID, time.Time{})
	if err != nil {
		h.logger.Error("order listing failed", "user_id", identity.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderResponse, 0, len(list))
	for i := range list {
		out = append(out, toOrderResponse(&list[i]))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /api/orders/{orderID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !validStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	if err := h.service.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("status update failed", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /api/orders/{orderID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.service.Cancel(r.Context(), orderID, req.Reason); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if errors.Is(err, ErrNotCancellable) {
			h.logger.Warn("order cancel refused", "order_id", orderID, "error", err)
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("order cancel failed", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel order")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

func validStatus(status string) bool {
	switch status {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
