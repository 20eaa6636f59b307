package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// Handler contains HTTP handlers for the order endpoints.
type Handler struct {
	orders Repository
	logger *logging.Logger
}

func NewHandler(orders Repository, logger *logging.Logger) *Handler {
	return &Handler{orders: orders, logger: logger}
}

// CreateRequest represents the checkout request body
type CreateRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
	TotalAmount float64 `json:"totalAmount"`
}

// UpdateStatusRequest represents the status change request body
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse wraps a single order.
type OrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   *Order `json:"order"`
}

// ListResponse wraps an order listing.
type ListResponse struct {
	Success bool     `json:"success"`
	Orders  []*Order `json:"orders"`
}

// Create places an order and empties the cart
// @Summary      Place an order
// @Description  Create an order from the submitted items and clear the user's cart.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body CreateRequest true "Order items and total"
// @Success      201 {object} OrderResponse
// @Failure      400 {object} httputil.ErrorResponse "No order items"
// @Router       /api/orders/createorder [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid create order request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Items) == 0 {
		httputil.RespondError(w, "Order items are required", http.StatusBadRequest)
		return
	}
	if req.TotalAmount < 0 {
		httputil.RespondError(w, "Invalid total amount", http.StatusBadRequest)
		return
	}

	items := make([]NewItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			httputil.RespondError(w, "Invalid product id", http.StatusBadRequest)
			return
		}
		if item.Quantity < 1 {
			httputil.RespondError(w, "Quantity must be at least 1", http.StatusBadRequest)
			return
		}
		items = append(items, NewItem{ProductID: productID, Quantity: item.Quantity})
	}

	created, err := h.orders.Create(r.Context(), NewOrder{
		UserID:      acting.ID,
		TotalAmount: req.TotalAmount,
		Items:       items,
	})
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			httputil.RespondError(w, "Order items are required", http.StatusBadRequest)
			return
		}
		logger.Error("failed to place order", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("order placed", "order_id", created.ID, "user_id", acting.ID, "total", created.TotalAmount)
	httputil.RespondJSON(w, OrderResponse{
		Success: true,
		Message: "Order placed successfully",
		Order:   created,
	}, http.StatusCreated)
}

// ListAll lists every order
// @Summary      List all orders
// @Description  Full order listing. Admins only.
// @Tags         orders
// @Produce      json
// @Success      200 {object} ListResponse
// @Router       /api/orders [get]
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		logger.Error("failed to list orders", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ListResponse{Success: true, Orders: orders}, http.StatusOK)
}

// ListByUser lists one user's orders
// @Summary      List a user's orders
// @Description  Owners see their own orders; admins see anyone's.
// @Tags         orders
// @Produce      json
// @Param        userId path string true "User ID"
// @Success      200 {object} ListResponse
// @Router       /api/orders/user/{userId} [get]
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.RespondError(w, "User not found", http.StatusNotFound)
		return
	}

	if userID != acting.ID && acting.Role != user.RoleAdmin {
		httputil.RespondError(w, "Access denied. Insufficient role.", http.StatusForbidden)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("failed to list user orders", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ListResponse{Success: true, Orders: orders}, http.StatusOK)
}

// Get fetches a single order
// @Summary      Get an order
// @Description  Owners see their own orders; admins see any.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} OrderResponse
// @Failure      404 {object} httputil.ErrorResponse "Order not found"
// @Router       /api/orders/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Order not found", http.StatusNotFound)
		return
	}

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Order not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to get order", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if o.UserID != acting.ID && acting.Role != user.RoleAdmin {
		httputil.RespondError(w, "Access denied. Insufficient role.", http.StatusForbidden)
		return
	}

	httputil.RespondJSON(w, OrderResponse{Success: true, Order: o}, http.StatusOK)
}

// UpdateStatus changes an order's lifecycle state
// @Summary      Update order status
// @Description  Move an order through Pending, Processing, Shipped, Delivered or Cancelled. Admins and farmers only.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body UpdateStatusRequest true "New status"
// @Success      200 {object} OrderResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid order status"
// @Failure      404 {object} httputil.ErrorResponse "Order not found"
// @Router       /api/orders/{id}/status [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Order not found", http.StatusNotFound)
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update status request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	status := Status(req.Status)
	if !IsValidStatus(status) {
		httputil.RespondError(w, "Invalid order status", http.StatusBadRequest)
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Order not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to update order status", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("order status updated", "order_id", id, "status", status)
	httputil.RespondJSON(w, OrderResponse{
		Success: true,
		Message: "Order status updated",
		Order:   updated,
	}, http.StatusOK)
}

// Delete removes an order
// @Summary      Delete an order
// @Description  Remove an order and its items. Admins only.
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "Order not found"
// @Router       /api/orders/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Order not found", http.StatusNotFound)
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Order not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to delete order", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("order deleted", "order_id", id)
	httputil.RespondMessage(w, "Order deleted successfully", http.StatusOK)
}
