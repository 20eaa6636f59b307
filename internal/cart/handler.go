package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/product"
)

// Handler contains HTTP handlers for the cart endpoints.
type Handler struct {
	cart     Repository
	products product.Repository
	logger   *logging.Logger
}

func NewHandler(cart Repository, products product.Repository, logger *logging.Logger) *Handler {
	return &Handler{cart: cart, products: products, logger: logger}
}

// AddRequest represents the add-to-cart request body
type AddRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// UpdateRequest represents the quantity change request body
type UpdateRequest struct {
	Quantity int `json:"quantity"`
}

// ItemResponse wraps a single cart line.
type ItemResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Item    *Item  `json:"item"`
}

// CartResponse wraps the full cart.
type CartResponse struct {
	Success bool    `json:"success"`
	Items   []*Item `json:"items"`
}

// Add handles adding a product to the cart
// @Summary      Add to cart
// @Description  Add a product to the cart; an existing line has its quantity increased.
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body AddRequest true "Product and quantity"
// @Success      200 {object} ItemResponse "Cart updated"
// @Success      201 {object} ItemResponse "Item added to cart"
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /api/cart/add [post]
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid add to cart request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		httputil.RespondError(w, "Product not found", http.StatusNotFound)
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	if _, err := h.products.GetByID(r.Context(), productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			httputil.RespondError(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to look up product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	item, created, err := h.cart.Add(r.Context(), acting.ID, productID, req.Quantity)
	if err != nil {
		logger.Error("failed to add cart item", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	message := "Cart updated"
	if created {
		status = http.StatusCreated
		message = "Item added to cart"
	}

	logger.Info("cart item added", "user_id", acting.ID, "product_id", productID, "created", created)
	httputil.RespondJSON(w, ItemResponse{Success: true, Message: message, Item: item}, status)
}

// List handles fetching the user's cart
// @Summary      Get cart
// @Description  List the user's cart lines joined with their products.
// @Tags         cart
// @Produce      json
// @Success      200 {object} CartResponse
// @Router       /api/cart [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	items, err := h.cart.ListByUser(r.Context(), acting.ID)
	if err != nil {
		logger.Error("failed to list cart", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, CartResponse{Success: true, Items: items}, http.StatusOK)
}

// Update handles changing a cart line's quantity
// @Summary      Update cart item
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        id path string true "Cart item ID"
// @Param        request body UpdateRequest true "New quantity"
// @Success      200 {object} ItemResponse
// @Failure      400 {object} httputil.ErrorResponse "Quantity must be at least 1"
// @Failure      404 {object} httputil.ErrorResponse "Cart item not found"
// @Router       /api/cart/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Cart item not found", http.StatusNotFound)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update cart request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity < 1 {
		httputil.RespondError(w, "Quantity must be at least 1", http.StatusBadRequest)
		return
	}

	item, err := h.cart.UpdateQuantity(r.Context(), acting.ID, itemID, req.Quantity)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			httputil.RespondError(w, "Cart item not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to update cart item", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ItemResponse{Success: true, Message: "Cart updated", Item: item}, http.StatusOK)
}

// Remove handles deleting a cart line
// @Summary      Remove cart item
// @Tags         cart
// @Produce      json
// @Param        id path string true "Cart item ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "Cart item not found"
// @Router       /api/cart/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Cart item not found", http.StatusNotFound)
		return
	}

	if err := h.cart.Remove(r.Context(), acting.ID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			httputil.RespondError(w, "Cart item not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to remove cart item", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondMessage(w, "Item removed from cart", http.StatusOK)
}
