package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/email"
	"github.com/freshmarket/freshmarket-api/internal/httputil"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/storage"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// Multipart bodies are image uploads; cap them well above any real
// product photo.
const maxUploadSize = 10 << 20

// Notifier sends the listing-created email.
type Notifier interface {
	SendProductCreatedEmail(ctx context.Context, toEmail string, details email.ProductDetails) error
}

// Handler contains HTTP handlers for the catalog endpoints.
type Handler struct {
	products Repository
	uploads  storage.Uploader
	notifier Notifier
	logger   *logging.Logger
}

func NewHandler(products Repository, uploads storage.Uploader, notifier Notifier, logger *logging.Logger) *Handler {
	return &Handler{
		products: products,
		uploads:  uploads,
		notifier: notifier,
		logger:   logger,
	}
}

// ProductResponse wraps a single listing.
type ProductResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Product *Product `json:"product"`
}

// ListResponse wraps a catalog page.
type ListResponse struct {
	Success    bool       `json:"success"`
	Products   []*Product `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// CategoriesResponse wraps the distinct category list.
type CategoriesResponse struct {
	Success    bool     `json:"success"`
	Categories []string `json:"categories"`
}

// Create handles new product listings
// @Summary      Add a product
// @Description  Create a listing with an optional image upload. Farmers only.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Success      201 {object} ProductResponse
// @Failure      400 {object} httputil.ErrorResponse "Missing or invalid fields"
// @Failure      403 {object} httputil.ErrorResponse "Only farmers are allowed to add products"
// @Router       /api/products/addproduct [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}
	if acting.Role != user.RoleFarmer {
		httputil.RespondError(w, "Only farmers are allowed to add products", http.StatusForbidden)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Warn("invalid multipart form", "error", err.Error())
		httputil.RespondError(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	name := r.FormValue("name")
	description := r.FormValue("description")
	category := r.FormValue("category")
	if name == "" || category == "" || r.FormValue("price") == "" {
		httputil.RespondError(w, "Name, price and category are required", http.StatusBadRequest)
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil || price < 0 {
		httputil.RespondError(w, "Invalid price", http.StatusBadRequest)
		return
	}

	quantity := 0
	if raw := r.FormValue("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity < 0 {
			httputil.RespondError(w, "Invalid quantity", http.StatusBadRequest)
			return
		}
	}

	var imageURL *string
	if url, err := h.uploadImage(r); err != nil {
		logger.Error("failed to upload product image", "error", err.Error())
		httputil.RespondError(w, "Failed to upload image", http.StatusInternalServerError)
		return
	} else if url != "" {
		imageURL = &url
	}

	created, err := h.products.Create(r.Context(), NewProduct{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Quantity:    quantity,
		ImageURL:    imageURL,
		CreatedBy:   acting.ID,
	})
	if err != nil {
		logger.Error("failed to create product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("product created", "product_id", created.ID, "farmer_id", acting.ID)

	go func() {
		details := email.ProductDetails{
			Name:     created.Name,
			Category: created.Category,
			Price:    fmt.Sprintf("%.2f", created.Price),
			Quantity: created.Quantity,
		}
		if err := h.notifier.SendProductCreatedEmail(context.Background(), acting.Email, details); err != nil {
			h.logger.Warn("failed to send product created email", "email", acting.Email, "error", err)
		}
	}()

	httputil.RespondJSON(w, ProductResponse{
		Success: true,
		Message: "Product added successfully",
		Product: created,
	}, http.StatusCreated)
}

// List handles catalog browsing
// @Summary      List products
// @Description  Filter by category, price range and search text; paginated, newest first.
// @Tags         products
// @Produce      json
// @Param        category query string false "Category filter"
// @Param        minPrice query number false "Minimum price"
// @Param        maxPrice query number false "Maximum price"
// @Param        search   query string false "Matches name or description"
// @Param        page     query int false "Page number (default 1)"
// @Param        limit    query int false "Page size (default 10)"
// @Success      200 {object} ListResponse
// @Router       /api/products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	products, total, err := h.products.List(r.Context(), filter)
	if err != nil {
		logger.Error("failed to list products", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	page := filter.Page
	if page < 1 {
		page = defaultPage
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	pages := (total + limit - 1) / limit

	httputil.RespondJSON(w, ListResponse{
		Success:  true,
		Products: products,
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: pages,
		},
	}, http.StatusOK)
}

// Get handles single product lookup
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} ProductResponse
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /api/products/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Product not found", http.StatusNotFound)
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to get product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, ProductResponse{Success: true, Product: p}, http.StatusOK)
}

// ListByCategory lists active products in one category
// @Summary      List products by category
// @Tags         products
// @Produce      json
// @Param        category path string true "Category name"
// @Success      200 {object} ListResponse
// @Router       /api/products/category/{category} [get]
func (h *Handler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.Category = chi.URLParam(r, "category")

	products, total, err := h.products.List(r.Context(), filter)
	if err != nil {
		logger.Error("failed to list products by category", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pages := (total + filter.Limit - 1) / filter.Limit

	httputil.RespondJSON(w, ListResponse{
		Success:  true,
		Products: products,
		Pagination: Pagination{
			Total: total,
			Page:  filter.Page,
			Limit: filter.Limit,
			Pages: pages,
		},
	}, http.StatusOK)
}

// Categories lists the distinct categories of active listings
// @Summary      List categories
// @Tags         products
// @Produce      json
// @Success      200 {object} CategoriesResponse
// @Router       /api/products/categories [get]
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	categories, err := h.products.Categories(r.Context())
	if err != nil {
		logger.Error("failed to list categories", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, CategoriesResponse{Success: true, Categories: categories}, http.StatusOK)
}

// Update applies a partial listing patch
// @Summary      Update a product
// @Description  Patch listing fields, with an optional replacement image. Owner or admin only.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} ProductResponse
// @Failure      403 {object} httputil.ErrorResponse "Not the listing owner"
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /api/products/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	acting, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Not authorized - no session", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Product not found", http.StatusNotFound)
		return
	}

	existing, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to get product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if existing.CreatedBy != acting.ID && acting.Role != user.RoleAdmin {
		httputil.RespondError(w, "Access denied. Insufficient role.", http.StatusForbidden)
		return
	}

	patch, err := h.parseUpdate(r)
	if err != nil {
		logger.Warn("invalid product update", "error", err.Error())
		httputil.RespondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if patch.IsEmpty() {
		httputil.RespondError(w, "No fields to update", http.StatusBadRequest)
		return
	}

	updated, err := h.products.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to update product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("product updated", "product_id", id)
	httputil.RespondJSON(w, ProductResponse{
		Success: true,
		Message: "Product updated successfully",
		Product: updated,
	}, http.StatusOK)
}

// Delete removes a listing
// @Summary      Delete a product
// @Description  Remove a listing. Admins only.
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} httputil.MessageResponse
// @Failure      404 {object} httputil.ErrorResponse "Product not found"
// @Router       /api/products/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, "Product not found", http.StatusNotFound)
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.RespondError(w, "Product not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to delete product", "error", err.Error())
		httputil.RespondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("product deleted", "product_id", id)
	httputil.RespondMessage(w, "Product deleted successfully", http.StatusOK)
}

// uploadImage stores the optional "image" form file and returns its
// public URL, or "" when no file was sent.
func (h *Handler) uploadImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read form file: %w", err)
	}
	defer file.Close()

	if h.uploads == nil {
		return "", fmt.Errorf("image storage is not configured")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("products/%s%s", uuid.NewString(), filepath.Ext(header.Filename))
	return h.uploads.Upload(r.Context(), key, contentType, file)
}

// parseUpdate reads the optional multipart patch fields, uploading a
// replacement image when one is attached.
func (h *Handler) parseUpdate(r *http.Request) (Update, error) {
	var patch Update

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		// Fall back to a JSON body when the client sent no files.
		var body struct {
			Name        *string  `json:"name"`
			Description *string  `json:"description"`
			Price       *float64 `json:"price"`
			Category    *string  `json:"category"`
			Quantity    *int     `json:"quantity"`
			IsActive    *bool    `json:"isActive"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return patch, fmt.Errorf("invalid request body")
		}
		patch.Name = body.Name
		patch.Description = body.Description
		patch.Price = body.Price
		patch.Category = body.Category
		patch.Quantity = body.Quantity
		patch.IsActive = body.IsActive
		return patch, nil
	}

	if v := r.FormValue("name"); v != "" {
		patch.Name = &v
	}
	if v := r.FormValue("description"); v != "" {
		patch.Description = &v
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			return patch, fmt.Errorf("invalid price")
		}
		patch.Price = &price
	}
	if v := r.FormValue("category"); v != "" {
		patch.Category = &v
	}
	if v := r.FormValue("quantity"); v != "" {
		quantity, err := strconv.Atoi(v)
		if err != nil || quantity < 0 {
			return patch, fmt.Errorf("invalid quantity")
		}
		patch.Quantity = &quantity
	}
	if v := r.FormValue("isActive"); v != "" {
		isActive, err := strconv.ParseBool(v)
		if err != nil {
			return patch, fmt.Errorf("invalid isActive")
		}
		patch.IsActive = &isActive
	}

	if url, err := h.uploadImage(r); err != nil {
		return patch, err
	} else if url != "" {
		patch.ImageURL = &url
	}

	return patch, nil
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()

	filter := ListFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     defaultPage,
		Limit:    defaultLimit,
	}

	if raw := q.Get("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid minPrice")
		}
		filter.MinPrice = &v
	}
	if raw := q.Get("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid maxPrice")
		}
		filter.MaxPrice = &v
	}
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return filter, fmt.Errorf("invalid page")
		}
		filter.Page = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return filter, fmt.Errorf("invalid limit")
		}
		filter.Limit = v
	}

	return filter, nil
}
