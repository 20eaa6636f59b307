package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshmarket/freshmarket-api/internal/auth"
	"github.com/freshmarket/freshmarket-api/internal/email"
	"github.com/freshmarket/freshmarket-api/internal/logging"
	"github.com/freshmarket/freshmarket-api/internal/user"
)

// mockRepo is a map-backed implementation of Repository
type mockRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*Product
}

func newMockRepo() *mockRepo {
	return &mockRepo{products: make(map[uuid.UUID]*Product)}
}

func (m *mockRepo) Create(ctx context.Context, np NewProduct) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &Product{
		ID:          uuid.New(),
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		Quantity:    np.Quantity,
		ImageURL:    np.ImageURL,
		IsActive:    true,
		CreatedBy:   np.CreatedBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter) ([]*Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*Product
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.MinPrice != nil && p.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) &&
			!strings.Contains(strings.ToLower(p.Description), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := filter.Page
	if page < 1 {
		page = defaultPage
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) Categories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	for _, p := range m.products {
		if p.IsActive {
			seen[p.Category] = struct{}{}
		}
	}
	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

func (m *mockRepo) Update(ctx context.Context, id uuid.UUID, patch Update) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	return p, nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

// mockUploader returns a canned URL for any upload.
type mockUploader struct{}

func (mockUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

// mockNotifier records sends on a channel so tests can wait for the
// async goroutine.
type mockNotifier struct {
	sent chan email.ProductDetails
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{sent: make(chan email.ProductDetails, 4)}
}

func (m *mockNotifier) SendProductCreatedEmail(ctx context.Context, toEmail string, details email.ProductDetails) error {
	m.sent <- details
	return nil
}

func newTestHandler() (*Handler, *mockRepo, *mockNotifier) {
	repo := newMockRepo()
	notifier := newMockNotifier()
	h := NewHandler(repo, mockUploader{}, notifier, logging.NewLogger(true))
	return h, repo, notifier
}

func asUser(req *http.Request, u *user.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.UserContextKey, u)
	return req.WithContext(ctx)
}

func farmer() *user.User {
	return &user.User{ID: uuid.New(), Email: "farmer@example.com", Role: user.RoleFarmer, Status: user.StatusActive}
}

func multipartProduct(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestCreateProduct(t *testing.T) {
	t.Run("farmer creates a listing", func(t *testing.T) {
		h, repo, notifier := newTestHandler()

		body, contentType := multipartProduct(t, map[string]string{
			"name":        "Heirloom Tomatoes",
			"description": "Vine ripened",
			"price":       "4.99",
			"category":    "Vegetables",
			"quantity":    "20",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/products/addproduct", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.Create(rec, asUser(req, farmer()))

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp ProductResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "Heirloom Tomatoes", resp.Product.Name)
		assert.Equal(t, 4.99, resp.Product.Price)
		assert.True(t, resp.Product.IsActive)
		assert.Len(t, repo.products, 1)

		select {
		case details := <-notifier.sent:
			assert.Equal(t, "Heirloom Tomatoes", details.Name)
			assert.Equal(t, "4.99", details.Price)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for product created email")
		}
	})

	t.Run("non-farmers are rejected", func(t *testing.T) {
		h, repo, _ := newTestHandler()

		body, contentType := multipartProduct(t, map[string]string{
			"name": "Eggs", "price": "3.00", "category": "Dairy",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/products/addproduct", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		buyer := &user.User{ID: uuid.New(), Role: user.RoleUser, Status: user.StatusActive}
		h.Create(rec, asUser(req, buyer))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Only farmers are allowed to add products")
		assert.Empty(t, repo.products)
	})

	t.Run("missing required fields are rejected", func(t *testing.T) {
		h, _, _ := newTestHandler()

		body, contentType := multipartProduct(t, map[string]string{"name": "Eggs"})
		req := httptest.NewRequest(http.MethodPost, "/api/products/addproduct", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		h.Create(rec, asUser(req, farmer()))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListProducts(t *testing.T) {
	seed := func(t *testing.T, repo *mockRepo, n int, category string, price float64) {
		t.Helper()
		for i := 0; i < n; i++ {
			_, err := repo.Create(context.Background(), NewProduct{
				Name:      fmt.Sprintf("%s %d", category, i),
				Price:     price,
				Category:  category,
				Quantity:  5,
				CreatedBy: uuid.New(),
			})
			require.NoError(t, err)
		}
	}

	t.Run("paginates with defaults", func(t *testing.T) {
		h, repo, _ := newTestHandler()
		seed(t, repo, 15, "Fruit", 2.50)

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Products, 10)
		assert.Equal(t, 15, resp.Pagination.Total)
		assert.Equal(t, 1, resp.Pagination.Page)
		assert.Equal(t, 10, resp.Pagination.Limit)
		assert.Equal(t, 2, resp.Pagination.Pages)
	})

	t.Run("filters by category and price", func(t *testing.T) {
		h, repo, _ := newTestHandler()
		seed(t, repo, 3, "Fruit", 2.50)
		seed(t, repo, 2, "Dairy", 8.00)

		req := httptest.NewRequest(http.MethodGet, "/api/products?category=Dairy&minPrice=5", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Pagination.Total)
	})

	t.Run("rejects a malformed page", func(t *testing.T) {
		h, _, _ := newTestHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/products?page=zero", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetProduct(t *testing.T) {
	h, repo, _ := newTestHandler()
	created, err := repo.Create(context.Background(), NewProduct{
		Name: "Honey", Price: 12.00, Category: "Pantry", CreatedBy: uuid.New(),
	})
	require.NoError(t, err)

	get := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		return rec
	}

	rec := get(created.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProductResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Honey", resp.Product.Name)

	rec = get(uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Product not found")

	rec = get("not-a-uuid")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
