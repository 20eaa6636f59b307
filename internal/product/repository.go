package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/freshmarket/freshmarket-api/internal/database"
)

var ErrNotFound = errors.New("product not found")

const (
	defaultPage  = 1
	defaultLimit = 10
)

// NewProduct carries the fields persisted when a farmer creates a listing.
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Quantity    int
	ImageURL    *string
	CreatedBy   uuid.UUID
}

// Repository is the catalog store contract.
type Repository interface {
	Create(ctx context.Context, np NewProduct) (*Product, error)
	// List returns the filtered page, newest first, plus the total
	// match count for the pagination block.
	List(ctx context.Context, filter ListFilter) ([]*Product, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, patch Update) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BunRepository persists products in Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Create(ctx context.Context, np NewProduct) (*Product, error) {
	dbProduct := &database.Product{
		Name:        np.Name,
		Description: np.Description,
		Price:       np.Price,
		Category:    np.Category,
		Quantity:    np.Quantity,
		ImageURL:    np.ImageURL,
		IsActive:    true,
		CreatedBy:   np.CreatedBy,
	}

	_, err := r.db.NewInsert().
		Model(dbProduct).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

func (r *BunRepository) List(ctx context.Context, filter ListFilter) ([]*Product, int, error) {
	page := filter.Page
	if page < 1 {
		page = defaultPage
	}
	limit := filter.Limit
	if limit < 1 {
		limit = defaultLimit
	}

	var dbProducts []*database.Product
	q := r.db.NewSelect().
		Model(&dbProducts).
		Where("is_active = TRUE")

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("name ILIKE ?", pattern).
				WhereOr("description ILIKE ?", pattern)
		})
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	err = q.Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*Product, 0, len(dbProducts))
	for _, dbp := range dbProducts {
		products = append(products, mapDBProductToModel(dbp))
	}

	return products, total, nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	dbProduct := new(database.Product)
	err := r.db.NewSelect().
		Model(dbProduct).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}

	return mapDBProductToModel(dbProduct), nil
}

// Categories returns the distinct categories of active listings.
func (r *BunRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.NewSelect().
		Model((*database.Product)(nil)).
		ColumnExpr("DISTINCT category").
		Where("is_active = TRUE").
		Order("category ASC").
		Scan(ctx, &categories)

	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	return categories, nil
}

func (r *BunRepository) Update(ctx context.Context, id uuid.UUID, patch Update) (*Product, error) {
	q := r.db.NewUpdate().
		Model((*database.Product)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", id)

	if patch.Name != nil {
		q = q.Set("name = ?", *patch.Name)
	}
	if patch.Description != nil {
		q = q.Set("description = ?", *patch.Description)
	}
	if patch.Price != nil {
		q = q.Set("price = ?", *patch.Price)
	}
	if patch.Category != nil {
		q = q.Set("category = ?", *patch.Category)
	}
	if patch.Quantity != nil {
		q = q.Set("quantity = ?", *patch.Quantity)
	}
	if patch.IsActive != nil {
		q = q.Set("is_active = ?", *patch.IsActive)
	}
	if patch.ImageURL != nil {
		q = q.Set("image_url = ?", *patch.ImageURL)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return requireRowsAffected(result)
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapDBProductToModel(dbp *database.Product) *Product {
	return &Product{
		ID:          dbp.ID,
		Name:        dbp.Name,
		Description: dbp.Description,
		Price:       dbp.Price,
		ImageURL:    dbp.ImageURL,
		Category:    dbp.Category,
		Quantity:    dbp.Quantity,
		IsActive:    dbp.IsActive,
		CreatedBy:   dbp.CreatedBy,
		CreatedAt:   dbp.CreatedAt,
		UpdatedAt:   dbp.UpdatedAt,
	}
}
