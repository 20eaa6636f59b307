// Package cart implements the per-user shopping cart: one row per
// (user, product), quantity adjusted in place.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/freshmarket/freshmarket-api/internal/database"
	"github.com/freshmarket/freshmarket-api/internal/product"
)

var ErrItemNotFound = errors.New("cart item not found")

// Item is a cart line joined with its product.
type Item struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	ProductID uuid.UUID        `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *product.Product `json:"product,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Repository is the cart store contract.
type Repository interface {
	// Add upserts the (user, product) line. An existing line has the
	// quantity added to it; created reports whether a new line was made.
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (item *Item, created bool, err error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Item, error)
	// UpdateQuantity sets the quantity of a line the user owns.
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Item, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	// Clear drops every line for the user; used after checkout.
	Clear(ctx context.Context, userID uuid.UUID) error
}

// BunRepository persists cart items in Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*Item, bool, error) {
	existing := new(database.CartItem)
	err := r.db.NewSelect().
		Model(existing).
		Where("user_id = ?", userID).
		Where("product_id = ?", productID).
		Scan(ctx)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up cart item: %w", err)
	}

	if err == nil {
		existing.Quantity += quantity
		_, err = r.db.NewUpdate().
			Model(existing).
			Set("quantity = ?", existing.Quantity).
			Set("updated_at = NOW()").
			Where("id = ?", existing.ID).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update cart item: %w", err)
		}
		return mapDBItemToModel(existing), false, nil
	}

	item := &database.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	_, err = r.db.NewInsert().
		Model(item).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to add cart item: %w", err)
	}

	return mapDBItemToModel(item), true, nil
}

func (r *BunRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	var dbItems []*database.CartItem
	err := r.db.NewSelect().
		Model(&dbItems).
		Relation("Product").
		Where("ci.user_id = ?", userID).
		Order("ci.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	items := make([]*Item, 0, len(dbItems))
	for _, dbi := range dbItems {
		items = append(items, mapDBItemToModel(dbi))
	}
	return items, nil
}

func (r *BunRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*Item, error) {
	item := new(database.CartItem)
	result, err := r.db.NewUpdate().
		Model(item).
		Set("quantity = ?", quantity).
		Set("updated_at = NOW()").
		Where("id = ?", itemID).
		Where("user_id = ?", userID).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return mapDBItemToModel(item), nil
}

func (r *BunRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.CartItem)(nil)).
		Where("id = ?", itemID).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return requireRowsAffected(result)
}

func (r *BunRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*database.CartItem)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func mapDBItemToModel(dbi *database.CartItem) *Item {
	item := &Item{
		ID:        dbi.ID,
		UserID:    dbi.UserID,
		ProductID: dbi.ProductID,
		Quantity:  dbi.Quantity,
		CreatedAt: dbi.CreatedAt,
		UpdatedAt: dbi.UpdatedAt,
	}
	if dbi.Product != nil {
		item.Product = &product.Product{
			ID:          dbi.Product.ID,
			Name:        dbi.Product.Name,
			Description: dbi.Product.Description,
			Price:       dbi.Product.Price,
			ImageURL:    dbi.Product.ImageURL,
			Category:    dbi.Product.Category,
			Quantity:    dbi.Product.Quantity,
			IsActive:    dbi.Product.IsActive,
			CreatedBy:   dbi.Product.CreatedBy,
			CreatedAt:   dbi.Product.CreatedAt,
			UpdatedAt:   dbi.Product.UpdatedAt,
		}
	}
	return item
}
