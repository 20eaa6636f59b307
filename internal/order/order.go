// Package order implements checkout and order tracking. Placing an
// order snapshots the cart into order items inside one transaction and
// empties the cart.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/freshmarket/freshmarket-api/internal/database"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrNoItems       = errors.New("order has no items")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

func IsValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Item is one line of an order.
type Item struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// Order is the order domain model.
type Order struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	TotalAmount float64   `json:"totalAmount"`
	Status      Status    `json:"status"`
	Items       []*Item   `json:"items"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewItem is one requested line of a new order.
type NewItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// NewOrder carries the checkout payload.
type NewOrder struct {
	UserID      uuid.UUID
	TotalAmount float64
	Items       []NewItem
}

// Repository is the order store contract.
type Repository interface {
	// Create inserts the order with its items and clears the user's
	// cart, all inside one transaction.
	Create(ctx context.Context, no NewOrder) (*Order, error)
	ListAll(ctx context.Context) ([]*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// BunRepository persists orders in Postgres via bun.
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

func (r *BunRepository) Create(ctx context.Context, no NewOrder) (*Order, error) {
	if len(no.Items) == 0 {
		return nil, ErrNoItems
	}

	var dbOrder *database.Order

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		dbOrder = &database.Order{
			UserID:      no.UserID,
			TotalAmount: no.TotalAmount,
			Status:      string(StatusPending),
		}
		if _, err := tx.NewInsert().Model(dbOrder).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		orderItems := make([]*database.OrderItem, 0, len(no.Items))
		for _, item := range no.Items {
			orderItems = append(orderItems, &database.OrderItem{
				OrderID:   dbOrder.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}
		if _, err := tx.NewInsert().Model(&orderItems).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		dbOrder.Items = orderItems

		// Checkout consumes the cart.
		_, err := tx.NewDelete().
			Model((*database.CartItem)(nil)).
			Where("user_id = ?", no.UserID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapDBOrderToModel(dbOrder), nil
}

func (r *BunRepository) ListAll(ctx context.Context) ([]*Order, error) {
	var dbOrders []*database.Order
	err := r.db.NewSelect().
		Model(&dbOrders).
		Relation("Items").
		Order("o.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return mapDBOrdersToModels(dbOrders), nil
}

func (r *BunRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	var dbOrders []*database.Order
	err := r.db.NewSelect().
		Model(&dbOrders).
		Relation("Items").
		Where("o.user_id = ?", userID).
		Order("o.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}

	return mapDBOrdersToModels(dbOrders), nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	dbOrder := new(database.Order)
	err := r.db.NewSelect().
		Model(dbOrder).
		Relation("Items").
		Where("o.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return mapDBOrderToModel(dbOrder), nil
}

func (r *BunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Order, error) {
	result, err := r.db.NewUpdate().
		Model((*database.Order)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := requireRowsAffected(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*database.OrderItem)(nil)).
			Where("order_id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete order items: %w", err)
		}

		result, err := tx.NewDelete().
			Model((*database.Order)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete order: %w", err)
		}

		return requireRowsAffected(result)
	})

	return err
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

func mapDBOrderToModel(dbo *database.Order) *Order {
	o := &Order{
		ID:          dbo.ID,
		UserID:      dbo.UserID,
		TotalAmount: dbo.TotalAmount,
		Status:      Status(dbo.Status),
		Items:       make([]*Item, 0, len(dbo.Items)),
		CreatedAt:   dbo.CreatedAt,
		UpdatedAt:   dbo.UpdatedAt,
	}
	for _, dbi := range dbo.Items {
		o.Items = append(o.Items, &Item{
			ID:        dbi.ID,
			ProductID: dbi.ProductID,
			Quantity:  dbi.Quantity,
		})
	}
	return o
}

func mapDBOrdersToModels(dbOrders []*database.Order) []*Order {
	orders := make([]*Order, 0, len(dbOrders))
	for _, dbo := range dbOrders {
		orders = append(orders, mapDBOrderToModel(dbo))
	}
	return orders
}
