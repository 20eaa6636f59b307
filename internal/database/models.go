package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row. Verification and reset token columns
// hold the proof material for the pending -> active transition and the
// password reset flow; the account state itself lives in Status.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                    uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name                  string     `bun:"name,notnull"`
	Email                 string     `bun:"email,notnull,unique"`
	PasswordHash          string     `bun:"password_hash,notnull"`
	Phone                 string     `bun:"phone,notnull"`
	Address               string     `bun:"address,notnull"`
	Role                  string     `bun:"role,notnull,default:'user'"`
	Status                string     `bun:"status,notnull,default:'pending'"`
	ImageURL              *string    `bun:"image_url"`
	VerificationToken     *string    `bun:"verification_token"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at"`
	ResetPasswordToken    *string    `bun:"reset_password_token"`
	ResetPasswordExpires  *time.Time `bun:"reset_password_expires_at"`
	LastLogin             *time.Time `bun:"last_login"`
	CreatedAt             time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt             time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// Product is the products table row.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	Price       float64   `bun:"price,notnull"`
	ImageURL    *string   `bun:"image_url"`
	Category    string    `bun:"category,notnull"`
	Quantity    int       `bun:"quantity,notnull,default:0"`
	IsActive    bool      `bun:"is_active,notnull,default:true"`
	CreatedBy   uuid.UUID `bun:"created_by,notnull,type:uuid"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// CartItem is the cart_items table row. One row per (user, product).
type CartItem struct {
	bun.BaseModel `bun:"table:cart_items,alias:ci"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	ProductID uuid.UUID `bun:"product_id,notnull,type:uuid"`
	Quantity  int       `bun:"quantity,notnull,default:1"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id"`
}

// Order is the orders table row.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID          uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID      uuid.UUID `bun:"user_id,notnull,type:uuid"`
	TotalAmount float64   `bun:"total_amount,notnull"`
	Status      string    `bun:"status,notnull,default:'Pending'"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// OrderItem is the order_items table row.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	OrderID   uuid.UUID `bun:"order_id,notnull,type:uuid"`
	ProductID uuid.UUID `bun:"product_id,notnull,type:uuid"`
	Quantity  int       `bun:"quantity,notnull,default:1"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id"`
}
