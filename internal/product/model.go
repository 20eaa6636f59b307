// Package product implements the marketplace catalog: farmer-owned
// listings with filtered, paginated browsing for everyone else.
package product

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing domain model.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows and pages the catalog listing. Zero values mean
// "no constraint"; Page and Limit are normalized by the repository.
type ListFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Page     int
	Limit    int
}

// Pagination describes the page window of a listing response.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// Update carries a partial listing patch. Nil fields are untouched.
type Update struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Quantity    *int
	IsActive    *bool
	ImageURL    *string
}

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.Category == nil && u.Quantity == nil && u.IsActive == nil && u.ImageURL == nil
}
