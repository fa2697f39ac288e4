package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant identifies a selectable flavour of a product. Both fields may be empty.
type Variant struct {
	Size  string `json:"selected_size,omitempty"`
	Color string `json:"selected_color,omitempty"`
}

type CartItem struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	ImageURL      string          `json:"image_url,omitempty"`
	Category      string          `json:"category,omitempty"`
	Quantity      int             `json:"quantity"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	AddedAt       time.Time       `json:"added_at"`
}

func (i *CartItem) Variant() Variant {
	return Variant{Size: i.SelectedSize, Color: i.SelectedColor}
}

// Matches reports whether the line holds productID in the given variant.
func (i *CartItem) Matches(productID uuid.UUID, v Variant) bool {
	return i.ProductID == productID && i.SelectedSize == v.Size && i.SelectedColor == v.Color
}

type Cart struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCart returns an empty, unsaved cart for userID.
func NewCart(userID uuid.UUID) *Cart {
	now := time.Now()

	return &Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     []CartItem{},
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Recalculate rebuilds line totals, Total and ItemCount from the items.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0

	for i := range c.Items {
		item := &c.Items[i]
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.TotalPrice)
		count += item.Quantity
	}

	if c.Items == nil {
		c.Items = []CartItem{}
	}

	c.Total = total
	c.ItemCount = count
}

// FindItem returns the index of the matching line, or -1.
func (c *Cart) FindItem(productID uuid.UUID, v Variant) int {
	for i := range c.Items {
		if c.Items[i].Matches(productID, v) {
			return i
		}
	}

	return -1
}

func (c *Cart) RemoveAt(idx int) {
	if idx < 0 || idx >= len(c.Items) {
		return
	}

	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

type AddItemRequest struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
	SelectedSize  string    `json:"selected_size,omitempty" validate:"omitempty,max=50"`
	SelectedColor string    `json:"selected_color,omitempty" validate:"omitempty,max=50"`
}

func (r *AddItemRequest) Variant() Variant {
	return Variant{Size: r.SelectedSize, Color: r.SelectedColor}
}

// UpdateItemRequest sets a line's quantity; zero removes the line.
type UpdateItemRequest struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"min=0"`
	SelectedSize  string    `json:"selected_size,omitempty" validate:"omitempty,max=50"`
	SelectedColor string    `json:"selected_color,omitempty" validate:"omitempty,max=50"`
}

func (r *UpdateItemRequest) Variant() Variant {
	return Variant{Size: r.SelectedSize, Color: r.SelectedColor}
}

type RemoveItemRequest struct {
	ProductID     uuid.UUID `json:"product_id" validate:"required"`
	SelectedSize  string    `json:"selected_size,omitempty"`
	SelectedColor string    `json:"selected_color,omitempty"`
}

func (r *RemoveItemRequest) Variant() Variant {
	return Variant{Size: r.SelectedSize, Color: r.SelectedColor}
}
