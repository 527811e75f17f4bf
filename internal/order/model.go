package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              int64
	UserID          int64
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	BillingAddress  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem copies the product name and price at order time so the order
// stays stable when the catalog changes. OrderID is the only link back to the
// parent.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

func newOrderItem(productID int64, name string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

type LineItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderInput struct {
	UserID          int64           `json:"userId"`
	ShippingAddress string          `json:"shippingAddress"`
	BillingAddress  *string         `json:"billingAddress,omitempty"`
	Items           []LineItemInput `json:"orderItems"`
}

// ListOptions pages a user's orders. Page is zero-based.
type ListOptions struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

type Page struct {
	Orders        []*Order
	Page          int
	Size          int
	TotalElements int64
}

func (p *Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalElements + int64(p.Size) - 1) / int64(p.Size))
}
