package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

type OrderResponse struct {
	ID              int64               `json:"id"`
	UserID          int64               `json:"userId"`
	OrderItems      []OrderItemResponse `json:"orderItems"`
	TotalAmount     string              `json:"totalAmount"`
	Status          OrderStatus         `json:"status"`
	ShippingAddress string              `json:"shippingAddress"`
	BillingAddress  string              `json:"billingAddress"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type PageResponse struct {
	Content       []*OrderResponse `json:"content"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
	TotalElements int64            `json:"totalElements"`
	TotalPages    int              `json:"totalPages"`
	First         bool             `json:"first"`
	Last          bool             `json:"last"`
}

// formatAmount renders at least two decimal places and never rounds.
func formatAmount(d decimal.Decimal) string {
	if !d.Round(2).Equal(d) {
		return d.String()
	}
	return d.StringFixed(2)
}

func ToItemResponse(i OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:          i.ID,
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		UnitPrice:   formatAmount(i.UnitPrice),
		TotalPrice:  formatAmount(i.TotalPrice),
	}
}

func ToResponse(o *Order) *OrderResponse {
	if o == nil {
		return nil
	}

	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, ToItemResponse(item))
	}

	return &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		OrderItems:      items,
		TotalAmount:     formatAmount(o.TotalAmount),
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func ToResponses(orders []*Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToResponse(o))
	}
	return out
}

func ToPageResponse(p *Page) *PageResponse {
	if p == nil {
		return nil
	}
	totalPages := p.TotalPages()
	return &PageResponse{
		Content:       ToResponses(p.Orders),
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    totalPages,
		First:         p.Page == 0,
		Last:          p.Page >= totalPages-1,
	}
}
