package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order payment statuses as tracked by this gateway.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID         string      `json:"orderID" bun:"order_id,pk"`
	UserID          string      `json:"userID" bun:"user_id"`
	Status          string      `json:"status" bun:"status"`
	Total           float64     `json:"total" bun:"total"`
	Currency        string      `json:"currency" bun:"currency"`
	TransactionRef  string      `json:"transactionRef" bun:"transaction_ref"`
	BillingPhone    string      `json:"billingPhone" bun:"billing_phone"`
	CustomerEmail   string      `json:"customerEmail" bun:"customer_email"`
	CustomerName    string      `json:"customerName" bun:"customer_name"`
	ShippingAddress string      `json:"shippingAddress" bun:"shipping_address"`
	RegisteredAt    string      `json:"registeredAt" bun:"registered_at"`
	Items           []OrderItem `json:"items" bun:"-"`
	CreatedAt       time.Time   `json:"createdAt" bun:"created_at"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID          int64   `json:"id" bun:"id,pk,autoincrement"`
	OrderID     string  `json:"orderID" bun:"order_id"`
	ProductID   string  `json:"productID" bun:"product_id"`
	VariationID string  `json:"variationID" bun:"variation_id"`
	Name        string  `json:"name" bun:"name"`
	Quantity    int     `json:"quantity" bun:"quantity"`
	UnitPrice   float64 `json:"unitPrice" bun:"unit_price"`
	LineTotal   float64 `json:"lineTotal" bun:"line_total"`
	ImageURL    string  `json:"imageURL" bun:"image_url"`
	Description string  `json:"description" bun:"description"`
	Permalink   string  `json:"permalink" bun:"permalink"`
}

// HasAccount reports whether the order belongs to a registered shopper.
// Guest orders carry sentinel customer values in session requests.
func (o *Order) HasAccount() bool {
	return o.UserID != "" && o.UserID != "0"
}
