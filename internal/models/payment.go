package models

import "time"

// PaymentSession is the provider-side record of an intended payment,
// created once per checkout attempt. A retried checkout overwrites the
// order's session with a fresh one.
type PaymentSession struct {
	OrderID         string    `json:"order_id"`
	SessionID       string    `json:"session_id"`
	Ticket          string    `json:"ticket"`
	MerchantOrderID string    `json:"merchant_order_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// RefundRecord is one refund attempt against a captured payment. The
// provider status is recorded verbatim and never interpreted here.
type RefundRecord struct {
	OrderID          string    `json:"order_id"`
	MerchantRefundID string    `json:"merchant_refund_id"`
	RefundID         string    `json:"refund_id"`
	Status           string    `json:"status"`
	Amount           float64   `json:"amount"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// CheckoutResult is the outcome of a session-creation attempt.
type CheckoutResult struct {
	Result   string `json:"result"` // "success" | "fail"
	Redirect string `json:"redirect"`
}

// ConfirmResult is the outcome of a confirmation attempt on either
// channel. Completed is true only for the call that performed the paid
// transition; a concurrent duplicate sees Paid=true, Completed=false.
type ConfirmResult struct {
	Paid      bool   `json:"paid"`
	Completed bool   `json:"completed"`
	SessionID string `json:"session_id"`
	ReturnURL string `json:"return_url"`
}

// ReceiptPage carries what the receipt handler needs to hand the shopper
// to the hosted checkout.
type ReceiptPage struct {
	// Embedded selects the lightbox iframe rendering; otherwise the
	// handler issues a full-page redirect to PayURL.
	Embedded bool
	// PayURL is the provider's hosted checkout URL (full page or embed
	// variant depending on Embedded).
	PayURL string
	// ReturnURL is the final shop destination after payment.
	ReturnURL string
	// SuccessOrigin is the only origin accepted for the embedded
	// frame's gccpay.success message. The provider navigates the frame
	// to this gateway's confirm page, so this is the gateway's own
	// public origin.
	SuccessOrigin string
}

type ProcessPaymentRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

type RefundRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Amount  string `json:"amount,omitempty"`
	Reason  string `json:"reason"`
}

type PaymentEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	SessionID string    `json:"session_id"`
	Amount    float64   `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
