package storage

import (
	"errors"

	"gccpay-gateway/internal/models"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Store is the order-store boundary of the gateway. MarkOrderPaid is the
// single place the paid transition happens: it is a conditional update
// that reports whether this call performed the transition, which is what
// keeps the foreground/background confirmation race single-shot.
type Store interface {
	SaveOrder(order *models.Order) error
	GetOrder(orderID string) (*models.Order, error)
	// MarkOrderPaid transitions the order to paid with the given
	// transaction reference. Returns false when the order was already
	// paid; that call must produce no completion side effects.
	MarkOrderPaid(orderID, transactionRef string) (bool, error)
	AddOrderNote(orderID, note string) error
	ListOrderNotes(orderID string) ([]string, error)

	GetSession(orderID string) (*models.PaymentSession, error)
	PutSession(session *models.PaymentSession) error

	PutRefund(refund *models.RefundRecord) error
	ListRefunds(orderID string) ([]*models.RefundRecord, error)

	ClearCart(userID string) error

	HealthCheck() error
	Close() error
}
