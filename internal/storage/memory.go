package storage

import (
	"sync"

	"gccpay-gateway/internal/models"
)

// InMemoryStore backs tests and local development without MySQL.
type InMemoryStore struct {
	mutex    sync.RWMutex
	orders   map[string]*models.Order
	sessions map[string]*models.PaymentSession
	refunds  map[string][]*models.RefundRecord
	notes    map[string][]string
	carts    map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:   make(map[string]*models.Order),
		sessions: make(map[string]*models.PaymentSession),
		refunds:  make(map[string][]*models.RefundRecord),
		notes:    make(map[string][]string),
		carts:    make(map[string]bool),
	}
}

func (s *InMemoryStore) SaveOrder(order *models.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *order
	s.orders[order.OrderID] = &copied
	return nil
}

func (s *InMemoryStore) GetOrder(orderID string) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[orderID]
	if !exists {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

// MarkOrderPaid performs the paid transition under the store lock, so
// concurrent confirmations observe exactly one true result.
func (s *InMemoryStore) MarkOrderPaid(orderID, transactionRef string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, exists := s.orders[orderID]
	if !exists {
		return false, ErrOrderNotFound
	}
	if order.Status == models.OrderStatusPaid {
		return false, nil
	}
	order.Status = models.OrderStatusPaid
	order.TransactionRef = transactionRef
	return true, nil
}

func (s *InMemoryStore) AddOrderNote(orderID, note string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.notes[orderID] = append(s.notes[orderID], note)
	return nil
}

func (s *InMemoryStore) ListOrderNotes(orderID string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]string(nil), s.notes[orderID]...), nil
}

func (s *InMemoryStore) GetSession(orderID string) (*models.PaymentSession, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, exists := s.sessions[orderID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *InMemoryStore) PutSession(session *models.PaymentSession) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *session
	s.sessions[session.OrderID] = &copied
	return nil
}

func (s *InMemoryStore) PutRefund(refund *models.RefundRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *refund
	s.refunds[refund.OrderID] = append(s.refunds[refund.OrderID], &copied)
	return nil
}

func (s *InMemoryStore) ListRefunds(orderID string) ([]*models.RefundRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]*models.RefundRecord(nil), s.refunds[orderID]...), nil
}

func (s *InMemoryStore) ClearCart(userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.carts, userID)
	return nil
}

func (s *InMemoryStore) HealthCheck() error { return nil }
func (s *InMemoryStore) Close() error       { return nil }
