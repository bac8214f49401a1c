package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/storage"
	"gccpay-gateway/internal/utils"
)

var ErrRefundFailed = errors.New("refund rejected by provider")

// RefundService maps refund requests onto provider refund calls and
// records the acknowledgement. It never interprets the provider's refund
// status; the caller reads the stored record.
type RefundService struct {
	store    storage.Store
	client   ProviderClient
	producer EventPublisher
	log      *logger.Logger
	now      func() time.Time
}

func NewRefundService(store storage.Store, client ProviderClient, producer EventPublisher, log *logger.Logger) *RefundService {
	return &RefundService{
		store:    store,
		client:   client,
		producer: producer,
		log:      log,
		now:      time.Now,
	}
}

// Refund issues a single-shot refund against the order's captured
// session. The merchantRefundId is fresh per attempt, so each attempt is
// its own idempotency scope at the provider; multiple refunds per order
// accumulate as separate records.
func (s *RefundService) Refund(ctx context.Context, orderID string, amount float64, reason string) (bool, error) {
	s.log.LogPayment("REFUND_INIT", orderID, fmt.Sprintf("amount=%.2f reason=%q", amount, reason))

	session, err := s.store.GetSession(orderID)
	if err != nil {
		s.log.LogPayment("REFUND_FAILED", orderID, "No payment session on record")
		return false, ErrSessionNotFound
	}

	merchantRefundID := fmt.Sprintf("%s_refund_%d", orderID, s.now().Unix())
	params := map[string]interface{}{
		"amount":           amount,
		"reason":           reason,
		"merchantRefundId": merchantRefundID,
	}

	resp, err := s.client.Refund(ctx, session.SessionID, params)
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Refund call for order %s failed: %v", orderID, err))
		return false, err
	}

	if resp.ID() == "" {
		s.log.LogPayment("REFUND_FAILED", orderID, "Provider response carries no refund id")
		return false, ErrRefundFailed
	}

	record := &models.RefundRecord{
		OrderID:          orderID,
		MerchantRefundID: merchantRefundID,
		RefundID:         resp.ID(),
		Status:           resp.Status(),
		Amount:           amount,
		Reason:           reason,
		CreatedAt:        s.now(),
	}
	if err := s.store.PutRefund(record); err != nil {
		return false, fmt.Errorf("failed to persist refund: %w", err)
	}

	event := &models.PaymentEvent{
		ID:        utils.GenerateUUID(),
		Type:      "payment.refunded",
		OrderID:   orderID,
		SessionID: session.SessionID,
		Amount:    amount,
		Timestamp: s.now(),
	}
	if err := s.producer.PublishPaymentEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish refund event for order %s: %v", orderID, err))
	}

	s.log.LogPayment("REFUND_SUCCESS", orderID, fmt.Sprintf("Refund %s recorded with status %q", resp.ID(), resp.Status()))
	return true, nil
}
