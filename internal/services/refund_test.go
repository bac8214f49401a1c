package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/services"
	"gccpay-gateway/internal/storage"
)

func newRefundService(provider *fakeProvider) (*services.RefundService, *storage.InMemoryStore, *fakePublisher) {
	store := storage.NewInMemoryStore()
	publisher := &fakePublisher{}
	svc := services.NewRefundService(store, provider, publisher, logger.NewLogger())
	return svc, store, publisher
}

func seedRefundableOrder(t *testing.T, store *storage.InMemoryStore) {
	t.Helper()
	order := pendingOrder()
	order.Status = models.OrderStatusPaid
	order.TransactionRef = "S1"
	require.NoError(t, store.SaveOrder(order))
	require.NoError(t, store.PutSession(&models.PaymentSession{
		OrderID:         "1001",
		SessionID:       "S1",
		Ticket:          "T1",
		MerchantOrderID: "1001_1700000000",
	}))
}

func TestRefundRecordsProviderAcknowledgement(t *testing.T) {
	var gotSession string
	var gotParams map[string]interface{}
	provider := &fakeProvider{refundFn: func(sessionID string, params map[string]interface{}) (gccpay.Response, error) {
		gotSession = sessionID
		gotParams = params
		return gccpay.Response{"id": "R1", "status": "pending"}, nil
	}}
	svc, store, publisher := newRefundService(provider)
	seedRefundableOrder(t, store)

	ok, err := svc.Refund(context.Background(), "1001", 25.50, "damaged item")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "S1", gotSession)
	assert.Equal(t, 25.50, gotParams["amount"])
	assert.Equal(t, "damaged item", gotParams["reason"])
	merchantRefundID, _ := gotParams["merchantRefundId"].(string)
	assert.True(t, strings.HasPrefix(merchantRefundID, "1001_refund_"))

	refunds, err := store.ListRefunds("1001")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, "R1", refunds[0].RefundID)
	// The provider status is stored verbatim, never interpreted.
	assert.Equal(t, "pending", refunds[0].Status)
	assert.Equal(t, 25.50, refunds[0].Amount)
	assert.Equal(t, "damaged item", refunds[0].Reason)
	assert.Equal(t, merchantRefundID, refunds[0].MerchantRefundID)

	events := publisher.byType("payment.refunded")
	require.Len(t, events, 1)
	assert.Equal(t, "1001", events[0].OrderID)
	assert.Equal(t, "S1", events[0].SessionID)
	assert.Equal(t, 25.50, events[0].Amount)
}

func TestRefundWithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newRefundService(provider)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	ok, err := svc.Refund(context.Background(), "1001", 10, "no reason")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
	assert.False(t, ok)
}

func TestRefundRejectedByProvider(t *testing.T) {
	provider := &fakeProvider{refundFn: func(string, map[string]interface{}) (gccpay.Response, error) {
		return gccpay.Response{"error": "already refunded"}, nil
	}}
	svc, store, publisher := newRefundService(provider)
	seedRefundableOrder(t, store)

	ok, err := svc.Refund(context.Background(), "1001", 10, "")
	assert.ErrorIs(t, err, services.ErrRefundFailed)
	assert.False(t, ok)

	refunds, err := store.ListRefunds("1001")
	require.NoError(t, err)
	assert.Empty(t, refunds)
	assert.Empty(t, publisher.byType("payment.refunded"))
}

func TestRefundTransportFailure(t *testing.T) {
	provider := &fakeProvider{refundFn: func(string, map[string]interface{}) (gccpay.Response, error) {
		return nil, fmt.Errorf("%w: connection reset", gccpay.ErrTransport)
	}}
	svc, store, _ := newRefundService(provider)
	seedRefundableOrder(t, store)

	ok, err := svc.Refund(context.Background(), "1001", 10, "")
	assert.ErrorIs(t, err, gccpay.ErrTransport)
	assert.False(t, ok)

	refunds, err := store.ListRefunds("1001")
	require.NoError(t, err)
	assert.Empty(t, refunds)
}

func TestMultipleRefundsAccumulate(t *testing.T) {
	calls := 0
	provider := &fakeProvider{refundFn: func(string, map[string]interface{}) (gccpay.Response, error) {
		calls++
		return gccpay.Response{"id": fmt.Sprintf("R%d", calls), "status": "pending"}, nil
	}}
	svc, store, _ := newRefundService(provider)
	seedRefundableOrder(t, store)

	ok, err := svc.Refund(context.Background(), "1001", 10, "first")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Refund(context.Background(), "1001", 15, "second")
	require.NoError(t, err)
	assert.True(t, ok)

	refunds, err := store.ListRefunds("1001")
	require.NoError(t, err)
	require.Len(t, refunds, 2)
	assert.Equal(t, "R1", refunds[0].RefundID)
	assert.Equal(t, "R2", refunds[1].RefundID)
}
