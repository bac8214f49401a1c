package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/services"
	"gccpay-gateway/internal/storage"
)

type fakeProvider struct {
	mu          sync.Mutex
	lastSession *models.SessionRequest

	createFn func(req *models.SessionRequest) (gccpay.Response, error)
	detailFn func(sessionID string) (gccpay.Response, error)
	refundFn func(sessionID string, params map[string]interface{}) (gccpay.Response, error)
}

func (f *fakeProvider) CreateSession(_ context.Context, req *models.SessionRequest) (gccpay.Response, error) {
	f.mu.Lock()
	f.lastSession = req
	f.mu.Unlock()
	return f.createFn(req)
}

func (f *fakeProvider) OrderDetail(_ context.Context, sessionID string) (gccpay.Response, error) {
	return f.detailFn(sessionID)
}

func (f *fakeProvider) Refund(_ context.Context, sessionID string, params map[string]interface{}) (gccpay.Response, error) {
	return f.refundFn(sessionID, params)
}

func (f *fakeProvider) PayPageURL(sessionID, ticket, returnURL string) string {
	return fmt.Sprintf("https://provider.test/pay?orderId=%s&ticket=%s&returnURL=%s",
		sessionID, ticket, url.QueryEscape(returnURL))
}

func (f *fakeProvider) EmbedURL(sessionID, ticket, returnURL string) string {
	return fmt.Sprintf("https://provider.test/embed?orderId=%s&ticket=%s&returnURL=%s",
		sessionID, ticket, url.QueryEscape(returnURL))
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.PaymentEvent
}

func (f *fakePublisher) PublishPaymentEvent(event *models.PaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) byType(eventType string) []*models.PaymentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PaymentEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
	released int
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]string)}
}

func (f *fakeLock) AcquireConfirm(_ context.Context, orderID, channel string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.held[orderID]; ok {
		return false, nil
	}
	f.held[orderID] = channel
	f.acquired++
	return true, nil
}

func (f *fakeLock) ReleaseConfirm(_ context.Context, orderID, channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[orderID] == channel {
		delete(f.held, orderID)
		f.released++
	}
	return nil
}

var testShop = config.ShopConfig{
	PublicBaseURL: "https://pay.example.com",
	CheckoutURL:   "https://shop.example.com/checkout",
	ReturnURL:     "https://shop.example.com/order-received",
	BaseCountry:   "AE",
	Currency:      "AED",
}

func newCheckoutService(provider *fakeProvider, lock services.ConfirmLock, interaction string) (*services.CheckoutService, *storage.InMemoryStore, *fakePublisher) {
	store := storage.NewInMemoryStore()
	publisher := &fakePublisher{}
	builder := gccpay.NewSessionBuilder(testShop.BaseCountry)
	svc := services.NewCheckoutService(store, provider, builder, publisher, lock,
		testShop, interaction, logger.NewLogger())
	return svc, store, publisher
}

func pendingOrder() *models.Order {
	return &models.Order{
		OrderID:  "1001",
		UserID:   "42",
		Status:   models.OrderStatusPending,
		Total:    120.50,
		Currency: "AED",
		Items: []models.OrderItem{
			{ProductID: "P1", Name: "Widget", Quantity: 1, UnitPrice: 120.50, LineTotal: 120.50},
		},
	}
}

func TestProcessPaymentCreatesSession(t *testing.T) {
	provider := &fakeProvider{createFn: func(*models.SessionRequest) (gccpay.Response, error) {
		return gccpay.Response{"id": "S1", "ticket": "T1"}, nil
	}}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	result, err := svc.ProcessPayment(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "success", result.Result)

	redirect, err := url.Parse(result.Redirect)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", redirect.Host)
	assert.Equal(t, "/checkout/pay/1001", redirect.Path)
	assert.Equal(t, "S1", redirect.Query().Get("payorderId"))
	assert.Equal(t, "T1", redirect.Query().Get("ticket"))
	assert.Equal(t, "false", redirect.Query().Get("pay_for_order"))

	session, err := store.GetSession("1001")
	require.NoError(t, err)
	assert.Equal(t, "S1", session.SessionID)
	assert.Equal(t, "T1", session.Ticket)
	assert.True(t, strings.HasPrefix(session.MerchantOrderID, "1001_"))
}

func TestProcessPaymentBuildsCallbackURLs(t *testing.T) {
	provider := &fakeProvider{createFn: func(*models.SessionRequest) (gccpay.Response, error) {
		return gccpay.Response{"id": "S1", "ticket": "T1"}, nil
	}}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	_, err := svc.ProcessPayment(context.Background(), "1001")
	require.NoError(t, err)

	require.NotNil(t, provider.lastSession)
	assert.Equal(t, "https://pay.example.com/checkout/notify?gc-api=gccpay_background&order_id=1001",
		provider.lastSession.NotificationURL)
	assert.Equal(t, gccpay.RawURLEncode("https://shop.example.com/order-received?order_id=1001"),
		provider.lastSession.ReferenceURL)
}

func TestProcessPaymentUnknownOrder(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newCheckoutService(provider, nil, config.InteractionLightbox)

	result, err := svc.ProcessPayment(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	assert.Equal(t, "fail", result.Result)
	assert.Empty(t, result.Redirect)
}

func TestProcessPaymentProviderRejectsSession(t *testing.T) {
	provider := &fakeProvider{createFn: func(*models.SessionRequest) (gccpay.Response, error) {
		return gccpay.Response{"error": "invalid merchant"}, nil
	}}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	result, err := svc.ProcessPayment(context.Background(), "1001")
	assert.ErrorIs(t, err, services.ErrSessionCreateFailed)
	assert.Equal(t, "fail", result.Result)
	assert.Empty(t, result.Redirect)

	// A rejected attempt leaves no session behind.
	_, err = store.GetSession("1001")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestProcessPaymentTransportFailure(t *testing.T) {
	provider := &fakeProvider{createFn: func(*models.SessionRequest) (gccpay.Response, error) {
		return nil, fmt.Errorf("%w: connection refused", gccpay.ErrTransport)
	}}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	result, err := svc.ProcessPayment(context.Background(), "1001")
	assert.ErrorIs(t, err, gccpay.ErrTransport)
	assert.Equal(t, "fail", result.Result)

	_, err = store.GetSession("1001")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func seedPaidSession(t *testing.T, store *storage.InMemoryStore) {
	t.Helper()
	require.NoError(t, store.SaveOrder(pendingOrder()))
	require.NoError(t, store.PutSession(&models.PaymentSession{
		OrderID:         "1001",
		SessionID:       "S1",
		Ticket:          "T1",
		MerchantOrderID: "1001_1700000000",
	}))
}

func TestReceiptPageLightbox(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	page, err := svc.ReceiptPage(context.Background(), "1001", "S1", "T1")
	require.NoError(t, err)
	assert.True(t, page.Embedded)
	assert.Contains(t, page.PayURL, "https://provider.test/embed?orderId=S1&ticket=T1")
	assert.Contains(t, page.PayURL, url.QueryEscape("https://pay.example.com/checkout/return?order_id=1001"))
	assert.Equal(t, "https://shop.example.com/order-received?order_id=1001", page.ReturnURL)
	assert.Equal(t, "https://pay.example.com", page.SuccessOrigin)
}

func TestReceiptPagePaymentPage(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionPaymentPage)
	seedPaidSession(t, store)

	page, err := svc.ReceiptPage(context.Background(), "1001", "S1", "T1")
	require.NoError(t, err)
	assert.False(t, page.Embedded)
	assert.Contains(t, page.PayURL, "https://provider.test/pay?orderId=S1&ticket=T1")
}

func TestReceiptPageRejectsBrokenLinks(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	_, err := svc.ReceiptPage(context.Background(), "1001", "", "T1")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	// A payorderId that does not match the stored session is rejected.
	_, err = svc.ReceiptPage(context.Background(), "1001", "S2", "T1")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	_, err = svc.ReceiptPage(context.Background(), "2002", "S1", "T1")
	assert.ErrorIs(t, err, services.ErrSessionNotFound)
}

func TestConfirmMarksPaidExactlyOnce(t *testing.T) {
	provider := &fakeProvider{detailFn: func(string) (gccpay.Response, error) {
		return gccpay.Response{"status": "paid"}, nil
	}}
	svc, store, publisher := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	first, err := svc.Confirm(context.Background(), "1001", services.ChannelWeb)
	require.NoError(t, err)
	assert.True(t, first.Paid)
	assert.True(t, first.Completed)
	assert.Equal(t, "S1", first.SessionID)
	assert.Equal(t, "https://shop.example.com/order-received?order_id=1001", first.ReturnURL)

	order, err := store.GetOrder("1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "S1", order.TransactionRef)

	// The background notification for the same payment is a no-op.
	second, err := svc.Confirm(context.Background(), "1001", services.ChannelBackground)
	require.NoError(t, err)
	assert.True(t, second.Paid)
	assert.False(t, second.Completed)

	notes, err := store.ListOrderNotes("1001")
	require.NoError(t, err)
	completed := 0
	for _, note := range notes {
		if strings.Contains(note, "payment completed") {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Contains(t, notes, "GCCPay payment completed with transaction session (web): S1.")
	assert.Len(t, publisher.byType("payment.success"), 1)
}

func TestConfirmConcurrentDualChannel(t *testing.T) {
	provider := &fakeProvider{detailFn: func(string) (gccpay.Response, error) {
		return gccpay.Response{"status": "paid"}, nil
	}}
	svc, store, publisher := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0

	for i := 0; i < workers; i++ {
		channel := services.ChannelWeb
		if i%2 == 1 {
			channel = services.ChannelBackground
		}
		wg.Add(1)
		go func(ch string) {
			defer wg.Done()
			result, err := svc.Confirm(context.Background(), "1001", ch)
			if err != nil {
				return
			}
			if result.Completed {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}(channel)
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	assert.Len(t, publisher.byType("payment.success"), 1)

	order, err := store.GetOrder("1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
}

func TestConfirmUsesLockWhenAvailable(t *testing.T) {
	provider := &fakeProvider{detailFn: func(string) (gccpay.Response, error) {
		return gccpay.Response{"status": "paid"}, nil
	}}
	lock := newFakeLock()
	svc, store, _ := newCheckoutService(provider, lock, config.InteractionLightbox)
	seedPaidSession(t, store)

	_, err := svc.Confirm(context.Background(), "1001", services.ChannelWeb)
	require.NoError(t, err)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released)
}

func TestConfirmPendingPayment(t *testing.T) {
	provider := &fakeProvider{detailFn: func(string) (gccpay.Response, error) {
		return gccpay.Response{"status": "pending"}, nil
	}}
	svc, store, publisher := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	_, err := svc.Confirm(context.Background(), "1001", services.ChannelWeb)
	assert.ErrorIs(t, err, services.ErrPaymentNotCompleted)

	order, err := store.GetOrder("1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)

	notes, err := store.ListOrderNotes("1001")
	require.NoError(t, err)
	assert.Contains(t, notes, "Payment error: Something went wrong.")
	assert.Empty(t, publisher.byType("payment.success"))
}

func TestConfirmWithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	_, err := svc.Confirm(context.Background(), "1001", services.ChannelBackground)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	notes, err := store.ListOrderNotes("1001")
	require.NoError(t, err)
	assert.Contains(t, notes, "Payment error: Invalid transaction.")
}

func TestConfirmProviderUnreachable(t *testing.T) {
	provider := &fakeProvider{detailFn: func(string) (gccpay.Response, error) {
		return nil, fmt.Errorf("%w: timeout", gccpay.ErrTransport)
	}}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	_, err := svc.Confirm(context.Background(), "1001", services.ChannelWeb)
	assert.True(t, errors.Is(err, gccpay.ErrTransport))

	order, err := store.GetOrder("1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestIngestOrderDefaultsAndDeduplication(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)

	incoming := &models.Order{OrderID: "2002", UserID: "7", Total: 10, Currency: "AED"}
	require.NoError(t, svc.IngestOrder(incoming))

	stored, err := store.GetOrder("2002")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.False(t, stored.CreatedAt.IsZero())

	// Replayed messages must not clobber the stored order.
	transitioned, err := store.MarkOrderPaid("2002", "SX")
	require.NoError(t, err)
	require.True(t, transitioned)
	require.NoError(t, svc.IngestOrder(&models.Order{OrderID: "2002", Total: 99}))

	stored, err = store.GetOrder("2002")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, float64(10), stored.Total)
}

func TestPaymentStatus(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	seedPaidSession(t, store)

	order, session, err := svc.PaymentStatus(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", order.OrderID)
	require.NotNil(t, session)
	assert.Equal(t, "S1", session.SessionID)

	_, _, err = svc.PaymentStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestPaymentStatusWithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	svc, store, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	require.NoError(t, store.SaveOrder(pendingOrder()))

	order, session, err := svc.PaymentStatus(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, session)
}

func TestSelfOrigin(t *testing.T) {
	provider := &fakeProvider{}
	svc, _, _ := newCheckoutService(provider, nil, config.InteractionLightbox)
	assert.Equal(t, "https://pay.example.com", svc.SelfOrigin())
}
