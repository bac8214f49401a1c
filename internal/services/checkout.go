package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/storage"
	"gccpay-gateway/internal/utils"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrSessionNotFound     = errors.New("payment session not found")
	ErrSessionCreateFailed = errors.New("failed to create payment session")
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// Confirmation channels. Both run the same transition; the channel only
// shows up in notes, logs and the lock value.
const (
	ChannelWeb        = "web"
	ChannelBackground = "background"
)

// ProviderClient is the outbound boundary to GCCPay, satisfied by
// *gccpay.Client.
type ProviderClient interface {
	CreateSession(ctx context.Context, req *models.SessionRequest) (gccpay.Response, error)
	OrderDetail(ctx context.Context, sessionID string) (gccpay.Response, error)
	Refund(ctx context.Context, sessionID string, params map[string]interface{}) (gccpay.Response, error)
	PayPageURL(sessionID, ticket, returnURL string) string
	EmbedURL(sessionID, ticket, returnURL string) string
}

// ConfirmLock serializes concurrent confirmations best-effort. A nil
// lock is valid; correctness comes from Store.MarkOrderPaid either way.
type ConfirmLock interface {
	AcquireConfirm(ctx context.Context, orderID, channel string) (bool, error)
	ReleaseConfirm(ctx context.Context, orderID, channel string) error
}

// EventPublisher pushes payment lifecycle events to the platform bus.
type EventPublisher interface {
	PublishPaymentEvent(event *models.PaymentEvent) error
}

// CheckoutService drives the three-phase flow: create a session, hand
// the shopper to the hosted checkout, reconcile the dual confirmation.
type CheckoutService struct {
	store       storage.Store
	client      ProviderClient
	builder     *gccpay.SessionBuilder
	producer    EventPublisher
	lock        ConfirmLock
	shop        config.ShopConfig
	interaction string
	log         *logger.Logger
}

func NewCheckoutService(store storage.Store, client ProviderClient, builder *gccpay.SessionBuilder,
	producer EventPublisher, lock ConfirmLock, shop config.ShopConfig, interaction string,
	log *logger.Logger) *CheckoutService {
	return &CheckoutService{
		store:       store,
		client:      client,
		builder:     builder,
		producer:    producer,
		lock:        lock,
		shop:        shop,
		interaction: interaction,
		log:         log,
	}
}

// CheckoutURL is where shoppers land after a failed or abandoned
// payment; retrying from there creates a fresh session.
func (s *CheckoutService) CheckoutURL() string {
	return s.shop.CheckoutURL
}

// Interaction is the configured checkout interaction mode.
func (s *CheckoutService) Interaction() string {
	return s.interaction
}

func (s *CheckoutService) returnURL(orderID string) string {
	return s.shop.ReturnURL + "?order_id=" + url.QueryEscape(orderID)
}

func (s *CheckoutService) confirmURL(orderID string) string {
	return s.shop.PublicBaseURL + "/checkout/return?order_id=" + url.QueryEscape(orderID)
}

func (s *CheckoutService) notificationURL(orderID string) string {
	q := url.Values{}
	q.Set("order_id", orderID)
	q.Set("gc-api", "gccpay_background")
	return s.shop.PublicBaseURL + "/checkout/notify?" + q.Encode()
}

// ProcessPayment creates a provider session for the order and returns
// the redirect to the receipt page. A failed call leaves no trace: the
// shopper retries from checkout and gets a fresh merchantOrderId.
func (s *CheckoutService) ProcessPayment(ctx context.Context, orderID string) (*models.CheckoutResult, error) {
	s.log.LogPayment("SESSION_INIT", orderID, "Creating GCCPay session")

	order, err := s.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return &models.CheckoutResult{Result: "fail"}, ErrOrderNotFound
		}
		return &models.CheckoutResult{Result: "fail"}, fmt.Errorf("failed to load order: %w", err)
	}

	req := s.builder.Build(order, s.notificationURL(orderID), s.returnURL(orderID))
	resp, err := s.client.CreateSession(ctx, req)
	if err != nil {
		s.log.Error("PAYMENT", fmt.Sprintf("Session creation for order %s failed: %v", orderID, err))
		return &models.CheckoutResult{Result: "fail"}, err
	}

	if resp.ID() == "" {
		s.log.LogPayment("SESSION_FAILED", orderID, "Provider response carries no session id")
		return &models.CheckoutResult{Result: "fail"}, ErrSessionCreateFailed
	}

	session := &models.PaymentSession{
		OrderID:         orderID,
		SessionID:       resp.ID(),
		Ticket:          resp.Ticket(),
		MerchantOrderID: req.MerchantOrderID,
		CreatedAt:       time.Now(),
	}
	if err := s.store.PutSession(session); err != nil {
		return &models.CheckoutResult{Result: "fail"}, fmt.Errorf("failed to persist session: %w", err)
	}

	q := url.Values{}
	q.Set("payorderId", session.SessionID)
	q.Set("ticket", session.Ticket)
	q.Set("pay_for_order", "false")
	redirect := s.shop.PublicBaseURL + "/checkout/pay/" + url.PathEscape(orderID) + "?" + q.Encode()

	s.log.LogPayment("SESSION_CREATED", orderID, fmt.Sprintf("Session %s created", session.SessionID))
	return &models.CheckoutResult{Result: "success", Redirect: redirect}, nil
}

// ReceiptPage resolves how the shopper reaches the hosted checkout for
// an existing session. The payorderId/ticket come from the redirect URL
// ProcessPayment generated; their absence means a broken or expired
// link.
func (s *CheckoutService) ReceiptPage(ctx context.Context, orderID, payorderID, ticket string) (*models.ReceiptPage, error) {
	s.log.LogPayment("RECEIPT", orderID, "Rendering hosted checkout handoff")

	if payorderID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.store.GetSession(orderID)
	if err != nil || session.SessionID != payorderID {
		return nil, ErrSessionNotFound
	}

	confirmURL := s.confirmURL(orderID)
	if s.interaction == config.InteractionPaymentPage {
		return &models.ReceiptPage{
			Embedded: false,
			PayURL:   s.client.PayPageURL(payorderID, ticket, confirmURL),
		}, nil
	}

	return &models.ReceiptPage{
		Embedded:      true,
		PayURL:        s.client.EmbedURL(payorderID, ticket, confirmURL),
		ReturnURL:     s.returnURL(orderID),
		SuccessOrigin: s.SelfOrigin(),
	}, nil
}

// SelfOrigin is the gateway's public origin, the sender and sole
// accepted source of the embedded frame's success message.
func (s *CheckoutService) SelfOrigin() string {
	u, err := url.Parse(s.shop.PublicBaseURL)
	if err != nil || u.Scheme == "" {
		return s.shop.PublicBaseURL
	}
	return u.Scheme + "://" + u.Host
}

// Confirm reconciles one confirmation trigger (browser return or
// background notification) against the provider's view of the session.
// The paid transition happens at most once per order no matter how many
// times or how concurrently this runs; only the transitioning call emits
// the completion note, clears the cart and publishes the event.
func (s *CheckoutService) Confirm(ctx context.Context, orderID, channel string) (*models.ConfirmResult, error) {
	s.log.LogPayment("CONFIRM", orderID, fmt.Sprintf("Confirmation via %s channel", channel))

	session, err := s.store.GetSession(orderID)
	if err != nil {
		s.store.AddOrderNote(orderID, "Payment error: Invalid transaction.")
		return nil, ErrSessionNotFound
	}

	if s.lock != nil {
		acquired, lockErr := s.lock.AcquireConfirm(ctx, orderID, channel)
		if lockErr != nil {
			s.log.Warn("PAYMENT", fmt.Sprintf("Confirm lock unavailable for order %s: %v", orderID, lockErr))
		} else if acquired {
			defer s.lock.ReleaseConfirm(ctx, orderID, channel)
		} else {
			s.log.LogPayment("CONFIRM", orderID, "Concurrent confirmation in flight, proceeding on store guarantee")
		}
	}

	detail, err := s.client.OrderDetail(ctx, session.SessionID)
	if err != nil {
		s.store.AddOrderNote(orderID, "Payment error: Something went wrong.")
		return nil, err
	}

	if detail.Status() != "paid" {
		s.log.LogPayment("CONFIRM_PENDING", orderID, fmt.Sprintf("Provider status %q, not marking paid", detail.Status()))
		s.store.AddOrderNote(orderID, "Payment error: Something went wrong.")
		return nil, ErrPaymentNotCompleted
	}

	transitioned, err := s.store.MarkOrderPaid(orderID, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if transitioned {
		order, err := s.store.GetOrder(orderID)
		if err == nil {
			if err := s.store.ClearCart(order.UserID); err != nil {
				s.log.Warn("PAYMENT", fmt.Sprintf("Failed to clear cart for user %s: %v", order.UserID, err))
			}
		}
		note := fmt.Sprintf("GCCPay payment completed with transaction session (%s): %s.", channel, session.SessionID)
		if err := s.store.AddOrderNote(orderID, note); err != nil {
			s.log.Warn("PAYMENT", fmt.Sprintf("Failed to add completion note for order %s: %v", orderID, err))
		}
		s.publishEvent("payment.success", order, orderID, session.SessionID)
		s.log.LogPayment("PAID", orderID, fmt.Sprintf("Order marked paid with session %s (%s)", session.SessionID, channel))
	} else {
		s.log.LogPayment("CONFIRM_DUP", orderID, fmt.Sprintf("Order already paid, %s confirmation is a no-op", channel))
	}

	return &models.ConfirmResult{
		Paid:      true,
		Completed: transitioned,
		SessionID: session.SessionID,
		ReturnURL: s.returnURL(orderID),
	}, nil
}

func (s *CheckoutService) publishEvent(eventType string, order *models.Order, orderID, sessionID string) {
	event := &models.PaymentEvent{
		ID:        utils.GenerateUUID(),
		Type:      eventType,
		OrderID:   orderID,
		SessionID: sessionID,
		Timestamp: time.Now(),
	}
	if order != nil {
		event.Amount = order.Total
	}
	if err := s.producer.PublishPaymentEvent(event); err != nil {
		s.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for order %s: %v", eventType, orderID, err))
	}
}

// IngestOrder stores an order received from the platform bus, skipping
// orders the gateway already knows.
func (s *CheckoutService) IngestOrder(order *models.Order) error {
	if existing, err := s.store.GetOrder(order.OrderID); err == nil && existing != nil {
		s.log.Warn("KAFKA", fmt.Sprintf("Order %s already exists, skipping", order.OrderID))
		return nil
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	if err := s.store.SaveOrder(order); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	s.log.LogDatabase("SAVE", "orders", fmt.Sprintf("Order %s ingested from bus", order.OrderID))
	return nil
}

// PaymentStatus reports the order's current payment view for the
// status endpoint.
func (s *CheckoutService) PaymentStatus(ctx context.Context, orderID string) (*models.Order, *models.PaymentSession, error) {
	order, err := s.store.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	session, err := s.store.GetSession(orderID)
	if err != nil {
		session = nil
	}
	return order, session, nil
}
