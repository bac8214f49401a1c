package gccpay

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gccpay-gateway/internal/models"
)

// Guest-order sentinels required by the provider contract.
const (
	sentinelNoEmail      = "noemail"
	sentinelNoUser       = "nouser"
	sentinelNoRegistered = "1970-01-01 00:00:00"
)

const (
	expiredAtLayout = "2006-01-02T15:04:05.000Z"
	sessionTTL      = 24 * time.Hour
	// The provider requires an estimated delivery timestamp per product;
	// the shop does not track one, so a week out is sent as a placeholder.
	deliveryPlaceholder = 7 * 24 * time.Hour
)

// SessionBuilder maps merchant orders into merchant.addOrder payloads.
type SessionBuilder struct {
	baseCountry string
	now         func() time.Time
}

func NewSessionBuilder(baseCountry string) *SessionBuilder {
	return &SessionBuilder{
		baseCountry: baseCountry,
		now:         time.Now,
	}
}

// Build produces the session-creation payload for one checkout attempt.
// The merchantOrderId embeds the current UNIX time, so every attempt is
// unique to the provider while staying tied to the same order.
func (b *SessionBuilder) Build(order *models.Order, notificationURL, returnURL string) *models.SessionRequest {
	now := b.now()

	products := make([]models.SessionProduct, 0, len(order.Items))
	location := ConvertCountryCode(b.baseCountry)
	for _, item := range order.Items {
		products = append(products, models.SessionProduct{
			Name:                item.Name,
			Type:                "physical",
			Quantity:            item.Quantity,
			IsPreSale:           false,
			EstimatedDeliveryAt: now.Add(deliveryPlaceholder).UTC().Format(time.RFC3339),
			Location:            location,
			Price:               item.UnitPrice,
			SKU:                 item.VariationID,
			ProductID:           item.ProductID,
			Amount:              item.LineTotal,
			Avatar:              item.ImageURL,
			Description:         item.Description,
			ShowURL:             item.Permalink,
		})
	}

	customer := models.SessionCustomer{
		Mobile:       order.BillingPhone,
		Email:        sentinelNoEmail,
		Nickname:     sentinelNoUser,
		UUID:         order.UserID,
		Level:        "1",
		Address:      order.ShippingAddress,
		RegisteredAt: sentinelNoRegistered,
	}
	if order.HasAccount() {
		customer.Email = order.CustomerEmail
		customer.Nickname = order.CustomerName
		customer.RegisteredAt = order.RegisteredAt
	}

	return &models.SessionRequest{
		MerchantOrderID: fmt.Sprintf("%s_%d", order.OrderID, now.Unix()),
		Amount:          order.Total,
		Currency:        order.Currency,
		Name:            fmt.Sprintf("User: %s,Order:%s", order.UserID, order.OrderID),
		NotificationURL: notificationURL,
		ExpiredAt:       now.Add(sessionTTL).UTC().Format(expiredAtLayout),
		Products:        products,
		Customer:        customer,
		ReferenceURL:    RawURLEncode(returnURL),
	}
}

// RawURLEncode percent-encodes s the way the provider expects reference
// URLs: every reserved character encoded, spaces as %20.
func RawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
