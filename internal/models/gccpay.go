package models

// SessionRequest is the merchant.addOrder payload. Field names and
// sentinel values are part of the GCCPay contract and must not change.
type SessionRequest struct {
	MerchantOrderID string           `json:"merchantOrderId"`
	Amount          float64          `json:"amount"`
	Currency        string           `json:"currency"`
	Name            string           `json:"name"`
	NotificationURL string           `json:"notificationURL"`
	ExpiredAt       string           `json:"expiredAt"`
	Products        []SessionProduct `json:"products"`
	Customer        SessionCustomer  `json:"customer"`
	ReferenceURL    string           `json:"referenceURL"`
}

type SessionProduct struct {
	Name                string  `json:"name"`
	Type                string  `json:"type"` // always "physical"
	Quantity            int     `json:"quantity"`
	IsPreSale           bool    `json:"isPreSale"`
	EstimatedDeliveryAt string  `json:"estimatedDeliveryAt"`
	Location            string  `json:"location"`
	Price               float64 `json:"price"`
	SKU                 string  `json:"sku"`
	ProductID           string  `json:"productId"`
	Amount              float64 `json:"amount"`
	Avatar              string  `json:"avatar"`
	Description         string  `json:"description"`
	ShowURL             string  `json:"showURL"`
}

type SessionCustomer struct {
	Mobile       string `json:"mobile"`
	Email        string `json:"email"`    // "noemail" for guests
	Nickname     string `json:"nickname"` // "nouser" for guests
	UUID         string `json:"uuid"`
	Level        string `json:"level"` // always "1"
	Address      string `json:"address"`
	RegisteredAt string `json:"registeredAt"` // "1970-01-01 00:00:00" for guests
}
