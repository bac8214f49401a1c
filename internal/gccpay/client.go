package gccpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/logger"
	"gccpay-gateway/internal/models"
)

const (
	productionHost = "https://gateway.gcc-pay.com/"
	sandboxHost    = "https://sandbox.gcc-pay.com/"
	apiPath        = "api_v1"
)

// Provider operation names.
const (
	OpAddOrder    = "merchant.addOrder"
	OpOrderDetail = "order.detail"
	OpRefund      = "order.refund"
)

var (
	// ErrTransport covers network failures and unparseable responses.
	// Callers treat it as "call failed, nothing was created".
	ErrTransport = errors.New("gccpay: transport error")
)

// HTTPClient is the transport boundary; *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the provider's decoded JSON body. Accessor results are
// empty when the field is absent; callers treat that as an
// application-level failure distinct from ErrTransport.
type Response map[string]interface{}

func (r Response) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Response) ID() string     { return r.str("id") }
func (r Response) Ticket() string { return r.str("ticket") }
func (r Response) Status() string { return r.str("status") }

// Client performs signed calls against the GCCPay session/order API.
type Client struct {
	cfg    config.GCCPayConfig
	signer *Signer
	http   HTTPClient
	log    *logger.Logger
}

func NewClient(cfg config.GCCPayConfig, httpClient HTTPClient, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		signer: NewSigner(cfg.ClientKey, cfg.ClientSecret),
		http:   httpClient,
		log:    log,
	}
}

func (c *Client) host() string {
	if c.cfg.Environment == config.EnvProduction {
		return productionHost
	}
	return sandboxHost
}

// BaseURL is the API root for the configured environment.
func (c *Client) BaseURL() string {
	return c.host() + apiPath
}

// Call performs one signed request. method is "GET" or "POST"; body is
// JSON-serialized for POST and ignored for GET. Every request and
// response is logged for audit; the client secret never reaches the log,
// only the computed signature does.
func (c *Client) Call(ctx context.Context, uri, operationName, method string, body interface{}) (Response, error) {
	fullURL := c.BaseURL() + uri
	headers := c.signer.Headers(uri, operationName)

	var payload []byte
	if method == http.MethodPost && body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gccpay: marshal request: %w", err)
		}
	}

	headerJSON, _ := json.Marshal(headers)
	c.log.LogGCCPay(operationName, uri, fmt.Sprintf("request[url/headers/method/body]=>%s/%s/%s/%s",
		fullURL, headerJSON, method, payload))

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("gccpay: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("GCCPAY", fmt.Sprintf("request to %s failed: %v", fullURL, err))
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("GCCPAY", fmt.Sprintf("reading response from %s failed: %v", fullURL, err))
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	c.log.LogGCCPay(operationName, uri, fmt.Sprintf("response[status/body]=>%d/%s", resp.StatusCode, raw))

	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.log.Error("GCCPAY", fmt.Sprintf("unparseable response from %s: %v", fullURL, err))
		return nil, fmt.Errorf("%w: unparseable response: %v", ErrTransport, err)
	}
	return parsed, nil
}

// CreateSession creates a payment session for the merchant order.
func (c *Client) CreateSession(ctx context.Context, req *models.SessionRequest) (Response, error) {
	uri := "/merchants/" + c.cfg.MerchantID + "/orders"
	return c.Call(ctx, uri, OpAddOrder, http.MethodPost, req)
}

// OrderDetail queries the current status of a payment session.
func (c *Client) OrderDetail(ctx context.Context, sessionID string) (Response, error) {
	return c.Call(ctx, "/orders/"+sessionID, OpOrderDetail, http.MethodGet, nil)
}

// Refund issues a refund against a captured session.
func (c *Client) Refund(ctx context.Context, sessionID string, params map[string]interface{}) (Response, error) {
	return c.Call(ctx, "/orders/"+sessionID+"/refunds", OpRefund, http.MethodPost, params)
}

// PayPageURL is the full-page hosted checkout URL for a session.
func (c *Client) PayPageURL(sessionID, ticket, returnURL string) string {
	q := url.Values{}
	q.Set("orderId", sessionID)
	q.Set("ticket", ticket)
	q.Set("returnURL", returnURL)
	return c.host() + "?" + q.Encode()
}

// EmbedURL is the embedded (lightbox) checkout variant for a session.
func (c *Client) EmbedURL(sessionID, ticket, returnURL string) string {
	q := url.Values{}
	q.Set("orderId", sessionID)
	q.Set("ticket", ticket)
	q.Set("payerInfo", "required")
	q.Set("language", "en")
	q.Set("returnURL", returnURL)
	return c.host() + "embed/mastercard/?" + q.Encode()
}
