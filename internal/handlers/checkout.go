package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"gccpay-gateway/internal/config"
	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/services"
	"gccpay-gateway/internal/utils"
)

type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// ProcessPayment creates a provider session and answers with the receipt
// redirect, or a fail result with empty redirect.
func (h *CheckoutHandler) ProcessPayment(c *gin.Context) {
	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	result, err := h.checkout.ProcessPayment(c.Request.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", err.Error()))
		case errors.Is(err, gccpay.ErrTransport):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": "Payment error: Failed to communicate with GCCPay server.",
				"data":    result,
			})
		case errors.Is(err, services.ErrSessionCreateFailed):
			c.JSON(http.StatusBadGateway, gin.H{
				"success": false,
				"message": "Payment error: Fail create session.",
				"data":    result,
			})
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Payment processing failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Session created", result))
}

// ReceiptPage hands the shopper to the hosted checkout: a full-page
// redirect in paymentpage mode, the lightbox iframe page otherwise.
func (h *CheckoutHandler) ReceiptPage(c *gin.Context) {
	orderID := c.Param("order_id")
	payorderID := c.Query("payorderId")
	ticket := c.Query("ticket")

	page, err := h.checkout.ReceiptPage(c.Request.Context(), orderID, payorderID, ticket)
	if err != nil {
		h.redirectToCheckout(c, "Payment error: Session not found.")
		return
	}

	if !page.Embedded {
		c.Redirect(http.StatusFound, page.PayURL)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(lightboxPage(page)))
}

// Return is the foreground confirmation entry point, reached by the
// shopper's browser via the return URL.
func (h *CheckoutHandler) Return(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		h.redirectToCheckout(c, "Payment error: Invalid transaction.")
		return
	}

	result, err := h.checkout.Confirm(c.Request.Context(), orderID, services.ChannelWeb)
	if err != nil {
		h.redirectToCheckout(c, confirmErrorMessage(err))
		return
	}

	// In lightbox mode this page runs inside the provider iframe; it
	// signals the parent receipt page instead of navigating itself.
	if h.checkout.Interaction() == config.InteractionLightbox {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte(successSignalPage(h.checkout.SelfOrigin(), result.ReturnURL)))
		return
	}

	c.Redirect(http.StatusFound, result.ReturnURL)
}

// Notify is the background confirmation entry point, called
// server-to-server by the provider. Success is acknowledged with a
// plain-text body; there is no browser to redirect.
func (h *CheckoutHandler) Notify(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		h.redirectToCheckout(c, "Payment error: Invalid transaction.")
		return
	}

	result, err := h.checkout.Confirm(c.Request.Context(), orderID, services.ChannelBackground)
	if err != nil {
		h.redirectToCheckout(c, confirmErrorMessage(err))
		return
	}

	c.String(http.StatusOK, "COMPLETED::%s", result.SessionID)
}

// GetPaymentStatus reports the gateway's view of an order's payment.
func (h *CheckoutHandler) GetPaymentStatus(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Order ID is required", ""))
		return
	}

	order, session, err := h.checkout.PaymentStatus(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve payment status", err.Error()))
		return
	}

	status := gin.H{
		"order_id": order.OrderID,
		"status":   order.Status,
	}
	if order.TransactionRef != "" {
		status["transaction_ref"] = order.TransactionRef
	}
	if session != nil {
		status["session_id"] = session.SessionID
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment status retrieved", status))
}

func (h *CheckoutHandler) redirectToCheckout(c *gin.Context, notice string) {
	target := h.checkout.CheckoutURL() + "?payment_error=" + url.QueryEscape(notice)
	c.Redirect(http.StatusFound, target)
}

func confirmErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return "Payment error: Invalid transaction."
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return "Payment error: Something went wrong."
	default:
		return "Payment error: Failed to communicate with GCCPay server."
	}
}

// lightboxPage renders the embedded checkout overlay. The success hook
// accepts only the gateway's own origin and the gccpay.success schema.
func lightboxPage(page *models.ReceiptPage) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>GCCPay Checkout</title></head>
<body>
<div style="z-index: 9998; display: flex; justify-content: center; align-items: center; background-color: rgba(0,0,0,0.5); border: 0px none transparent; overflow: hidden auto; visibility: visible; margin: 0px; padding: 0px; position: fixed; left: 0px; top: 0px; width: 100%%; height: 100%%;">
<iframe title="GCCPay Checkout" src="%s" style="z-index: 9999; display: block; background-color: white; border: 0px none transparent; overflow: hidden auto; visibility: visible; width: 618px; height: 530px; border-radius: 10px;"></iframe>
</div>
<script>
window.addEventListener("message", function (event) {
    if (event.origin !== %q) { return; }
    if (event.data && event.data.type === "gccpay.success") {
        window.location = %q;
    }
});
</script>
</body>
</html>`, page.PayURL, page.SuccessOrigin, page.ReturnURL)
}

// successSignalPage runs inside the provider iframe after a confirmed
// payment and notifies the parent receipt page.
func successSignalPage(targetOrigin, returnURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
<script>
if (window.parent !== window) {
    window.parent.postMessage({type: "gccpay.success"}, %q);
} else {
    window.location = %q;
}
</script>
</body>
</html>`, targetOrigin, returnURL)
}
