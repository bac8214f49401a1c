package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gccpay-gateway/internal/gccpay"
	"gccpay-gateway/internal/models"
	"gccpay-gateway/internal/services"
	"gccpay-gateway/internal/utils"
)

type RefundHandler struct {
	refunds *services.RefundService
}

func NewRefundHandler(refunds *services.RefundService) *RefundHandler {
	return &RefundHandler{refunds: refunds}
}

// RefundPayment issues a refund against the order's captured session.
func (h *RefundHandler) RefundPayment(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid refund request", err.Error()))
		return
	}

	var amount float64
	if req.Amount != "" {
		parsed, err := strconv.ParseFloat(req.Amount, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid refund amount", err.Error()))
			return
		}
		amount = parsed
	}

	ok, err := h.refunds.Refund(c.Request.Context(), req.OrderID, amount, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("No payment session for this order", err.Error()))
		case errors.Is(err, gccpay.ErrTransport):
			c.JSON(http.StatusBadGateway, utils.ErrorResponse("Failed to communicate with GCCPay server", err.Error()))
		case errors.Is(err, services.ErrRefundFailed):
			c.JSON(http.StatusBadGateway, utils.ErrorResponse("Refund rejected by provider", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Refund processing failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Refund processed", gin.H{"success": ok}))
}
