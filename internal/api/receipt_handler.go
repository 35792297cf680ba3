package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/centsible-app/centsible/internal/receipt"
)

type parseReceiptRequest struct {
	Text string `json:"text" binding:"required"`
}

type parseReceiptResponse struct {
	// Amount is the suggested total as a decimal string.
	Amount string `json:"amount"`
	// MinorUnits is the same total in minor units, ready to resubmit as an
	// expense amount.
	MinorUnits int64 `json:"minor_units"`
}

// ParseReceipt scans OCR'd receipt text and suggests the payable total.
func ParseReceipt(c *gin.Context) {
	var req parseReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := receipt.FindTotal(req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, parseReceiptResponse{
		Amount:     amountString(total),
		MinorUnits: total,
	})
}
