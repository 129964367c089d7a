package server

import (
	"net/http"

	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

type recordPaymentRequest struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
	Reference string  `json:"reference,omitempty"`
	Notes     string  `json:"notes,omitempty"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.Record(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

func (s *Server) ListPayments(c *gin.Context) {
	invoiceID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payments})
}

type verifyPaymentRequest struct {
	VerifiedBy string `json:"verified_by"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	paymentID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req verifyPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	payment, err := s.paymentSvc.Verify(c.Request.Context(), paymentdomain.VerifyPaymentRequest{
		PaymentID:  paymentID,
		VerifiedBy: req.VerifiedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}
