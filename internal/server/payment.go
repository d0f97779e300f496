package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
)

func (s *Server) RecordPayment(c *gin.Context) {
	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusCreated, result, "payment recorded")
}

func (s *Server) GetPaymentReceipt(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	paymentID := c.Param("paymentId")
	var payment *paymentdomain.Payment
	for i := range payments {
		if payments[i].ID.String() == paymentID {
			payment = &payments[i]
			break
		}
	}
	if payment == nil {
		AbortWithError(c, paymentdomain.ErrInvoiceNotFound)
		return
	}

	doc, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), invoice, *payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-receipt.pdf", invoice.Number))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) ListPayments(c *gin.Context) {
	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payments == nil {
		payments = []paymentdomain.Payment{}
	}

	respond(c, http.StatusOK, payments)
}
