package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
)

type invoiceDetail struct {
	invoicedomain.Invoice
	Payments []paymentdomain.Payment `json:"payments"`
}

type setInvoiceStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{Page: page}

	if raw := c.Query("status"); raw != "" {
		status := invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
		if !status.Valid() {
			AbortWithError(c, invoicedomain.ErrInvalidStatus)
			return
		}
		req.Status = &status
	}
	if raw := c.Query("customerId"); raw != "" {
		req.CustomerID = &raw
	}

	fromDate, err := parseOptionalTime(c.Query("fromDate"), false)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.FromDate = fromDate

	toDate, err := parseOptionalTime(c.Query("toDate"), true)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ToDate = toDate

	minAmount, err := parseOptionalDecimal(c.Query("minAmount"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.MinAmount = minAmount

	maxAmount, err := parseOptionalDecimal(c.Query("maxAmount"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.MaxAmount = maxAmount

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusCreated, invoice, "invoice created")
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id := c.Param("id")

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	payments, err := s.paymentSvc.ListByInvoice(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payments == nil {
		payments = []paymentdomain.Payment{}
	}

	respond(c, http.StatusOK, invoiceDetail{Invoice: invoice, Payments: payments})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, invoice, "invoice updated")
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, nil, "invoice deleted")
}

func (s *Server) SetInvoiceStatus(c *gin.Context) {
	var req setInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := invoicedomain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	invoice, err := s.invoiceSvc.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, invoice, "invoice status updated")
}

func (s *Server) GetInvoicePDF(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), invoice)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", invoice.Number))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) SweepOverdueInvoices(c *gin.Context) {
	count, err := s.invoiceSvc.SweepOverdue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"count": count})
}
