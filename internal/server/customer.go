package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/invoiced/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/pkg/db/pagination"
)

type customerDetail struct {
	customerdomain.Customer
	RecentInvoices []invoicedomain.Invoice `json:"recentInvoices"`
}

func (s *Server) ListCustomers(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := customerdomain.ListCustomerRequest{
		Search:  c.Query("search"),
		City:    c.Query("city"),
		State:   c.Query("state"),
		Country: c.Query("country"),
		Page:    page,
	}

	resp, err := s.customerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req customerdomain.CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.customerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusCreated, customer, "customer created")
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	id := c.Param("id")

	customer, err := s.customerSvc.GetByID(c.Request.Context(), customerdomain.GetCustomerRequest{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	recent, err := s.invoiceSvc.ListByCustomer(c.Request.Context(), id, 0)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if recent == nil {
		recent = []invoicedomain.Invoice{}
	}

	respond(c, http.StatusOK, customerDetail{Customer: customer, RecentInvoices: recent})
}

func (s *Server) UpdateCustomer(c *gin.Context) {
	var req customerdomain.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.customerSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, customer, "customer updated")
}

func (s *Server) DeleteCustomer(c *gin.Context) {
	if err := s.customerSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	respondWithMessage(c, http.StatusOK, nil, "customer deleted")
}
