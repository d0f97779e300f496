package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/invoiced/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	"github.com/smallbiznis/invoiced/internal/money"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
	productdomain "github.com/smallbiznis/invoiced/internal/product/domain"
	"github.com/smallbiznis/invoiced/pkg/db"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var badRequestErrors = []error{
	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidID,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidID,
	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidStatus,
	invoicedomain.ErrInvalidDueDate,
	invoicedomain.ErrCustomerInvalid,
	invoicedomain.ErrProductInvalid,
	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidMethod,
	money.ErrEmptyItems,
	money.ErrInvalidQuantity,
	money.ErrInvalidPrice,
	money.ErrInvalidTaxRate,
	errInvalidRequest,
}

var notFoundErrors = []error{
	customerdomain.ErrNotFound,
	productdomain.ErrNotFound,
	invoicedomain.ErrNotFound,
	paymentdomain.ErrInvoiceNotFound,
}

var conflictErrors = []error{
	customerdomain.ErrDuplicateEmail,
	productdomain.ErrDuplicateSKU,
}

var errInvalidRequest = errors.New("invalid_request")

// AbortWithError records err on the gin context so the error handling
// middleware can translate it into a response.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return errInvalidRequest
}

// ErrorHandlingMiddleware converts the last error recorded on the context
// into a JSON error envelope with an appropriate status code.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		status, message := mapError(last.Err)
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: message})
	}
}

func mapError(err error) (int, string) {
	switch {
	case matchesAny(err, badRequestErrors):
		return http.StatusBadRequest, err.Error()
	case matchesAny(err, notFoundErrors):
		return http.StatusNotFound, err.Error()
	case matchesAny(err, conflictErrors):
		return http.StatusConflict, err.Error()
	case db.IsDuplicateKeyErr(err):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, paymentdomain.ErrOverpayment):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
