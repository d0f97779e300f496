package pdf

import (
	"context"
	"io"

	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"
	"go.uber.org/fx"
)

type Provider interface {
	GenerateInvoice(ctx context.Context, invoice invoicedomain.Invoice) (io.Reader, error)
	GenerateReceipt(ctx context.Context, invoice invoicedomain.Invoice, payment paymentdomain.Payment) (io.Reader, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)
