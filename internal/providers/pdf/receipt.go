package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	invoicedomain "github.com/smallbiznis/invoiced/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoiced/internal/payment/domain"

	"github.com/johnfercher/maroto/v2"
)

func (p *PDFProvider) GenerateReceipt(ctx context.Context, invoice invoicedomain.Invoice, payment paymentdomain.Payment) (io.Reader, error) {
	m := maroto.New(documentConfig())

	m.AddRow(12,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.Number, props.Text{Top: 0}),
			text.New("Date paid: "+payment.Date.Format(dateLayout), props.Text{Top: 4}),
			text.New("Method: "+string(payment.Method), props.Text{Top: 8}),
		),
		col.New(6),
	)

	addBillTo(m, invoice)

	m.AddRow(15,
		text.NewCol(12, payment.Amount.StringFixed(2)+" paid on "+payment.Date.Format(dateLayout), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	if payment.Reference != "" {
		m.AddRow(10,
			text.NewCol(12, "Reference: "+payment.Reference, props.Text{Size: 9}),
		)
	}

	addItemTable(m, invoice)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Invoice total", props.Text{Size: 9}),
		text.NewCol(2, invoice.Total.StringFixed(2), props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
