// Package pdf renders invoices and payment receipts. This is the one place
// outside the profile service where sealed bank details are opened, because
// the printed document is the reason they exist.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
	paymentdomain "github.com/creatorstack/paisa/internal/payment/domain"
	"github.com/creatorstack/paisa/internal/providers/storage"
	"github.com/creatorstack/paisa/internal/secret"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type Renderer struct {
	secret *secret.Codec
	store  storage.ObjectStore
}

func NewRenderer(codec *secret.Codec, store storage.ObjectStore) *Renderer {
	return &Renderer{secret: codec, store: store}
}

// RenderInvoice produces the invoice document.
func (r *Renderer) RenderInvoice(_ context.Context, invoice invoicedomain.Invoice) (io.Reader, error) {
	m := r.newDocument()
	settings := invoice.Settings.Data()
	calc := invoice.Calculation.Data()

	m.AddRow(10,
		text.NewCol(12, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+settings.InvoiceDate.Format("02 Jan 2006"), props.Text{Top: 4}),
			text.New("Date due: "+settings.DueDate.Format("02 Jan 2006"), props.Text{Top: 8}),
		),
		col.New(6),
	)

	r.addClientBlock(m, invoice)
	r.addBankDetails(m, invoice)
	r.addLineItems(m, invoice)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: 9}),
		text.NewCol(2, money(calc.Subtotal), props.Text{Size: 9, Align: align.Right}),
	)
	if calc.TotalDiscount > 0 {
		m.AddRow(10,
			col.New(8),
			text.NewCol(2, "Discount", props.Text{Size: 9}),
			text.NewCol(2, "-"+money(calc.TotalDiscount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	if calc.GSTAmount > 0 {
		if calc.IGSTAmount > 0 {
			m.AddRow(10,
				col.New(8),
				text.NewCol(2, "IGST", props.Text{Size: 9}),
				text.NewCol(2, money(calc.IGSTAmount), props.Text{Size: 9, Align: align.Right}),
			)
		} else {
			m.AddRow(10,
				col.New(8),
				text.NewCol(2, "CGST", props.Text{Size: 9}),
				text.NewCol(2, money(calc.CGSTAmount), props.Text{Size: 9, Align: align.Right}),
			)
			m.AddRow(10,
				col.New(8),
				text.NewCol(2, "SGST", props.Text{Size: 9}),
				text.NewCol(2, money(calc.SGSTAmount), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}
	if calc.TDSAmount > 0 {
		m.AddRow(10,
			col.New(8),
			text.NewCol(2, "TDS", props.Text{Size: 9}),
			text.NewCol(2, "-"+money(calc.TDSAmount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Amount due", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, money(invoice.Balance()), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

// RenderReceipt produces the receipt for a verified payment, stores it and
// returns its URL.
func (r *Renderer) RenderReceipt(ctx context.Context, invoice invoicedomain.Invoice, payment paymentdomain.Payment) (string, error) {
	m := r.newDocument()

	m.AddRow(10,
		text.NewCol(12, "Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+payment.ReceiptNumber, props.Text{Top: 0}),
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 4}),
			text.New("Payment reference: "+payment.PaymentID, props.Text{Top: 8}),
		),
		col.New(6),
	)

	r.addClientBlock(m, invoice)

	m.AddRow(15,
		text.NewCol(12, fmt.Sprintf("%s received (%s)", money(payment.Amount), payment.Type), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Invoice total", props.Text{Size: 9}),
		text.NewCol(2, money(invoice.FinalAmount), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Balance after", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, money(payment.RemainingBalance), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("receipts/%s.pdf", payment.ReceiptNumber)
	return r.store.Put(ctx, key, "application/pdf", bytes.NewReader(doc.GetBytes()))
}

func (r *Renderer) newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func (r *Renderer) addClientBlock(m core.Maroto, invoice invoicedomain.Invoice) {
	client := invoice.Client.Data()
	m.AddRow(40,
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(client.Name, props.Text{Top: 5}),
			text.New(client.Address, props.Text{Top: 9}),
			text.New(client.Email, props.Text{Top: 25}),
		),
		col.New(6).Add(
			text.New("GSTIN: "+client.GSTIN, props.Text{Top: 5}),
			text.New("PAN: "+client.PAN, props.Text{Top: 9}),
		),
	)
}

func (r *Renderer) addBankDetails(m core.Maroto, invoice invoicedomain.Invoice) {
	details := invoice.BankDetails.Data()

	parts := make([]string, 0, 4)
	for _, field := range []struct {
		label string
		value secret.SecretString
	}{
		{"Account name", details.AccountName},
		{"Account number", details.AccountNumber},
		{"IFSC", details.IFSC},
		{"UPI", details.UPI},
	} {
		if field.value.IsZero() {
			continue
		}
		plain, err := r.secret.Open(field.value)
		if err != nil || plain == "" {
			continue
		}
		parts = append(parts, field.label+": "+plain)
	}
	if len(parts) == 0 {
		return
	}

	m.AddRow(25,
		text.NewCol(12, strings.Join(parts, "  |  "), props.Text{
			Size: 9,
			Top:  0,
		}),
	)
}

func (r *Renderer) addLineItems(m core.Maroto, invoice invoicedomain.Invoice) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	for _, item := range invoice.LineItems {
		m.AddRow(15,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%g", item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.Rate), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(item.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func money(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
