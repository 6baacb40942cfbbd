// Package render produces the print-ready HTML invoice sheet.
package render

import (
	"time"

	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
)

// RenderInput is the deterministic input used for invoice rendering.
type RenderInput struct {
	Invoice  InvoiceView
	Sender   PartyView
	Receiver PartyView
	Items    []LineItemView
}

type InvoiceView struct {
	Number    string
	Status    string
	CreatedAt time.Time
	Subtotal  float64
	Tax       float64
	Total     float64
}

type PartyView struct {
	DisplayName string
	Company     string
	Name        string
	Email       string
	Address     string
	LogoURL     string
}

type LineItemView struct {
	Description string
	Qty         float64
	Rate        float64
	Amount      float64
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}

// ViewFromInvoice projects a persisted invoice into the render input. The
// receiver is normalized before this point; the view is a pure function of
// the aggregate handed over.
func ViewFromInvoice(record *invoicedomain.Invoice) RenderInput {
	sender := record.Sender.Data()
	receiver := record.NormalizedReceiver()

	items := make([]LineItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, LineItemView{
			Description: item.Description,
			Qty:         item.Qty.Float64(),
			Rate:        item.Rate.Float64(),
			Amount:      item.Amount(),
		})
	}

	return RenderInput{
		Invoice: InvoiceView{
			Number:    record.InvoiceNumber,
			Status:    string(record.Status),
			CreatedAt: record.CreatedAt,
			Subtotal:  record.Subtotal,
			Tax:       record.Tax,
			Total:     record.Total,
		},
		Sender: PartyView{
			DisplayName: invoicedomain.DisplayName(sender),
			Company:     sender.Company,
			Email:       sender.Email,
			Address:     sender.Address,
			LogoURL:     sender.LogoURL,
		},
		Receiver: PartyView{
			DisplayName: invoicedomain.DisplayName(receiver),
			Company:     receiver.Company,
			Name:        receiver.Name,
			Email:       receiver.Email,
			Address:     receiver.Address,
		},
		Items: items,
	}
}
