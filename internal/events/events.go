// Package events stores invoice activity in an outbox table for
// downstream consumers.
package events

// Invoice event types.
const (
	EventInvoiceCreated       = "invoice.created"
	EventInvoiceUpdated       = "invoice.updated"
	EventInvoiceStatusChanged = "invoice.status_changed"
)

// InvoicePayload captures the minimal data downstream rollups need.
type InvoicePayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Status        string `json:"status,omitempty"`
}
