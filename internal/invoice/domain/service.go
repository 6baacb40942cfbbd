package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/billfold/billfold/pkg/db/pagination"
)

// SaveInvoiceRequest carries the editable fields shared by create and
// update. The tax rate arrives in percent and is applied, never stored.
type SaveInvoiceRequest struct {
	InvoiceNumber  string     `json:"invoice_number"`
	Sender         Party      `json:"sender"`
	Receiver       Party      `json:"receiver"`
	Items          []LineItem `json:"items"`
	TaxRatePercent float64    `json:"tax_rate_percent"`
}

// Detail is an invoice plus the values derived at read time: the
// normalized receiver and the inferred tax rate for the edit form.
type Detail struct {
	Invoice
	TaxRatePercent float64 `json:"tax_rate_percent"`
	DisplayName    string  `json:"display_name"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Detail `json:"invoices"`
}

// Service is the invoice aggregate's contract.
type Service interface {
	Create(ctx context.Context, req SaveInvoiceRequest) (*Detail, error)
	Update(ctx context.Context, id string, req SaveInvoiceRequest) (*Detail, error)
	SetStatus(ctx context.Context, id string, status string) (*Detail, error)
	GetByID(ctx context.Context, id string) (*Detail, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	RenderHTML(ctx context.Context, id string) (string, error)
}

// ParseID parses an invoice id from its string form.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidInvoiceID
	}
	return id, nil
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrInvalidStatus    = errors.New("invalid_status")
)
