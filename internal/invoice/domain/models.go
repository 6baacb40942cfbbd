// Package domain contains the invoice aggregate and its persistence model.
package domain

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the lifecycle marker of an invoice. There is no terminal state
// and no automatic promotion; every transition is an explicit caller action.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// ParseStatus normalizes a raw status value. Historical records carry
// mixed-case statuses, so comparison is case-insensitive.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Number is a float64 that survives the loose JSON historical records
// carry: quoted numbers decode to their value, while null, empty strings
// and junk decode to 0. Invoices must always be displayable, so decoding
// never fails on a bad quantity or rate.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(value)
	return nil
}

func (n Number) Float64() float64 { return float64(n) }

// LineItem is one billable row on an invoice.
type LineItem struct {
	Description string `json:"description"`
	Qty         Number `json:"qty"`
	Rate        Number `json:"rate"`
}

// Amount is the line total, qty times rate.
func (li LineItem) Amount() float64 {
	return li.Qty.Float64() * li.Rate.Float64()
}

// Party is an identity block on an invoice: the issuing business (sender)
// or the billed party (receiver). All fields are optional; a party has no
// identity beyond the invoice that embeds it.
type Party struct {
	Company string `json:"company,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	LogoURL string `json:"logo_url,omitempty"`
}

// LegacyClient is the narrower predecessor of the receiver block. It is
// read for backward compatibility and never written by new saves.
type LegacyClient struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Invoice is the persisted aggregate. Sender, receiver, the legacy client
// block and the line items live in jsonb columns, mirroring the row shape
// of the original record store. Subtotal, tax and total are derived values
// persisted redundantly for read efficiency; the tax rate itself is never
// stored, only its effect.
type Invoice struct {
	ID            snowflake.ID                          `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID                          `gorm:"not null;index" json:"-"`
	InvoiceNumber string                                `gorm:"type:text;not null" json:"invoice_number"`
	Status        Status                                `gorm:"type:text;not null;default:'draft'" json:"status"`
	Sender        datatypes.JSONType[Party]             `gorm:"type:jsonb" json:"sender"`
	Receiver      datatypes.JSONType[Party]             `gorm:"type:jsonb" json:"receiver"`
	Client        *datatypes.JSONType[LegacyClient]     `gorm:"type:jsonb" json:"client,omitempty"`
	Items         datatypes.JSONSlice[LineItem]         `gorm:"type:jsonb;not null" json:"items"`
	Subtotal      float64                               `gorm:"not null;default:0" json:"subtotal"`
	Tax           float64                               `gorm:"not null;default:0" json:"tax"`
	Total         float64                               `gorm:"not null;default:0" json:"total"`
	CreatedAt     time.Time                             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// NormalizedReceiver resolves the canonical billed party for this record,
// folding the legacy client block in at the read boundary.
func (i *Invoice) NormalizedReceiver() Party {
	var client *LegacyClient
	if i.Client != nil {
		data := i.Client.Data()
		client = &data
	}
	return NormalizeReceiver(i.Receiver.Data(), client)
}
