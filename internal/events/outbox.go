package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes an invoice event to store in the outbox. Payload is any
// JSON-marshalable value, typically an InvoicePayload.
type Event struct {
	UserID    snowflake.ID
	Type      string
	Payload   any
	DedupeKey string
}

// Outbox inserts events into the invoice_events table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.UserID == 0 {
		return errors.New("invalid_user_id")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSON([]byte("{}"))
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}

	record := map[string]any{
		"id":         o.genID.Generate(),
		"user_id":    event.UserID,
		"event_type": name,
		"payload":    payload,
		"published":  false,
		"created_at": time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		record["dedupe_key"] = dedupe
	}

	return db.WithContext(ctx).Table("invoice_events").Create(record).Error
}
