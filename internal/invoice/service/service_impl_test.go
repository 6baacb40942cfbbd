package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/internal/events"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/invoice/render"
	"github.com/billfold/billfold/internal/usercontext"
	"github.com/billfold/billfold/pkg/repository"
)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&invoicedomain.Invoice{}); err != nil {
		t.Fatalf("migrate invoices: %v", err)
	}
	return db
}

// testNodeID hands each helper-built service a distinct snowflake node so
// services created within the same millisecond cannot generate colliding IDs.
var testNodeID atomic.Int64

func newTestService(t *testing.T, db *gorm.DB, clk clock.Clock) *Service {
	t.Helper()
	node, err := snowflake.NewNode(testNodeID.Add(1) % 1024)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       db,
		log:      zap.NewNop(),
		genID:    node,
		clock:    clk,
		renderer: render.NewRenderer(),
		repo:     repository.ProvideStore[invoicedomain.Invoice](db),
	}
}

func userCtx(userID int64) context.Context {
	return usercontext.WithUserID(context.Background(), userID)
}

func TestCreateWritesOutboxEventInSameTransaction(t *testing.T) {
	db := setupInvoiceTestDB(t)
	if err := db.Exec(`CREATE TABLE invoice_events (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		dedupe_key TEXT,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create invoice_events: %v", err)
	}

	svc := newTestService(t, db, nil)
	svc.outbox = events.NewOutbox(db, svc.genID)

	if _, err := svc.Create(userCtx(10), invoicedomain.SaveInvoiceRequest{
		InvoiceNumber: "INV-001",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var row struct {
		EventType string
		Payload   string
	}
	if err := db.Table("invoice_events").Select("event_type, payload").Take(&row).Error; err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	if row.EventType != events.EventInvoiceCreated {
		t.Fatalf("event_type = %q, want %q", row.EventType, events.EventInvoiceCreated)
	}

	var payload events.InvoicePayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.InvoiceID == "" || payload.InvoiceNumber != "INV-001" || payload.Status != "draft" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestCreateStartsAsDraftWithDerivedTotals(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)
	ctx := userCtx(10)

	detail, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{
		InvoiceNumber: " INV-001 ",
		Sender:        invoicedomain.Party{Company: "Acme"},
		Receiver:      invoicedomain.Party{Name: "Ann"},
		Items: []invoicedomain.LineItem{
			{Description: "Design", Qty: 2, Rate: 100},
			{Description: "Hosting", Qty: 1, Rate: 50},
		},
		TaxRatePercent: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if detail.Status != invoicedomain.StatusDraft {
		t.Fatalf("status = %q, want draft", detail.Status)
	}
	if detail.InvoiceNumber != "INV-001" {
		t.Fatalf("invoice number = %q, want trimmed", detail.InvoiceNumber)
	}
	if detail.Subtotal != 250 || detail.Tax != 25 || detail.Total != 275 {
		t.Fatalf("totals = %v/%v/%v, want 250/25/275", detail.Subtotal, detail.Tax, detail.Total)
	}
	if detail.TaxRatePercent != 10 {
		t.Fatalf("inferred rate = %v, want 10", detail.TaxRatePercent)
	}
	if detail.Client != nil {
		t.Fatalf("new invoice carries a legacy client block")
	}
}

func TestCreateWithoutItemsStoresOneEmptyRow(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)

	detail, err := svc.Create(userCtx(10), invoicedomain.SaveInvoiceRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items := []invoicedomain.LineItem(detail.Items)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Description != "" || items[0].Qty != 1 || items[0].Rate != 0 {
		t.Fatalf("unexpected placeholder row %+v", items[0])
	}
	if detail.Subtotal != 0 || detail.Total != 0 {
		t.Fatalf("totals = %v/%v, want 0/0", detail.Subtotal, detail.Total)
	}
}

func TestCreateRequiresUser(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)

	_, err := svc.Create(context.Background(), invoicedomain.SaveInvoiceRequest{})
	if !errors.Is(err, invoicedomain.ErrInvalidUser) {
		t.Fatalf("err = %v, want ErrInvalidUser", err)
	}
}

func TestUpdateRecomputesTotalsAndKeepsStatus(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)
	ctx := userCtx(10)

	created, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{
		Items:          []invoicedomain.LineItem{{Qty: 1, Rate: 100}},
		TaxRatePercent: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID.String(), "sent"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	updated, err := svc.Update(ctx, created.ID.String(), invoicedomain.SaveInvoiceRequest{
		Items:          []invoicedomain.LineItem{{Qty: 3, Rate: 200}},
		TaxRatePercent: 20,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.Subtotal != 600 || updated.Tax != 120 || updated.Total != 720 {
		t.Fatalf("totals = %v/%v/%v, want 600/120/720", updated.Subtotal, updated.Tax, updated.Total)
	}
	if updated.Status != invoicedomain.StatusSent {
		t.Fatalf("status = %q, update must not touch it", updated.Status)
	}
}

func TestSetStatusLeavesAmountsUntouched(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)
	ctx := userCtx(10)

	created, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{
		Items:          []invoicedomain.LineItem{{Qty: 2, Rate: 150}},
		TaxRatePercent: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	detail, err := svc.SetStatus(ctx, created.ID.String(), "PAID")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if detail.Status != invoicedomain.StatusPaid {
		t.Fatalf("status = %q, want paid", detail.Status)
	}

	reloaded, err := svc.GetByID(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Subtotal != 300 || reloaded.Tax != 30 || reloaded.Total != 330 {
		t.Fatalf("amounts changed on status update: %v/%v/%v", reloaded.Subtotal, reloaded.Tax, reloaded.Total)
	}
	items := []invoicedomain.LineItem(reloaded.Items)
	if len(items) != 1 || items[0].Rate != 150 {
		t.Fatalf("items changed on status update: %+v", items)
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)
	ctx := userCtx(10)

	created, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.SetStatus(ctx, created.ID.String(), "void"); !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestGetByIDFoldsLegacyClient(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := userCtx(10)

	// Simulate an old row that only has the narrow client block.
	client := datatypes.NewJSONType(invoicedomain.LegacyClient{Name: "Bob", Email: "bob@example.com"})
	legacy := &invoicedomain.Invoice{
		ID:       svc.genID.Generate(),
		UserID:   10,
		Status:   invoicedomain.StatusSent,
		Client:   &client,
		Items:    datatypes.NewJSONSlice([]invoicedomain.LineItem{{Qty: 1, Rate: 100}}),
		Subtotal: 100,
		Total:    100,
	}
	if err := db.Create(legacy).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	detail, err := svc.GetByID(ctx, legacy.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	receiver := detail.Receiver.Data()
	if receiver.Name != "Bob" || receiver.Email != "bob@example.com" {
		t.Fatalf("receiver = %+v, want legacy client folded in", receiver)
	}
	if detail.DisplayName != "Bob" {
		t.Fatalf("display name = %q, want Bob", detail.DisplayName)
	}
}

func TestGetByIDIsScopedToOwner(t *testing.T) {
	svc := newTestService(t, setupInvoiceTestDB(t), nil)

	created, err := svc.Create(userCtx(10), invoicedomain.SaveInvoiceRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetByID(userCtx(99), created.ID.String()); !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("err = %v, want ErrInvoiceNotFound for foreign user", err)
	}
}

func TestListNewestFirstWithCursor(t *testing.T) {
	db := setupInvoiceTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := userCtx(10)

	for i := 0; i < 5; i++ {
		svc := newTestService(t, db, clock.Fixed(base.Add(time.Duration(i)*time.Hour)))
		if _, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{
			InvoiceNumber: fmt.Sprintf("INV-%03d", i),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	svc := newTestService(t, db, nil)
	first, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Invoices) != 5 {
		t.Fatalf("got %d invoices, want 5", len(first.Invoices))
	}
	if first.Invoices[0].InvoiceNumber != "INV-004" {
		t.Fatalf("first = %q, want newest", first.Invoices[0].InvoiceNumber)
	}
	if first.HasMore {
		t.Fatalf("has_more set on a complete page")
	}

	page1, err := svc.List(ctx, listRequest("", 2))
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1.Invoices) != 2 || !page1.HasMore || page1.NextPageToken == "" {
		t.Fatalf("unexpected page 1: %d items, has_more=%v", len(page1.Invoices), page1.HasMore)
	}

	page2, err := svc.List(ctx, listRequest(page1.NextPageToken, 2))
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Invoices) != 2 {
		t.Fatalf("page 2 items = %d, want 2", len(page2.Invoices))
	}
	if page2.Invoices[0].InvoiceNumber != "INV-002" {
		t.Fatalf("page 2 starts at %q, want INV-002", page2.Invoices[0].InvoiceNumber)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := newTestService(t, db, nil)
	ctx := userCtx(10)

	created, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{InvoiceNumber: "A"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, invoicedomain.SaveInvoiceRequest{InvoiceNumber: "B"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.SetStatus(ctx, created.ID.String(), "paid"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	resp, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "paid"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Invoices) != 1 || resp.Invoices[0].InvoiceNumber != "A" {
		t.Fatalf("unexpected filtered result: %+v", resp.Invoices)
	}

	if _, err := svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "bogus"}); !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func listRequest(token string, size int) invoicedomain.ListInvoiceRequest {
	req := invoicedomain.ListInvoiceRequest{}
	req.PageToken = token
	req.PageSize = size
	return req
}
