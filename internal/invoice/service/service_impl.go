package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/internal/events"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/invoice/render"
	"github.com/billfold/billfold/internal/usercontext"
	"github.com/billfold/billfold/pkg/db/option"
	"github.com/billfold/billfold/pkg/db/pagination"
	"github.com/billfold/billfold/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Renderer render.Renderer
	Outbox   *events.Outbox `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	renderer render.Renderer
	repo     repository.Repository[invoicedomain.Invoice]
	outbox   *events.Outbox
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:    p.GenID,
		clock:    p.Clock,
		renderer: p.Renderer,
		repo:     repository.ProvideStore[invoicedomain.Invoice](p.DB),
		outbox:   p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.SaveInvoiceRequest) (*invoicedomain.Detail, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	totals, items := deriveTotals(req.Items, req.TaxRatePercent)
	now := s.clock.Now().UTC()

	// New records only ever write the receiver block; the legacy client
	// column stays empty and exists for reading old rows.
	record := &invoicedomain.Invoice{
		ID:            s.genID.Generate(),
		UserID:        userID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Status:        invoicedomain.StatusDraft,
		Sender:        datatypes.NewJSONType(req.Sender),
		Receiver:      datatypes.NewJSONType(invoicedomain.NormalizeReceiver(req.Receiver, nil)),
		Items:         datatypes.NewJSONSlice(items),
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Total:         totals.Total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The row and its created event are written in one transaction so the
	// outbox never misses a creation.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.ProvideStore[invoicedomain.Invoice](tx).Create(ctx, record); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			UserID:  record.UserID,
			Type:    events.EventInvoiceCreated,
			Payload: invoicePayload(record),
		})
	})
	if err != nil {
		return nil, err
	}

	return buildDetail(record), nil
}

func (s *Service) Update(ctx context.Context, id string, req invoicedomain.SaveInvoiceRequest) (*invoicedomain.Detail, error) {
	record, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	totals, items := deriveTotals(req.Items, req.TaxRatePercent)

	// Full-object overwrite of the editable fields: both parties, the
	// items, and the derived totals. Status is not touched here and the
	// legacy client column is carried along untouched for old records.
	record.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	record.Sender = datatypes.NewJSONType(req.Sender)
	record.Receiver = datatypes.NewJSONType(invoicedomain.NormalizeReceiver(req.Receiver, nil))
	record.Items = datatypes.NewJSONSlice(items)
	record.Subtotal = totals.Subtotal
	record.Tax = totals.Tax
	record.Total = totals.Total
	record.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventInvoiceUpdated, record)
	return buildDetail(record), nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status string) (*invoicedomain.Detail, error) {
	next, err := invoicedomain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	record, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	// Status-only update. Totals, items and parties are left exactly as
	// persisted, and any status may follow any other.
	record.Status = next
	record.UpdatedAt = s.clock.Now().UTC()
	if _, err := s.repo.UpdateColumns(ctx,
		&invoicedomain.Invoice{ID: record.ID, UserID: record.UserID},
		map[string]any{"status": record.Status, "updated_at": record.UpdatedAt},
	); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventInvoiceStatusChanged, record)
	return buildDetail(record), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*invoicedomain.Detail, error) {
	record, err := s.loadOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildDetail(record), nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	filter := &invoicedomain.Invoice{UserID: userID}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := invoicedomain.ParseStatus(raw)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.Status = status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.Find(ctx, filter,
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  pageSize,
		}),
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	return buildListResponse(items, int32(pageSize)), nil
}

func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	record, err := s.loadOwned(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderer.RenderHTML(render.ViewFromInvoice(record))
}

func (s *Service) loadOwned(ctx context.Context, rawID string) (*invoicedomain.Invoice, error) {
	userID, err := s.userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := invoicedomain.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindOne(ctx, &invoicedomain.Invoice{ID: id, UserID: userID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return record, nil
}

func (s *Service) userIDFromContext(ctx context.Context) (snowflake.ID, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return 0, invoicedomain.ErrInvalidUser
	}
	return snowflake.ID(userID), nil
}

func (s *Service) publish(ctx context.Context, eventType string, record *invoicedomain.Invoice) {
	if s.outbox == nil {
		return
	}
	err := s.outbox.Publish(ctx, events.Event{
		UserID:  record.UserID,
		Type:    eventType,
		Payload: invoicePayload(record),
	})
	if err != nil {
		s.log.Warn("invoice event publish failed", zap.Error(err), zap.String("invoice_id", record.ID.String()))
	}
}

func invoicePayload(record *invoicedomain.Invoice) events.InvoicePayload {
	return events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.InvoiceNumber,
		Status:        string(record.Status),
	}
}

// deriveTotals applies the always-at-least-one-row invariant and computes
// the monetary values exactly as the edit form does.
func deriveTotals(items []invoicedomain.LineItem, taxRatePercent float64) (invoicedomain.Totals, []invoicedomain.LineItem) {
	if len(items) == 0 {
		items = []invoicedomain.LineItem{{Description: "", Qty: 1, Rate: 0}}
	}
	return invoicedomain.ComputeTotals(items, taxRatePercent), items
}

func buildDetail(record *invoicedomain.Invoice) *invoicedomain.Detail {
	normalized := record.NormalizedReceiver()

	view := *record
	view.Receiver = datatypes.NewJSONType(normalized)

	return &invoicedomain.Detail{
		Invoice:        view,
		TaxRatePercent: invoicedomain.InferTaxRatePercent(record.Subtotal, record.Tax),
		DisplayName:    invoicedomain.DisplayName(normalized),
	}
}

func buildListResponse(items []*invoicedomain.Invoice, pageSize int32) invoicedomain.ListInvoiceResponse {
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	details := make([]invoicedomain.Detail, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		details = append(details, *buildDetail(item))
	}

	resp := invoicedomain.ListInvoiceResponse{Invoices: details}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp
}
