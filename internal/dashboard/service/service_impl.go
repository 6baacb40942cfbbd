package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/billfold/billfold/internal/cache"
	dashboarddomain "github.com/billfold/billfold/internal/dashboard/domain"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/usercontext"
	"github.com/billfold/billfold/pkg/repository"
)

// statsTTL bounds staleness of the cached summary after invoice writes.
const statsTTL = 30 * time.Second

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	invoices repository.Repository[invoicedomain.Invoice]
	stats    cache.Cache[int64, *dashboarddomain.StatsResponse]
}

func NewService(p ServiceParam) dashboarddomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dashboard.service"),
		invoices: repository.ProvideStore[invoicedomain.Invoice](p.DB),
		stats:    cache.NewTTLCache[int64, *dashboarddomain.StatsResponse](),
	}
}

type statusRow struct {
	Status string
	Count  int64
	Billed float64
}

func (s *Service) Stats(ctx context.Context) (*dashboarddomain.StatsResponse, error) {
	userID, ok := usercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, dashboarddomain.ErrInvalidUser
	}

	if cached, ok := s.stats.Get(userID); ok {
		return cached, nil
	}

	total, err := s.invoices.Count(ctx, &invoicedomain.Invoice{UserID: snowflake.ID(userID)})
	if err != nil {
		return nil, err
	}

	var rows []statusRow
	err = s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS billed").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	resp := &dashboarddomain.StatsResponse{TotalInvoices: total}
	for _, row := range rows {
		resp.TotalBilled += row.Billed
		switch invoicedomain.Status(row.Status) {
		case invoicedomain.StatusDraft:
			resp.Statuses.Draft = row.Count
		case invoicedomain.StatusSent:
			resp.Statuses.Sent = row.Count
			resp.Outstanding += row.Billed
		case invoicedomain.StatusPaid:
			resp.Statuses.Paid = row.Count
			resp.TotalPaid += row.Billed
		case invoicedomain.StatusOverdue:
			resp.Statuses.Overdue = row.Count
			resp.Outstanding += row.Billed
		}
	}

	s.stats.Set(userID, resp, statsTTL)
	return resp, nil
}
