package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	"github.com/billfold/billfold/internal/auditcontext"
	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository[auditdomain.AuditLog]
}

func NewService(p ServiceParam) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[auditdomain.AuditLog](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) {
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	if actorType == "" {
		actorType = string(auditdomain.ActorTypeSystem)
	}

	row := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		UserID:     entry.UserID,
		ActorType:  actorType,
		Action:     entry.Action,
		TargetType: entry.TargetType,
		Metadata:   datatypes.JSONMap(entry.Metadata),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if row.Metadata == nil {
		row.Metadata = datatypes.JSONMap{}
	}
	if actorID != "" {
		row.ActorID = &actorID
	}
	if entry.TargetID != "" {
		row.TargetID = &entry.TargetID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		row.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		row.UserAgent = &ua
	}

	if err := s.repo.Create(ctx, row); err != nil {
		s.log.Warn("audit record failed",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
