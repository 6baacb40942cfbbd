package audit

import (
	"go.uber.org/fx"

	"github.com/billfold/billfold/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
