package dashboard

import (
	"go.uber.org/fx"

	"github.com/billfold/billfold/internal/dashboard/service"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(service.NewService),
)
