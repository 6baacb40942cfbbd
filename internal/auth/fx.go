package auth

import (
	"go.uber.org/fx"

	"github.com/billfold/billfold/internal/auth/service"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.NewService),
)
