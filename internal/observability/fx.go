// Package observability assembles logging, tracing and metrics.
package observability

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/observability/logger"
	"github.com/billfold/billfold/internal/observability/metrics"
	"github.com/billfold/billfold/internal/observability/tracing"
)

var Module = fx.Module("observability",
	logger.Module,
	fx.Provide(metrics.NewMeterProvider),
	fx.Provide(metrics.NewHTTPMetrics),
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
		_, err := tracing.NewProvider(lc, cfg, log)
		return err
	}),
)
