package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/billfold/billfold/internal/audit/domain"
	authdomain "github.com/billfold/billfold/internal/auth/domain"
	"github.com/billfold/billfold/internal/config"
	dashboarddomain "github.com/billfold/billfold/internal/dashboard/domain"
	invoicedomain "github.com/billfold/billfold/internal/invoice/domain"
	"github.com/billfold/billfold/internal/observability/logger"
	"github.com/billfold/billfold/internal/observability/metrics"
	"github.com/billfold/billfold/internal/storage"
)

const contextUserIDKey = "session_user_id"

type ServerParam struct {
	fx.In

	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	AuthSvc      authdomain.Service
	InvoiceSvc   invoicedomain.Service
	DashboardSvc dashboarddomain.Service
	AuditSvc     auditdomain.Service
	Storage      storage.ObjectStorage `optional:"true"`
	Metrics      *metrics.HTTPMetrics
}

// Server holds the HTTP surface and its service dependencies.
type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	authSvc      authdomain.Service
	invoiceSvc   invoicedomain.Service
	dashboardSvc dashboarddomain.Service
	auditSvc     auditdomain.Service
	storage      storage.ObjectStorage

	httpMetrics  *metrics.HTTPMetrics
	loginLimiter *rateLimiter
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		authSvc:      p.AuthSvc,
		invoiceSvc:   p.InvoiceSvc,
		dashboardSvc: p.DashboardSvc,
		auditSvc:     p.AuditSvc,
		storage:      p.Storage,
		httpMetrics:  p.Metrics,
		loginLimiter: newRateLimiter(10, time.Minute),
	}
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{SkipPaths: []string{"/healthz"}}))
	engine.Use(metrics.GinMiddleware(s.httpMetrics))
	engine.Use(s.AuditContext())

	s.RegisterRoutes(engine)
	return engine
}

func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)

	v1 := engine.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/signup", s.SignUp)
	auth.POST("/login", s.SignIn)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.PUT("/profile", s.AuthRequired(), s.UpdateProfile)
	auth.POST("/password", s.AuthRequired(), s.ChangePassword)

	invoices := v1.Group("/invoices", s.AuthRequired())
	invoices.POST("", s.CreateInvoice)
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoice)
	invoices.PUT("/:id", s.UpdateInvoice)
	invoices.PATCH("/:id/status", s.UpdateInvoiceStatus)
	invoices.GET("/:id/html", s.InvoiceHTML)

	v1.GET("/dashboard/stats", s.AuthRequired(), s.DashboardStats)
	v1.POST("/uploads/logo", s.AuthRequired(), s.UploadLogo)
	v1.POST("/uploads/avatar", s.AuthRequired(), s.UploadAvatar)

	if !s.cfg.IsProduction() {
		v1.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP binds the listener eagerly so startup fails fast on a bad
// address, then serves in the background.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTPAddr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(RunHTTP),
)
