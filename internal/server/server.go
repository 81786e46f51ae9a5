package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/analytics"
	analyticsdomain "github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/auth"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/internal/business"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"github.com/smallbiznis/bizcore/internal/catalog"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/customer"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	"github.com/smallbiznis/bizcore/internal/finance"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	"github.com/smallbiznis/bizcore/internal/inventory"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
	"github.com/smallbiznis/bizcore/internal/notification"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/notification/live"
	"github.com/smallbiznis/bizcore/internal/observability"
	obslogger "github.com/smallbiznis/bizcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bizcore/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bizcore/internal/observability/tracing"
	"github.com/smallbiznis/bizcore/internal/order"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	"github.com/smallbiznis/bizcore/internal/payment"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	"github.com/smallbiznis/bizcore/internal/providers/email"
	"github.com/smallbiznis/bizcore/internal/providers/pdf"
	"github.com/smallbiznis/bizcore/internal/ratelimit"
	"github.com/smallbiznis/bizcore/internal/reference"
	"github.com/smallbiznis/bizcore/internal/reservation"
	reservationdomain "github.com/smallbiznis/bizcore/internal/reservation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	reference.Module,
	ratelimit.Module,
	pdf.Module,
	email.Module,
	auth.Module,
	business.Module,
	customer.Module,
	catalog.Module,
	inventory.Module,
	order.Module,
	reservation.Module,
	finance.Module,
	payment.Module,
	notification.Module,
	analytics.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	authsvc         authdomain.Service
	authzSvc        authorization.Service
	businessSvc     businessdomain.Service
	customerSvc     customerdomain.Service
	catalogSvc      catalogdomain.Service
	inventorySvc    inventorydomain.Service
	orderSvc        orderdomain.Service
	reservationSvc  reservationdomain.Service
	financeSvc      financedomain.Service
	paymentSvc      paymentdomain.Service
	webhooks        paymentdomain.Ingester
	notificationSvc notificationdomain.Service
	analyticsSvc    analyticsdomain.Service

	liveNotifications *live.Hub
	obsMetrics        *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authsvc         authdomain.Service
	AuthzSvc        authorization.Service
	BusinessSvc     businessdomain.Service
	CustomerSvc     customerdomain.Service
	CatalogSvc      catalogdomain.Service
	InventorySvc    inventorydomain.Service
	OrderSvc        orderdomain.Service
	ReservationSvc  reservationdomain.Service
	FinanceSvc      financedomain.Service
	PaymentSvc      paymentdomain.Service
	Webhooks        paymentdomain.Ingester
	NotificationSvc notificationdomain.Service
	AnalyticsSvc    analyticsdomain.Service

	LiveNotifications *live.Hub           `optional:"true"`
	ObsMetrics        *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		log:               p.Log.Named("http.server"),
		authsvc:           p.Authsvc,
		authzSvc:          p.AuthzSvc,
		businessSvc:       p.BusinessSvc,
		customerSvc:       p.CustomerSvc,
		catalogSvc:        p.CatalogSvc,
		inventorySvc:      p.InventorySvc,
		orderSvc:          p.OrderSvc,
		reservationSvc:    p.ReservationSvc,
		financeSvc:        p.FinanceSvc,
		paymentSvc:        p.PaymentSvc,
		webhooks:          p.Webhooks,
		notificationSvc:   p.NotificationSvc,
		analyticsSvc:      p.AnalyticsSvc,
		liveNotifications: p.LiveNotifications,
		obsMetrics:        p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/v1/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/refresh", s.Refresh)
	auth.POST("/logout", s.Logout)
	auth.POST("/password-reset", s.RequestPasswordReset)
	auth.POST("/password-reset/confirm", s.ConfirmPasswordReset)

	me := auth.Group("", s.AuthRequired())
	{
		me.GET("/me", s.Me)
		me.PATCH("/me", s.UpdateMe)
		me.POST("/change-password", s.ChangePassword)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Payment Webhooks --------
	api.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)

	authed := api.Group("", s.AuthRequired())

	// -------- Business Types --------
	authed.GET("/business-types", s.ListBusinessTypes)
	authed.GET("/business-types/:id", s.GetBusinessType)
	authed.POST("/business-types", s.staffOnly(), s.CreateBusinessType)
	authed.PATCH("/business-types/:id", s.staffOnly(), s.UpdateBusinessType)

	// -------- Businesses --------
	authed.GET("/businesses", s.ListBusinesses)
	authed.POST("/businesses", s.CreateBusiness)

	biz := authed.Group("/businesses/:business_id", s.BusinessContext())
	s.registerBusinessRoutes(biz)
	s.registerCustomerRoutes(biz)
	s.registerCatalogRoutes(biz)
	s.registerInventoryRoutes(biz)
	s.registerOrderRoutes(biz)
	s.registerReservationRoutes(biz)
	s.registerFinanceRoutes(biz)
	s.registerPaymentRoutes(biz)
	s.registerNotificationRoutes(biz)
	s.registerAnalyticsRoutes(biz)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
