package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const topLimit = 10

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics

	summaries  *crud.Service[domain.DailySummary, *domain.DailySummary]
	products   *crud.Service[domain.ProductAnalytics, *domain.ProductAnalytics]
	customers  *crud.Service[domain.CustomerAnalytics, *domain.CustomerAnalytics]
	reports    *crud.Service[domain.SalesReport, *domain.SalesReport]
	kpis       *crud.Service[domain.BusinessMetrics, *domain.BusinessMetrics]
	categories *crud.Service[domain.CategoryPerformance, *domain.CategoryPerformance]
}

func New(p Params) domain.Service {
	s := &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
	s.summaries = crud.New[domain.DailySummary](p.DB, repository.ProvideStore[domain.DailySummary](p.DB), p.GenID, p.Clock, crud.Config[domain.DailySummary]{
		Name:       "daily_summary",
		AppendOnly: true,
	})
	s.products = crud.New[domain.ProductAnalytics](p.DB, repository.ProvideStore[domain.ProductAnalytics](p.DB), p.GenID, p.Clock, crud.Config[domain.ProductAnalytics]{
		Name:       "product_analytics",
		AppendOnly: true,
	})
	s.customers = crud.New[domain.CustomerAnalytics](p.DB, repository.ProvideStore[domain.CustomerAnalytics](p.DB), p.GenID, p.Clock, crud.Config[domain.CustomerAnalytics]{
		Name:       "customer_analytics",
		AppendOnly: true,
	})
	s.reports = crud.New[domain.SalesReport](p.DB, repository.ProvideStore[domain.SalesReport](p.DB), p.GenID, p.Clock, crud.Config[domain.SalesReport]{
		Name:       "sales_report",
		AppendOnly: true,
	})
	s.kpis = crud.New[domain.BusinessMetrics](p.DB, repository.ProvideStore[domain.BusinessMetrics](p.DB), p.GenID, p.Clock, crud.Config[domain.BusinessMetrics]{
		Name:       "business_metrics",
		AppendOnly: true,
	})
	s.categories = crud.New[domain.CategoryPerformance](p.DB, repository.ProvideStore[domain.CategoryPerformance](p.DB), p.GenID, p.Clock, crud.Config[domain.CategoryPerformance]{
		Name:       "category_performance",
		AppendOnly: true,
	})
	return s
}

func (s *Service) DailySummaries() crud.Store[domain.DailySummary] { return s.summaries }
func (s *Service) ProductAnalytics() crud.Store[domain.ProductAnalytics] { return s.products }
func (s *Service) CustomerAnalytics() crud.Store[domain.CustomerAnalytics] { return s.customers }
func (s *Service) SalesReports() crud.Store[domain.SalesReport] { return s.reports }
func (s *Service) BusinessMetrics() crud.Store[domain.BusinessMetrics] { return s.kpis }
func (s *Service) CategoryPerformance() crud.Store[domain.CategoryPerformance] { return s.categories }

// location resolves the business timezone, falling back to UTC.
func (s *Service) location(ctx context.Context, businessID snowflake.ID) *time.Location {
	name, err := s.repo.BusinessTimezone(ctx, s.db, businessID)
	if err != nil || name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.log.Warn("unknown business timezone", zap.String("business_id", businessID.String()), zap.String("timezone", name))
		return time.UTC
	}
	return loc
}
