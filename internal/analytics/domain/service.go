package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/db"
)

// Service exposes the reporting tables. Clients only read them; the rollups
// below are the only writers.
type Service interface {
	DailySummaries() crud.Store[DailySummary]
	ProductAnalytics() crud.Store[ProductAnalytics]
	CustomerAnalytics() crud.Store[CustomerAnalytics]
	SalesReports() crud.Store[SalesReport]
	BusinessMetrics() crud.Store[BusinessMetrics]
	CategoryPerformance() crud.Store[CategoryPerformance]

	// RebuildDailySummary recomputes one calendar day, in the business's
	// timezone, and replaces any stored summary for it.
	RebuildDailySummary(ctx context.Context, date db.Date) (*DailySummary, error)
	// GenerateSalesReport builds a report over [start, end]. A zero end is
	// derived from the report type.
	GenerateSalesReport(ctx context.Context, reportType ReportType, start, end db.Date) (*SalesReport, error)
	ExportSalesReport(ctx context.Context, id snowflake.ID) ([]byte, error)
}
