package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// window covers the calendar days [from, to] in loc.
func window(from, to db.Date, loc *time.Location) domain.Window {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, loc)
	return domain.Window{Start: start.UTC(), End: end.UTC()}
}

func average(total decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(n)).Round(2)
}

// growth is the percent change from previous to current; zero when there is no base.
func growth(current, previous decimal.Decimal) decimal.Decimal {
	if !previous.IsPositive() {
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

func (s *Service) RebuildDailySummary(ctx context.Context, date db.Date) (*domain.DailySummary, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}
	if date.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	w := window(date, date, s.location(ctx, businessID))
	if !w.Start.Before(s.clock.Now()) {
		return nil, domain.ErrFutureDate
	}

	summary := &domain.DailySummary{Date: date}
	sales, err := s.repo.Sales(ctx, s.db, businessID, w)
	if err != nil {
		return nil, err
	}
	summary.TotalSales = sales.Sales
	summary.TotalOrders = sales.Orders
	summary.AverageOrderValue = average(sales.Sales, sales.Orders)
	summary.ProductsSold = sales.Items
	summary.GrossProfit = sales.Sales.Sub(sales.Cost)

	if summary.NewCustomers, err = s.repo.NewCustomers(ctx, s.db, businessID, w); err != nil {
		return nil, err
	}
	if summary.ReturningCustomers, err = s.repo.ReturningCustomers(ctx, s.db, businessID, w); err != nil {
		return nil, err
	}
	if summary.TotalExpenses, err = s.repo.Expenses(ctx, s.db, businessID, date, date); err != nil {
		return nil, err
	}
	summary.NetProfit = summary.GrossProfit.Sub(summary.TotalExpenses)

	reservations, err := s.repo.Reservations(ctx, s.db, businessID, w)
	if err != nil {
		return nil, err
	}
	summary.TotalReservations = reservations.Total
	summary.CompletedReservations = reservations.Completed
	summary.CancelledReservations = reservations.Cancelled

	// Stock has no history; the counts are as of the rebuild.
	stock, err := s.repo.Stock(ctx, s.db, businessID)
	if err != nil {
		return nil, err
	}
	summary.LowStockItems = stock.Low
	summary.OutOfStockItems = stock.OutOfStock

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindSummary(ctx, tx, businessID, date)
		if err != nil {
			return err
		}
		if existing == nil {
			return s.summaries.CreateTx(ctx, tx, summary)
		}
		summary.Model = existing.Model
		summary.UpdatedAt = s.clock.Now()
		return s.summaries.SaveTx(ctx, tx, summary, existing)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAnalyticsRollup(ctx, "daily_summary")
	s.log.Info("daily summary rebuilt",
		zap.String("business_id", businessID.String()),
		zap.String("date", date.String()),
		zap.Int64("orders", summary.TotalOrders),
		zap.String("total_sales", summary.TotalSales.StringFixed(2)),
	)
	return summary, nil
}

func (s *Service) GenerateSalesReport(ctx context.Context, reportType domain.ReportType, start, end db.Date) (*domain.SalesReport, error) {
	businessID, ok := bizcontext.BusinessIDFromContext(ctx)
	if !ok {
		return nil, crud.ErrInvalidBusiness
	}
	if !reportType.Valid() {
		return nil, domain.ErrInvalidReportType
	}
	if start.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if end.IsZero() {
		if end, ok = reportType.Period(start); !ok {
			return nil, domain.ErrPeriodRequired
		}
	}
	if end.Before(start.Time) {
		return nil, domain.ErrInvalidPeriod
	}

	loc := s.location(ctx, businessID)
	w := window(start, end, loc)
	days := int(w.End.Sub(w.Start).Hours()/24 + 0.5)
	previous := window(start.AddDays(-days), start.AddDays(-1), loc)

	current, err := s.repo.Sales(ctx, s.db, businessID, w)
	if err != nil {
		return nil, err
	}
	before, err := s.repo.Sales(ctx, s.db, businessID, previous)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.TopProducts(ctx, s.db, businessID, w, topLimit)
	if err != nil {
		return nil, err
	}
	customers, err := s.repo.TopCustomers(ctx, s.db, businessID, w, topLimit)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.SoldOrders(ctx, s.db, businessID, w)
	if err != nil {
		return nil, err
	}

	report := &domain.SalesReport{
		ReportType:     reportType,
		PeriodStart:    start,
		PeriodEnd:      end,
		TotalSales:     current.Sales,
		TotalOrders:    current.Orders,
		TotalItemsSold: current.Items,
		SalesGrowth:    growth(current.Sales, before.Sales),
		TopProducts:    datatypes.NewJSONSlice(products),
		TopCustomers:   datatypes.NewJSONSlice(customers),
		DetailedData:   datatypes.NewJSONType(domain.ReportDetail{Days: byDay(orders, start, end, loc)}),
		GeneratedBy:    bizcontext.ActorID(ctx),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindReport(ctx, tx, businessID, reportType, start, end)
		if err != nil {
			return err
		}
		if existing == nil {
			return s.reports.CreateTx(ctx, tx, report)
		}
		report.Model = existing.Model
		report.UpdatedAt = s.clock.Now()
		return s.reports.SaveTx(ctx, tx, report, existing)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAnalyticsRollup(ctx, "sales_report")
	s.log.Info("sales report generated",
		zap.String("business_id", businessID.String()),
		zap.String("report_type", string(reportType)),
		zap.String("period_start", start.String()),
		zap.String("period_end", end.String()),
	)
	return report, nil
}

// byDay buckets orders by their local calendar day, one row per day in [from, to].
func byDay(orders []domain.SoldOrder, from, to db.Date, loc *time.Location) []domain.DayTotals {
	index := map[string]int{}
	var days []domain.DayTotals
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		index[d.String()] = len(days)
		days = append(days, domain.DayTotals{Date: d.String(), Sales: decimal.Zero})
	}
	for _, o := range orders {
		i, ok := index[o.OrderDate.In(loc).Format(db.DateLayout)]
		if !ok {
			continue
		}
		days[i].Orders++
		days[i].Sales = days[i].Sales.Add(o.Total)
	}
	return days
}
