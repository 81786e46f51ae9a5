package service

import (
	"bytes"
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/analytics/repository"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/crud"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	reservationdomain "github.com/smallbiznis/bizcore/internal/reservation/domain"
	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const business = snowflake.ID(77)

type fixture struct {
	conn  *gorm.DB
	node  *snowflake.Node
	svc   domain.Service
	ctx   context.Context
	lucia snowflake.ID
	marta snowflake.ID
}

func utc(day, hour int) time.Time {
	return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
}

func date(t *testing.T, raw string) db.Date {
	t.Helper()
	d, err := db.ParseDate(raw)
	require.NoError(t, err)
	return d
}

// newFixture seeds a shop in America/Bogota (UTC-5). Its 2025-03-01 runs from
// 05:00 UTC that day to 05:00 UTC on the 2nd.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.NewTest(
		&businessdomain.Business{}, &customerdomain.Customer{},
		&catalogdomain.Product{}, &catalogdomain.ProductVariant{},
		&orderdomain.Order{}, &orderdomain.OrderItem{},
		&financedomain.Expense{}, &reservationdomain.Reservation{}, &inventorydomain.InventoryItem{},
		&domain.DailySummary{}, &domain.ProductAnalytics{}, &domain.CustomerAnalytics{},
		&domain.SalesReport{}, &domain.BusinessMetrics{}, &domain.CategoryPerformance{},
	)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(utc(2, 12))

	require.NoError(t, conn.Create(&businessdomain.Business{
		ID: business, Name: "Ferreteria El Tornillo", Slug: "ferreteria-el-tornillo",
		Currency: "COP", Timezone: "America/Bogota", IsActive: true,
		CreatedAt: clk.Now(), UpdatedAt: clk.Now(),
	}).Error)

	f := &fixture{
		conn: conn,
		node: node,
		svc: New(Params{
			DB:    conn,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  repository.Provide(),
		}),
		ctx: bizcontext.WithBusiness(bizcontext.WithActor(context.Background(), bizcontext.Actor{UserID: 10}), business, nil),
	}
	f.lucia = f.customer(t, "Lucia", "Rojas", utc(1, 14))
	f.marta = f.customer(t, "Marta", "Diaz", time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC))
	f.seed(t)
	return f
}

func (f *fixture) model(at time.Time) db.Model {
	return db.Model{ID: f.node.Generate(), BusinessID: business, CreatedAt: at, UpdatedAt: at}
}

func (f *fixture) customer(t *testing.T, first, last string, at time.Time) snowflake.ID {
	t.Helper()
	c := &customerdomain.Customer{Model: f.model(at), CustomerNumber: "CUS-" + first, FirstName: first, LastName: last}
	require.NoError(t, f.conn.Create(c).Error)
	return c.ID
}

func (f *fixture) order(t *testing.T, at time.Time, status orderdomain.Status, customer *snowflake.ID, total int64, items ...*orderdomain.OrderItem) {
	t.Helper()
	o := &orderdomain.Order{
		Model:       f.model(at),
		OrderNumber: "ORD-" + f.node.Generate().String(),
		CustomerID:  customer,
		OrderType:   orderdomain.TypeInStore,
		Status:      status,
		Subtotal:    decimal.NewFromInt(total),
		Total:       decimal.NewFromInt(total),
		OrderDate:   at,
	}
	require.NoError(t, f.conn.Create(o).Error)
	for _, it := range items {
		it.Model = f.model(at)
		it.OrderID = o.ID
		require.NoError(t, f.conn.Create(it).Error)
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	screwCost := decimal.NewFromInt(5)
	screws := &catalogdomain.Product{Model: f.model(utc(1, 0)), Name: "Tornillo", Slug: "tornillo", BasePrice: decimal.NewFromInt(12), CostPrice: &screwCost, IsActive: true}
	hammerCost, variantCost := decimal.NewFromInt(30), decimal.NewFromInt(25)
	hammer := &catalogdomain.Product{Model: f.model(utc(1, 0)), Name: "Martillo", Slug: "martillo", BasePrice: decimal.NewFromInt(40), CostPrice: &hammerCost, HasVariants: true, IsActive: true}
	require.NoError(t, f.conn.Create(screws).Error)
	require.NoError(t, f.conn.Create(hammer).Error)
	steel := &catalogdomain.ProductVariant{Model: f.model(utc(1, 0)), ProductID: hammer.ID, Name: "Acero", SKU: "MAR-AC", Price: decimal.NewFromInt(40), CostPrice: &variantCost, IsActive: true}
	require.NoError(t, f.conn.Create(steel).Error)

	line := func(p *catalogdomain.Product, variant *snowflake.ID, qty, total int64) *orderdomain.OrderItem {
		return &orderdomain.OrderItem{ProductID: p.ID, VariantID: variant, ProductName: p.Name, Quantity: qty,
			UnitPrice: decimal.NewFromInt(total / qty), Subtotal: decimal.NewFromInt(total), Total: decimal.NewFromInt(total)}
	}
	// Inside the local day.
	f.order(t, utc(1, 15), orderdomain.StatusCompleted, &f.lucia, 120, line(screws, nil, 10, 120))
	f.order(t, utc(2, 2), orderdomain.StatusConfirmed, &f.marta, 80, line(hammer, &steel.ID, 2, 80))
	f.order(t, utc(1, 16), orderdomain.StatusCancelled, &f.lucia, 999)
	// Local 2025-02-28 22:00, a walk-in sale.
	f.order(t, utc(1, 3), orderdomain.StatusCompleted, nil, 500)
	// Marta bought before, which makes her a returning customer.
	f.order(t, time.Date(2025, 2, 20, 17, 0, 0, 0, time.UTC), orderdomain.StatusCompleted, &f.marta, 40)

	expense := func(day string, total int64, status financedomain.ExpenseStatus) {
		e := &financedomain.Expense{Model: f.model(utc(1, 12)), ExpenseNumber: "EXP-" + f.node.Generate().String(),
			Category: financedomain.ExpenseRent, Description: "Gasto", ExpenseDate: date(t, day),
			Amount: decimal.NewFromInt(total), Total: decimal.NewFromInt(total), PaymentStatus: status}
		require.NoError(t, f.conn.Create(e).Error)
	}
	expense("2025-03-01", 30, financedomain.ExpensePending)
	expense("2025-03-01", 70, financedomain.ExpenseCancelled)
	expense("2025-03-02", 15, financedomain.ExpensePaid)

	reservation := func(start time.Time, status reservationdomain.Status) {
		r := &reservationdomain.Reservation{Model: f.model(start), ReservationNumber: "RES-" + f.node.Generate().String(),
			StartDatetime: start, EndDatetime: start.Add(time.Hour), DurationMinutes: 60, Status: status}
		require.NoError(t, f.conn.Create(r).Error)
	}
	reservation(utc(1, 14), reservationdomain.StatusCompleted)
	reservation(utc(1, 18), reservationdomain.StatusCancelled)
	reservation(utc(2, 13), reservationdomain.StatusPending)

	stock := func(qty, minLevel int64) {
		i := &inventorydomain.InventoryItem{Model: f.model(utc(1, 0)), WarehouseID: 1, ProductID: screws.ID, Quantity: qty, MinStockLevel: minLevel}
		require.NoError(t, f.conn.Create(i).Error)
	}
	stock(0, 5)
	stock(3, 5)
	stock(50, 5)
}

func TestRebuildDailySummary(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.RebuildDailySummary(f.ctx, date(t, "2025-03-01"))
	require.NoError(t, err)

	assert.Equal(t, "200.00", summary.TotalSales.StringFixed(2))
	assert.Equal(t, int64(2), summary.TotalOrders)
	assert.Equal(t, "100.00", summary.AverageOrderValue.StringFixed(2))
	assert.Equal(t, int64(12), summary.ProductsSold)
	// Cost is 10x5 for screws plus 2x25 for the steel variant.
	assert.Equal(t, "100.00", summary.GrossProfit.StringFixed(2))
	assert.Equal(t, "30.00", summary.TotalExpenses.StringFixed(2))
	assert.Equal(t, "70.00", summary.NetProfit.StringFixed(2))
	assert.Equal(t, int64(1), summary.NewCustomers)
	assert.Equal(t, int64(1), summary.ReturningCustomers)
	assert.Equal(t, int64(2), summary.TotalReservations)
	assert.Equal(t, int64(1), summary.CompletedReservations)
	assert.Equal(t, int64(1), summary.CancelledReservations)
	assert.Equal(t, int64(1), summary.LowStockItems)
	assert.Equal(t, int64(1), summary.OutOfStockItems)

	again, err := f.svc.RebuildDailySummary(f.ctx, date(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, summary.ID, again.ID)
	var count int64
	require.NoError(t, f.conn.Model(&domain.DailySummary{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.svc.DailySummaries().Update(f.ctx, summary.ID, nil)
	assert.ErrorIs(t, err, crud.ErrImmutable)
}

func TestRebuildDailySummaryRejectsBadDates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RebuildDailySummary(f.ctx, db.Date{})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	_, err = f.svc.RebuildDailySummary(f.ctx, date(t, "2025-03-03"))
	assert.ErrorIs(t, err, domain.ErrFutureDate)

	// The local day is still running.
	_, err = f.svc.RebuildDailySummary(f.ctx, date(t, "2025-03-02"))
	assert.NoError(t, err)

	_, err = f.svc.RebuildDailySummary(context.Background(), date(t, "2025-03-01"))
	assert.ErrorIs(t, err, crud.ErrInvalidBusiness)
}

func TestGenerateSalesReport(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.GenerateSalesReport(f.ctx, domain.ReportWeekly, date(t, "2025-02-24"), db.Date{})
	require.NoError(t, err)

	assert.Equal(t, "2025-03-02", report.PeriodEnd.String())
	assert.Equal(t, "700.00", report.TotalSales.StringFixed(2))
	assert.Equal(t, int64(3), report.TotalOrders)
	assert.Equal(t, int64(12), report.TotalItemsSold)
	// The week before only has Marta's 40.
	assert.Equal(t, "1650.00", report.SalesGrowth.StringFixed(2))
	require.NotNil(t, report.GeneratedBy)
	assert.Equal(t, snowflake.ID(10), *report.GeneratedBy)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, "Tornillo", report.TopProducts[0].ProductName)
	assert.Equal(t, int64(10), report.TopProducts[0].Quantity)
	assert.Equal(t, "Martillo", report.TopProducts[1].ProductName)

	require.Len(t, report.TopCustomers, 2)
	assert.Equal(t, "Lucia Rojas", report.TopCustomers[0].Name)
	assert.Equal(t, int64(1), report.TopCustomers[0].Orders)
	assert.Equal(t, "120.00", report.TopCustomers[0].Total.StringFixed(2))

	days := report.DetailedData.Data().Days
	require.Len(t, days, 7)
	assert.Equal(t, "2025-02-28", days[4].Date)
	assert.Equal(t, int64(1), days[4].Orders)
	assert.Equal(t, "2025-03-01", days[5].Date)
	assert.Equal(t, "200.00", days[5].Sales.StringFixed(2))

	again, err := f.svc.GenerateSalesReport(f.ctx, domain.ReportWeekly, date(t, "2025-02-24"), date(t, "2025-03-02"))
	require.NoError(t, err)
	assert.Equal(t, report.ID, again.ID)

	list, _, err := f.svc.SalesReports().List(f.ctx, pagination.Pagination{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGenerateSalesReportValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateSalesReport(f.ctx, "hourly", date(t, "2025-03-01"), db.Date{})
	assert.ErrorIs(t, err, domain.ErrInvalidReportType)

	_, err = f.svc.GenerateSalesReport(f.ctx, domain.ReportCustom, date(t, "2025-03-01"), db.Date{})
	assert.ErrorIs(t, err, domain.ErrPeriodRequired)

	_, err = f.svc.GenerateSalesReport(f.ctx, domain.ReportCustom, date(t, "2025-03-01"), date(t, "2025-02-01"))
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = f.svc.GenerateSalesReport(f.ctx, domain.ReportMonthly, db.Date{}, db.Date{})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestExportSalesReport(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.GenerateSalesReport(f.ctx, domain.ReportWeekly, date(t, "2025-02-24"), db.Date{})
	require.NoError(t, err)

	out, err := f.svc.ExportSalesReport(f.ctx, report.ID)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{summarySheet, productsSheet, customersSheet, daysSheet}, book.GetSheetList())
	kind, err := book.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "weekly", kind)

	products, err := book.GetRows(productsSheet)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []string{"Product", "Quantity", "Revenue"}, products[0])
	assert.Equal(t, "Tornillo", products[1][0])
	assert.Equal(t, "10", products[1][1])

	rows, err := book.GetRows(daysSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 8)

	_, err = f.svc.ExportSalesReport(f.ctx, f.node.Generate())
	assert.Error(t, err)
}
