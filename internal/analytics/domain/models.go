package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/bizcore/pkg/db"
	"gorm.io/datatypes"
)

// DailySummary is the one-row rollup of a business day, keyed by (business, date).
type DailySummary struct {
	db.Model
	Date                  db.Date         `gorm:"not null;index" json:"date"`
	TotalSales            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_sales"`
	TotalOrders           int64           `gorm:"not null" json:"total_orders"`
	AverageOrderValue     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"average_order_value"`
	ProductsSold          int64           `gorm:"not null" json:"products_sold"`
	NewCustomers          int64           `gorm:"not null" json:"new_customers"`
	ReturningCustomers    int64           `gorm:"not null" json:"returning_customers"`
	TotalExpenses         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_expenses"`
	GrossProfit           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"gross_profit"`
	NetProfit             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"net_profit"`
	TotalReservations     int64           `gorm:"not null" json:"total_reservations"`
	CompletedReservations int64           `gorm:"not null" json:"completed_reservations"`
	CancelledReservations int64           `gorm:"not null" json:"cancelled_reservations"`
	LowStockItems         int64           `gorm:"not null" json:"low_stock_items"`
	OutOfStockItems       int64           `gorm:"not null" json:"out_of_stock_items"`
}

func (DailySummary) TableName() string { return "daily_summaries" }

type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
)

type ProductAnalytics struct {
	db.Model
	ProductID         snowflake.ID    `gorm:"not null;index" json:"product_id"`
	VariantID         *snowflake.ID   `json:"variant_id"`
	PeriodStart       db.Date         `gorm:"not null;index" json:"period_start"`
	PeriodEnd         db.Date         `gorm:"not null" json:"period_end"`
	PeriodType        PeriodType      `gorm:"type:text;not null" json:"period_type"`
	UnitsSold         int64           `gorm:"not null" json:"units_sold"`
	TotalRevenue      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_revenue"`
	TotalCost         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_cost"`
	GrossProfit       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"gross_profit"`
	AveragePrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"average_price"`
	ProfitMargin      decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"profit_margin"`
	StockTurnoverRate decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"stock_turnover_rate"`
	DaysOutOfStock    int64           `gorm:"not null" json:"days_out_of_stock"`
	SalesRank         *int64          `json:"sales_rank"`
}

func (ProductAnalytics) TableName() string { return "product_analytics" }

type CustomerAnalytics struct {
	db.Model
	CustomerID             snowflake.ID                `gorm:"not null;index" json:"customer_id"`
	PeriodStart            db.Date                     `gorm:"not null;index" json:"period_start"`
	PeriodEnd              db.Date                     `gorm:"not null" json:"period_end"`
	TotalOrders            int64                       `gorm:"not null" json:"total_orders"`
	TotalSpent             decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"total_spent"`
	AverageOrderValue      decimal.Decimal             `gorm:"type:decimal(10,2);not null" json:"average_order_value"`
	PurchaseFrequency      decimal.Decimal             `gorm:"type:decimal(10,2);not null" json:"purchase_frequency"`
	DaysSinceLastPurchase  int64                       `gorm:"not null" json:"days_since_last_purchase"`
	FavoriteProducts       datatypes.JSONSlice[string] `json:"favorite_products"`
	FavoriteCategories     datatypes.JSONSlice[string] `json:"favorite_categories"`
	RFMRecencyScore        int                         `gorm:"column:rfm_recency_score;not null" json:"rfm_recency_score"`
	RFMFrequencyScore      int                         `gorm:"column:rfm_frequency_score;not null" json:"rfm_frequency_score"`
	RFMMonetaryScore       int                         `gorm:"column:rfm_monetary_score;not null" json:"rfm_monetary_score"`
	RFMSegment             string                      `gorm:"column:rfm_segment;type:text;index" json:"rfm_segment"`
	LifetimeValue          decimal.Decimal             `gorm:"type:decimal(15,2);not null" json:"lifetime_value"`
	PredictedLifetimeValue decimal.Decimal             `gorm:"type:decimal(15,2);not null" json:"predicted_lifetime_value"`
}

func (CustomerAnalytics) TableName() string { return "customer_analytics" }

type ReportType string

const (
	ReportDaily     ReportType = "daily"
	ReportWeekly    ReportType = "weekly"
	ReportMonthly   ReportType = "monthly"
	ReportQuarterly ReportType = "quarterly"
	ReportYearly    ReportType = "yearly"
	ReportCustom    ReportType = "custom"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportDaily, ReportWeekly, ReportMonthly, ReportQuarterly, ReportYearly, ReportCustom:
		return true
	}
	return false
}

// Period returns the last day of a report of type t that begins on start.
// Custom reports have no implied length.
func (t ReportType) Period(start db.Date) (db.Date, bool) {
	switch t {
	case ReportDaily:
		return start, true
	case ReportWeekly:
		return start.AddDays(6), true
	case ReportMonthly:
		return db.Date{Time: start.AddDate(0, 1, -1)}, true
	case ReportQuarterly:
		return db.Date{Time: start.AddDate(0, 3, -1)}, true
	case ReportYearly:
		return db.Date{Time: start.AddDate(1, 0, -1)}, true
	}
	return db.Date{}, false
}

type TopProduct struct {
	ProductID   snowflake.ID    `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type TopCustomer struct {
	CustomerID snowflake.ID    `json:"customer_id"`
	Name       string          `json:"name"`
	Orders     int64           `json:"orders"`
	Total      decimal.Decimal `json:"total"`
}

// DayTotals is one row of a report's per-day breakdown.
type DayTotals struct {
	Date   string          `json:"date"`
	Orders int64           `json:"orders"`
	Sales  decimal.Decimal `json:"sales"`
}

type ReportDetail struct {
	Days []DayTotals `json:"days"`
}

// SalesReport is unique per (business, report_type, period_start, period_end);
// generating the same period again replaces the figures.
type SalesReport struct {
	db.Model
	ReportType     ReportType                       `gorm:"type:text;not null;index" json:"report_type"`
	PeriodStart    db.Date                          `gorm:"not null;index" json:"period_start"`
	PeriodEnd      db.Date                          `gorm:"not null" json:"period_end"`
	TotalSales     decimal.Decimal                  `gorm:"type:decimal(15,2);not null" json:"total_sales"`
	TotalOrders    int64                            `gorm:"not null" json:"total_orders"`
	TotalItemsSold int64                            `gorm:"not null" json:"total_items_sold"`
	SalesGrowth    decimal.Decimal                  `gorm:"type:decimal(10,2);not null" json:"sales_growth"`
	TopProducts    datatypes.JSONSlice[TopProduct]  `json:"top_products"`
	TopCustomers   datatypes.JSONSlice[TopCustomer] `json:"top_customers"`
	DetailedData   datatypes.JSONType[ReportDetail] `json:"detailed_data"`
	GeneratedBy    *snowflake.ID                    `json:"generated_by"`
}

func (SalesReport) TableName() string { return "sales_reports" }

type BusinessMetrics struct {
	db.Model
	PeriodStart              db.Date         `gorm:"not null;index" json:"period_start"`
	PeriodEnd                db.Date         `gorm:"not null" json:"period_end"`
	TotalRevenue             decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_revenue"`
	RevenueGrowth            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"revenue_growth"`
	GrossProfitMargin        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"gross_profit_margin"`
	NetProfitMargin          decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"net_profit_margin"`
	TotalCustomers           int64           `gorm:"not null" json:"total_customers"`
	NewCustomers             int64           `gorm:"not null" json:"new_customers"`
	CustomerRetentionRate    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"customer_retention_rate"`
	CustomerChurnRate        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"customer_churn_rate"`
	AverageOrderValue        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"average_order_value"`
	OrderFulfillmentRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"order_fulfillment_rate"`
	InventoryTurnover        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"inventory_turnover"`
	DaysInventoryOutstanding int64           `gorm:"not null" json:"days_inventory_outstanding"`
	CostPerAcquisition       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"cost_per_acquisition"`
}

func (BusinessMetrics) TableName() string { return "business_metrics" }

type CategoryPerformance struct {
	db.Model
	CategoryID      snowflake.ID    `gorm:"not null;index" json:"category_id"`
	PeriodStart     db.Date         `gorm:"not null;index" json:"period_start"`
	PeriodEnd       db.Date         `gorm:"not null" json:"period_end"`
	TotalSales      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_sales"`
	UnitsSold       int64           `gorm:"not null" json:"units_sold"`
	SalesPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"sales_percentage"`
	ProfitMargin    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"profit_margin"`
	SalesGrowth     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"sales_growth"`
}

func (CategoryPerformance) TableName() string { return "category_performance" }

// Window is a half-open instant range [Start, End) in UTC.
type Window struct {
	Start time.Time
	End   time.Time
}
