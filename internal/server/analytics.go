package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/pkg/db"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type rebuildSummaryRequest struct {
	Date db.Date `json:"date"`
}

type generateReportRequest struct {
	ReportType analyticsdomain.ReportType `json:"report_type"`
	StartDate  db.Date                    `json:"start_date"`
	EndDate    db.Date                    `json:"end_date"`
}

func (s *Server) registerAnalyticsRoutes(biz *gin.RouterGroup) {
	write := s.authorize(authorization.ResourceAnalytics, authorization.ActionWrite)
	read := s.authorize(authorization.ResourceAnalytics, authorization.ActionRead)

	summaries := resource[analyticsdomain.DailySummary]{
		path:     "daily-summaries",
		object:   authorization.ResourceAnalytics,
		store:    s.analyticsSvc.DailySummaries(),
		filters:  []filter{dateRange("date")},
		readOnly: true,
	}.mount(s, biz)
	summaries.POST("/rebuild", write, s.RebuildDailySummary)

	resource[analyticsdomain.ProductAnalytics]{
		path:   "product-analytics",
		object: authorization.ResourceAnalytics,
		store:  s.analyticsSvc.ProductAnalytics(),
		filters: []filter{
			idFilter("product_id", "product_id"),
			textFilter("period_type", "period_type"),
			dateRange("period_start"),
		},
		readOnly: true,
	}.mount(s, biz)

	resource[analyticsdomain.CustomerAnalytics]{
		path:   "customer-analytics",
		object: authorization.ResourceAnalytics,
		store:  s.analyticsSvc.CustomerAnalytics(),
		filters: []filter{
			idFilter("customer_id", "customer_id"),
			dateRange("period_start"),
		},
		readOnly: true,
	}.mount(s, biz)

	reports := resource[analyticsdomain.SalesReport]{
		path:   "sales-reports",
		object: authorization.ResourceAnalytics,
		store:  s.analyticsSvc.SalesReports(),
		filters: []filter{
			textFilter("report_type", "report_type"),
			dateRange("period_start"),
		},
		readOnly: true,
	}.mount(s, biz)
	reports.POST("/generate", write, s.GenerateSalesReport)
	reports.GET("/:id/export", read, s.ExportSalesReport)

	resource[analyticsdomain.BusinessMetrics]{
		path:     "business-metrics",
		object:   authorization.ResourceAnalytics,
		store:    s.analyticsSvc.BusinessMetrics(),
		filters:  []filter{dateRange("period_start")},
		readOnly: true,
	}.mount(s, biz)

	resource[analyticsdomain.CategoryPerformance]{
		path:   "category-performance",
		object: authorization.ResourceAnalytics,
		store:  s.analyticsSvc.CategoryPerformance(),
		filters: []filter{
			idFilter("category_id", "category_id"),
			dateRange("period_start"),
		},
		readOnly: true,
	}.mount(s, biz)
}

// RebuildDailySummary recomputes one day on demand, e.g. after back-dated edits.
func (s *Server) RebuildDailySummary(c *gin.Context) {
	var req rebuildSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidParamError("date"))
		return
	}
	if req.Date.IsZero() {
		AbortWithError(c, invalidParamError("date"))
		return
	}
	summary, err := s.analyticsSvc.RebuildDailySummary(c.Request.Context(), req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GenerateSalesReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	report, err := s.analyticsSvc.GenerateSalesReport(c.Request.Context(), req.ReportType, req.StartDate, req.EndDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": report})
}

func (s *Server) ExportSalesReport(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	content, err := s.analyticsSvc.ExportSalesReport(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="sales-report-%s.xlsx"`, id))
	c.Data(http.StatusOK, contentTypeXLSX, content)
}
