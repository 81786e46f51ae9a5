package domain

import "github.com/smallbiznis/bizcore/pkg/apperror"

var (
	ErrInvalidDate       = apperror.Validation("date", "invalid_date", "date is required")
	ErrInvalidReportType = apperror.Validation("report_type", "invalid_report_type", "invalid report type")
	ErrInvalidPeriod     = apperror.Validation("period_end", "invalid_period", "period end cannot be before period start")
	ErrPeriodRequired    = apperror.Validation("period_end", "period_end_required", "custom reports need a period end")
	ErrFutureDate        = apperror.Validation("date", "future_date", "cannot summarize a day that has not started")
)
