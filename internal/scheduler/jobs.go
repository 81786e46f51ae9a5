package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	analyticsdomain "github.com/smallbiznis/bizcore/internal/analytics/domain"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	obscontext "github.com/smallbiznis/bizcore/internal/observability/context"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/zap"
)

type workBusiness struct {
	ID       snowflake.ID
	Timezone string
}

// forEachBusiness walks active businesses in id order, one batch at a time.
func (s *Scheduler) forEachBusiness(ctx context.Context, fn func(ctx context.Context, b workBusiness)) error {
	var after snowflake.ID
	for {
		var batch []workBusiness
		err := s.db.WithContext(ctx).
			Table("businesses").
			Select("id, timezone").
			Where("is_active = ? AND is_deleted = ? AND id > ?", true, false, after).
			Order("id ASC").
			Limit(s.cfg.BatchSize).
			Scan(&batch).Error
		if err != nil {
			return err
		}
		for _, b := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(s.businessContext(ctx, b.ID), b)
		}
		if len(batch) < s.cfg.BatchSize {
			return nil
		}
		after = batch[len(batch)-1].ID
	}
}

func (s *Scheduler) businessContext(ctx context.Context, businessID snowflake.ID) context.Context {
	ctx = bizcontext.WithActor(ctx, bizcontext.Actor{IsStaff: true})
	ctx = bizcontext.WithBusiness(ctx, businessID, nil)
	return obscontext.WithBusinessID(ctx, businessID.String())
}

// yesterday is the last complete calendar day in the business's timezone.
func (s *Scheduler) yesterday(b workBusiness) db.Date {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil || b.Timezone == "" {
		loc = time.UTC
	}
	return db.NewDate(s.clock.Now().In(loc).AddDate(0, 0, -1))
}

// DailySummariesJob rebuilds yesterday's summary. Rebuilds replace the stored
// row, so orders edited after midnight are picked up by the next tick.
func (s *Scheduler) DailySummariesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	return s.forEachBusiness(ctx, func(ctx context.Context, b workBusiness) {
		day := s.yesterday(b)
		if _, err := s.analytics.RebuildDailySummary(ctx, day); err != nil {
			s.logBusinessError(ctx, "daily summary rebuild failed", b.ID, err, zap.String("date", day.String()))
			return
		}
		run.AddProcessed(1)
	})
}

// SalesReportsJob generates yesterday's daily report, plus the weekly report
// once a week ends on Sunday and the monthly report once a month ends.
func (s *Scheduler) SalesReportsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	return s.forEachBusiness(ctx, func(ctx context.Context, b workBusiness) {
		for _, p := range closedPeriods(s.yesterday(b)) {
			if _, err := s.analytics.GenerateSalesReport(ctx, p.reportType, p.start, db.Date{}); err != nil {
				s.logBusinessError(ctx, "sales report generation failed", b.ID, err,
					zap.String("report_type", string(p.reportType)),
					zap.String("period_start", p.start.String()),
				)
				continue
			}
			run.AddProcessed(1)
		}
	})
}

type period struct {
	reportType analyticsdomain.ReportType
	start      db.Date
}

// closedPeriods lists the report periods whose last day is day.
func closedPeriods(day db.Date) []period {
	out := []period{{analyticsdomain.ReportDaily, day}}
	if day.Weekday() == time.Sunday {
		out = append(out, period{analyticsdomain.ReportWeekly, day.AddDays(-6)})
	}
	if day.AddDays(1).Day() == 1 {
		out = append(out, period{analyticsdomain.ReportMonthly, day.AddDays(1 - day.Day())})
	}
	return out
}
