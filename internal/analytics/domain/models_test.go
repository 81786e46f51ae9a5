package domain

import (
	"testing"

	"github.com/smallbiznis/bizcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportPeriod(t *testing.T) {
	start, err := db.ParseDate("2024-02-01")
	require.NoError(t, err)

	tests := []struct {
		reportType ReportType
		want       string
	}{
		{ReportDaily, "2024-02-01"},
		{ReportWeekly, "2024-02-07"},
		{ReportMonthly, "2024-02-29"},
		{ReportQuarterly, "2024-04-30"},
		{ReportYearly, "2025-01-31"},
	}
	for _, tt := range tests {
		t.Run(string(tt.reportType), func(t *testing.T) {
			end, ok := tt.reportType.Period(start)
			require.True(t, ok)
			assert.Equal(t, tt.want, end.String())
		})
	}

	_, ok := ReportCustom.Period(start)
	assert.False(t, ok)
	assert.False(t, ReportType("hourly").Valid())
}
