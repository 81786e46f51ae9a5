package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var payload struct {
		Due  Date  `json:"due"`
		Paid *Date `json:"paid"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-02-28","paid":null}`), &payload))
	assert.Equal(t, "2025-02-28", payload.Due.String())
	assert.Nil(t, payload.Paid)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-02-28","paid":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"due":"28/02/2025"}`), &payload))
}

func TestDateTruncatesAndAdds(t *testing.T) {
	d := NewDate(time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "2025-01-31", d.String())
	assert.Equal(t, "2025-03-02", d.AddDays(30).String())
}

type dated struct {
	ID int64 `gorm:"primaryKey"`
	Day Date
	Opt *Date
}

func TestDateRoundTripsThroughSQLite(t *testing.T) {
	conn, err := NewTest(&dated{})
	require.NoError(t, err)

	row := dated{ID: 1, Day: NewDate(time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, conn.Create(&row).Error)

	var got dated
	require.NoError(t, conn.First(&got, 1).Error)
	assert.Equal(t, "2024-12-24", got.Day.String())
	assert.Nil(t, got.Opt)

	var count int64
	require.NoError(t, conn.Model(&dated{}).Where("day <= ?", NewDate(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
