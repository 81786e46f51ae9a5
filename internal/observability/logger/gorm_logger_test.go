package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestStatementKind(t *testing.T) {
	assert.Equal(t, "SELECT", statementKind("  select * from orders"))
	assert.Equal(t, "UPDATE", statementKind("WITH x AS (SELECT 1) UPDATE products SET stock_quantity = 1"))
	assert.Equal(t, "OTHER", statementKind("PRAGMA foreign_keys = ON"))
}

func TestLogModeDoesNotMutateOriginal(t *testing.T) {
	base := NewGormLogger(DefaultGormLoggerConfig())
	quiet := base.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Warn, base.cfg.Level)
	assert.Equal(t, gormlogger.Silent, quiet.cfg.Level)
}
