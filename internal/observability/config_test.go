package observability

import (
	"testing"

	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalizesValues(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:        " 1.2.0 ",
		Environment:       "production",
		LogLevel:          " WARN ",
		LogFormat:         "xml",
		OTLPEndpoint:      "collector:4317",
		OTLPProtocol:      "HTTP",
		OtelEnabled:       true,
		OtelSamplingRatio: 3,
	})

	assert.Equal(t, "bizcore", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, Export{Enabled: true, Endpoint: "collector:4317", Protocol: "http", SamplingRatio: 1}, cfg.Export)
	assert.False(t, cfg.Debug())
}

func TestExportNeedsEndpoint(t *testing.T) {
	cfg := LoadConfig(config.Config{OtelEnabled: true, OTLPProtocol: "udp"})
	assert.False(t, cfg.Export.Enabled)
	assert.Equal(t, "grpc", cfg.Export.Protocol)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestDebugFollowsLevelOrEnvironment(t *testing.T) {
	assert.True(t, LoadConfig(config.Config{Environment: "Local"}).Debug())
	assert.True(t, LoadConfig(config.Config{Environment: "production", LogLevel: "debug"}).Debug())
	assert.False(t, LoadConfig(config.Config{Environment: "staging"}).Debug())
}

func TestSubConfigsShareExport(t *testing.T) {
	cfg := LoadConfig(config.Config{AppName: "pos", OTLPEndpoint: "otel:4318", OTLPProtocol: "http", OtelEnabled: true})

	tc := cfg.tracingConfig()
	mc := cfg.metricsConfig()
	assert.Equal(t, "pos", tc.ServiceName)
	assert.Equal(t, tc.ExporterEndpoint, mc.ExporterEndpoint)
	assert.Equal(t, tc.ExporterProtocol, mc.ExporterProtocol)
	assert.True(t, tc.Enabled && mc.Enabled)
	assert.True(t, cfg.loggerConfig().IncludeCaller)
}
