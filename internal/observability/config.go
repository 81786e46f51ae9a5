package observability

import (
	"slices"
	"strings"

	"github.com/smallbiznis/bizcore/internal/config"
)

// Config is the telemetry view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	Export Export
}

// Export says where spans and metrics are shipped.
type Export struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

var (
	logLevels   = []string{"info", "debug", "warn", "error"}
	logFormats  = []string{"json", "console"}
	otlpFormats = []string{"grpc", "http", "http/protobuf"}
	devEnvs     = []string{"dev", "development", "local", "test"}
)

// LoadConfig normalizes the telemetry settings; unknown values fall back to
// the first allowed one and export is off without an endpoint.
func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "bizcore"
	}
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	return Config{
		ServiceName: name,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		LogLevel:    oneOf(cfg.LogLevel, logLevels),
		LogFormat:   oneOf(cfg.LogFormat, logFormats),
		Export: Export{
			Enabled:       cfg.OtelEnabled && endpoint != "",
			Endpoint:      endpoint,
			Protocol:      oneOf(cfg.OTLPProtocol, otlpFormats),
			SamplingRatio: ratio(cfg.OtelSamplingRatio),
		},
	}
}

// Debug reports whether logs should carry development detail.
func (c Config) Debug() bool {
	return c.LogLevel == "debug" || slices.Contains(devEnvs, strings.ToLower(c.Environment))
}

func oneOf(value string, allowed []string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if slices.Contains(allowed, value) {
		return value
	}
	return allowed[0]
}

func ratio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
