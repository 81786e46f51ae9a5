package observability

import (
	"github.com/smallbiznis/bizcore/internal/observability/logger"
	"github.com/smallbiznis/bizcore/internal/observability/metrics"
	"github.com/smallbiznis/bizcore/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the global tracer provider and the
// business and HTTP metrics, all configured from one Config.
var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		Config.loggerConfig,
		Config.tracingConfig,
		Config.metricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// Nothing else asks for the tracer provider; it still has to be built
	// to register itself globally.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func (c Config) loggerConfig() logger.Config {
	debug := c.Debug()
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		Debug:               debug,
		IncludeCaller:       true,
		IncludeStackOnError: debug,
	}
}

func (c Config) tracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:          c.Export.Enabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.Export.Endpoint,
		ExporterProtocol: c.Export.Protocol,
		SamplingRatio:    c.Export.SamplingRatio,
	}
}

func (c Config) metricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:          c.Export.Enabled,
		ExporterEndpoint: c.Export.Endpoint,
		ExporterProtocol: c.Export.Protocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
