package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string

	OTLPEndpoint      string
	OTLPProtocol      string
	OtelEnabled       bool
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthJWTSecret        string
	AuthJWTIssuer        string
	AuthAccessTokenTTL   time.Duration
	AuthRefreshTokenTTL  time.Duration
	AuthPasswordResetTTL time.Duration
	// AuthPasswordResetURL is the reset page; the token is appended as ?token=.
	AuthPasswordResetURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// PaymentWebhookSecrets maps a gateway name to its webhook signing secret.
	PaymentWebhookSecrets map[string]string

	TunablesPath string

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	SchedulerJobs     []string

	// BootstrapAdminEmail, when set, seeds a staff account on startup.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// Load loads configuration from the environment, a .env file and an optional config.yml.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/bizcore")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The OpenTelemetry SDK names win over the short ones when both are set.
	_ = v.BindEnv("OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTLP_ENDPOINT")
	_ = v.BindEnv("OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL", "OTLP_PROTOCOL")
	_ = v.BindEnv("ENVIRONMENT", "DEPLOYMENT_ENV", "ENVIRONMENT")
	setDefaults(v)
	_ = v.ReadInConfig()

	environment := v.GetString("ENVIRONMENT")

	cfg := Config{
		AppName:            v.GetString("APP_SERVICE"),
		AppVersion:         v.GetString("APP_VERSION"),
		Environment:        environment,
		HTTPAddr:           v.GetString("HTTP_ADDR"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		OTLPEndpoint:      v.GetString("OTLP_ENDPOINT"),
		OTLPProtocol:      v.GetString("OTLP_PROTOCOL"),
		OtelEnabled:       v.GetBool("OTEL_ENABLED"),
		OtelSamplingRatio: v.GetFloat64("OTEL_SAMPLING_RATIO"),

		DBType:            v.GetString("DATABASE_TYPE"),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetInt("DATABASE_CONN_MAX_IDLE_TIME"),

		RedisAddr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		AuthJWTSecret:        strings.TrimSpace(v.GetString("AUTH_JWT_SECRET")),
		AuthJWTIssuer:        v.GetString("AUTH_JWT_ISSUER"),
		AuthAccessTokenTTL:   v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
		AuthRefreshTokenTTL:  v.GetDuration("AUTH_REFRESH_TOKEN_TTL"),
		AuthPasswordResetTTL: v.GetDuration("AUTH_PASSWORD_RESET_TTL"),
		AuthPasswordResetURL: strings.TrimSpace(v.GetString("AUTH_PASSWORD_RESET_URL")),

		SMTPHost:     strings.TrimSpace(v.GetString("SMTP_HOST")),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		SMTPFrom:     v.GetString("SMTP_FROM"),

		PaymentWebhookSecrets: map[string]string{},

		TunablesPath: strings.TrimSpace(v.GetString("TUNABLES_PATH")),

		SchedulerEnabled:  v.GetBool("SCHEDULER_ENABLED"),
		SchedulerInterval: v.GetDuration("SCHEDULER_INTERVAL"),
		SchedulerJobs:     splitList(v.GetString("SCHEDULER_JOBS")),

		BootstrapAdminEmail:    strings.TrimSpace(v.GetString("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
	}
	for _, provider := range webhookProviders {
		if secret := strings.TrimSpace(v.GetString("PAYMENT_WEBHOOK_SECRET_" + strings.ToUpper(provider))); secret != "" {
			cfg.PaymentWebhookSecrets[provider] = secret
		}
	}

	return cfg
}

var webhookProviders = []string{"stripe", "paypal", "mercadopago", "other"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_SERVICE", "bizcore")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "bizcore")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 10)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 50)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 1800)
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", 300)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_JWT_SECRET", "change-me-in-production")
	v.SetDefault("AUTH_JWT_ISSUER", "bizcore")
	v.SetDefault("AUTH_ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("AUTH_REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("AUTH_PASSWORD_RESET_TTL", "1h")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@bizcore.local")

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", "1h")
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
