package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	// Slim container and Lambda images ship without /usr/share/zoneinfo.
	_ "time/tzdata"

	"sst-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	S3Endpoint      string
	MaxUploadBytes  int64

	ApproverRole        string
	AppBaseURL          string
	SignatureTimezone   string
	DocumentCatalogPath string

	Mail   MailConfig
	Notify NotifyConfig
}

// MailConfig selects and configures the email transport.
type MailConfig struct {
	Transport      string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
	Timeout        time.Duration
}

// NotifyConfig sizes the email dispatcher and the SQS worker.
type NotifyConfig struct {
	Workers     int
	QueueSize   int
	SQSQueueURL string

	// Worker-side settings, used only by cmd/worker.
	PollWaitSeconds int32
	MaxReceives     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		DatabaseURL:     dbURL,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("UPLOADS_DIR", getEnv("LOCAL_STORE_DIR", "./data")),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		ApproverRole:        strings.ToLower(getEnv("APPROVER_ROLE", "admin")),
		AppBaseURL:          strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
		SignatureTimezone:   getEnv("SIGNATURE_TIMEZONE", "America/Bogota"),
		DocumentCatalogPath: getEnv("DOCUMENT_CATALOG_PATH", ""),

		Mail: MailConfig{
			Transport:      normalizeMailTransport(getEnv("MAIL_TRANSPORT", "log")),
			From:           getEnv("MAIL_FROM", "no-reply@localhost"),
			FromName:       getEnv("MAIL_FROM_NAME", "SST"),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       int(getEnvInt64("SMTP_PORT", 587)),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			Timeout:        getEnvDuration("MAIL_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			Workers:     int(getEnvInt64("NOTIFY_WORKERS", 2)),
			QueueSize:   int(getEnvInt64("NOTIFY_QUEUE_SIZE", 100)),
			SQSQueueURL: getEnv("NOTIFY_SQS_QUEUE_URL", ""),

			PollWaitSeconds: int32(getEnvInt64("NOTIFY_POLL_WAIT_SECONDS", 20)),
			MaxReceives:     int(getEnvInt64("NOTIFY_MAX_RECEIVES", 5)),
		},
	}
}

// Location resolves SignatureTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SignatureTimezone)
	if err != nil {
		telemetry.Warn("config.timezone_invalid", map[string]any{"timezone": c.SignatureTimezone, "error": err})
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeMailTransport(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "smtp":
		return "smtp"
	case "sendgrid":
		return "sendgrid"
	default:
		return "log"
	}
}
