package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig carries the service-level settings.
type AppConfig struct {
	Port            string
	BrandName       string
	BadgeURL        string
	TrackingBaseURL string
	PublicBaseURL   string
	CORSOrigins     []string
	SweepInterval   time.Duration
	RBACPolicyPath  string
	SigningKey      []byte
}

func NewAppConfig() *AppConfig {
	interval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1m"))
	if err != nil || interval <= 0 {
		interval = time.Minute
	}
	public := strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/")
	signing := os.Getenv("ATTACHMENT_SIGNING_KEY")
	if signing == "" {
		signing = os.Getenv("JWT_KEY")
	}
	return &AppConfig{
		Port:            getEnv("PORT", "8080"),
		BrandName:       getEnv("BRAND_NAME", "CampusNotify"),
		BadgeURL:        os.Getenv("EMAIL_BADGE_URL"),
		TrackingBaseURL: strings.TrimRight(getEnv("TRACKING_BASE_URL", public), "/"),
		PublicBaseURL:   public,
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		SweepInterval:   interval,
		RBACPolicyPath:  os.Getenv("RBAC_POLICY"),
		SigningKey:      []byte(signing),
	}
}

// PushConfig holds Firebase Cloud Messaging credentials.
type PushConfig struct {
	ProjectID       string
	CredentialsJSON []byte
	ServerKey       string
}

func NewPushConfig() *PushConfig {
	creds := []byte(os.Getenv("FCM_CREDENTIALS_JSON"))
	if path := os.Getenv("FCM_CREDENTIALS_FILE"); len(creds) == 0 && path != "" {
		if b, err := os.ReadFile(path); err == nil {
			creds = b
		}
	}
	return &PushConfig{
		ProjectID:       os.Getenv("FCM_PROJECT_ID"),
		CredentialsJSON: creds,
		ServerKey:       os.Getenv("FCM_SERVER_KEY"),
	}
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string
	Format string
}

func NewLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
