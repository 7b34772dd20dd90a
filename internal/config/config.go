package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	NATSSubject            string
	JWTSecret              string
	JWTTTL                 time.Duration
	CredentialsKey         string
	CredentialsTTL         time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadDir              string
	UploadPublicURL        string
	UploadMaxMB            int
	SendGridAPIKey         string
	MailFrom               string
	DashboardCacheTTL      time.Duration
	NotificationWorkers    int
	AdminUsername          string
	AdminPassword          string
	AllowedOrigins         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production safeguards.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// CloudinaryEnabled reports whether every Cloudinary credential is present.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Acompanha API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("nats.subject", "acompanha.notifications")
	v.SetDefault("jwt.ttl", "12h")
	v.SetDefault("credentials.ttl", "1h")
	v.SetDefault("cloudinary.folder", "acompanha/evaluations")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.public_url", "/uploads")
	v.SetDefault("upload.max_mb", 16)
	v.SetDefault("mail.from", "nao-responda@acompanha.local")
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("notification.workers", 2)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("cors.allowed_origins", "*")

	jwtTTL, err := parseDuration(v, "jwt.ttl")
	if err != nil {
		return Config{}, err
	}
	credentialsTTL, err := parseDuration(v, "credentials.ttl")
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := parseDuration(v, "dashboard.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubject:            v.GetString("nats.subject"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTTTL:                 jwtTTL,
		CredentialsKey:         v.GetString("credentials.key"),
		CredentialsTTL:         credentialsTTL,
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadDir:              v.GetString("upload.dir"),
		UploadPublicURL:        v.GetString("upload.public_url"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		SendGridAPIKey:         v.GetString("sendgrid.api_key"),
		MailFrom:               v.GetString("mail.from"),
		DashboardCacheTTL:      cacheTTL,
		NotificationWorkers:    v.GetInt("notification.workers"),
		AdminUsername:          strings.ToLower(strings.TrimSpace(v.GetString("admin.username"))),
		AdminPassword:          v.GetString("admin.password"),
		AllowedOrigins:         v.GetString("cors.allowed_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.IsProduction() && cfg.CredentialsKey == "" {
		return Config{}, fmt.Errorf("credentials key must be provided in production")
	}
	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 16
	}
	if cfg.NotificationWorkers <= 0 {
		cfg.NotificationWorkers = 1
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
