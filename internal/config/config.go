package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Recognition RecognitionConfig
	R2          R2Config
	Zitadel     ZitadelConfig
	Grading     GradingConfig
	Gateway     GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	SubmitPerHour int
	GradingPerMin int
	StatusPerMin  int
}

// RecognitionConfig configures the remote OCR text-recognition service. The
// base URL is injected here, never hardcoded at a call site; PollIntervalMS
// and MaxPollAttempts bound every polling session.
type RecognitionConfig struct {
	BaseURL         string
	APIKey          string
	Timeout         int // seconds, per HTTP round-trip
	PollIntervalMS  int
	MaxPollAttempts int
	CallbackURL     string // sent with submissions; completion is still poll-driven
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GradingConfig struct {
	ConfidenceThreshold float64
}

type GatewayConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("RECOGNITION_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("recognition.base_url", "RECOGNITION_BASE_URL")
	_ = viper.BindEnv("recognition.api_key", "RECOGNITION_API_KEY")
	_ = viper.BindEnv("recognition.timeout", "RECOGNITION_TIMEOUT")
	_ = viper.BindEnv("recognition.poll_interval_ms", "RECOGNITION_POLL_INTERVAL_MS")
	_ = viper.BindEnv("recognition.max_poll_attempts", "RECOGNITION_MAX_POLL_ATTEMPTS")
	_ = viper.BindEnv("recognition.callback_url", "RECOGNITION_CALLBACK_URL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = viper.BindEnv("grading.confidence_threshold", "GRADING_CONFIDENCE_THRESHOLD")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.submit_per_hour", 120)
	viper.SetDefault("ratelimit.grading_per_min", 60)
	viper.SetDefault("ratelimit.status_per_min", 300)

	// Recognition defaults: 60 attempts at 500ms = 30s polling budget
	viper.SetDefault("recognition.base_url", "http://localhost:8090")
	viper.SetDefault("recognition.timeout", 30)
	viper.SetDefault("recognition.poll_interval_ms", 500)
	viper.SetDefault("recognition.max_poll_attempts", 60)
	viper.SetDefault("recognition.callback_url", "http://localhost/callback")

	// Grading defaults
	viper.SetDefault("grading.confidence_threshold", 0.6)

	// Gateway defaults
	viper.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
			GradingPerMin: viper.GetInt("ratelimit.grading_per_min"),
			StatusPerMin:  viper.GetInt("ratelimit.status_per_min"),
		},
		Recognition: RecognitionConfig{
			BaseURL:         viper.GetString("recognition.base_url"),
			APIKey:          viper.GetString("recognition.api_key"),
			Timeout:         viper.GetInt("recognition.timeout"),
			PollIntervalMS:  viper.GetInt("recognition.poll_interval_ms"),
			MaxPollAttempts: viper.GetInt("recognition.max_poll_attempts"),
			CallbackURL:     viper.GetString("recognition.callback_url"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Zitadel: ZitadelConfig{
			Domain:   viper.GetString("zitadel.domain"),
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
		Grading: GradingConfig{
			ConfidenceThreshold: viper.GetFloat64("grading.confidence_threshold"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
	}

	return cfg, nil
}
