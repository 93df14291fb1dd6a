package config

import (
	"fmt"
	"math"
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
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	AIProvider             string
	AIModel                string
	AITimeout              time.Duration
	OpenAIAPIKey           string
	ManualWeight           float64
	AIWeight               float64
	LeaderboardCacheTTL    time.Duration
	EventsChannel          string
	AIRateLimitPerMinute   int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROJECTFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "ProjectFlow API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "projectflow/submissions")
	v.SetDefault("ai.provider", "keyword")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("scoring.manual_weight", 0.7)
	v.SetDefault("scoring.ai_weight", 0.3)
	v.SetDefault("leaderboard.cache_ttl", "1m")
	v.SetDefault("events.channel", "projectflow:scoring")
	v.SetDefault("ratelimit.ai_per_minute", 5)

	aiTimeout, err := parseDuration(v.GetString("ai.timeout"), 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ai timeout: %w", err)
	}

	leaderboardTTL, err := parseDuration(v.GetString("leaderboard.cache_ttl"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid leaderboard cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		AIProvider:             strings.ToLower(strings.TrimSpace(v.GetString("ai.provider"))),
		AIModel:                v.GetString("ai.model"),
		AITimeout:              aiTimeout,
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		ManualWeight:           v.GetFloat64("scoring.manual_weight"),
		AIWeight:               v.GetFloat64("scoring.ai_weight"),
		LeaderboardCacheTTL:    leaderboardTTL,
		EventsChannel:          v.GetString("events.channel"),
		AIRateLimitPerMinute:   v.GetInt("ratelimit.ai_per_minute"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if err := cfg.validateWeights(); err != nil {
		return Config{}, err
	}

	if cfg.AIRateLimitPerMinute <= 0 {
		cfg.AIRateLimitPerMinute = 5
	}

	return cfg, nil
}

func (c Config) validateWeights() error {
	if c.ManualWeight < 0 || c.AIWeight < 0 {
		return fmt.Errorf("scoring weights must not be negative")
	}
	if sum := c.ManualWeight + c.AIWeight; math.Abs(sum-1) > 0.001 {
		return fmt.Errorf("scoring weights sum to %.4f, must sum to 1.0", sum)
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return fallback, nil
	}
	return parsed, nil
}
