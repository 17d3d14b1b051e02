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
	AllowOrigins           string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	NATSURL                string
	NATSStageSubject       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	TaskCacheTTL           time.Duration
	UploadMaxMB            int
	OpenAIAPIKey           string
	OpenAIBaseURL          string
	OpenAIModel            string
	OpenAIMaxTokens        int
	OpenAITemperature      float64
	JudgeTimeout           time.Duration
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
	v.SetEnvPrefix("REVIZOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Revizor API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.allow_origins", "*")
	v.SetDefault("nats.stage_subject", "revizor.review.stage")
	v.SetDefault("cloudinary.folder", "revizor/submissions")
	v.SetDefault("task.cache_ttl", "5m")
	v.SetDefault("upload.max_mb", 16)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("judge.timeout", "90s")

	ttl, err := time.ParseDuration(v.GetString("task.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid task cache ttl: %w", err)
	}

	judgeTimeout, err := time.ParseDuration(v.GetString("judge.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid judge timeout: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		AllowOrigins:           v.GetString("app.allow_origins"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		NATSURL:                v.GetString("nats.url"),
		NATSStageSubject:       v.GetString("nats.stage_subject"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		TaskCacheTTL:           ttl,
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIBaseURL:          v.GetString("openai.base_url"),
		OpenAIModel:            v.GetString("openai.model"),
		OpenAIMaxTokens:        v.GetInt("openai.max_tokens"),
		OpenAITemperature:      v.GetFloat64("openai.temperature"),
		JudgeTimeout:           judgeTimeout,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 16
	}

	return cfg, nil
}
