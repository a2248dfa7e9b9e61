package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string

	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string
	AWSAccessKey     string
	AWSSecretKey     string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string

	AnthropicAPIKey string
	AnthropicModel  string
}

func Load() Config {
	// Local development reads a .env file; deployed environments set real
	// env vars and have no file, which is not an error.
	_ = godotenv.Load()

	return Config{
		Port:        envInt("CANVASS_PORT", 8760),
		NatsURL:     envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		LiveKitURL:       envStr("LIVEKIT_URL", ""),
		LiveKitAPIKey:    envStr("LIVEKIT_API_KEY", ""),
		LiveKitAPISecret: envStr("LIVEKIT_API_SECRET", ""),
		AWSAccessKey:     envStr("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     envStr("AWS_SECRET_ACCESS_KEY", ""),
		AWSRegion:        envStr("AWS_REGION", "us-east-1"),
		S3Bucket:         envStr("S3_RECORDING_BUCKET", ""),
		S3Prefix:         envStr("S3_RECORDING_PREFIX", "canvass"),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("CANVASS_MODEL", "claude-sonnet-4-20250514"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
