package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for testing godotenv.Load.
var loadDotEnv = func() error { return godotenv.Load() }

// parseEnv overlays values from the process environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win over it. Unset or empty variables keep the current value.
// Malformed numbers or durations panic, like a broken JSON file does.
func parseEnv(config *Config) {
	_ = loadDotEnv()

	config.EndpointAddrGRPC = envString("GRPC_ADDRESS", config.EndpointAddrGRPC)
	config.DatabaseDSN = envString("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = envString("SECRET_KEY", config.SecretKey)
	config.SessionTTL = envDuration("SESSION_TTL", config.SessionTTL)
	config.BcryptCost = int(envInt("BCRYPT_COST", int64(config.BcryptCost)))
	config.DefaultVisionTokens = envInt("DEFAULT_VISION_TOKENS", config.DefaultVisionTokens)
	config.ResetTokenTTL = envDuration("RESET_TOKEN_TTL", config.ResetTokenTTL)
	config.LogLevel = envString("LOG_LEVEL", config.LogLevel)
	config.LogFormat = envString("LOG_FORMAT", config.LogFormat)
	config.SentryDSN = envString("SENTRY_DSN", config.SentryDSN)
	config.S3AccessKey = envString("S3_ACCESS_KEY", config.S3AccessKey)
	config.S3SecretKey = envString("S3_SECRET_KEY", config.S3SecretKey)
	config.S3Bucket = envString("S3_BUCKET", config.S3Bucket)
	config.S3Region = envString("S3_REGION", config.S3Region)
	config.S3BaseEndpoint = envString("S3_ENDPOINT", config.S3BaseEndpoint)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		panic(fmt.Errorf("invalid %s=%q: %w", key, v, err))
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("invalid %s=%q: %w", key, v, err))
	}
	return d
}
