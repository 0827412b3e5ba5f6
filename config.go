package main

import (
	"log"
	"os"
	"strconv"
)

// Server configuration, loaded from the environment (after 00_init.go has
// applied .env). Everything has a local-development default except JWT_SECRET,
// which main refuses to run without.
var (
	HTTPPort = 8080

	// DatabasePath holds accounts and lesson links.
	DatabasePath = "./tutor.db"

	// AuditDBPath receives one row per completed model exchange. Empty
	// disables auditing.
	AuditDBPath = ""

	// ProvidersConfigPath is the YAML fallback-chain definition.
	ProvidersConfigPath = "./providers.yaml"

	// SessionBackend is "memory" (single instance) or "redis".
	SessionBackend = "memory"
	RedisAddr      = "localhost:6379"
	RedisPassword  = ""

	JWTSecret = ""

	SpeechAPIURL = ""
	SpeechAPIKey = ""
	SpeechVoice  = "alloy"

	// Chat endpoints are rate limited per client IP.
	RateLimitRPS   = 1.0
	RateLimitBurst = 5
)

func init() {
	HTTPPort = getEnvInt("HTTP_PORT", HTTPPort)
	DatabasePath = getEnv("DATABASE_PATH", DatabasePath)
	AuditDBPath = getEnv("AUDIT_DB_PATH", AuditDBPath)
	ProvidersConfigPath = getEnv("PROVIDERS_CONFIG", ProvidersConfigPath)
	SessionBackend = getEnv("SESSION_BACKEND", SessionBackend)
	RedisAddr = getEnv("REDIS_ADDR", RedisAddr)
	RedisPassword = getEnv("REDIS_PASSWORD", RedisPassword)
	JWTSecret = getEnv("JWT_SECRET", JWTSecret)
	SpeechAPIURL = getEnv("SPEECH_API_URL", SpeechAPIURL)
	SpeechAPIKey = getEnv("SPEECH_API_KEY", SpeechAPIKey)
	SpeechVoice = getEnv("SPEECH_VOICE", SpeechVoice)
	RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", RateLimitRPS)
	RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", RateLimitBurst)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] Invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
