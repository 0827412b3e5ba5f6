package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"

	"tutor.chat/config"
	"tutor.chat/dispatch"
	"tutor.chat/providers"
	"tutor.chat/session"
	"tutor.chat/speech"
	"tutor.chat/store"
)

func main() {
	if JWTSecret == "" {
		log.Fatal("[main] JWT_SECRET must be set")
	}
	jwtSecret = []byte(JWTSecret)

	cfg, err := config.Load(ProvidersConfigPath)
	if err != nil {
		log.Fatalf("[main] Provider config: %v", err)
	}
	providerChain = cfg.Chain()
	llm = dispatch.New(providers.NewOpenAIProvider(),
		dispatch.WithAttemptTimeout(cfg.AttemptTimeout(dispatch.DefaultAttemptTimeout)),
		dispatch.WithRateLimitDelay(cfg.RateLimitDelay(dispatch.DefaultRateLimitDelay)),
	)
	log.Printf("[main] Fallback chain has %d provider(s), primary %s", len(providerChain), providerChain[0].Model)

	linkStore, err = store.Open(DatabasePath)
	if err != nil {
		log.Fatalf("[main] Database: %v", err)
	}
	defer linkStore.Close()

	switch SessionBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: RedisAddr, Password: RedisPassword})
		sessions, err = session.NewStore(session.StoreTypeRedis, session.WithRedisClient(client))
	default:
		sessions, err = session.NewStore(session.StoreTypeMemory)
	}
	if err != nil {
		log.Fatalf("[main] Session store: %v", err)
	}
	defer sessions.Close()
	log.Printf("[main] Session backend: %s", SessionBackend)

	speechClient = speech.New(SpeechAPIURL, SpeechAPIKey, speech.WithVoice(SpeechVoice))

	if err := initAuditDB(AuditDBPath); err != nil {
		log.Fatalf("[main] Audit database: %v", err)
	}

	startRateLimitJanitor()

	addr := fmt.Sprintf(":%d", HTTPPort)
	log.Printf("[main] Listening on %s", addr)
	if err := http.ListenAndServe(addr, newMux()); err != nil {
		log.Fatalf("[main] HTTP server: %v", err)
	}
}
