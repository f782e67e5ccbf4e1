package main

import (
	"log"
	"os"
	"time"

	"github.com/existflow/sockmatch/internal/config"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/server"
)

func main() {
	config.LoadDotEnv()

	logCfg := logger.DefaultConfig()
	logCfg.FilePath = ""
	logCfg.Console = true
	if lvl := os.Getenv("SOCKMATCH_LOG_LEVEL"); lvl != "" {
		logCfg.Level = logger.ParseLevel(lvl)
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = config.DevBackendPort
	}

	ttl := 30 * time.Minute
	if raw := os.Getenv("SOCKMATCH_TOKEN_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid SOCKMATCH_TOKEN_TTL: %v", err)
		}
		ttl = d
	}

	srv := server.New(server.Options{
		JWTSecret: os.Getenv("SOCKMATCH_JWT_SECRET"),
		TokenTTL:  ttl,
	})

	logger.Info("SockMatch stub backend starting", logger.F("port", port))
	if err := srv.Start(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
