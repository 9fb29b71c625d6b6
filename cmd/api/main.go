package main

import (
	"context"
	"log"
	"time"

	"foodassist-backend/internal/bootstrap"
	"foodassist-backend/internal/shared/config"
	"foodassist-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Orchestrator.Shutdown()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := app.Orchestrator.Initialize(ctx); err != nil {
			log.Printf("engine initialization failed: %v", err)
		}
	}()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
