package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/config"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/httpserver"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/resolver"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/session"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/store"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/utterance"
	"github.com/LennoxSears/dulaan-backend-sub001/internal/vad"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()
	ctx := context.Background()

	var res resolver.Resolver
	if cfg.GeminiAPIKey != "" {
		gem, err := resolver.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini resolver: %v", err)
		}
		res = gem
		log.Printf("resolver: gemini model=%s", cfg.GeminiModel)
	} else {
		res = resolver.NewHTTPClient(cfg.ResolverURL, cfg.ResolverAPIKey)
		log.Printf("resolver: http endpoint=%s", cfg.ResolverURL)
	}

	var st store.Store
	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres store: %v", err)
		}
		st = pg
		defer pg.Close()
		log.Println("persistence: postgres")
	}

	mgr := session.NewManager(res, st, session.Config{
		VAD: vad.Config{
			Margin:       cfg.VADMargin,
			Decay:        cfg.VADDecay,
			FloorRMS:     cfg.VADFloorRMS,
			WarmupFrames: cfg.VADWarmupFrames,
		},
		Assembler: utterance.Config{
			SilenceTimeout: cfg.SilenceTimeout,
			MaxDuration:    cfg.MaxUtterance,
		},
		ResolverTimeout: cfg.ResolverTimeout,
		MinConfidence:   cfg.MinConfidence,
		HistoryWindow:   cfg.HistoryWindow,
		LanguageCode:    cfg.LanguageCode,
	})

	srv := httpserver.New(mgr)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	mgr.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
