// cmd/admissiond is the application entry point. It wires together all
// layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gatherup/admission/internal/config"
	"github.com/gatherup/admission/internal/database"
	"github.com/gatherup/admission/internal/handler"
	"github.com/gatherup/admission/internal/repository"
	"github.com/gatherup/admission/internal/service"
	"github.com/gatherup/admission/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Pick the store ────────────────────────────────────────────────
	var st store.Store
	switch cfg.Driver {
	case "memory":
		log.Println("using the in-memory store; nothing will survive a restart")
		st = store.NewMemory()
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("connected to postgres")
		st = repository.New(pool)
	default:
		log.Fatalf("unknown DB_DRIVER %q", cfg.Driver)
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	svc := service.New(st, cfg)
	h := handler.New(svc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/events/{id}", func(r chi.Router) {
		r.Get("/availability", h.GetAvailability)

		r.Group(func(r chi.Router) {
			r.Use(handler.Auth(cfg.JWTSecret))
			r.Use(handler.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

			r.Post("/requests", h.CreateRequest)
			r.Get("/requests", h.ListRequests)
			r.Route("/requests/{reqID}", func(r chi.Router) {
				r.Get("/", h.GetRequest)
				r.Post("/approve", h.Approve)
				r.Post("/decline", h.Decline)
				r.Post("/waitlist", h.Waitlist)
				r.Post("/cancel", h.Cancel)
				r.Post("/extend", h.ExtendHold)
			})
		})
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
