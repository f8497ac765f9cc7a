package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"lmsr-amm/internal/config"
)

// Server runs the HTTP and WebSocket API over a MarketService.
type Server struct {
	cfg      config.ServerConfig
	svc      MarketService
	hub      *Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg config.ServerConfig, svc MarketService, logger *slog.Logger) *Server {
	hub := NewHub(logger)
	handlers := NewHandlers(svc, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("POST /api/markets", handlers.HandleCreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.HandleListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.HandleGetMarket)
	mux.HandleFunc("GET /api/markets/{id}/quote", handlers.HandleQuote)
	mux.HandleFunc("POST /api/markets/{id}/buy", handlers.HandleBuy)
	mux.HandleFunc("POST /api/markets/{id}/sell", handlers.HandleSell)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.HandleResolve)
	mux.HandleFunc("POST /api/markets/{id}/redeem", handlers.HandleRedeem)
	mux.HandleFunc("GET /ws", handlers.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		svc:      svc,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the API server and hub. Blocks until the server exits.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.consumeEvents()

	s.logger.Info("api server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping api server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// consumeEvents forwards engine events to the hub. Services that don't
// expose a stream simply don't feed the hub.
func (s *Server) consumeEvents() {
	streamer, ok := s.svc.(interface {
		StreamEvents() <-chan StreamEvent
	})
	if !ok {
		return
	}
	for evt := range streamer.StreamEvents() {
		s.hub.BroadcastEvent(evt)
	}
}
