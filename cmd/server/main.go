package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/geotutor/geotutor/backend-go/internal/auth"
	"github.com/geotutor/geotutor/backend-go/internal/collab"
	"github.com/geotutor/geotutor/backend-go/internal/config"
	"github.com/geotutor/geotutor/backend-go/internal/lesson"
	mw "github.com/geotutor/geotutor/backend-go/internal/middleware"
)

const janitorInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	baseURL := lesson.BaseURL(cfg.PublicBaseURL, cfg.Port)
	lessonService := lesson.NewService(authService, lesson.Options{
		BaseURL:     baseURL,
		QRSize:      cfg.QRSize,
		MaxSessions: cfg.MaxSessions,
		IdleTTL:     cfg.SessionIdleTTL,
	})
	lessonHandler := lesson.NewHandler(lessonService)

	// The hub resolves rooms through the lesson registry
	hub := collab.NewHub(lessonService.Load)
	lessonService.SetNotifier(hub)
	go hub.Run(ctx)
	go lessonService.RunJanitor(ctx, janitorInterval)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, lessonService.Count())
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	lessonHandler.Mount(api, authService)

	// Token routes
	tokens := api.PathPrefix("/auth").Subrouter()
	tokens.Use(authService.AuthMiddleware)
	tokens.HandleFunc("/refresh", authHandler.Refresh).Methods("POST")
	tokens.HandleFunc("/me", authHandler.Me).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, lessonService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r), // outside the router so preflights never hit a 405
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so websocket clients get closed cleanly
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "join", baseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, lessons *lesson.Service, origins []string) {
	sessionID := mux.Vars(r)["id"]

	// Browsers cannot set headers on websocket requests, so the token rides
	// in the query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if err := auth.Authorize(claims, sessionID, auth.RoleViewer); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if _, err := lessons.Load(sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	displayName := r.URL.Query().Get("name")
	if displayName == "" {
		displayName = string(claims.Role)
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(origins),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, claims, displayName, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
