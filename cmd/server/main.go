package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/gridwire/gridwire/internal/auth"
	"github.com/gridwire/gridwire/internal/config"
	"github.com/gridwire/gridwire/internal/export"
	mw "github.com/gridwire/gridwire/internal/middleware"
	"github.com/gridwire/gridwire/internal/session"
	"github.com/gridwire/gridwire/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.New(pool)

	authService := auth.NewService(cfg.JWTSecret, cfg.AccessKeyHash)
	authHandler := auth.NewHandler(authService)

	hub := session.NewHub(st, st, st)
	go hub.Run()

	diagramHandler := newDiagramHandler(st)
	exportHandler := export.NewHandler(st)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS)

	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/diagrams", diagramHandler.list).Methods("GET")
	api.HandleFunc("/diagrams", diagramHandler.create).Methods("POST")
	api.HandleFunc("/diagrams/{diagramId}", diagramHandler.get).Methods("GET")
	api.HandleFunc("/diagrams/{diagramId}/export.svg", exportHandler.ExportSVG).Methods("GET")

	r.HandleFunc("/ws/diagram/{diagramId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, st)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every open session flushes its pending
		// mutations and snapshots before connections drop.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, st *store.Store) {
	vars := mux.Vars(r)
	diagramID := vars["diagramId"]

	// Auth via query param; browsers cannot set headers on the upgrade
	// request.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	if _, err := authSvc.ValidateToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := st.GetDiagram(r.Context(), diagramID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "diagram not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:5173", "localhost:3000"},
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, diagramID, clientID)

	hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

type diagramHandler struct {
	store *store.Store
}

func newDiagramHandler(st *store.Store) *diagramHandler {
	return &diagramHandler{store: st}
}

type createDiagramRequest struct {
	Name string `json:"name"`
}

func (h *diagramHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	info, err := h.store.CreateDiagram(r.Context(), req.Name)
	if err != nil {
		slog.Error("create diagram", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *diagramHandler) list(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.ListDiagrams(r.Context())
	if err != nil {
		slog.Error("list diagrams", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if infos == nil {
		infos = []store.DiagramInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *diagramHandler) get(w http.ResponseWriter, r *http.Request) {
	diagramID := mux.Vars(r)["diagramId"]

	info, err := h.store.GetDiagram(r.Context(), diagramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "diagram not found"})
			return
		}
		slog.Error("get diagram", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
