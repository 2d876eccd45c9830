package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ServicerFeed/internal/logger"
	"ServicerFeed/internal/manifest"

	"github.com/gorilla/mux"
)

const defaultManifestLimit = 50

// Server exposes the operational endpoints used in scheduled mode: a health
// probe and a read-only view of the ingestion manifest.
type Server struct {
	db     *sql.DB
	ledger *manifest.Ledger
}

func NewServer(db *sql.DB, ledger *manifest.Ledger) *Server {
	return &Server{db: db, ledger: ledger}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/manifest", s.handleManifest).Methods(http.MethodGet)
	return r
}

// Start runs the HTTP listener in the background and returns the server so
// the caller can shut it down.
func (s *Server) Start(addr string) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Audit("ops server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server: %v", err)
		}
	}()
	return srv
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	limit := defaultManifestLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.ledger.List(r.Context(), limit)
	if err != nil {
		logger.Error("manifest list: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read manifest"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
