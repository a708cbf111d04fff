// Package api exposes the extraction and reconciliation boundary over HTTP.
// It owns no matching logic: uploads are parsed, handed to the schedule and
// reconcile packages, and results parked in the token store for download.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/spotaudit/spotaudit/internal/reconcile"
	"github.com/spotaudit/spotaudit/internal/store"
)

// maxUploadBytes bounds multipart parsing; single-campaign workbooks are
// small.
const maxUploadBytes = 32 << 20

// Server handles the HTTP boundary.
type Server struct {
	store  store.Store
	engine *reconcile.Engine
}

// New creates a Server.
func New(st store.Store, engine *reconcile.Engine) *Server {
	return &Server{store: st, engine: engine}
}

// Router builds the chi router for the API.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/schedule/sheets", s.handleListSheets)
		r.Post("/extract", s.handleExtract)
		r.Get("/extract/download/{token}", s.handleExtractDownload)
		r.Post("/monitor", s.handleMonitor)
		r.Get("/monitor/download/{jobID}/{which}", s.handleMonitorDownload)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAttachment(w http.ResponseWriter, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		zap.L().Error("api: write attachment", zap.Error(err))
	}
}
