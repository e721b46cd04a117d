package server

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/54b3r/rockybot-go/internal/logging"
)

// indexHTML is the single-page browser UI. It only calls the JSON routes.
//
//go:embed ui/index.html
var indexHTML []byte

// handleIndex handles GET / and serves the browser UI.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(indexHTML); err != nil {
		logging.FromContext(r.Context()).Debug("index write error", slog.Any("error", err))
	}
}
