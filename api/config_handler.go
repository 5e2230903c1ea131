package api

import (
	"net/http"

	"github.com/seenimoa/smartreviewer/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/config.
type ConfigResponse struct {
	Config config.Config      `json:"config"`
	Keys   []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration with secrets
// masked, along with the status of each API key.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config: config.Redacted(s.cfg),
			Keys:   config.CheckAPIKeys(s.cfg),
		},
	})
}
