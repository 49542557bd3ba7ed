package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler exposes the settings a capture client needs
type ConfigHandler struct {
	config  *config.Config
	service *attendance.Service
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, svc *attendance.Service) *ConfigHandler {
	return &ConfigHandler{
		config:  cfg,
		service: svc,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Angles        []string `json:"angles"`
	Tolerance     float64  `json:"tolerance"`
	MatchIndex    string   `json:"match_index"`
	EncoderURL    string   `json:"encoder_url,omitempty"`
	DescriptorDim int      `json:"descriptor_dim,omitempty"`
	RosterBackend string   `json:"roster_backend"`
	LedgerBackend string   `json:"ledger_backend"`
	Today         string   `json:"today"`
}

// Get returns the public configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	index := h.config.Match.Index
	if index == "" {
		index = "exact"
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		Angles:        h.service.Angles(),
		Tolerance:     h.service.Tolerance(),
		MatchIndex:    index,
		EncoderURL:    h.config.Embedding.URL,
		DescriptorDim: h.config.Embedding.Dim,
		RosterBackend: h.config.Roster.Backend,
		LedgerBackend: h.config.Ledger.Backend,
		Today:         h.service.Today(),
	})
}
