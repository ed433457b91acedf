package dev

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/vango-dev/livedev/internal/reload"
)

// maxNotifyBody bounds the body accepted by the notify endpoint.
const maxNotifyBody = 1 << 20

// Status is the body of the status endpoint.
type Status struct {
	Clients   int      `json:"clients"`
	LastError *string  `json:"lastError"`
	Transport string   `json:"transport"`
	Rules     []string `json:"rules"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Clients:   s.hub.ClientCount(),
		Transport: s.config.Transport,
		Rules:     make([]string, 0, len(s.rules)),
	}
	if msg, ok := s.hub.LastError(); ok {
		status.LastError = &msg
	}
	for _, rule := range s.rules {
		status.Rules = append(status.Rules, rule.String())
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Warn("status write failed", "error", err)
	}
}

// handleNotify accepts a reload message from an external tool and broadcasts
// it as if a watch rule had produced it.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotifyBody))
	if err != nil {
		http.Error(w, "400 Bad Request", http.StatusBadRequest)
		return
	}

	result, err := reload.Decode(body)
	if err != nil {
		var unknown *reload.UnknownTypeError
		if stderrors.As(err, &unknown) {
			s.logger.Warn("Reload failed (bad type "+unknown.Type+")", "type", unknown.Type)
		} else {
			s.logger.Warn("malformed notify message", "error", err)
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.publish(r.Context(), result)
	w.WriteHeader(http.StatusAccepted)
}
