package server

import (
	"encoding/json"
	"net/http"
)

// Status is the body of GET /status.
type Status struct {
	Clients uint `json:"clients" yaml:"clients"`
	Running bool `json:"running" yaml:"running"`
}

// Status reports the listener count across all hubs and whether audio is
// being captured.
func (s *Server) Status() Status {
	return Status{
		Clients: uint(s.caster.Clients()),
		Running: s.caster.Control().Running(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodHead {
		return
	}
	json.NewEncoder(w).Encode(s.Status())
}
