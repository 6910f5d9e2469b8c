package server

import (
	"errors"
	"net/http"

	"github.com/loopcast/loopcast/pkg/buffer"
	"github.com/loopcast/loopcast/pkg/caster"
	"github.com/loopcast/loopcast/pkg/wsframe"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h := s.hub(w, caster.Opus)
	if h == nil {
		return
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	conn, err := wsframe.Upgrade(w, r)
	if err != nil {
		s.logger.Debug("server: websocket handshake", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	// The request context does not see hijacked connections close, so the
	// reader ends the subscription instead.
	sub := h.Subscribe()
	s.logger.Debug("server: listener connected", "hub", h.Name(), "id", sub.ID, "remote", r.RemoteAddr)
	defer func() {
		sub.Close()
		s.logger.Debug("server: listener disconnected", "hub", h.Name(), "id", sub.ID, "remote", r.RemoteAddr)
	}()
	go func() {
		defer sub.Close()
		if err := conn.ReadLoop(); err != nil {
			s.logger.Debug("server: websocket read", "id", sub.ID, "error", err)
		}
	}()

	for {
		p, err := sub.Next()
		if err != nil {
			if !errors.Is(err, buffer.ErrIteratorDone) {
				s.logger.Debug("server: subscription ended", "id", sub.ID, "error", err)
			}
			return
		}
		conn.SetWriteDeadline(s.deadline())
		if err := conn.WriteBinary(p.Data); err != nil {
			s.logger.Debug("server: websocket write", "id", sub.ID, "error", err)
			return
		}
		if sub.Pending() == 0 {
			if err := conn.Flush(); err != nil {
				s.logger.Debug("server: websocket flush", "id", sub.ID, "error", err)
				return
			}
		}
	}
}
