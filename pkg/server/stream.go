package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/loopcast/loopcast/pkg/audio/codec/ogg"
	"github.com/loopcast/loopcast/pkg/broadcast"
	"github.com/loopcast/loopcast/pkg/buffer"
	"github.com/loopcast/loopcast/pkg/caster"
)

func streamHeaders(w http.ResponseWriter, contentType string) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Access-Control-Allow-Origin", "*")
}

// hub returns the named hub or answers 503.
func (s *Server) hub(w http.ResponseWriter, name string) *broadcast.Hub {
	h := s.caster.Hub(name)
	if h == nil {
		http.Error(w, name+" stream unavailable", http.StatusServiceUnavailable)
	}
	return h
}

// subscribe registers a listener that ends when the request does.
func (s *Server) subscribe(r *http.Request, h *broadcast.Hub) (*broadcast.Subscriber, func()) {
	sub := h.Subscribe()
	stop := context.AfterFunc(r.Context(), sub.Close)
	s.logger.Debug("server: listener connected", "hub", h.Name(), "id", sub.ID, "remote", r.RemoteAddr)
	return sub, func() {
		stop()
		sub.Close()
		s.logger.Debug("server: listener disconnected", "hub", h.Name(), "id", sub.ID, "remote", r.RemoteAddr)
	}
}

// pump writes every packet the subscriber receives until a write fails or
// the subscription ends. Output is flushed whenever the queue runs empty.
// frame turns a packet into the bytes sent on the wire.
func (s *Server) pump(w http.ResponseWriter, sub *broadcast.Subscriber, frame func(data []byte, samples int) ([]byte, error)) {
	rc := http.NewResponseController(w)
	for {
		p, err := sub.Next()
		if err != nil {
			if !errors.Is(err, buffer.ErrIteratorDone) {
				s.logger.Debug("server: subscription ended", "id", sub.ID, "error", err)
			}
			return
		}
		b, err := frame(p.Data, p.Samples)
		if err != nil {
			s.logger.Warn("server: frame packet", "id", sub.ID, "error", err)
			continue
		}
		rc.SetWriteDeadline(s.deadline())
		if _, err := w.Write(b); err != nil {
			s.logger.Debug("server: write failed", "id", sub.ID, "error", err)
			return
		}
		if sub.Pending() == 0 {
			if err := rc.Flush(); err != nil {
				s.logger.Debug("server: flush failed", "id", sub.ID, "error", err)
				return
			}
		}
	}
}

func (s *Server) handleMP3(w http.ResponseWriter, r *http.Request) {
	h := s.hub(w, caster.MP3)
	if h == nil {
		return
	}
	streamHeaders(w, "audio/mpeg")
	if r.Method == http.MethodHead {
		return
	}
	w.WriteHeader(http.StatusOK)
	http.NewResponseController(w).Flush()

	sub, done := s.subscribe(r, h)
	defer done()

	s.pump(w, sub, func(p []byte, _ int) ([]byte, error) { return p, nil })
}

func (s *Server) handleOgg(w http.ResponseWriter, r *http.Request) {
	h := s.hub(w, caster.Opus)
	if h == nil {
		return
	}
	streamHeaders(w, "audio/ogg")
	if r.Method == http.MethodHead {
		return
	}

	serial := s.serials.Acquire()
	defer s.serials.Release(serial)
	stream := ogg.NewOpusStream(serial, s.opusChannels(), s.inputRate())

	headers, err := stream.Headers()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	rc.SetWriteDeadline(s.deadline())
	if _, err := w.Write(headers); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	sub, done := s.subscribe(r, h)
	defer done()

	s.pump(w, sub, stream.Packet)
}

func (s *Server) opusChannels() int {
	if enc := s.caster.Encoder(caster.Opus); enc != nil {
		return enc.Format().Channels
	}
	return 2
}

// inputRate is the capture rate recorded in OpusHead.
func (s *Server) inputRate() int {
	if rate := s.caster.SourceRate(); rate > 0 {
		return rate
	}
	if enc := s.caster.Encoder(caster.Opus); enc != nil {
		return enc.Format().SampleRate
	}
	return 48000
}
