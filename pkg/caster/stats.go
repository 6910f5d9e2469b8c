package caster

import "sync/atomic"

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// BlocksDropped counts capture blocks evicted because encoding fell
	// behind.
	BlocksDropped int64 `json:"blocks_dropped" yaml:"blocks_dropped"`
	// FramesEncoded counts frames accepted by any encoder.
	FramesEncoded uint64 `json:"frames_encoded" yaml:"frames_encoded"`
	// EncodeErrors counts frames that failed to convert or encode.
	EncodeErrors uint64 `json:"encode_errors" yaml:"encode_errors"`
	// PacketsBroadcast counts packets the hubs have fanned out.
	PacketsBroadcast uint64 `json:"packets_broadcast" yaml:"packets_broadcast"`
	// Deliveries counts packets queued to listeners across all hubs.
	Deliveries uint64 `json:"deliveries" yaml:"deliveries"`
	// PeakClients is the highest listener count seen on any one hub.
	PeakClients int `json:"peak_clients" yaml:"peak_clients"`
	// Reopens counts source opens after the first.
	Reopens uint64 `json:"reopens" yaml:"reopens"`
}

type counters struct {
	dropped       atomic.Int64
	framesEncoded atomic.Uint64
	encodeErrors  atomic.Uint64
	reopens       atomic.Uint64
}

// Stats returns the current counters.
func (c *Caster) Stats() Stats {
	st := Stats{
		BlocksDropped: c.stats.dropped.Load(),
		FramesEncoded: c.stats.framesEncoded.Load(),
		EncodeErrors:  c.stats.encodeErrors.Load(),
		Reopens:       c.stats.reopens.Load(),
	}
	for _, h := range c.hubs {
		st.PacketsBroadcast += h.Packets()
		st.Deliveries += h.Deliveries()
		st.PeakClients = max(st.PeakClients, h.Peak())
	}
	return st
}
