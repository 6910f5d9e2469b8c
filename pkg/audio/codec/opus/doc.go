// Package opus provides Opus encoding via libopus (cgo) plus the packet
// inspection helpers needed to frame Opus in containers.
//
// Encoders always run at 48 kHz, the native Opus rate, with a fixed frame
// duration chosen at construction. Bitrate and frame duration are closed
// value sets validated by ParseBitrate and ParseFrameDuration.
//
// For go build: requires libopus discoverable through pkg-config.
package opus
