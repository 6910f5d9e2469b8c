package opus

import (
	"errors"
	"fmt"
)

// ErrUnsupportedBitrate is returned for bitrates outside the libopus range.
var ErrUnsupportedBitrate = errors.New("opus: unsupported bitrate")

// Bitrate is a target bitrate in kbit/s.
type Bitrate int

// Bitrate bounds accepted by libopus.
const (
	MinBitrate Bitrate = 6
	MaxBitrate Bitrate = 510

	// DefaultBitrate suits stereo music.
	DefaultBitrate Bitrate = 128
)

// ParseBitrate validates kbps.
func ParseBitrate(kbps int) (Bitrate, error) {
	b := Bitrate(kbps)
	if b < MinBitrate || b > MaxBitrate {
		return 0, fmt.Errorf("%w: %d kbps (want %d..%d)", ErrUnsupportedBitrate, kbps, MinBitrate, MaxBitrate)
	}
	return b, nil
}

// BitsPerSecond returns the rate in bit/s as libopus expects it.
func (b Bitrate) BitsPerSecond() int {
	return int(b) * 1000
}
