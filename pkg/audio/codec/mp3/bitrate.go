package mp3

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedBitrate is returned for bitrates outside the Bitrate set.
var ErrUnsupportedBitrate = errors.New("mp3: unsupported bitrate")

// Bitrate is a constant bitrate in kbit/s.
type Bitrate int

// Supported bitrates.
const (
	Bitrate64  Bitrate = 64
	Bitrate96  Bitrate = 96
	Bitrate128 Bitrate = 128
	Bitrate160 Bitrate = 160
	Bitrate192 Bitrate = 192
	Bitrate256 Bitrate = 256
	Bitrate320 Bitrate = 320

	DefaultBitrate = Bitrate192
)

// Bitrates lists every supported Bitrate in ascending order.
var Bitrates = []Bitrate{
	Bitrate64, Bitrate96, Bitrate128, Bitrate160, Bitrate192, Bitrate256, Bitrate320,
}

// ParseBitrate validates kbps against the supported set.
func ParseBitrate(kbps int) (Bitrate, error) {
	for _, b := range Bitrates {
		if int(b) == kbps {
			return b, nil
		}
	}
	names := make([]string, len(Bitrates))
	for i, b := range Bitrates {
		names[i] = strconv.Itoa(int(b))
	}
	return 0, fmt.Errorf("%w: %d kbps (want one of %s)", ErrUnsupportedBitrate, kbps, strings.Join(names, ", "))
}

// String returns the bitrate as "192kbps".
func (b Bitrate) String() string {
	return strconv.Itoa(int(b)) + "kbps"
}
