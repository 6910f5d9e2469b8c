package cli

import (
	"fmt"
	"strconv"
)

// FormatRate formats a sample rate, e.g. 44100 as "44.1 kHz"
func FormatRate(hz float64) string {
	if hz < 1000 {
		return fmt.Sprintf("%.0f Hz", hz)
	}
	return strconv.FormatFloat(hz/1000, 'f', -1, 64) + " kHz"
}

// FormatLatency formats a latency given in seconds
func FormatLatency(seconds float64) string {
	return fmt.Sprintf("%.1fms", seconds*1000)
}

// FormatBool renders a flag as yes or no
func FormatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
