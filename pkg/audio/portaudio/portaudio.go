// Package portaudio provides Go bindings for the PortAudio capture API.
//
// This package uses CGO and requires portaudio installed via pkg-config
// (brew install portaudio, apt install portaudio19-dev). Loopback capture
// works by opening a device that exposes the system mix as an input, such
// as a PulseAudio ".monitor" source or a virtual loopback driver.
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

var (
	initOnce sync.Once
	initErr  error
)

// ErrNoDevice is returned when no input device matches a selector.
var ErrNoDevice = errors.New("portaudio: no matching input device")

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return fmt.Errorf("portaudio: %s", C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// Terminate releases the PortAudio library.
func Terminate() error {
	return paError(C.Pa_Terminate())
}

// DeviceInfo describes an audio device.
type DeviceInfo struct {
	Index             int     `json:"index" yaml:"index"`
	Name              string  `json:"name" yaml:"name"`
	HostAPI           string  `json:"host_api" yaml:"host_api"`
	MaxInputChannels  int     `json:"max_input_channels" yaml:"max_input_channels"`
	DefaultSampleRate float64 `json:"default_sample_rate" yaml:"default_sample_rate"`
	DefaultLatency    float64 `json:"default_latency" yaml:"default_latency"`
	IsDefaultInput    bool    `json:"is_default_input" yaml:"is_default_input"`
}

func deviceInfo(idx C.PaDeviceIndex, defaultInput C.PaDeviceIndex) (DeviceInfo, bool) {
	info := C.Pa_GetDeviceInfo(idx)
	if info == nil {
		return DeviceInfo{}, false
	}
	d := DeviceInfo{
		Index:             int(idx),
		Name:              C.GoString(info.name),
		MaxInputChannels:  int(info.maxInputChannels),
		DefaultSampleRate: float64(info.defaultSampleRate),
		DefaultLatency:    float64(info.defaultLowInputLatency),
		IsDefaultInput:    idx == defaultInput,
	}
	if api := C.Pa_GetHostApiInfo(info.hostApi); api != nil {
		d.HostAPI = C.GoString(api.name)
	}
	return d, true
}

// InputDevices returns every device that can capture.
func InputDevices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}

	defaultInput := C.Pa_GetDefaultInputDevice()
	var devices []DeviceInfo
	for i := 0; i < count; i++ {
		d, ok := deviceInfo(C.PaDeviceIndex(i), defaultInput)
		if !ok || d.MaxInputChannels == 0 {
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// DefaultInputDevice returns the default input device.
func DefaultInputDevice() (DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return DeviceInfo{}, err
	}

	idx := C.Pa_GetDefaultInputDevice()
	if idx == C.paNoDevice {
		return DeviceInfo{}, ErrNoDevice
	}
	d, ok := deviceInfo(idx, idx)
	if !ok {
		return DeviceInfo{}, fmt.Errorf("portaudio: no info for device %d", int(idx))
	}
	return d, nil
}

// FindInputDevice resolves a selector to an input device. An empty selector
// picks the default input, a number picks by index, and anything else is
// matched case-insensitively as a substring of the device name.
func FindInputDevice(selector string) (DeviceInfo, error) {
	if selector == "" {
		return DefaultInputDevice()
	}
	devices, err := InputDevices()
	if err != nil {
		return DeviceInfo{}, err
	}
	if idx, err := strconv.Atoi(selector); err == nil {
		return MatchDevice(devices, func(d DeviceInfo) bool { return d.Index == idx }, selector)
	}
	want := strings.ToLower(selector)
	return MatchDevice(devices, func(d DeviceInfo) bool {
		return strings.Contains(strings.ToLower(d.Name), want)
	}, selector)
}

// MatchDevice returns the first device accepted by match.
func MatchDevice(devices []DeviceInfo, match func(DeviceInfo) bool, selector string) (DeviceInfo, error) {
	for _, d := range devices {
		if match(d) {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("%w: %q", ErrNoDevice, selector)
}
