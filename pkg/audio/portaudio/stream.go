package portaudio

/*
#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// Wrapper functions using void* to avoid CGO type issues with PaStream
static PaError pa_open_input(void **stream,
                             const PaStreamParameters *inputParams,
                             double sampleRate,
                             unsigned long framesPerBuffer) {
    return Pa_OpenStream((PaStream**)stream, inputParams, NULL, sampleRate,
                         framesPerBuffer, paClipOff, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_abort_stream(void *stream) {
    return Pa_AbortStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/loopcast/loopcast/pkg/audio/pcm"
)

// InputStream captures interleaved int16 audio from one device.
type InputStream struct {
	device DeviceInfo
	format pcm.Format
	frames int

	mu     sync.Mutex
	stream unsafe.Pointer
	buffer unsafe.Pointer
	closed bool
}

// OpenInput opens and starts a capture stream on device. A zero format
// channel count captures up to two channels; a zero sample rate uses the
// device default. Each Read returns bufferDuration of audio.
func OpenInput(device DeviceInfo, format pcm.Format, bufferDuration time.Duration) (*InputStream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	if format.Channels == 0 {
		format.Channels = min(device.MaxInputChannels, 2)
	}
	if format.SampleRate == 0 {
		format.SampleRate = int(device.DefaultSampleRate)
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if format.Channels > device.MaxInputChannels {
		return nil, errors.New("portaudio: device has too few input channels")
	}

	frames := format.SamplesInDuration(bufferDuration)
	if frames <= 0 {
		frames = 1024
	}

	params := &C.PaStreamParameters{
		device:                    C.PaDeviceIndex(device.Index),
		channelCount:              C.int(format.Channels),
		sampleFormat:              C.paInt16,
		suggestedLatency:          C.PaTime(device.DefaultLatency),
		hostApiSpecificStreamInfo: nil,
	}

	var paStream unsafe.Pointer
	if err := paError(C.pa_open_input(&paStream, params, C.double(format.SampleRate), C.ulong(frames))); err != nil {
		return nil, err
	}
	if err := paError(C.pa_start_stream(paStream)); err != nil {
		C.pa_close_stream(paStream)
		return nil, err
	}

	return &InputStream{
		device: device,
		format: format,
		frames: frames,
		stream: paStream,
		buffer: C.malloc(C.size_t(frames * format.Channels * 2)),
	}, nil
}

// Device returns the device being captured.
func (s *InputStream) Device() DeviceInfo {
	return s.device
}

// Format returns the capture format.
func (s *InputStream) Format() pcm.Format {
	return s.format
}

// Read blocks until one buffer of audio is available. An input overflow is
// not an error; the samples that survived are returned.
func (s *InputStream) Read() (pcm.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return pcm.Block{}, io.EOF
	}

	code := C.pa_read_stream(s.stream, s.buffer, C.ulong(s.frames))
	if code != C.paNoError && code != C.paInputOverflowed {
		return pcm.Block{}, paError(code)
	}

	n := s.frames * s.format.Channels
	samples := make([]int16, n)
	C.memcpy(unsafe.Pointer(&samples[0]), s.buffer, C.size_t(n*2))
	return s.format.Block(samples), nil
}

// Close aborts and closes the stream.
func (s *InputStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	C.pa_abort_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}
