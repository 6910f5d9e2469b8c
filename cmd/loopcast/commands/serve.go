package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/loopcast/loopcast/cmd/loopcast/internal/config"
	"github.com/loopcast/loopcast/pkg/audio/capture"
	"github.com/loopcast/loopcast/pkg/audio/codec"
	"github.com/loopcast/loopcast/pkg/audio/codec/mp3"
	"github.com/loopcast/loopcast/pkg/audio/codec/opus"
	"github.com/loopcast/loopcast/pkg/audio/pcm"
	"github.com/loopcast/loopcast/pkg/audio/portaudio"
	"github.com/loopcast/loopcast/pkg/audio/resampler"
	"github.com/loopcast/loopcast/pkg/caster"
	"github.com/loopcast/loopcast/pkg/server"
)

// mp3Format is the rate and layout the MP3 stream is encoded at.
var mp3Format = pcm.Format{SampleRate: 44100, Channels: 2}

// toneFormat is the format of the synthetic test source.
var toneFormat = pcm.Format{SampleRate: 48000, Channels: 2}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Capture system audio and stream it",
	Long: `Capture audio and serve it to listeners until interrupted.

Flags override the configuration file for this run. On Unix, send SIGHUP
to switch streaming off and on again; listeners stay connected and hear
silence while it is off.

Examples:
  loopcast serve
  loopcast serve --port 8000 --device "Monitor of"
  loopcast serve --source tone:440
  loopcast serve --source wav:/path/to/loop.wav --no-auto-start`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.Int("port", 0, "listen port")
	f.Int("mp3-bitrate", 0, "MP3 bitrate in kbps (64, 96, 128, 160, 192, 256, 320)")
	f.Int("opus-bitrate", 0, "Opus bitrate in kbps (6..510)")
	f.String("device", "", "input device index or name substring")
	f.String("source", "", "capture source: device, wav:<path> or tone:<hz>")
	f.String("resampler", "", "rate converter: linear or hq")
	f.Bool("no-auto-start", false, "start with streaming switched off")
	rootCmd.AddCommand(serveCmd)
}

// applyServeFlags copies explicitly set flags over cfg.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	for flag, key := range map[string]string{
		"port":         "port",
		"mp3-bitrate":  "mp3_bitrate",
		"opus-bitrate": "opus_bitrate",
		"device":       "device",
		"source":       "source",
		"resampler":    "resampler",
	} {
		if !flags.Changed(flag) {
			continue
		}
		if err := cfg.Set(key, flags.Lookup(flag).Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	if off, _ := flags.GetBool("no-auto-start"); off {
		cfg.AutoStart = false
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}
	logger := slog.Default()
	logger.Debug("serve: config", "path", path, "port", cfg.Port, "source", cfg.Source)

	spec, err := capture.ParseSpec(cfg.Source)
	if err != nil {
		return err
	}
	kind, err := resampler.ParseKind(cfg.Resampler)
	if err != nil {
		return err
	}
	encoders, err := newEncoders(cfg)
	if err != nil {
		return err
	}
	if spec.Kind == capture.KindDevice {
		defer portaudio.Terminate()
	}

	control := caster.NewControl(cfg.AutoStart)
	c, err := caster.New(caster.Config{
		Open:       newOpener(spec, cfg.Device, logger),
		Encoders:   encoders,
		Resampler:  kind,
		QueueDepth: cfg.QueueDepth,
		Logger:     logger,
	}, control)
	if err != nil {
		for _, enc := range encoders {
			enc.Close()
		}
		return err
	}
	srv := server.New(c,
		server.WithWriteTimeout(time.Duration(cfg.WriteTimeout)),
		server.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(gctx) })
	g.Go(func() error {
		return srv.ListenAndServe(gctx, net.JoinHostPort("", strconv.Itoa(cfg.Port)))
	})
	g.Go(func() error {
		watchToggle(gctx, control, logger)
		return nil
	})

	logger.Info("serve: started",
		"port", cfg.Port,
		"source", spec.String(),
		"streaming", control.Streaming())
	return g.Wait()
}

// opusConfig builds the Opus encoder settings from cfg.
func opusConfig(cfg *config.Config) (opus.Config, error) {
	rate, err := opus.ParseBitrate(cfg.OpusBitrate)
	if err != nil {
		return opus.Config{}, err
	}
	frame, err := opus.ParseFrameDuration(cfg.OpusFrameMS)
	if err != nil {
		return opus.Config{}, err
	}
	return opus.Config{
		Channels:      2,
		Bitrate:       rate,
		FrameDuration: frame,
		Application:   opus.ApplicationRestrictedLowdelay,
	}, nil
}

func newEncoders(cfg *config.Config) (map[string]codec.Encoder, error) {
	mp3Rate, err := mp3.ParseBitrate(cfg.MP3Bitrate)
	if err != nil {
		return nil, err
	}
	oc, err := opusConfig(cfg)
	if err != nil {
		return nil, err
	}

	me, err := mp3.NewEncoder(mp3Format, mp3.WithBitrate(mp3Rate))
	if err != nil {
		return nil, err
	}
	oe, err := opus.NewEncoder(oc)
	if err != nil {
		me.Close()
		return nil, err
	}
	return map[string]codec.Encoder{
		caster.MP3:  me,
		caster.Opus: oe,
	}, nil
}

// newOpener returns the caster.Opener for spec.
func newOpener(spec capture.Spec, device string, logger *slog.Logger) caster.Opener {
	return func(ctx context.Context) (capture.Source, error) {
		switch spec.Kind {
		case capture.KindWAV:
			w, err := capture.OpenWAV(spec.Path)
			if err != nil {
				return nil, err
			}
			return w, nil
		case capture.KindTone:
			t, err := capture.NewTone(spec.Frequency, toneFormat)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
		d, err := portaudio.FindInputDevice(device)
		if err != nil {
			return nil, err
		}
		stream, err := portaudio.OpenInput(d, pcm.Format{}, capture.DefaultBlockDuration)
		if err != nil {
			return nil, err
		}
		logger.Info("serve: capturing",
			"device", d.Name,
			"index", d.Index,
			"rate", stream.Format().SampleRate,
			"channels", stream.Format().Channels)
		return stream, nil
	}
}
