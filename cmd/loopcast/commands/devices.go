package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loopcast/loopcast/pkg/audio/portaudio"
	"github.com/loopcast/loopcast/pkg/cli"
)

// deviceList renders input devices as a table.
type deviceList []portaudio.DeviceInfo

func (l deviceList) Table() ([]string, [][]string) {
	rows := make([][]string, len(l))
	for i, d := range l {
		def := ""
		if d.IsDefaultInput {
			def = "*"
		}
		rows[i] = []string{
			def,
			strconv.Itoa(d.Index),
			d.Name,
			d.HostAPI,
			strconv.Itoa(d.MaxInputChannels),
			cli.FormatRate(d.DefaultSampleRate),
			cli.FormatLatency(d.DefaultLatency),
		}
	}
	return []string{"DEFAULT", "INDEX", "NAME", "HOST API", "CHANNELS", "RATE", "LATENCY"}, rows
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `List the input devices PortAudio can capture from.

Pass the index or part of the name to 'loopcast serve --device'. To stream
what the computer is playing, pick a loopback or monitor device, such as a
PulseAudio "Monitor of ..." source or a virtual loopback driver.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
		defer portaudio.Terminate()

		devices, err := portaudio.InputDevices()
		if err != nil {
			return err
		}
		return output(deviceList(devices))
	},
}

func init() {
	addOutputFlag(devicesCmd)
	rootCmd.AddCommand(devicesCmd)
}
