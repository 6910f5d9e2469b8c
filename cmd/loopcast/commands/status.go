package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loopcast/loopcast/pkg/cli"
	"github.com/loopcast/loopcast/pkg/server"
)

var (
	statusURL     string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running server",
	Long: `Fetch /status from a running loopcast server.

The server defaults to http://localhost:<port> with the configured port.

Examples:
  loopcast status
  loopcast status --url http://studio.local:3000 -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base := statusURL
		if base == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			base = "http://localhost:" + strconv.Itoa(cfg.Port)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
		defer cancel()
		st, err := fetchStatus(ctx, base)
		if err != nil {
			return err
		}

		if formatFlag == "table" || formatFlag == "" {
			fmt.Fprintln(os.Stdout, renderStatus(base, st))
			return nil
		}
		return output(st)
	},
}

func fetchStatus(ctx context.Context, base string) (server.Status, error) {
	var st server.Status
	url := strings.TrimSuffix(base, "/") + "/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("status: %s returned %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("status: decode: %w", err)
	}
	return st, nil
}

func renderStatus(base string, st server.Status) string {
	state := "stopped"
	if st.Running {
		state = "running"
	}
	f := cli.Frame{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  "loopcast",
		Status: state,
		Sections: []cli.Section{
			{Label: "Server", Lines: []string{base, "capturing: " + cli.FormatBool(st.Running)}},
			{Label: "Listeners", Lines: []string{strconv.FormatUint(uint64(st.Clients), 10) + " connected"}},
		},
	}
	return f.Render(48)
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "server base URL")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "request timeout")
	addOutputFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}
