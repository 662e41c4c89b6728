package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/jobs"
)

// statusView is the client side of GET /api/v1/status.
type statusView struct {
	State      string        `json:"state"`
	JobID      string        `json:"jobId"`
	Progress   jobs.Progress `json:"progress"`
	LastRun    time.Time     `json:"lastRun"`
	NextRun    *time.Time    `json:"nextRun"`
	Regions    []string      `json:"regions"`
	LastResult *struct {
		State string `json:"state"`
		Error string `json:"error"`
	} `json:"lastResult"`
}

func (s statusView) print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "state:    %s\n", s.State)
	if s.State == "running" {
		_, _ = fmt.Fprintf(w, "progress: %d%% %s %s\n", s.Progress.Percent, s.Progress.Region, s.Progress.Status)
	}
	_, _ = fmt.Fprintf(w, "regions:  %s\n", strings.Join(s.Regions, ", "))
	if s.LastRun.IsZero() {
		_, _ = fmt.Fprintln(w, "last run: never")
	} else {
		_, _ = fmt.Fprintf(w, "last run: %s\n", s.LastRun.Local().Format(time.RFC1123))
	}
	if s.LastResult != nil {
		line := s.LastResult.State
		if s.LastResult.Error != "" {
			line += " (" + s.LastResult.Error + ")"
		}
		_, _ = fmt.Fprintf(w, "result:   %s\n", line)
	}
	if s.NextRun != nil {
		_, _ = fmt.Fprintf(w, "next run: %s\n", s.NextRun.Local().Format(time.RFC1123))
	} else {
		_, _ = fmt.Fprintln(w, "next run: disabled")
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				_, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				addr = baseURL(cfg.API.Listen)
			}
			client := http.Client{Timeout: timeout}
			resp, err := client.Get(strings.TrimRight(addr, "/") + "/api/v1/status")
			if err != nil {
				return exitError{code: 1, msg: fmt.Sprintf("daemon not reachable: %v", err)}
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return exitError{code: 1, msg: fmt.Sprintf("daemon returned %s", resp.Status)}
			}
			var st statusView
			if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
				return fmt.Errorf("decode status: %w", err)
			}
			st.print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "daemon base URL (default derived from api.listen)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

// baseURL turns a listen address into a loopback URL.
func baseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
