// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/config"
	xglog "github.com/ManuGH/plutosync/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// exitError carries a process exit status out of a command.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			_, _ = fmt.Fprintln(stderr, ee.msg)
		}
		return ee.code
	}
	_, _ = fmt.Fprintln(stderr, "Error:", err)
	return 1
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "plutosync",
		Short:         "Synchronize Pluto TV channels into Enigma2 bouquets and EPG",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newDaemonCmd(opts),
		newSyncCmd(opts),
		newRegionsCmd(opts),
		newStatusCmd(opts),
		newRemoveCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolvedConfigPath returns the explicit path or ${PLUTOSYNC_DATA}/plutosync.yaml
// when that file exists.
func (o *rootOptions) resolvedConfigPath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString("PLUTOSYNC_DATA", config.DefaultDataDir))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "plutosync.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// loadConfig loads the configuration and reconfigures logging from it.
func (o *rootOptions) loadConfig(logOut io.Writer) (*config.Loader, config.AppConfig, error) {
	xglog.Configure(xglog.Config{Level: "info", Output: logOut, Service: "plutosync", Version: version})

	path := o.resolvedConfigPath()
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, cfg, fmt.Errorf("load configuration: %w", err)
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Output: logOut, Service: cfg.LogService, Version: cfg.Version})

	logger := xglog.WithComponent("cli")
	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Debug().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, path).
		Msg("configuration loaded")
	return loader, cfg, nil
}
