// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/plutosync/internal/config"
)

const redacted = "***"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return exitError{code: 1, msg: err.Error()}
			}
			source := opts.resolvedConfigPath()
			if source == "" {
				source = "environment"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", source)
			return nil
		},
	})

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (defaults + file + env)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return exitError{code: 1, msg: err.Error()}
			}
			redactSecrets(&cfg)

			var doc yaml.Node
			if err := doc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "yaml", "yml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(&doc); err != nil {
					return fmt.Errorf("encode YAML: %w", err)
				}
				return enc.Close()
			case "json":
				var m map[string]any
				if err := doc.Decode(&m); err != nil {
					return fmt.Errorf("convert config: %w", err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			default:
				return exitError{code: 2, msg: fmt.Sprintf("unsupported format: %s (use yaml or json)", format)}
			}
		},
	}
	dump.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	cmd.AddCommand(dump)
	return cmd
}

func redactSecrets(cfg *config.AppConfig) {
	if cfg.OpenWebIF.Password != "" {
		cfg.OpenWebIF.Password = redacted
	}
}
