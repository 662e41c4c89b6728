// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil holds file system helpers shared by the stores and writers.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

// WriteAtomic writes the output of write to path via a temporary file that
// is fsynced and renamed over path. On failure path is left untouched.
func WriteAtomic(path string, perm os.FileMode, write func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(perm))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := write(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteLines atomically writes lines to path, each terminated by "\n".
func WriteLines(path string, lines []string) error {
	return WriteAtomic(path, 0o644, func(w io.Writer) error {
		for _, l := range lines {
			if _, err := io.WriteString(w, l+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadLines returns the lines of path without line terminators. A missing
// file yields no lines and no error.
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths come from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
