// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bouquet

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/ManuGH/plutosync/internal/fsutil"
	"github.com/ManuGH/plutosync/internal/log"
)

// IndexFile is the top level TV bouquet list of the receiver.
const IndexFile = "bouquets.tv"

// Writer writes bouquet files into the receiver configuration directory.
type Writer struct {
	Dir string
}

// Write replaces the bouquet file atomically and returns its path. The file
// ends with an empty line.
func (w *Writer) Write(ctx context.Context, b Bouquet) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, b.File)
	if err := fsutil.WriteLines(path, append(slices.Clone(b.Lines), "")); err != nil {
		return "", fmt.Errorf("write bouquet %s: %w", b.File, err)
	}
	logger := log.WithComponentFromContext(ctx, "bouquet")
	logger.Info().
		Str(log.FieldEvent, "bouquet.written").
		Str(log.FieldPath, path).
		Int("lines", len(b.Lines)).
		Msg("bouquet written")
	return path, nil
}

// Index edits the registration lines of bouquets.tv.
type Index struct {
	Path string
	mu   sync.Mutex
}

// NewIndex returns the index inside dir.
func NewIndex(dir string) *Index {
	return &Index{Path: filepath.Join(dir, IndexFile)}
}

// Line returns the registration line of a bouquet file.
func Line(file string) string {
	return `#SERVICE 1:7:1:0:0:0:0:0:0:0:FROM BOUQUET "` + file + `" ORDER BY bouquet`
}

func references(line, file string) bool {
	return strings.Contains(line, `FROM BOUQUET "`+file+`"`)
}

// Contains reports whether file is registered.
func (ix *Index) Contains(file string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	lines, err := fsutil.ReadLines(ix.Path)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(lines, func(l string) bool { return references(l, file) }), nil
}

// Ensure appends the registration of file when absent. It reports whether
// the index changed.
func (ix *Index) Ensure(ctx context.Context, file string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	lines, err := fsutil.ReadLines(ix.Path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", ix.Path, err)
	}
	if slices.ContainsFunc(lines, func(l string) bool { return references(l, file) }) {
		return false, nil
	}
	if len(lines) == 0 {
		lines = append(lines, "#NAME User - Bouquets (TV)")
	}
	lines = append(lines, Line(file))
	if err := fsutil.WriteLines(ix.Path, lines); err != nil {
		return false, err
	}
	logger := log.WithComponentFromContext(ctx, "bouquet")
	logger.Info().
		Str(log.FieldEvent, "bouquet.installed").
		Str("file", file).
		Msg("bouquet registered")
	return true, nil
}

// Remove deletes every registration of file. It reports whether the index
// changed.
func (ix *Index) Remove(ctx context.Context, file string) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	lines, err := fsutil.ReadLines(ix.Path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", ix.Path, err)
	}
	kept := slices.DeleteFunc(slices.Clone(lines), func(l string) bool { return references(l, file) })
	if len(kept) == len(lines) {
		return false, nil
	}
	if err := fsutil.WriteLines(ix.Path, kept); err != nil {
		return false, err
	}
	logger := log.WithComponentFromContext(ctx, "bouquet")
	logger.Info().
		Str(log.FieldEvent, "bouquet.removed").
		Str("file", file).
		Msg("bouquet unregistered")
	return true, nil
}
