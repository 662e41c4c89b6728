// SPDX-License-Identifier: MIT

package picon

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/avfs/avfs"
	"github.com/avfs/avfs/vfs/osfs"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
	"github.com/ManuGH/plutosync/internal/platform/httpx"
)

// DownloadTimeout bounds a single logo download.
const DownloadTimeout = 30 * time.Second

const maxLogoBytes = 8 << 20

//go:embed assets/placeholder.png
var placeholder []byte

// Placeholder returns the image written when no logo is available.
func Placeholder() []byte {
	return bytes.Clone(placeholder)
}

// Options configure a Fetcher.
type Options struct {
	FS         avfs.VFS
	HTTPClient *http.Client
	// Rate limits downloads per second. Zero disables pacing.
	Rate  rate.Limit
	Burst int
}

// Fetcher downloads logos. The zero value is not usable; call NewFetcher.
type Fetcher struct {
	fs      avfs.VFS
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher returns a Fetcher writing to the host file system by default.
func NewFetcher(opts Options) *Fetcher {
	vfs := opts.FS
	if vfs == nil {
		vfs = osfs.New()
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(DownloadTimeout)
	}
	f := &Fetcher{fs: vfs, client: client}
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(opts.Rate, burst)
	}
	return f
}

// Path returns the destination of a picon inside dir.
func Path(dir, baseName string) string {
	return filepath.Join(dir, baseName+".png")
}

// Fetch stores the logo at url as dest. Catalog placeholders and empty URLs
// are replaced by the embedded image without a download; an existing dest
// is kept unless overwrite is set. Any download failure writes the
// placeholder. Fetch reports whether the real logo was stored.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, overwrite bool) bool {
	logger := log.WithComponentFromContext(ctx, "picon")

	if url == "" || strings.Contains(url, "missing.png") || strings.Contains(url, "MISSING") {
		f.writePlaceholder(ctx, dest)
		metrics.IncPicon("placeholder")
		return false
	}
	if !overwrite {
		if _, err := f.fs.Stat(dest); err == nil {
			metrics.IncPicon("cached")
			return true
		}
	}

	data, err := f.download(ctx, url)
	if err == nil {
		err = f.writeFile(dest, data)
	}
	if err != nil {
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "picon.download_failed").
			Str(log.FieldURL, url).
			Str(log.FieldPath, dest).
			Msg("unable to download picon, using placeholder")
		f.writePlaceholder(ctx, dest)
		metrics.IncPicon("failed")
		return false
	}
	metrics.IncPicon("downloaded")
	return true
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLogoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxLogoBytes {
		return nil, errors.New("logo exceeds size limit")
	}
	return data, nil
}

func (f *Fetcher) writePlaceholder(ctx context.Context, dest string) {
	if err := f.writeFile(dest, placeholder); err != nil {
		logger := log.WithComponentFromContext(ctx, "picon")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "picon.placeholder_failed").
			Str(log.FieldPath, dest).
			Msg("unable to write placeholder picon")
	}
}

// writeFile replaces dest through a temporary file in the same directory.
func (f *Fetcher) writeFile(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(dest)+"."+uuid.NewString()+".tmp")
	if err := f.fs.WriteFile(tmp, data, fs.FileMode(0o644)); err != nil {
		return err
	}
	if err := f.fs.Rename(tmp, dest); err != nil {
		_ = f.fs.Remove(tmp)
		return err
	}
	return nil
}
