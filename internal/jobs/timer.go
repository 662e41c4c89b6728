// SPDX-License-Identifier: MIT

package jobs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/plutosync/internal/fsutil"
)

// ReadLastRun returns the time stored in the last-run file. A missing file
// yields the zero time.
func ReadLastRun(path string) (time.Time, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last run %s: %w", path, err)
	}
	return time.Unix(epoch, 0), nil
}

// WriteLastRun atomically stores t as "<epoch seconds>\n".
func WriteLastRun(path string, t time.Time) error {
	return fsutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, err := io.WriteString(w, strconv.FormatInt(t.Unix(), 10)+"\n")
		return err
	})
}
