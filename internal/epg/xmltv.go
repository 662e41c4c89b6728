// SPDX-License-Identifier: MIT

// Package epg exports synthesized guide events as XMLTV files that the
// receiver's EPGImport plugin picks up.
package epg

import (
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	unorm "golang.org/x/text/unicode/norm"

	"github.com/ManuGH/plutosync/internal/fsutil"
	"github.com/ManuGH/plutosync/internal/guide"
	"github.com/ManuGH/plutosync/internal/log"
)

const generator = "plutosync"

// maxXMLSize bounds documents read back by Read.
const maxXMLSize = 50 * 1024 * 1024

var categoryNames = map[byte]string{
	guide.GenreMovie:       "Movie / Drama",
	guide.GenreNews:        "News / Current affairs",
	guide.GenreShow:        "Show / Game show",
	guide.GenreChildren:    "Children's / Youth programmes",
	guide.GenreMusic:       "Music / Ballet / Dance",
	guide.GenreDocumentary: "Education / Science / Factual topics",
}

// CategoryName returns the XMLTV category of a genre code, or "".
func CategoryName(genre byte) string {
	return categoryNames[genre]
}

func normalize(s string) string {
	return unorm.NFC.String(strings.TrimSpace(s))
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("20060102150405 -0700")
}

// ChannelID returns the XMLTV channel id of a service reference.
func ChannelID(serviceRef string) string {
	return "pluto." + strings.ReplaceAll(strings.TrimSuffix(serviceRef, ":"), ":", "_")
}

// FileBase returns the base name of the region files.
func FileBase(region string) string {
	return "pluto_tv_" + strings.ToLower(region)
}

// XMLTVCache collects imported events and writes one XMLTV file and one
// EPGImport channel file per region on Commit.
type XMLTVCache struct {
	Dir string

	mu      sync.Mutex
	pending map[string][]guide.Event
	order   []string
}

// NewXMLTVCache returns a cache writing into dir.
func NewXMLTVCache(dir string) *XMLTVCache {
	return &XMLTVCache{Dir: dir, pending: map[string][]guide.Event{}}
}

func (c *XMLTVCache) ImportEvents(_ context.Context, serviceRef string, events []guide.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		c.pending = map[string][]guide.Event{}
	}
	if _, ok := c.pending[serviceRef]; !ok {
		c.order = append(c.order, serviceRef)
	}
	c.pending[serviceRef] = append(c.pending[serviceRef], events...)
	return nil
}

// Discard drops the pending events.
func (c *XMLTVCache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = map[string][]guide.Event{}
	c.order = nil
}

// Commit writes the pending events as the files of region and clears them.
func (c *XMLTVCache) Commit(ctx context.Context, region string) error {
	c.mu.Lock()
	pending, order := c.pending, c.order
	c.pending, c.order = map[string][]guide.Event{}, nil
	c.mu.Unlock()

	tv := TV{Generator: generator}
	var cm ChannelMap
	for _, ref := range order {
		id := ChannelID(ref)
		tv.Channels = append(tv.Channels, Channel{ID: id, DisplayName: []string{ref}})
		cm.Channels = append(cm.Channels, ChannelEntry{ID: id, ServiceRef: ref})

		events := slices.Clone(pending[ref])
		slices.SortStableFunc(events, func(a, b guide.Event) int { return cmp.Compare(a.Start, b.Start) })
		for _, ev := range events {
			tv.Programs = append(tv.Programs, programme(id, ev))
		}
	}

	base := filepath.Join(c.Dir, FileBase(region))
	if err := writeXML(base+".xml", tv); err != nil {
		return err
	}
	if err := writeXML(base+".channels.xml", cm); err != nil {
		return err
	}
	logger := log.WithComponentFromContext(ctx, "epg")
	logger.Info().
		Str(log.FieldEvent, "epg.xmltv_written").
		Str(log.FieldRegion, region).
		Str(log.FieldPath, base+".xml").
		Int("channels", len(tv.Channels)).
		Int("programmes", len(tv.Programs)).
		Msg("XMLTV generated")
	return nil
}

func programme(channelID string, ev guide.Event) Programme {
	p := Programme{
		Start:   formatTime(ev.Start),
		Stop:    formatTime(ev.Start + ev.Duration),
		Channel: channelID,
		Title:   Text{Value: normalize(ev.Title)},
	}
	if s := normalize(ev.ShortDescription); s != "" {
		p.SubTitle = &Text{Value: s}
	}
	if d := normalize(ev.Plot); d != "" {
		p.Desc = &Text{Value: d}
	}
	if name := CategoryName(ev.Genre); name != "" {
		p.Category = []Text{{Lang: "en", Value: name}}
	}
	return p
}

// WriteSources writes the EPGImport source catalogue for regions.
func (c *XMLTVCache) WriteSources(regions []string) error {
	src := Sources{Cat: SourceCat{Name: "Pluto TV"}}
	for _, r := range regions {
		base := filepath.Join(c.Dir, FileBase(r))
		src.Cat.Sources = append(src.Cat.Sources, Source{
			Type:        "gen_xmltv",
			Channels:    base + ".channels.xml",
			Description: "Pluto TV " + strings.ToUpper(r),
			URL:         base + ".xml",
		})
	}
	return writeXML(filepath.Join(c.Dir, "pluto_tv.sources.xml"), src)
}

// Remove deletes the files of region. Missing files are ignored.
func (c *XMLTVCache) Remove(region string) error {
	base := filepath.Join(c.Dir, FileBase(region))
	var errs []error
	for _, p := range []string{base + ".xml", base + ".channels.xml"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeXML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create epg dir: %w", err)
	}
	return fsutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
}

// Read parses an XMLTV file. Entity expansion is disabled.
func Read(path string) (*TV, error) {
	f, err := os.Open(filepath.Clean(path)) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var doc TV
	dec := xml.NewDecoder(io.LimitReader(f, maxXMLSize))
	dec.Strict = true
	dec.Entity = make(map[string]string)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode xmltv: %w", err)
	}
	return &doc, nil
}
