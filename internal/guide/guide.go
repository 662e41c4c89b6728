// SPDX-License-Identifier: MIT

// Package guide turns catalog timelines into EPG events for the receiver.
package guide

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/plutosync/internal/catalog"
	"github.com/ManuGH/plutosync/internal/log"
)

// StartLayout is the timestamp layout of timeline starts.
const StartLayout = "2006-01-02T15:04:05.999Z"

// Genre codes of the DVB content descriptor.
const (
	GenreNone        byte = 0x00
	GenreMovie       byte = 0x10
	GenreNews        byte = 0x20
	GenreShow        byte = 0x30
	GenreChildren    byte = 0x50
	GenreMusic       byte = 0x60
	GenreDocumentary byte = 0xA0
)

// Event is one guide entry.
type Event struct {
	Start            int64  `json:"start"`    // unix seconds
	Duration         int64  `json:"duration"` // seconds
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	Plot             string `json:"plot"`
	Genre            byte   `json:"genre"`
}

// Segment is a run of events imported together.
type Segment []Event

// Cache receives synthesized events keyed by EPG service reference.
type Cache interface {
	ImportEvents(ctx context.Context, serviceRef string, events []Event) error
}

// GenreCode maps a catalog genre to its content code.
func GenreCode(genre string) byte {
	switch {
	case genre == "Classics", genre == "Romance", genre == "Thrillers", genre == "Horror",
		strings.Contains(genre, "Sci-Fi"), strings.Contains(genre, "Action"):
		return GenreMovie
	case strings.Contains(genre, "News"), strings.Contains(genre, "Educational"):
		return GenreNews
	case genre == "Comedy":
		return GenreShow
	case strings.Contains(genre, "Children"):
		return GenreChildren
	case genre == "Music":
		return GenreMusic
	case genre == "Documentaries":
		return GenreDocumentary
	default:
		return GenreNone
	}
}

// Synthesize converts the timelines of g into segments. The first event of
// every genre opens a new segment; each event is appended to the latest
// segment. Timelines with an unparseable start are skipped.
func Synthesize(ctx context.Context, g catalog.GuideChannel) []Segment {
	var segments []Segment
	seen := map[byte]bool{}
	for _, tl := range g.Timelines {
		if ctx.Err() != nil {
			return segments
		}
		ev, err := eventFor(g, tl)
		if err != nil {
			logger := log.WithComponentFromContext(ctx, "guide")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "guide.timeline_skipped").
				Str(log.FieldChannelID, g.ID).
				Str("timeline", tl.ID).
				Msg("skipping timeline")
			continue
		}
		if !seen[ev.Genre] {
			seen[ev.Genre] = true
			segments = append(segments, nil)
		}
		segments[len(segments)-1] = append(segments[len(segments)-1], ev)
	}
	return segments
}

func eventFor(g catalog.GuideChannel, tl catalog.Timeline) (Event, error) {
	start, err := time.Parse(StartLayout, tl.Start)
	if err != nil {
		return Event{}, fmt.Errorf("parse start %q: %w", tl.Start, err)
	}

	var ep catalog.TimelineEpisode
	if !tl.Episode.IsZero() {
		ep = *tl.Episode
	}
	seriesType := "n/a"
	var series catalog.TimelineSeries
	if !ep.Series.IsZero() {
		series = *ep.Series
		seriesType = series.Type
	}

	title := firstNonEmpty(series.Name, ep.Name, tl.Title)
	tvPlot := firstNonEmpty(series.Description, series.Summary, g.Description, g.Summary)
	plot := firstNonEmpty(ep.Description, tvPlot, ep.Name)

	if r := ep.Rating; r != "" && !strings.Contains(r, "Not Rated") {
		plot += "\nRating: " + catalog.DisplayRating(r)
	}
	season, number := ep.Season.Int(), ep.Number.Int()
	switch {
	case seriesType == "tv" && season > 0 && number >= 0:
		plot = fmt.Sprintf("%s\n%d. Season, episode %d: %s", ep.Name, season, number, plot)
	case seriesType == "film" && ep.SubGenre != "None" && ep.SubGenre != "":
		plot = ep.SubGenre + "\n" + plot
	}

	return Event{
		Start:    start.UTC().Unix(),
		Duration: int64(ep.Duration.Int() / 1000),
		Title:    title,
		Plot:     plot,
		Genre:    GenreCode(ep.Genre),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Merge imports the segments of every channel with a known service
// reference and returns the number of events imported.
func Merge(ctx context.Context, cache Cache, refs map[string]string, segments map[string][]Segment) (int, error) {
	count := 0
	for id, ref := range refs {
		for _, seg := range segments[id] {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if err := cache.ImportEvents(ctx, ref, seg); err != nil {
				return count, fmt.Errorf("import events for %s: %w", ref, err)
			}
			count += len(seg)
		}
	}
	return count, nil
}
