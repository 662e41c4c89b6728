// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import "encoding/json"

// Image references a catalog artwork asset.
type Image struct {
	Path string `json:"path"`
}

// StitchedURL is one playable stream variant of a channel or VOD item.
type StitchedURL struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Stitched holds the stream variants.
type Stitched struct {
	URLs List[StitchedURL] `json:"urls"`
}

// Channel is a live channel of the lineup.
type Channel struct {
	ID           string   `json:"_id"`
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Number       FlexInt  `json:"number"`
	Category     string   `json:"category"`
	Summary      string   `json:"summary"`
	ColorLogoPNG Image    `json:"colorLogoPNG"`
	Stitched     Stitched `json:"stitched"`
}

// GuideChannel is a channel of the guide response with its timelines.
type GuideChannel struct {
	ID          string         `json:"_id"`
	Name        string         `json:"name"`
	Number      FlexInt        `json:"number"`
	Summary     string         `json:"summary"`
	Description string         `json:"description"`
	Timelines   List[Timeline] `json:"timelines"`
}

// Timeline is one scheduled slot of a guide channel.
type Timeline struct {
	ID      string           `json:"_id"`
	Start   string           `json:"start"`
	Stop    string           `json:"stop"`
	Title   string           `json:"title"`
	Episode *TimelineEpisode `json:"episode"`
}

// TimelineEpisode describes the program airing in a timeline slot.
type TimelineEpisode struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Number      FlexInt         `json:"number"`
	Season      FlexInt         `json:"season"`
	Description string          `json:"description"`
	Duration    FlexInt         `json:"duration"` // milliseconds
	Genre       string          `json:"genre"`
	SubGenre    string          `json:"subGenre"`
	Rating      string          `json:"rating"`
	Series      *TimelineSeries `json:"series"`
}

// IsZero reports whether the episode carries no data.
func (e *TimelineEpisode) IsZero() bool {
	return e == nil || *e == (TimelineEpisode{})
}

// TimelineSeries describes the series an episode belongs to.
type TimelineSeries struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Type        string `json:"type"` // "tv", "film", ...
	Description string `json:"description"`
	Summary     string `json:"summary"`
}

// IsZero reports whether the series carries no data.
func (s *TimelineSeries) IsZero() bool {
	return s == nil || *s == (TimelineSeries{})
}

// VODCategory is a video-on-demand category with its items.
type VODCategory struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TotalItems int       `json:"totalItems"`
	Items      []VODItem `json:"items"`
}

// VODItem is a movie or series entry of a VOD category.
type VODItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Summary     string          `json:"summary,omitempty"`
	Description string          `json:"description,omitempty"`
	Genre       string          `json:"genre,omitempty"`
	Rating      string          `json:"rating,omitempty"`
	Duration    int             `json:"duration"` // seconds
	Poster      string          `json:"poster,omitempty"`
	Image       string          `json:"image,omitempty"`
	Type        string          `json:"type"` // "movie" or "series"
	URL         string          `json:"url,omitempty"`
	Seasons     []int           `json:"seasons,omitempty"`
	Clip        json.RawMessage `json:"clip,omitempty"`
	Captions    bool            `json:"captions,omitempty"`
}

// VODSeries is the season listing of a VOD series.
type VODSeries struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Summary     string      `json:"summary,omitempty"`
	Description string      `json:"description,omitempty"`
	Seasons     []VODSeason `json:"seasons"`
}

// VODSeason groups the playable episodes of one season.
type VODSeason struct {
	Number   int          `json:"number"`
	Episodes []VODEpisode `json:"episodes"`
}

// VODEpisode is a playable episode of a VOD series.
type VODEpisode struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Number           int             `json:"number"`
	Season           int             `json:"season"`
	Description      string          `json:"description,omitempty"`
	Rating           string          `json:"rating,omitempty"`
	Duration         int             `json:"duration"`         // seconds
	OriginalDuration int             `json:"originalDuration"` // seconds
	Genre            string          `json:"genre,omitempty"`
	Poster           string          `json:"poster,omitempty"`
	Image            string          `json:"image,omitempty"`
	URL              string          `json:"url"`
	Clip             json.RawMessage `json:"clip,omitempty"`
}
