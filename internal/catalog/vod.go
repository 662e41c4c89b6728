// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/plutosync/internal/region"
)

const (
	vodCategoriesEndpoint = "/v3/vod/categories"
	vodSeasonsEndpoint    = "/v3/vod/series/%s/seasons"
)

type cover struct {
	AspectRatio string `json:"aspectRatio"`
	URL         string `json:"url"`
}

type wireVODItem struct {
	ID             string          `json:"_id"`
	Name           string          `json:"name"`
	Summary        string          `json:"summary"`
	Description    string          `json:"description"`
	Genre          string          `json:"genre"`
	Rating         string          `json:"rating"`
	Duration       FlexInt         `json:"duration"`
	Type           string          `json:"type"`
	SeasonsNumbers List[FlexInt]   `json:"seasonsNumbers"`
	Stitched       Stitched        `json:"stitched"`
	Covers         List[cover]     `json:"covers"`
	Clip           json.RawMessage `json:"clip"`
	CC             bool            `json:"cc"`
}

type wireVODCategory struct {
	ID              string            `json:"_id"`
	Name            string            `json:"name"`
	TotalItemsCount FlexInt           `json:"totalItemsCount"`
	Items           List[wireVODItem] `json:"items"`
}

type wireCarousel struct {
	TotalCategories FlexInt               `json:"totalCategories"`
	Categories      List[wireVODCategory] `json:"categories"`
}

type wireEpisode struct {
	ID                      string          `json:"_id"`
	Name                    string          `json:"name"`
	Number                  FlexInt         `json:"number"`
	Season                  FlexInt         `json:"season"`
	Description             string          `json:"description"`
	Rating                  string          `json:"rating"`
	Duration                FlexInt         `json:"duration"`
	OriginalContentDuration FlexInt         `json:"originalContentDuration"`
	Genre                   string          `json:"genre"`
	Stitched                Stitched        `json:"stitched"`
	Covers                  List[cover]     `json:"covers"`
	Clip                    json.RawMessage `json:"clip"`
}

type wireSeason struct {
	Number   FlexInt           `json:"number"`
	Episodes List[wireEpisode] `json:"episodes"`
}

type wireSeries struct {
	ID          string           `json:"_id"`
	Name        string           `json:"name"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
	Seasons     List[wireSeason] `json:"seasons"`
}

// posterAndImage picks the portrait poster (first cover) and the
// landscape image (third cover, else second).
func posterAndImage(covers []cover) (poster, image string) {
	if len(covers) > 2 {
		image = covers[2].URL
	}
	if len(covers) > 1 && image == "" {
		image = covers[1].URL
	}
	if len(covers) > 0 {
		poster = covers[0].URL
	}
	return poster, image
}

// DisplayRating renders numeric age ratings as FSK ratings.
func DisplayRating(r string) string {
	if r != "" && strings.Trim(r, "0123456789") == "" {
		return "FSK-" + r
	}
	return r
}

func (c *Client) vodParams() url.Values {
	p := c.deviceParams()
	p.Set("includeItems", "true")
	p.Set("deviceType", "web")
	return p
}

// VODCategories returns the VOD categories of a region. Items without an
// identifier and movies without a stream URL are dropped. It returns nil
// when the catalog is unreachable or reports no categories.
func (c *Client) VODCategories(ctx context.Context, r region.Region) []VODCategory {
	var carousel wireCarousel
	if !c.fetch(ctx, "vod_categories", vodCategoriesEndpoint, BuildHeader(r.IP), c.vodParams(), &carousel) {
		return nil
	}
	if carousel.TotalCategories.Int() == 0 {
		return nil
	}

	out := make([]VODCategory, 0, len(carousel.Categories))
	for _, wc := range carousel.Categories {
		cat := VODCategory{ID: wc.ID, Name: wc.Name, TotalItems: wc.TotalItemsCount.Int(), Items: []VODItem{}}
		for _, wi := range wc.Items {
			if wi.ID == "" {
				continue
			}
			var streamURL string
			if wi.Type == "movie" {
				if len(wi.Stitched.URLs) == 0 {
					continue
				}
				streamURL = wi.Stitched.URLs[0].URL
			}
			poster, image := posterAndImage(wi.Covers)
			seasons := make([]int, 0, len(wi.SeasonsNumbers))
			for _, s := range wi.SeasonsNumbers {
				seasons = append(seasons, s.Int())
			}
			cat.Items = append(cat.Items, VODItem{
				ID:          wi.ID,
				Name:        wi.Name,
				Summary:     wi.Summary,
				Description: wi.Description,
				Genre:       wi.Genre,
				Rating:      DisplayRating(wi.Rating),
				Duration:    wi.Duration.Int() / 1000,
				Poster:      poster,
				Image:       image,
				Type:        wi.Type,
				URL:         streamURL,
				Seasons:     seasons,
				Clip:        wi.Clip,
				Captions:    wi.CC,
			})
		}
		out = append(out, cat)
	}
	return out
}

// Seasons returns the seasons of a VOD series. Episodes are grouped by
// their season number; episodes outside a positive season or without a
// stream URL are dropped.
func (c *Client) Seasons(ctx context.Context, r region.Region, seriesID string) VODSeries {
	var ws wireSeries
	endpoint := fmt.Sprintf(vodSeasonsEndpoint, url.PathEscape(seriesID))
	if !c.fetch(ctx, "vod_seasons", endpoint, BuildHeader(r.IP), c.vodParams(), &ws) {
		return VODSeries{ID: seriesID, Seasons: []VODSeason{}}
	}

	series := VODSeries{ID: ws.ID, Name: ws.Name, Summary: ws.Summary, Description: ws.Description, Seasons: []VODSeason{}}
	if series.ID == "" {
		series.ID = seriesID
	}
	index := map[int]int{}
	for _, season := range ws.Seasons {
		for _, ep := range season.Episodes {
			n := ep.Season.Int()
			if n <= 0 {
				continue
			}
			pos, ok := index[n]
			if !ok {
				pos = len(series.Seasons)
				index[n] = pos
				series.Seasons = append(series.Seasons, VODSeason{Number: n, Episodes: []VODEpisode{}})
			}
			if len(ep.Stitched.URLs) == 0 {
				continue
			}
			poster, image := posterAndImage(ep.Covers)
			series.Seasons[pos].Episodes = append(series.Seasons[pos].Episodes, VODEpisode{
				ID:               ep.ID,
				Name:             ep.Name,
				Number:           ep.Number.Int(),
				Season:           n,
				Description:      ep.Description,
				Rating:           ep.Rating,
				Duration:         ep.Duration.Int() / 1000,
				OriginalDuration: ep.OriginalContentDuration.Int() / 1000,
				Genre:            ep.Genre,
				Poster:           poster,
				Image:            image,
				URL:              ep.Stitched.URLs[0].URL,
				Clip:             ep.Clip,
			})
		}
	}
	return series
}
