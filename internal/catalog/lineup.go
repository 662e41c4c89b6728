// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/ManuGH/plutosync/internal/region"
)

const (
	channelsEndpoint = "/v2/channels"
	guideTimeLayout  = "2006-01-02T15:00:00Z"
	guideWindow      = 24 * time.Hour
)

// Lineup returns the live channels of a region sorted by channel number.
// It returns nil when the catalog is unreachable.
func (c *Client) Lineup(ctx context.Context, r region.Region) []Channel {
	var channels List[Channel]
	if !c.fetch(ctx, "lineup", channelsEndpoint, BuildHeader(r.IP), c.deviceParams(), &channels) {
		return nil
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Number < channels[j].Number })
	return channels
}

// GuideWindow returns the start and stop parameters of a guide request
// issued at now: the current UTC hour and 24 hours later.
func GuideWindow(now time.Time) (start, stop string) {
	from := now.UTC().Truncate(time.Hour)
	return from.Format(guideTimeLayout), from.Add(guideWindow).Format(guideTimeLayout)
}

// Guide returns the guide channels of a region for the 24 hours starting
// at the current hour, sorted by channel number.
func (c *Client) Guide(ctx context.Context, r region.Region, now time.Time) []GuideChannel {
	params := c.deviceParams()
	start, stop := GuideWindow(now)
	params.Set("start", start)
	params.Set("stop", stop)

	var guides List[GuideChannel]
	if !c.fetch(ctx, "guide", channelsEndpoint, BuildHeader(r.IP), params, &guides) {
		return nil
	}
	sort.SliceStable(guides, func(i, j int) bool { return guides[i].Number < guides[j].Number })
	return guides
}
