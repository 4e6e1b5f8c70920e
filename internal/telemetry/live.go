package telemetry

import (
	"time"

	"github.com/netvigil/ispadm/internal/domain"
)

// Built-in series names for a subscriber's live view.
const (
	SeriesDownload = "download"
	SeriesUpload   = "upload"
	SeriesPing     = "ping"
)

// SubscriberSeries builds the series list for one subscriber from an
// initial sample: the three base gauges plus one series per CDN counter.
// Whether a CDN series is a gauge or a cumulative counter comes from the
// server's is_rate flag on the sample, never assumed client-side.
func SubscriberSeries(sample *domain.LiveSample) []SeriesSpec {
	specs := []SeriesSpec{
		{Name: SeriesDownload, Mode: Gauge},
		{Name: SeriesUpload, Mode: Gauge},
		{Name: SeriesPing, Mode: Gauge},
	}
	if sample == nil {
		return specs
	}
	for _, c := range sample.Cdn {
		mode := Counter
		if c.IsRate {
			mode = Gauge
		}
		specs = append(specs, SeriesSpec{Name: "cdn:" + c.Name, Mode: mode})
	}
	return specs
}

// ReadingFromSample converts a fetched live sample into a Reading. A
// timed-out latency probe becomes a gap, not a zero.
func ReadingFromSample(s *domain.LiveSample) *Reading {
	if s == nil {
		return nil
	}
	r := &Reading{
		At: time.Unix(s.At, 0),
		Values: map[string]Sample{
			SeriesDownload: {Value: s.DownRateKbps, Valid: true},
			SeriesUpload:   {Value: s.UpRateKbps, Valid: true},
		},
	}
	if s.PingOK {
		r.Values[SeriesPing] = Sample{Value: s.PingMs, Valid: true}
	} else {
		r.Values[SeriesPing] = Gap
	}
	for _, c := range s.Cdn {
		r.Values["cdn:"+c.Name] = Sample{Value: c.Value, Valid: true}
	}
	return r
}
