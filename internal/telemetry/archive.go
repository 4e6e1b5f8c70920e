package telemetry

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/nakabonne/tstorage"
)

// Archive persists polled samples locally so a dashboard session can show
// history beyond the live ring and compute summaries.
type Archive struct {
	storage tstorage.Storage
}

// OpenArchive opens (or creates) a sample archive under dir.
func OpenArchive(dir string) (*Archive, error) {
	storage, err := tstorage.NewStorage(
		tstorage.WithDataPath(dir),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
	)
	if err != nil {
		return nil, fmt.Errorf("open telemetry archive %s: %w", dir, err)
	}
	return &Archive{storage: storage}, nil
}

// Append stores one sample.
func (a *Archive) Append(series string, at time.Time, value float64) error {
	return a.storage.InsertRows([]tstorage.Row{
		{
			Metric:    series,
			DataPoint: tstorage.DataPoint{Timestamp: at.Unix(), Value: value},
		},
	})
}

// SeriesSummary aggregates one series over a window.
type SeriesSummary struct {
	Count int
	Mean  float64
	P95   float64
	Max   float64
}

// Summary computes count/mean/p95/max for a series between from and to.
func (a *Archive) Summary(series string, from, to time.Time) (*SeriesSummary, error) {
	points, err := a.storage.Select(series, nil, from.Unix(), to.Unix())
	if err != nil {
		if err == tstorage.ErrNoDataPoints {
			return &SeriesSummary{}, nil
		}
		return nil, fmt.Errorf("select %s: %w", series, err)
	}
	values := make([]float64, 0, len(points))
	for _, p := range points {
		values = append(values, p.Value)
	}
	if len(values) == 0 {
		return &SeriesSummary{}, nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, err
	}
	p95, err := stats.Percentile(values, 95)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(values)
	if err != nil {
		return nil, err
	}
	return &SeriesSummary{Count: len(values), Mean: mean, P95: p95, Max: max}, nil
}

// Close flushes and closes the archive.
func (a *Archive) Close() error {
	return a.storage.Close()
}
