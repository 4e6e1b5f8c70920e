package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode says how a series' raw value becomes a display value.
type Mode int

const (
	// Gauge values are rates already and are used directly.
	Gauge Mode = iota
	// Counter values are cumulative; the display value is the delta
	// against the previous sample divided by the tick interval. Which
	// mode applies is configured per series from server-supplied data,
	// never assumed.
	Counter
)

// SeriesSpec declares one polled series.
type SeriesSpec struct {
	Name string
	Mode Mode
}

// Reading is one fetched snapshot: the raw value per series. An invalid
// sample records that the probe produced nothing this tick.
type Reading struct {
	At     time.Time
	Values map[string]Sample
}

// FetchFunc fetches the current snapshot from the backend.
type FetchFunc func(ctx context.Context) (*Reading, error)

// PollerConfig wires a Poller.
type PollerConfig struct {
	Interval time.Duration
	Capacity int
	Fetch    FetchFunc
	Series   []SeriesSpec
	// Active gates each tick: the owning view must be the selected tab
	// and the entity reported online. Nil means always active.
	Active func() bool
	// Archive receives every valid sample when non-nil.
	Archive *Archive
}

type counterState struct {
	value float64
	at    time.Time
}

// Poller drives the fixed-interval fetch loop. Start spawns the loop;
// Stop (or context cancellation) tears the timer down immediately so no
// ticker keeps fetching for a view that is gone.
type Poller struct {
	cfg PollerConfig

	mu      sync.Mutex
	rings   map[string]*Ring
	prev    map[string]counterState
	cancel  context.CancelFunc
	running bool
}

// NewPoller builds a stopped poller with one ring per declared series.
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = 30
	}
	p := &Poller{
		cfg:   cfg,
		rings: make(map[string]*Ring, len(cfg.Series)),
		prev:  make(map[string]counterState),
	}
	for _, s := range cfg.Series {
		p.rings[s.Name] = NewRing(cfg.Capacity)
	}
	return p
}

// Running reports whether the loop is live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins ticking. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	go p.loop(ctx)
	zap.L().Debug("telemetry poller started", zap.Duration("interval", p.cfg.Interval))
}

// Stop halts the loop and clears the timer. Idempotent.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.running = false
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		zap.L().Debug("telemetry poller stopped")
	}
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.cfg.Active != nil && !p.cfg.Active() {
				continue
			}
			p.tick(ctx)
		}
	}
}

// tick fetches one snapshot and folds it into the buffers. A failed tick
// logs and is skipped; it never stops the loop.
func (p *Poller) tick(ctx context.Context) {
	reading, err := p.cfg.Fetch(ctx)
	if err != nil {
		zap.L().Warn("telemetry tick failed", zap.Error(err))
		return
	}
	p.ingest(reading)
}

func (p *Poller) ingest(reading *Reading) {
	if reading == nil {
		return
	}
	at := reading.At
	if at.IsZero() {
		at = time.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, spec := range p.cfg.Series {
		ring, ok := p.rings[spec.Name]
		if !ok {
			continue
		}
		raw, ok := reading.Values[spec.Name]
		if !ok || !raw.Valid {
			ring.Push(Gap)
			delete(p.prev, spec.Name)
			continue
		}

		display := raw
		if spec.Mode == Counter {
			prev, had := p.prev[spec.Name]
			p.prev[spec.Name] = counterState{value: raw.Value, at: at}
			if !had {
				// No baseline yet for a cumulative counter.
				ring.Push(Gap)
				continue
			}
			elapsed := at.Sub(prev.at).Seconds()
			if elapsed <= 0 {
				elapsed = p.cfg.Interval.Seconds()
			}
			delta := raw.Value - prev.value
			if delta < 0 {
				// Counter reset on the device.
				ring.Push(Gap)
				continue
			}
			display = Sample{Value: delta / elapsed, Valid: true}
		}

		ring.Push(display)
		if p.cfg.Archive != nil {
			if err := p.cfg.Archive.Append(spec.Name, at, display.Value); err != nil {
				zap.L().Debug("telemetry archive append failed",
					zap.String("series", spec.Name), zap.Error(err))
			}
		}
	}
}

// Snapshot copies every series buffer, oldest first. Series identity is
// stable across ticks: the same names in the same order, only data moves.
func (p *Poller) Snapshot() map[string][]Sample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string][]Sample, len(p.rings))
	for name, ring := range p.rings {
		out[name] = ring.Samples()
	}
	return out
}

// SeriesNames returns the declared series in declaration order.
func (p *Poller) SeriesNames() []string {
	names := make([]string, 0, len(p.cfg.Series))
	for _, s := range p.cfg.Series {
		names = append(names, s.Name)
	}
	return names
}
