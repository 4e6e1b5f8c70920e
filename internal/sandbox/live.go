package sandbox

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/netvigil/ispadm/internal/domain"
)

// liveSample synthesizes one telemetry snapshot. Cumulative rules grow a
// per-subscriber byte counter between calls; rate rules report Kbps
// directly. Every eighth sample fails the latency probe so clients see
// gaps, not zeros.
func (s *Server) liveSample(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscriber ID")
	}
	var sub domain.Subscriber
	if err := s.db.First(&sub, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Subscriber not found")
	}
	if !sub.Online {
		return fail(c, http.StatusConflict, "OFFLINE", "subscriber has no active session")
	}

	var rules []domain.CdnRule
	s.db.Where("status = ?", "enabled").Order("id ASC").Find(&rules)

	s.mu.Lock()
	state := s.counters[id]
	if state == nil {
		state = &liveState{cdnBytes: make(map[int64]float64)}
		s.counters[id] = state
	}
	state.seq++
	seq := state.seq

	phase := float64(seq) / 6.0
	down := float64(sub.DownRateKbps) * (0.55 + 0.35*math.Abs(math.Sin(phase)))
	up := float64(sub.UpRateKbps) * (0.40 + 0.30*math.Abs(math.Cos(phase)))

	counters := make([]domain.CdnCounter, 0, len(rules))
	for _, rule := range rules {
		value := float64(rule.RateKbps) * (0.3 + 0.5*math.Abs(math.Sin(phase+float64(rule.ID%7))))
		if !rule.IsRate {
			// Cumulative counter: advance by the per-interval byte cost of
			// the instantaneous rate.
			state.cdnBytes[rule.ID] += value * 1024 / 8 * 2
			value = state.cdnBytes[rule.ID]
		}
		counters = append(counters, domain.CdnCounter{
			RuleID: rule.ID,
			Name:   rule.Name,
			Value:  value,
			IsRate: rule.IsRate,
		})
	}
	s.mu.Unlock()

	sample := domain.LiveSample{
		At:           time.Now().Unix(),
		DownRateKbps: down,
		UpRateKbps:   up,
		PingMs:       3 + 2*math.Abs(math.Sin(phase*1.7)),
		PingOK:       seq%8 != 0,
		Cdn:          counters,
	}
	if !sample.PingOK {
		sample.PingMs = 0
	}
	return ok(c, "", sample)
}
