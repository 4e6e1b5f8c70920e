package tui

import (
	"strings"

	"github.com/netvigil/ispadm/internal/telemetry"
)

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline renders a sample window as block characters, newest on the
// right. Gaps render as dots so a missed probe never reads as a zero
// rate.
func sparkline(samples []telemetry.Sample) string {
	max := 0.0
	for _, s := range samples {
		if s.Valid && s.Value > max {
			max = s.Value
		}
	}

	var sb strings.Builder
	for _, s := range samples {
		if !s.Valid {
			sb.WriteRune('·')
			continue
		}
		if max <= 0 {
			sb.WriteRune(sparkLevels[0])
			continue
		}
		idx := int(s.Value / max * float64(len(sparkLevels)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkLevels) {
			idx = len(sparkLevels) - 1
		}
		sb.WriteRune(sparkLevels[idx])
	}
	return sb.String()
}

// lastValue returns the newest valid sample, if any.
func lastValue(samples []telemetry.Sample) (float64, bool) {
	for i := len(samples) - 1; i >= 0; i-- {
		if samples[i].Valid {
			return samples[i].Value, true
		}
	}
	return 0, false
}
