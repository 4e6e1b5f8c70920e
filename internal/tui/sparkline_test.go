package tui

import (
	"testing"

	"github.com/netvigil/ispadm/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestSparklineRendersGapsAsDots(t *testing.T) {
	samples := []telemetry.Sample{
		{Value: 100, Valid: true},
		telemetry.Gap,
		{Value: 50, Valid: true},
	}
	out := []rune(sparkline(samples))
	assert.Len(t, out, 3)
	assert.Equal(t, '·', out[1], "a gap must never render as a zero bar")
	assert.Equal(t, sparkLevels[len(sparkLevels)-1], out[0], "the window maximum fills the bar")
}

func TestSparklineAllZeroWindow(t *testing.T) {
	samples := []telemetry.Sample{
		{Value: 0, Valid: true},
		{Value: 0, Valid: true},
	}
	out := []rune(sparkline(samples))
	assert.Equal(t, []rune{sparkLevels[0], sparkLevels[0]}, out)
}

func TestLastValueSkipsTrailingGaps(t *testing.T) {
	samples := []telemetry.Sample{
		{Value: 7, Valid: true},
		telemetry.Gap,
		telemetry.Gap,
	}
	v, ok := lastValue(samples)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = lastValue([]telemetry.Sample{telemetry.Gap})
	assert.False(t, ok)
}
