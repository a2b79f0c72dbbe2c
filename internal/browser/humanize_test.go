// internal/browser/humanize_test.go
package browser

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEaseInOutCubic(t *testing.T) {
	assert.InDelta(t, 0.0, easeInOutCubic(0), 1e-9)
	assert.InDelta(t, 1.0, easeInOutCubic(1), 1e-9)
	assert.InDelta(t, 0.5, easeInOutCubic(0.5), 1e-9)

	// Monotonically non-decreasing over [0, 1].
	prev := 0.0
	for i := 1; i <= 100; i++ {
		v := easeInOutCubic(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestPathToEndsAtTarget(t *testing.T) {
	h := newHumanizer(42)
	h.pos = vec2{x: 100, y: 100}
	target := vec2{x: 900, y: 500}

	path := h.pathTo(target)

	require.NotEmpty(t, path)
	assert.Greater(t, len(path), 5, "a long movement should produce many waypoints")
	last := path[len(path)-1]
	assert.Equal(t, target, last)
	assert.Equal(t, target, h.pos, "cursor position should track the movement")
}

func TestPathToCurves(t *testing.T) {
	h := newHumanizer(7)
	h.pos = vec2{x: 0, y: 300}
	target := vec2{x: 1000, y: 300}

	path := h.pathTo(target)

	// A straight horizontal line would keep y == 300 throughout; the bowed
	// trajectory must leave it at some midpoint.
	var maxDeviation float64
	for _, p := range path {
		if d := math.Abs(p.y - 300); d > maxDeviation {
			maxDeviation = d
		}
	}
	assert.Greater(t, maxDeviation, 2.0, "trajectory should bow away from the straight line")
}

func TestPathToShortHop(t *testing.T) {
	h := newHumanizer(1)
	h.pos = vec2{x: 50, y: 50}
	target := vec2{x: 50.3, y: 50.3}

	path := h.pathTo(target)

	require.Len(t, path, 1)
	assert.Equal(t, target, path[0])
}

func TestMoveDurationScalesWithDistance(t *testing.T) {
	h := newHumanizer(3)

	avg := func(dist float64) time.Duration {
		var total time.Duration
		for i := 0; i < 200; i++ {
			d := h.moveDuration(dist)
			assert.Greater(t, d, time.Duration(0))
			total += d
		}
		return total / 200
	}

	short := avg(40)
	long := avg(1200)
	assert.Greater(t, long, short, "farther targets must take longer to reach")
}

func TestTargetWithinStaysInside(t *testing.T) {
	h := newHumanizer(9)
	const x, y, w, hgt = 200.0, 300.0, 120.0, 40.0

	for i := 0; i < 500; i++ {
		p := h.targetWithin(x, y, w, hgt)
		assert.GreaterOrEqual(t, p.x, x)
		assert.LessOrEqual(t, p.x, x+w)
		assert.GreaterOrEqual(t, p.y, y)
		assert.LessOrEqual(t, p.y, y+hgt)
	}
}

func TestTargetWithinDegenerateBox(t *testing.T) {
	h := newHumanizer(9)
	p := h.targetWithin(10, 20, 0, 0)
	assert.Equal(t, vec2{x: 10, y: 20}, p)
}

func TestKeyDelayBounds(t *testing.T) {
	h := newHumanizer(11)
	for i := 0; i < 500; i++ {
		d := h.keyDelay('a', 'b')
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestKeyDelayPracticedDigraphsAreFaster(t *testing.T) {
	h := newHumanizer(13)

	avg := func(prev, next rune) time.Duration {
		var total time.Duration
		for i := 0; i < 400; i++ {
			total += h.keyDelay(prev, next)
		}
		return total / 400
	}

	assert.Less(t, avg('t', 'h'), avg('q', 'z'))
}

func TestScrollSegmentsSumToTotal(t *testing.T) {
	h := newHumanizer(17)

	for _, total := range []float64{720, -720, 1500, 33} {
		segs := h.scrollSegments(total)
		require.NotEmpty(t, segs)

		var sum float64
		for _, s := range segs {
			sum += s
		}
		assert.InDelta(t, total, sum, 1e-9, "segments must add up to the requested scroll")
	}
}

func TestScrollSegmentsZero(t *testing.T) {
	h := newHumanizer(17)
	assert.Empty(t, h.scrollSegments(0))
}

func TestScrollSegmentsFrontLoaded(t *testing.T) {
	h := newHumanizer(19)

	// Averaged over many bursts, the first segment should carry more of the
	// distance than the last.
	var first, last float64
	for i := 0; i < 200; i++ {
		segs := h.scrollSegments(1000)
		first += segs[0]
		last += segs[len(segs)-1]
	}
	assert.Greater(t, first, last)
}

func TestHoldDurationBounds(t *testing.T) {
	h := newHumanizer(23)
	for i := 0; i < 200; i++ {
		d := h.holdDuration()
		assert.GreaterOrEqual(t, d, 55*time.Millisecond)
		assert.Less(t, d, 125*time.Millisecond)
	}
}
