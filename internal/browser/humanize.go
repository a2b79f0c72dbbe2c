// internal/browser/humanize.go
package browser

import (
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"
)

// Fitts's law coefficients, in milliseconds. MT = fittsA + fittsB*log2(1 + D/W).
const (
	fittsA           = 120.0
	fittsB           = 160.0
	fittsTargetWidth = 30.0
)

type vec2 struct {
	x, y float64
}

func (v vec2) add(o vec2) vec2     { return vec2{v.x + o.x, v.y + o.y} }
func (v vec2) sub(o vec2) vec2     { return vec2{v.x - o.x, v.y - o.y} }
func (v vec2) mul(s float64) vec2  { return vec2{v.x * s, v.y * s} }
func (v vec2) dist(o vec2) float64 { return math.Hypot(v.x-o.x, v.y-o.y) }
func (v vec2) mag() float64        { return math.Hypot(v.x, v.y) }

// humanizer synthesizes human-plausible input pacing: curved mouse
// trajectories with drift, Fitts's-law movement times, and variable typing
// cadence. It tracks the virtual cursor position across actions so each
// movement starts where the previous one ended.
type humanizer struct {
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
	pos    vec2
}

func newHumanizer(seed int64) *humanizer {
	return &humanizer{
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(2, 2, 3, seed),
		noiseY: perlin.NewPerlin(2, 2, 3, seed+1),
		// Cursor starts near the top-left, where a fresh tab leaves it.
		pos: vec2{x: 8, y: 8},
	}
}

// moveDuration derives a movement time for the given distance from Fitts's
// law, with a +/-15% jitter so repeated moves never take identical time.
func (h *humanizer) moveDuration(dist float64) time.Duration {
	id := math.Log2(1.0 + dist/fittsTargetWidth)
	mt := fittsA + fittsB*id
	mt += mt * (h.rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt) * time.Millisecond
}

// easeInOutCubic shapes the pacing of a movement: slow start, fast middle,
// slow landing.
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// pathTo generates cursor waypoints from the current position to target along
// a cubic Bezier curve. The control points are pushed off the straight line
// perpendicular to the travel direction, and Perlin noise adds low-frequency
// hand drift along the way.
func (h *humanizer) pathTo(target vec2) []vec2 {
	start := h.pos
	travel := target.sub(start)
	dist := travel.mag()
	if dist < 1.0 {
		h.pos = target
		return []vec2{target}
	}

	steps := int(dist / 8.0)
	if steps < 6 {
		steps = 6
	}
	if steps > 90 {
		steps = 90
	}

	// Perpendicular unit vector to the travel direction.
	perp := vec2{x: -travel.y / dist, y: travel.x / dist}

	// Curvature scales with distance but stays subtle; the sign flips at
	// random so paths do not always bow the same way.
	bow := dist * (0.05 + h.rng.Float64()*0.10)
	if h.rng.Intn(2) == 0 {
		bow = -bow
	}
	c1 := start.add(travel.mul(1.0 / 3.0)).add(perp.mul(bow))
	c2 := start.add(travel.mul(2.0 / 3.0)).add(perp.mul(bow * (0.4 + h.rng.Float64()*0.4)))

	noisePhase := h.rng.Float64() * 100

	path := make([]vec2, 0, steps)
	for i := 1; i <= steps; i++ {
		t := easeInOutCubic(float64(i) / float64(steps))
		omt := 1 - t

		p := start.mul(omt * omt * omt).
			add(c1.mul(3 * omt * omt * t)).
			add(c2.mul(3 * omt * t * t)).
			add(target.mul(t * t * t))

		// Drift fades out near the target so the cursor actually lands on it.
		fade := 1.0 - t
		p.x += h.noiseX.Noise1D(noisePhase+t*2) * 2.5 * fade
		p.y += h.noiseY.Noise1D(noisePhase+t*2) * 2.5 * fade

		path = append(path, p)
	}
	path[len(path)-1] = target
	h.pos = target
	return path
}

// targetWithin picks a click point inside a rectangle, biased toward the
// center the way real clicks cluster.
func (h *humanizer) targetWithin(x, y, w, hgt float64) vec2 {
	if w <= 0 || hgt <= 0 {
		return vec2{x: x, y: y}
	}
	// Truncated normal around the center at ~1/6th of the dimension.
	offX := clamp(h.rng.NormFloat64()*w/6, -w/2+1, w/2-1)
	offY := clamp(h.rng.NormFloat64()*hgt/6, -hgt/2+1, hgt/2-1)
	return vec2{x: x + w/2 + offX, y: y + hgt/2 + offY}
}

// holdDuration is how long the button stays pressed during a click.
func (h *humanizer) holdDuration() time.Duration {
	return time.Duration(55+h.rng.Intn(70)) * time.Millisecond
}

// commonDigraphs type faster than arbitrary character pairs.
var commonDigraphs = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true,
	"re": true, "on": true, "st": true, "en": true, "es": true,
}

// keyDelay returns the pause before typing next, given the previously typed
// rune. Practiced digraphs come out faster; word boundaries and the
// occasional hesitation slow things down.
func (h *humanizer) keyDelay(prev, next rune) time.Duration {
	base := 70.0 + h.rng.Float64()*80.0

	if commonDigraphs[string([]rune{prev, next})] {
		base *= 0.6
	}
	if prev == ' ' {
		base *= 1.3
	}

	// Roughly one hesitation per 30 keystrokes.
	if h.rng.Float64() < 0.033 {
		base += 250 + h.rng.Float64()*350
	}
	return time.Duration(base) * time.Millisecond
}

// scrollSegments splits a scroll distance into wheel-sized increments whose
// magnitudes taper off, mimicking flick-and-coast scrolling. The segments sum
// to total.
func (h *humanizer) scrollSegments(total float64) []float64 {
	if total == 0 {
		return nil
	}
	n := 3 + h.rng.Intn(4)

	weights := make([]float64, n)
	var sum float64
	for i := range weights {
		// Decaying weights with jitter: early segments carry most of it.
		weights[i] = math.Pow(0.65, float64(i)) * (0.8 + h.rng.Float64()*0.4)
		sum += weights[i]
	}

	segs := make([]float64, n)
	var emitted float64
	for i := 0; i < n-1; i++ {
		segs[i] = math.Round(total * weights[i] / sum)
		emitted += segs[i]
	}
	segs[n-1] = total - emitted
	return segs
}

// scrollPause is the gap between successive wheel bursts.
func (h *humanizer) scrollPause() time.Duration {
	return time.Duration(40+h.rng.Intn(90)) * time.Millisecond
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
