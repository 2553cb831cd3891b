package decision

import (
	"math"
	"math/rand/v2"
)

// RouteCandidate is one route's current standing in a multi-route selection
// pool, per spec.md §4.5's "pick among admissible routes weighted away from
// resistance" requirement.
type RouteCandidate struct {
	RouteID    string
	Resistance float64
	Admitted   bool
}

// Temperature controls how sharply SelectRoute favors low-resistance
// candidates. Lower values concentrate probability mass on the
// lowest-resistance route; higher values flatten the distribution toward
// uniform. 1.0 is the spec's default.
const DefaultTemperature = 1.0

// SelectRoute performs a softmax draw over admitted candidates, weighted
// toward lower resistance (a route under less pressure is more attractive),
// using rng as the only source of randomness — the physics core stays pure
// and all entropy is injected at the edge, per spec.md §5.
//
// Returns ("", false) if no candidate is admitted.
func SelectRoute(candidates []RouteCandidate, temperature float64, rng *rand.Rand) (string, bool) {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	admitted := make([]RouteCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Admitted {
			admitted = append(admitted, c)
		}
	}
	if len(admitted) == 0 {
		return "", false
	}
	if len(admitted) == 1 {
		return admitted[0].RouteID, true
	}

	// Softmax over -resistance/temperature, shifted by the max logit for
	// numerical stability (same shift-then-exp shape as any softmax, applied
	// here to resistance instead of a model logit).
	logits := make([]float64, len(admitted))
	maxLogit := math.Inf(-1)
	for i, c := range admitted {
		logits[i] = -c.Resistance / temperature
		if logits[i] > maxLogit {
			maxLogit = logits[i]
		}
	}
	weights := make([]float64, len(admitted))
	total := 0.0
	for i, l := range logits {
		weights[i] = math.Exp(l - maxLogit)
		total += weights[i]
	}
	if total <= 0 || math.IsNaN(total) {
		return admitted[0].RouteID, true
	}

	draw := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw <= cumulative {
			return admitted[i].RouteID, true
		}
	}
	return admitted[len(admitted)-1].RouteID, true
}
