package flock

import "github.com/go-gl/mathgl/mgl64"

// Aggregates holds the per-agent rule sums gathered by Scan.
//
// The sums are unweighted so both steering policies can apply their own
// gains: Separation sums unit(self-other)/distance, Alignment sums neighbor
// forward axes, Cohesion sums unit(other-self)*distance.
type Aggregates struct {
	Separation mgl64.Vec3
	Alignment  mgl64.Vec3
	Cohesion   mgl64.Vec3

	// Nearest is the smallest neighbor distance, or the vision radius when no
	// neighbor is in range.
	Nearest float64

	// Neighbors counts agents within the vision radius.
	Neighbors int
}

// Scaled returns a copy with each rule vector multiplied by its gain.
func (a Aggregates) Scaled(separation, alignment, cohesion float64) Aggregates {
	a.Separation = a.Separation.Mul(separation)
	a.Alignment = a.Alignment.Mul(alignment)
	a.Cohesion = a.Cohesion.Mul(cohesion)
	return a
}

// Scan gathers the rule sums for agents[i] against every other agent within
// vision, using world-space transforms. The scan is exhaustive: O(n) per
// agent, O(n^2) per tick.
func Scan(agents []Agent, i int, vision float64) Aggregates {
	agg := Aggregates{Nearest: vision}
	self := agents[i].Global.Position

	for j := range agents {
		if j == i {
			continue
		}
		other := &agents[j].Global

		offset := self.Sub(other.Position)
		distance := offset.Len()
		if distance > vision {
			continue
		}
		if distance < agg.Nearest {
			agg.Nearest = distance
		}
		agg.Neighbors++

		// Coincident agents have no direction to push along; the clamp keeps
		// the zero contribution from turning into NaN.
		divisor := distance
		if divisor < CoincidentEpsilon {
			divisor = CoincidentEpsilon
		}
		agg.Separation = agg.Separation.Add(normalizeOrZero(offset).Mul(1 / divisor))
		agg.Alignment = agg.Alignment.Add(Forward(other.Rotation))
		agg.Cohesion = agg.Cohesion.Add(normalizeOrZero(offset.Mul(-1)).Mul(distance))
	}

	return agg
}
