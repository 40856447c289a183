package flock

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CoincidentEpsilon is the smallest distance used as a divisor. Agents closer
// than this are treated as coincident.
const CoincidentEpsilon = 1e-6

// normalizeOrZero returns the unit vector of v, or the zero vector when v has
// no length. mgl64's Normalize divides by zero in that case.
func normalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// slerp interpolates along the shorter of the two arcs between from and to.
func slerp(from, to mgl64.Quat, t float64) mgl64.Quat {
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl64.QuatSlerp(from, to, t).Normalize()
}

// isZero reports whether v is exactly the zero vector.
func isZero(v mgl64.Vec3) bool {
	return v == mgl64.Vec3{}
}
