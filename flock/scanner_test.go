package flock

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const eps = 1e-9

// facing returns a rotation whose forward axis points along dir.
func facing(dir mgl64.Vec3) mgl64.Quat {
	return mgl64.QuatBetweenVectors(localForward, dir.Normalize())
}

// agentAt builds a non-hierarchical agent (Local == Global).
func agentAt(id uint32, pos mgl64.Vec3, rot mgl64.Quat) Agent {
	t := Transform{Position: pos, Rotation: rot}
	return Agent{ID: id, Local: t, Global: t}
}

func isFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func TestScanNoNeighbors(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent()),
		agentAt(2, mgl64.Vec3{5, 0, 0}, mgl64.QuatIdent()),
	}

	agg := Scan(agents, 0, 4)

	if agg.Nearest != 4 {
		t.Errorf("Nearest = %f, want vision radius 4", agg.Nearest)
	}
	if agg.Neighbors != 0 {
		t.Errorf("Neighbors = %d, want 0", agg.Neighbors)
	}
	for name, v := range map[string]mgl64.Vec3{
		"separation": agg.Separation,
		"alignment":  agg.Alignment,
		"cohesion":   agg.Cohesion,
	} {
		if !isZero(v) {
			t.Errorf("%s = %v, want zero", name, v)
		}
	}
}

func TestScanAccumulatesRules(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent()),
		agentAt(2, mgl64.Vec3{2, 0, 0}, facing(mgl64.Vec3{1, 0, 0})),
		agentAt(3, mgl64.Vec3{0, 0, 10}, mgl64.QuatIdent()), // out of range
	}

	agg := Scan(agents, 0, 4)

	if agg.Neighbors != 1 {
		t.Fatalf("Neighbors = %d, want 1", agg.Neighbors)
	}
	if math.Abs(agg.Nearest-2) > eps {
		t.Errorf("Nearest = %f, want 2", agg.Nearest)
	}
	// unit(self-other)/d = (-1,0,0)/2
	if want := (mgl64.Vec3{-0.5, 0, 0}); !agg.Separation.ApproxEqualThreshold(want, eps) {
		t.Errorf("Separation = %v, want %v", agg.Separation, want)
	}
	if want := (mgl64.Vec3{1, 0, 0}); !agg.Alignment.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("Alignment = %v, want %v", agg.Alignment, want)
	}
	// unit(other-self)*d = (1,0,0)*2
	if want := (mgl64.Vec3{2, 0, 0}); !agg.Cohesion.ApproxEqualThreshold(want, eps) {
		t.Errorf("Cohesion = %v, want %v", agg.Cohesion, want)
	}
}

func TestScanUsesGlobalTransform(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{0, 0, 0}, mgl64.QuatIdent()),
		{
			ID:     2,
			Local:  NewTransform(mgl64.Vec3{100, 0, 0}),
			Global: NewTransform(mgl64.Vec3{1, 0, 0}),
		},
	}

	agg := Scan(agents, 0, 4)
	if agg.Neighbors != 1 || math.Abs(agg.Nearest-1) > eps {
		t.Errorf("scan should use global position: neighbors=%d nearest=%f", agg.Neighbors, agg.Nearest)
	}
}

func TestScanSeparationSymmetry(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{-1, 0, 0}, facing(mgl64.Vec3{1, 0, 0})),
		agentAt(2, mgl64.Vec3{1, 0, 0}, facing(mgl64.Vec3{-1, 0, 0})),
	}

	a := Scan(agents, 0, 4)
	b := Scan(agents, 1, 4)

	if math.Abs(a.Separation.Len()-b.Separation.Len()) > eps {
		t.Errorf("separation magnitudes differ: %f vs %f", a.Separation.Len(), b.Separation.Len())
	}
	if sum := a.Separation.Add(b.Separation); !sum.ApproxEqualThreshold(mgl64.Vec3{}, eps) {
		t.Errorf("separation vectors not opposite: %v + %v = %v", a.Separation, b.Separation, sum)
	}
	if a.Separation.Len() == 0 {
		t.Error("separation should be non-zero for agents 2 apart")
	}
}

func TestScanCoincidentAgents(t *testing.T) {
	agents := []Agent{
		agentAt(1, mgl64.Vec3{3, 3, 3}, mgl64.QuatIdent()),
		agentAt(2, mgl64.Vec3{3, 3, 3}, mgl64.QuatIdent()),
	}

	agg := Scan(agents, 0, 4)

	if agg.Nearest != 0 {
		t.Errorf("Nearest = %f, want 0", agg.Nearest)
	}
	if !isFinite(agg.Separation) || !isFinite(agg.Cohesion) {
		t.Fatalf("coincident scan produced non-finite sums: sep=%v coh=%v", agg.Separation, agg.Cohesion)
	}
	if !isZero(agg.Separation) {
		t.Errorf("coincident separation = %v, want zero", agg.Separation)
	}
}

func TestAggregatesScaled(t *testing.T) {
	agg := Aggregates{
		Separation: mgl64.Vec3{1, 0, 0},
		Alignment:  mgl64.Vec3{0, 1, 0},
		Cohesion:   mgl64.Vec3{0, 0, 1},
		Nearest:    1.5,
		Neighbors:  2,
	}

	got := agg.Scaled(2, 3, 4)

	if got.Separation != (mgl64.Vec3{2, 0, 0}) || got.Alignment != (mgl64.Vec3{0, 3, 0}) || got.Cohesion != (mgl64.Vec3{0, 0, 4}) {
		t.Errorf("Scaled = %+v", got)
	}
	if got.Nearest != 1.5 || got.Neighbors != 2 {
		t.Error("Scaled should not touch Nearest or Neighbors")
	}
}

func TestNormalizeOrZero(t *testing.T) {
	if got := normalizeOrZero(mgl64.Vec3{}); !isZero(got) {
		t.Errorf("normalizeOrZero(0) = %v, want zero", got)
	}
	got := normalizeOrZero(mgl64.Vec3{3, 0, 4})
	if math.Abs(got.Len()-1) > eps {
		t.Errorf("normalizeOrZero length = %f, want 1", got.Len())
	}
}

func BenchmarkScan(b *testing.B) {
	agents := make([]Agent, 512)
	for i := range agents {
		x := float64(i%8) * 1.5
		z := float64(i/8) * 1.5
		agents[i] = agentAt(uint32(i), mgl64.Vec3{x, 0, z}, mgl64.QuatIdent())
	}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range agents {
			_ = Scan(agents, i, 4)
		}
	}
}
