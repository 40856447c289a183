package components

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestGlobalTransformCompose(t *testing.T) {
	quarter := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})

	tests := []struct {
		name    string
		parent  GlobalTransform
		local   Transform
		wantPos mgl64.Vec3
	}{
		{
			name:    "identity parent",
			parent:  Root(NewTransform(mgl64.Vec3{}, mgl64.QuatIdent())),
			local:   NewTransform(mgl64.Vec3{1, 2, 3}, mgl64.QuatIdent()),
			wantPos: mgl64.Vec3{1, 2, 3},
		},
		{
			name:    "translated parent",
			parent:  Root(NewTransform(mgl64.Vec3{10, 0, 0}, mgl64.QuatIdent())),
			local:   NewTransform(mgl64.Vec3{0, 0, -1}, mgl64.QuatIdent()),
			wantPos: mgl64.Vec3{10, 0, -1},
		},
		{
			name:    "rotated parent",
			parent:  Root(NewTransform(mgl64.Vec3{}, quarter)),
			local:   NewTransform(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent()),
			wantPos: mgl64.Vec3{0, 0, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.parent.Compose(tt.local)
			if !got.Position.ApproxEqualThreshold(tt.wantPos, 1e-9) {
				t.Errorf("Position = %v, want %v", got.Position, tt.wantPos)
			}
			wantRot := tt.parent.Rotation.Mul(tt.local.Rotation)
			if !got.Rotation.OrientationEqualThreshold(wantRot, 1e-9) {
				t.Errorf("Rotation = %v, want %v", got.Rotation, wantRot)
			}
		})
	}
}

func TestTransformFlockRoundTrip(t *testing.T) {
	tr := NewTransform(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 0}))

	var back Transform
	back.SetFlock(tr.Flock())

	if back != tr {
		t.Errorf("round trip = %+v, want %+v", back, tr)
	}
}
