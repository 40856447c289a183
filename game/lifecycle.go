package game

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
)

// ErrNoParent is returned when a parent entity is dead or has no transform.
var ErrNoParent = errors.New("parent has no transform")

// spawnInitialPopulation creates the free boids, then the anchors with their
// children.
func (s *Simulation) spawnInitialPopulation() {
	pop := &s.cfg.Population

	for i := 0; i < pop.Initial; i++ {
		pos := randomInSphere(s.rng, pop.SpawnRadius)
		s.spawnBoid(components.NewTransform(pos, randomRotation(s.rng)))
	}

	for a := 0; a < pop.Anchors; a++ {
		pos := randomInSphere(s.rng, pop.SpawnRadius)
		drift := components.Drift{
			Velocity: randomDirection(s.rng).Mul(pop.AnchorSpeed),
			Spin:     (s.rng.Float64() - 0.5) * 0.5,
		}
		anchor := s.SpawnAnchor(pos, drift)

		for i := 0; i < pop.BoidsPerAnchor; i++ {
			local := components.NewTransform(randomInSphere(s.rng, pop.SpawnRadius/4), randomRotation(s.rng))
			if _, err := s.SpawnBoid(anchor, local); err != nil {
				panic(err) // anchor was created above
			}
		}
	}
}

// SpawnAnchor creates an unsteered parent that drifts at constant velocity
// and spin.
func (s *Simulation) SpawnAnchor(pos mgl64.Vec3, drift components.Drift) ecs.Entity {
	t := components.NewTransform(pos, mgl64.QuatIdent())
	g := components.Root(t)
	return s.anchorMapper.NewEntity(&t, &g, &drift)
}

// SpawnBoid creates a steered boid. A zero parent spawns it at the root;
// otherwise local is relative to the parent's global transform.
func (s *Simulation) SpawnBoid(parent ecs.Entity, local components.Transform) (ecs.Entity, error) {
	if parent != (ecs.Entity{}) && !s.hasTransform(parent) {
		return ecs.Entity{}, fmt.Errorf("spawning boid: %w", ErrNoParent)
	}
	e := s.spawnBoid(local)
	if parent != (ecs.Entity{}) {
		s.parentMap.Add(e, &components.Parent{Entity: parent})
		s.hierarchy.forget(e)
	}
	return e, nil
}

func (s *Simulation) spawnBoid(local components.Transform) ecs.Entity {
	g := components.Root(local)
	s.lastBoidID++
	b := components.Boid{ID: s.lastBoidID, Born: s.tick}
	return s.boidMapper.NewEntity(&local, &g, &b)
}

// SetParent attaches child to parent, replacing any existing parent. Cycles
// are accepted here and broken during the hierarchy sync.
func (s *Simulation) SetParent(child, parent ecs.Entity) error {
	if !s.hasTransform(child) {
		return fmt.Errorf("setting parent: child has no transform")
	}
	if !s.hasTransform(parent) {
		return fmt.Errorf("setting parent: %w", ErrNoParent)
	}
	if s.parentMap.Has(child) {
		s.parentMap.Get(child).Entity = parent
	} else {
		s.parentMap.Add(child, &components.Parent{Entity: parent})
	}
	s.hierarchy.forget(child)
	return nil
}

// Despawn removes an entity. Children of a despawned entity fall back to the
// root on the next tick.
func (s *Simulation) Despawn(e ecs.Entity) {
	if s.world.Alive(e) {
		s.world.RemoveEntity(e)
	}
}

func (s *Simulation) hasTransform(e ecs.Entity) bool {
	return s.world.Alive(e) && s.transformMap.Has(e) && s.globalMap.Has(e)
}

// applyDrift moves every anchor by its constant velocity and spin.
func (s *Simulation) applyDrift() {
	dt := s.cfg.Physics.DT
	query := s.driftFilter.Query()
	for query.Next() {
		t, d := query.Get()
		t.Position = t.Position.Add(d.Velocity.Mul(dt))
		if d.Spin != 0 {
			yaw := mgl64.QuatRotate(d.Spin*dt, mgl64.Vec3{0, 1, 0})
			t.Rotation = yaw.Mul(t.Rotation).Normalize()
		}
	}
}

// randomInSphere returns a point uniformly distributed inside a ball.
func randomInSphere(rng *rand.Rand, radius float64) mgl64.Vec3 {
	r := radius * math.Cbrt(rng.Float64())
	return randomDirection(rng).Mul(r)
}

// randomDirection returns a uniformly distributed unit vector.
func randomDirection(rng *rand.Rand) mgl64.Vec3 {
	z := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// randomRotation returns a uniformly distributed unit quaternion (Shoemake).
func randomRotation(rng *rand.Rand) mgl64.Quat {
	u1, u2, u3 := rng.Float64(), 2*math.Pi*rng.Float64(), 2*math.Pi*rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	return mgl64.Quat{
		W: b * math.Cos(u3),
		V: mgl64.Vec3{a * math.Sin(u2), a * math.Cos(u2), b * math.Sin(u3)},
	}
}
