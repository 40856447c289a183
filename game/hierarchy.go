package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/flock/components"
)

// MaxHierarchyDepth bounds parent chains. Deeper entities are resolved as if
// their ancestor at this depth were a root.
const MaxHierarchyDepth = 64

type visit uint8

const (
	unvisited visit = iota
	visiting
	resolved
)

// hierarchy is the per-tick memo for global transform resolution.
type hierarchy struct {
	state    map[ecs.Entity]visit
	reported map[ecs.Entity]bool // broken links already logged
	nodes    []ecs.Entity
}

func newHierarchy() hierarchy {
	return hierarchy{
		state:    make(map[ecs.Entity]visit),
		reported: make(map[ecs.Entity]bool),
	}
}

// forget re-arms logging for e after its parent changes.
func (h *hierarchy) forget(e ecs.Entity) {
	delete(h.reported, e)
}

// syncHierarchy recomputes every GlobalTransform from the local transforms
// and Parent links. Each entity is resolved once; cycles and over-deep chains
// are cut at the link that closes them.
func (s *Simulation) syncHierarchy() {
	h := &s.hierarchy
	clear(h.state)

	h.nodes = h.nodes[:0]
	query := s.nodeFilter.Query()
	for query.Next() {
		h.nodes = append(h.nodes, query.Entity())
	}

	for _, e := range h.nodes {
		s.resolveGlobal(e, 0)
	}
}

// resolveGlobal computes and stores the global transform of e. It returns
// nil when e is already on the resolution stack.
func (s *Simulation) resolveGlobal(e ecs.Entity, depth int) *components.GlobalTransform {
	h := &s.hierarchy
	switch h.state[e] {
	case resolved:
		return s.globalMap.Get(e)
	case visiting:
		return nil
	}
	h.state[e] = visiting

	local := *s.transformMap.Get(e)
	global := components.Root(local)

	if s.parentMap.Has(e) {
		parent := s.parentMap.Get(e).Entity
		switch {
		case !s.hasTransform(parent):
			// Dangling link: the parent was despawned.
		case depth >= MaxHierarchyDepth:
			s.reportBrokenLink(e, parent, "transform hierarchy too deep")
		default:
			if pg := s.resolveGlobal(parent, depth+1); pg != nil {
				global = pg.Compose(local)
			} else {
				s.reportBrokenLink(e, parent, "transform hierarchy cycle")
			}
		}
	}

	g := s.globalMap.Get(e)
	*g = global
	h.state[e] = resolved
	return g
}

func (s *Simulation) reportBrokenLink(child, parent ecs.Entity, msg string) {
	if s.hierarchy.reported[child] {
		return
	}
	s.hierarchy.reported[child] = true
	slog.Warn(msg, "entity", child.ID(), "parent", parent.ID(), "tick", s.tick)
}
