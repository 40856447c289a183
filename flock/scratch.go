package flock

// Scratch bridges the two passes of a tick. Slots are indexed by position in
// the agent slice and the backing arrays are reused between ticks.
type Scratch struct {
	steer []Steering
	set   []bool
}

// Reset prepares the scratch for n agents, discarding every previous entry.
func (s *Scratch) Reset(n int) {
	if cap(s.steer) < n {
		s.steer = make([]Steering, n)
		s.set = make([]bool, n)
	}
	s.steer = s.steer[:n]
	s.set = s.set[:n]
	clear(s.steer)
	clear(s.set)
}

// Len returns the number of slots.
func (s *Scratch) Len() int { return len(s.steer) }

// Set stores the steering for slot i. Out-of-range slots are ignored.
func (s *Scratch) Set(i int, v Steering) {
	if i < 0 || i >= len(s.steer) {
		return
	}
	s.steer[i] = v
	s.set[i] = true
}

// Get returns the steering for slot i. A slot that was never set this tick,
// or one that does not exist, reads as zero steering.
func (s *Scratch) Get(i int) Steering {
	if s == nil || i < 0 || i >= len(s.steer) || !s.set[i] {
		return Steering{}
	}
	return s.steer[i]
}

// Has reports whether slot i was set this tick.
func (s *Scratch) Has(i int) bool {
	return s != nil && i >= 0 && i < len(s.set) && s.set[i]
}
