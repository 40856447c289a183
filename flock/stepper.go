package flock

import (
	"runtime"
	"sync"
)

// ParallelThreshold is the minimum agent count for the worker pool to be
// used. Below this the scan runs on the calling goroutine.
const ParallelThreshold = 64

// Options configures a Stepper.
type Options struct {
	// Workers is the pass-1 worker count. 0 means GOMAXPROCS, 1 disables
	// the pool.
	Workers int
}

// Sensed is the scan summary kept for each agent after a tick.
type Sensed struct {
	Nearest   float64
	Neighbors int
}

// workChunk is a range of agents for one worker.
type workChunk struct {
	start, end int
}

// Stepper advances a flock one tick at a time. It owns the scratch arena and
// an optional pool of scan workers; both are reused across ticks. A Stepper
// must not be used by more than one goroutine at a time.
type Stepper struct {
	policy  Policy
	scratch Scratch
	sensed  []Sensed

	// agents is the snapshot being scanned; only set during pass 1.
	agents []Agent

	numWorkers int
	workChan   chan workChunk
	doneChan   chan struct{}
	stopChan   chan struct{}
	wg         sync.WaitGroup
	running    bool
}

// NewStepper returns a stepper that steers with policy.
func NewStepper(policy Policy, opts Options) *Stepper {
	n := opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Stepper{policy: policy, numWorkers: n}
}

// Policy returns the steering policy selected at setup.
func (s *Stepper) Policy() Policy { return s.policy }

// Advance runs one tick over agents, mutating each Local transform.
//
// Pass 1 resolves steering for every agent from the unmodified snapshot.
// Pass 2 applies it. The passes never interleave, so every decision in a tick
// is made from the same pre-tick positions.
func (s *Stepper) Advance(agents []Agent, dt float64) {
	n := len(agents)
	s.scratch.Reset(n)
	if cap(s.sensed) < n {
		s.sensed = make([]Sensed, n)
	}
	s.sensed = s.sensed[:n]
	if n == 0 {
		return
	}

	s.agents = agents
	if n < ParallelThreshold || s.numWorkers <= 1 {
		s.resolveChunk(0, n)
	} else {
		s.resolveParallel(n)
	}
	s.agents = nil

	s.policy.Apply(agents, &s.scratch, dt)
}

// Sensed returns the scan summary for slot i from the last tick.
func (s *Stepper) Sensed(i int) Sensed {
	if i < 0 || i >= len(s.sensed) {
		return Sensed{}
	}
	return s.sensed[i]
}

// Steering returns the steering resolved for slot i in the last tick.
func (s *Stepper) Steering(i int) Steering {
	return s.scratch.Get(i)
}

// resolveChunk scans and resolves agents [i0, i1). Each call writes only its
// own scratch slots.
func (s *Stepper) resolveChunk(i0, i1 int) {
	vision := s.policy.Vision()
	for i := i0; i < i1; i++ {
		agg := Scan(s.agents, i, vision)
		s.sensed[i] = Sensed{Nearest: agg.Nearest, Neighbors: agg.Neighbors}
		s.scratch.Set(i, s.policy.Resolve(agg, &s.agents[i]))
	}
}

// resolveParallel splits pass 1 across the worker pool and waits for it.
func (s *Stepper) resolveParallel(n int) {
	if !s.running {
		s.startWorkers()
	}

	chunkSize := (n + s.numWorkers - 1) / s.numWorkers

	dispatched := 0
	for w := 0; w < s.numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		s.workChan <- workChunk{start: start, end: end}
		dispatched++
	}

	for i := 0; i < dispatched; i++ {
		<-s.doneChan
	}
}

// startWorkers launches persistent worker goroutines.
func (s *Stepper) startWorkers() {
	s.workChan = make(chan workChunk, s.numWorkers)
	s.doneChan = make(chan struct{}, s.numWorkers)
	s.stopChan = make(chan struct{})
	s.running = true

	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

func (s *Stepper) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case chunk := <-s.workChan:
			s.resolveChunk(chunk.start, chunk.end)
			s.doneChan <- struct{}{}
		}
	}
}

// Close stops the worker pool. The stepper can still be used afterwards; the
// pool restarts on demand.
func (s *Stepper) Close() {
	if !s.running {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
	s.running = false
}

// Advance runs a single tick with a throwaway sequential stepper.
func Advance(agents []Agent, dt float64, policy Policy) {
	NewStepper(policy, Options{Workers: 1}).Advance(agents, dt)
}
