package processor

import "sync"

// Snapshot is the latest visualization render: the raw magnitude
// spectrum, the warped envelope, and the destination bins of the
// first two formant warp nodes (F1, F2).
type Snapshot struct {
	Magnitude []float64
	Envelope  []float64
	F1Bin     float64
	F2Bin     float64
}

// snapshotSlot is a single-writer (audio thread, non-blocking
// try-lock) / single-reader (UI thread, blocking lock) holder for the
// latest Snapshot. A failed try-lock on the writer side simply drops
// that frame's update; the next hop publishes again.
type snapshotSlot struct {
	mu   sync.Mutex
	data Snapshot
}

// init pre-sizes the snapshot buffers at prepare time so tryPublish
// never allocates on the audio thread.
func (s *snapshotSlot) init(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Magnitude = make([]float64, n)
	s.data.Envelope = make([]float64, n)
}

// tryPublish attempts to copy magnitude/env/f1/f2 into the slot
// without blocking. It returns false if the UI thread currently holds
// the lock, in which case the update is dropped.
func (s *snapshotSlot) tryPublish(magnitude, env []float64, f1, f2 float64) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	if len(s.data.Magnitude) != len(magnitude) {
		s.data.Magnitude = make([]float64, len(magnitude))
	}
	if len(s.data.Envelope) != len(env) {
		s.data.Envelope = make([]float64, len(env))
	}
	copy(s.data.Magnitude, magnitude)
	copy(s.data.Envelope, env)
	s.data.F1Bin = f1
	s.data.F2Bin = f2
	return true
}

// read returns a copy of the latest published snapshot, blocking
// until the audio thread is not mid-publish.
func (s *snapshotSlot) read() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{
		Magnitude: make([]float64, len(s.data.Magnitude)),
		Envelope:  make([]float64, len(s.data.Envelope)),
		F1Bin:     s.data.F1Bin,
		F2Bin:     s.data.F2Bin,
	}
	copy(out.Magnitude, s.data.Magnitude)
	copy(out.Envelope, s.data.Envelope)
	return out
}
