package channels

import "sync/atomic"

// SwapStats counts the work done by an adapter's compare-and-retry loop.
type SwapStats struct {
	// Swaps is the number of successful output replacements.
	Swaps uint64 `json:"swaps"`
	// Retries is the number of lost compare-and-set races.
	Retries uint64 `json:"retries"`
}

// outputSlot is the single shared mutable location of an adapter. Values are
// boxed so the compare-and-set is decided by box identity: a mutator result is
// only installed when the slot still holds the exact box it was computed from.
type outputSlot[V any] struct {
	current atomic.Pointer[slotValue[V]]
	swaps   atomic.Uint64
	retries atomic.Uint64
}

type slotValue[V any] struct {
	value V
}

func (s *outputSlot[V]) init(value V) {
	s.current.Store(&slotValue[V]{value: value})
}

// load returns the installed value, or the zero V for a slot that was never
// initialised.
func (s *outputSlot[V]) load() V {
	return valueOf(s.current.Load())
}

// change installs mutator(current). There is no bound on the number of
// attempts; every lost race is counted and recomputed against the value that
// won.
func (s *outputSlot[V]) change(mutator func(V) V) {
	for {
		original := s.current.Load()
		changed := &slotValue[V]{value: mutator(valueOf(original))}
		if s.current.CompareAndSwap(original, changed) {
			s.swaps.Add(1)
			return
		}
		s.retries.Add(1)
	}
}

func (s *outputSlot[V]) stats() SwapStats {
	return SwapStats{
		Swaps:   s.swaps.Load(),
		Retries: s.retries.Load(),
	}
}

func valueOf[V any](box *slotValue[V]) V {
	if box == nil {
		var zero V
		return zero
	}
	return box.value
}
