package usecase

// RunGate admits one analysis at a time.
type RunGate struct {
	slot chan struct{}
}

// NewRunGate builds an open gate.
func NewRunGate() *RunGate {
	return &RunGate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot without blocking.
func (g *RunGate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the slot.
func (g *RunGate) Release() {
	select {
	case <-g.slot:
	default:
	}
}
