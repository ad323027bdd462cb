package cpu

import (
	"runtime"
	"sync/atomic"
)

// PinFunc binds the calling OS thread to the given core.
type PinFunc func(id int) error

// Rendezvous runs an operation on every listed core at once and aggregates
// the per-core result codes. The activation/deactivation protocol guarantees
// every core returns zero or the identical code, so last-non-zero-wins
// aggregation is exact.
type Rendezvous struct {
	pin PinFunc
}

// NewRendezvousWithPin creates a Rendezvous with a custom pin function.
func NewRendezvousWithPin(pin PinFunc) *Rendezvous {
	return &Rendezvous{pin: pin}
}

// Run invokes op once per core, each invocation on an OS thread bound to its
// core, and spin-waits on a completion counter until all have reported. A
// worker whose thread cannot be bound skips op and reports pinErrCode
// instead. Run does not time out and cannot be cancelled;
// a core that never reports blocks forever, matching the handoff protocol's
// requirement that entry/exit be uninterruptible.
func (r *Rendezvous) Run(cores []int, op func(id int) int32) int32 {
	var (
		done int32
		code int32
	)
	// The initiator stays on its own OS thread for the whole spin so the
	// handoff sees no scheduler activity from this context.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for _, id := range cores {
		go func(id int) {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			c := int32(pinErrCode)
			if err := r.pin(id); err == nil {
				c = op(id)
			}
			if c != 0 {
				atomic.StoreInt32(&code, c)
			}
			atomic.AddInt32(&done, 1)
		}(id)
	}

	target := int32(len(cores)) //nolint:gosec // core counts are small
	for atomic.LoadInt32(&done) != target {
		// busy-wait; completion is bounded by the privileged call itself
	}
	return atomic.LoadInt32(&code)
}

// pinErrCode is reported by a worker whose thread could not be bound to its
// core. It deliberately sits outside the hypervisor's errno-style code range.
const pinErrCode = -4095
