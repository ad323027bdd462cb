package cpu

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NewRendezvous creates a Rendezvous using sched_setaffinity thread pinning.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{pin: pinThread}
}

// pinThread binds the calling OS thread to a single core.
func pinThread(id int) error {
	var set unix.CPUSet
	set.Set(id)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("bind thread to cpu%d: %w", id, err)
	}
	return nil
}
