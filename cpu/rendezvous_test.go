package cpu

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noPin(int) error { return nil }

func TestRendezvousAllSucceed(t *testing.T) {
	r := NewRendezvousWithPin(noPin)

	var ran int32
	code := r.Run([]int{0, 1, 2, 3}, func(id int) int32 {
		atomic.AddInt32(&ran, 1)
		return 0
	})
	assert.EqualValues(t, 0, code)
	assert.EqualValues(t, 4, atomic.LoadInt32(&ran))
}

func TestRendezvousPropagatesCode(t *testing.T) {
	r := NewRendezvousWithPin(noPin)

	// The protocol guarantees a uniform code across cores; verify it
	// survives aggregation even when only some cores report it.
	code := r.Run([]int{0, 1, 2}, func(id int) int32 {
		if id == 1 {
			return -22
		}
		return 0
	})
	assert.EqualValues(t, -22, code)
}

func TestRendezvousPinFailure(t *testing.T) {
	r := NewRendezvousWithPin(func(id int) error {
		if id == 2 {
			return errors.New("no such core")
		}
		return nil
	})

	var ran int32
	code := r.Run([]int{0, 1, 2}, func(id int) int32 {
		atomic.AddInt32(&ran, 1)
		return 0
	})
	assert.EqualValues(t, pinErrCode, code)
	assert.EqualValues(t, 2, atomic.LoadInt32(&ran), "unpinnable core must not run op")
}

func TestRendezvousNoCores(t *testing.T) {
	r := NewRendezvousWithPin(noPin)
	assert.EqualValues(t, 0, r.Run(nil, func(int) int32 { return -1 }))
}
