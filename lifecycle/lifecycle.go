// Package lifecycle implements the hypervisor/cell lifecycle state machine:
// the enable/disable sequence that hands every core to and from the
// partitioning layer, and cell creation/destruction inside it.
package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/projecteru2/hive/config"
	"github.com/projecteru2/hive/cpu"
	"github.com/projecteru2/hive/firmware"
	"github.com/projecteru2/hive/hypercall"
	"github.com/projecteru2/hive/lock"
	"github.com/projecteru2/hive/memmap"
	"github.com/projecteru2/hive/types"
)

// Lifecycle is the operation surface of the controller.
type Lifecycle interface {
	Enable(ctx context.Context, sys *types.SystemDescriptor) error
	Disable(ctx context.Context) error
	CreateCell(ctx context.Context, desc *types.CellDescriptor, images []types.PreloadImage) (uint32, error)
	DestroyCell(ctx context.Context, name string) error

	// Enabled reads the global lifecycle state without taking the lock.
	Enabled() bool
	// Cells lists the live cells in creation order.
	Cells(ctx context.Context) ([]Cell, error)
}

// compile-time interface check.
var _ Lifecycle = (*Controller)(nil)

// Controller is the single authority over the hypervisor lifecycle. All four
// mutating operations are serialized by one interruptible global lock; the
// enabled flag is additionally readable atomically for lock-free status
// queries.
type Controller struct {
	conf   *config.Config
	loader firmware.Loader
	mapper memmap.Mapper
	cpus   cpu.Hotplug
	rdv    *cpu.Rendezvous
	bind   hypercall.Binder

	mu      lock.Locker
	enabled atomic.Bool

	// All fields below are guarded by mu.
	cells    *registry
	offlined *cpu.Set
	region   memmap.Region    // mapped hypervisor image region, nil while disabled
	caller   hypercall.Caller // bound at Enable, nil while disabled
	coreSize uint64           // per-core storage region size of the active image
}

// New creates a disabled Controller wired to the given collaborators.
func New(conf *config.Config, loader firmware.Loader, mapper memmap.Mapper,
	cpus cpu.Hotplug, rdv *cpu.Rendezvous, bind hypercall.Binder) *Controller {
	return &Controller{
		conf:     conf,
		loader:   loader,
		mapper:   mapper,
		cpus:     cpus,
		rdv:      rdv,
		bind:     bind,
		mu:       lock.NewChanLock(),
		cells:    newRegistry(),
		offlined: cpu.NewSet(),
	}
}

// Enabled reports the global lifecycle state. Served from an atomic flag so
// status queries never contend with the single writer.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Cells returns the live cells in creation order.
func (c *Controller) Cells(ctx context.Context) ([]Cell, error) {
	if err := c.mu.Lock(ctx); err != nil {
		return nil, ErrInterrupted
	}
	defer c.mu.Unlock(ctx) //nolint:errcheck
	return c.cells.list(), nil
}
