package lifecycle

import (
	"context"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/hive/types"
)

// pageSink defeats dead-read elimination in touchPages.
var pageSink byte

// Disable deactivates the partitioning layer on every online core and
// reverses everything Enable and CreateCell set up. A failed deactivation
// rendezvous is terminal: the hypervisor stays Enabled with its region
// mapped, since some cores may already have left and rollback is not
// possible. Individual core-restoration failures are logged, never
// propagated.
func (c *Controller) Disable(ctx context.Context) error {
	logger := log.WithFunc("lifecycle.Disable")

	if err := c.mu.Lock(ctx); err != nil {
		return ErrInterrupted
	}
	defer c.mu.Unlock(ctx) //nolint:errcheck

	if !c.enabled.Load() {
		return ErrNotEnabled
	}

	// Warm the address translation for every page of the per-core storage.
	// The deactivation switch cannot tolerate faults.
	c.touchPages()

	online, err := c.cpus.Online()
	if err != nil {
		return err
	}
	if code := c.rdv.Run(online, func(int) int32 { return c.caller.Leave() }); code != 0 {
		logger.Errorf(ctx, nil, "deactivation failed with code %d; hypervisor remains enabled, operator action required", code)
		return &CallError{Code: code}
	}

	if err := c.region.Unmap(); err != nil {
		logger.Warnf(ctx, "unmap hypervisor region: %v", err)
	}
	c.region = nil
	c.caller = nil
	c.coreSize = 0

	// Blanket restoration: every offlined core goes back online, covering
	// cells whose individual destroy was never requested.
	c.offlined.Drain(func(id int) {
		if err := c.cpus.Up(id); err != nil {
			logger.Errorf(ctx, err, "failed to bring cpu%d back online", id)
		}
	})

	c.cells.clear()
	c.enabled.Store(false)

	logger.Infof(ctx, "hypervisor disabled")
	return nil
}

// touchPages reads one byte per page of the per-core storage region.
func (c *Controller) touchPages() {
	mem := c.region.Bytes()
	var sink byte
	for off := uint64(0); off < c.coreSize; off += types.PageSize {
		sink ^= mem[off]
	}
	pageSink = sink
}
