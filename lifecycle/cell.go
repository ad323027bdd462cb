package lifecycle

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/hive/types"
)

// CreateCell loads the cell's preload images, dedicates its cores, and asks
// the running hypervisor to create the partition. The returned id is the one
// the partitioning layer assigned. On any failure after cores were taken
// offline, exactly those cores are restored and the cell record discarded;
// the registry never sees a partially created cell.
func (c *Controller) CreateCell(ctx context.Context, desc *types.CellDescriptor, images []types.PreloadImage) (uint32, error) {
	logger := log.WithFunc("lifecycle.CreateCell")

	cfg := *desc
	if err := cfg.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	if err := c.mu.Lock(ctx); err != nil {
		return 0, ErrInterrupted
	}
	defer c.mu.Unlock(ctx) //nolint:errcheck

	if !c.enabled.Load() {
		return 0, ErrNotEnabled
	}
	if c.cells.find(cfg.Name) != nil {
		return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, cfg.Name)
	}

	// Preload images go in before the cell exists. A partial failure needs
	// no byte-level rollback: the cell is not yet registered, so the
	// half-loaded memory is never observable through a live partition.
	for i := range images {
		if err := c.loadImage(&cfg, &images[i]); err != nil {
			return 0, err
		}
	}

	cell := &Cell{
		Name: cfg.Name,
		CPUs: append([]int(nil), cfg.CPUs...),
	}

	// Dedicate the cell's cores: every online one goes offline and into
	// the offlined set so Disable can always restore it.
	var taken []int
	for _, id := range cfg.CPUs {
		online, err := c.cpus.IsOnline(id)
		if err != nil {
			c.restoreCores(ctx, taken)
			return 0, fmt.Errorf("%w: cpu%d: %v", ErrCoreUnavailable, id, err)
		}
		if !online {
			continue
		}
		if err := c.cpus.Down(id); err != nil {
			c.restoreCores(ctx, taken)
			return 0, fmt.Errorf("%w: cpu%d: %v", ErrCoreUnavailable, id, err)
		}
		c.offlined.Insert(id)
		taken = append(taken, id)
	}

	id := c.caller.CellCreate(cfg.AppendBinary(nil))
	if id < 0 {
		c.restoreCores(ctx, taken)
		return 0, &CallError{Code: int32(id)} //nolint:gosec // protocol codes are 32-bit
	}

	cell.ID = uint32(id) //nolint:gosec // non-negative checked above
	c.cells.insert(cell)

	logger.Infof(ctx, "created cell %q (id %d, %d cores)", cell.Name, cell.ID, len(cell.CPUs))
	return cell.ID, nil
}

// DestroyCell asks the hypervisor to destroy the named cell and, on success,
// removes it from the registry and restores its offlined cores. A failed
// privileged call mutates nothing.
func (c *Controller) DestroyCell(ctx context.Context, name string) error {
	logger := log.WithFunc("lifecycle.DestroyCell")

	if err := c.mu.Lock(ctx); err != nil {
		return ErrInterrupted
	}
	defer c.mu.Unlock(ctx) //nolint:errcheck

	if !c.enabled.Load() {
		return ErrNotEnabled
	}
	cell := c.cells.find(name)
	if cell == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if code := c.caller.CellDestroy(cell.ID); code != 0 {
		return &CallError{Code: code}
	}

	c.cells.remove(name)
	for _, id := range cell.CPUs {
		if !c.offlined.Contains(id) {
			continue
		}
		if err := c.cpus.Up(id); err != nil {
			logger.Errorf(ctx, err, "failed to bring cpu%d back online", id)
		}
		c.offlined.Remove(id)
	}

	logger.Infof(ctx, "destroyed cell %q", name)
	return nil
}

// loadImage places one preload payload into the cell memory region whose
// virtual range contains it, via a transient physical mapping.
func (c *Controller) loadImage(cfg *types.CellDescriptor, img *types.PreloadImage) error {
	var target *types.MemoryRegion
	for i := range cfg.MemoryRegions {
		if cfg.MemoryRegions[i].Contains(img.TargetAddress, img.Size()) {
			target = &cfg.MemoryRegions[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: preload image at %#x (%d bytes) fits no memory region",
			ErrInvalidArgument, img.TargetAddress, img.Size())
	}

	// Map the containing pages; the payload need not be page aligned.
	phys := target.PhysStart + (img.TargetAddress - target.VirtStart)
	pageOff := phys % types.PageSize
	region, err := c.mapper.Map(phys-pageOff, 0, types.AlignUp(pageOff+img.Size()))
	if err != nil {
		return fmt.Errorf("map cell RAM at %#x: %w", phys, err)
	}
	copy(region.Bytes()[pageOff:], img.Data)
	return region.Unmap()
}

// restoreCores brings back online the cores a failed CreateCell took down.
// A core that fails to come back stays in the offlined set so the blanket
// cleanup at Disable retries it.
func (c *Controller) restoreCores(ctx context.Context, taken []int) {
	logger := log.WithFunc("lifecycle.restoreCores")
	for _, id := range taken {
		if err := c.cpus.Up(id); err != nil {
			logger.Errorf(ctx, err, "failed to bring cpu%d back online", id)
			continue
		}
		c.offlined.Remove(id)
	}
}
