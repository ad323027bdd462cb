package lifecycle

import (
	"context"
	"fmt"

	"github.com/projecteru2/core/log"

	"github.com/projecteru2/hive/config"
	"github.com/projecteru2/hive/types"
)

// Enable activates the partitioning layer on every online core. On any
// failure every acquired resource is released in reverse order and the
// global state stays Disabled; a non-zero activation code is returned
// verbatim as a *CallError.
func (c *Controller) Enable(ctx context.Context, sys *types.SystemDescriptor) error {
	logger := log.WithFunc("lifecycle.Enable")

	// Work on a private copy; the caller's descriptor is never retained.
	desc := *sys
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	hvMem := &desc.HypervisorMemory

	if err := c.mu.Lock(ctx); err != nil {
		return ErrInterrupted
	}
	defer c.mu.Unlock(ctx) //nolint:errcheck

	if c.enabled.Load() {
		return ErrAlreadyEnabled
	}

	// Root cell record comes first so a naming or allocation problem
	// aborts before any hardware action.
	rootCell := &Cell{
		Name: desc.RootCell.Name,
		CPUs: append([]int(nil), desc.RootCell.CPUs...),
	}

	image, err := c.loader.Fetch(config.ImageName)
	if err != nil {
		logger.Errorf(ctx, err, "missing hypervisor image %s", config.ImageName)
		return fmt.Errorf("%w: %s", ErrImageUnavailable, config.ImageName)
	}
	release := true
	defer func() {
		if release {
			c.loader.Release(image)
		}
	}()

	hdr, err := types.ParseImageHeader(image)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	possible, err := c.cpus.Possible()
	if err != nil {
		return fmt.Errorf("count possible cores: %w", err)
	}

	coreSize := hdr.CoreRegionSize(possible)
	configSize := uint64(desc.ConfigSize())
	if hvMem.Size <= coreSize+configSize || uint64(len(image)) > hvMem.Size {
		return fmt.Errorf("%w: %d bytes for core region %d + config %d",
			ErrInsufficientMemory, hvMem.Size, coreSize, configSize)
	}

	region, err := c.mapper.Map(hvMem.PhysStart, uintptr(c.conf.VirtBase), hvMem.Size)
	if err != nil {
		logger.Errorf(ctx, err, "unable to map RAM reserved for hypervisor at %#x", hvMem.PhysStart)
		return fmt.Errorf("map hypervisor memory: %w", err)
	}
	unmap := true
	defer func() {
		if unmap {
			_ = region.Unmap()
		}
	}()

	// Install the image: copy, zero the remainder, patch the relocation
	// fields, then place the system configuration behind the per-core
	// storage.
	mem := region.Bytes()
	copy(mem, image)
	clear(mem[len(image):])
	types.PatchHeader(mem, hvMem.Size, uint64(region.Base())-hvMem.PhysStart, possible)
	copy(mem[coreSize:], desc.AppendBinary(make([]byte, 0, configSize)))

	online, err := c.cpus.Online()
	if err != nil {
		return fmt.Errorf("enumerate online cores: %w", err)
	}
	types.PatchOnlineCPUs(mem, len(online))

	caller := c.bind(region, hvMem.PhysStart, hdr)
	if code := c.rdv.Run(online, caller.Enter); code != 0 {
		logger.Errorf(ctx, nil, "activation failed on rendezvous, code %d", code)
		return &CallError{Code: code}
	}

	// The image has been copied into the region; the fetched buffer is no
	// longer needed even though we keep the mapping.
	c.loader.Release(image)
	release, unmap = false, false

	rootCell.ID = 0
	c.cells.insert(rootCell)
	c.region = region
	c.caller = caller
	c.coreSize = coreSize
	c.enabled.Store(true)

	logger.Infof(ctx, "hypervisor enabled, %d online cores, root cell %q", len(online), rootCell.Name)
	return nil
}
