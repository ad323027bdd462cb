package hypercall

import (
	"github.com/ebitengine/purego"

	"github.com/projecteru2/hive/memmap"
	"github.com/projecteru2/hive/types"
)

// Call numbers of the hypercall gate, shared with the hypervisor build.
const (
	callDisable     = 0
	callCellCreate  = 1
	callCellDestroy = 2
)

// compile-time interface check.
var _ Caller = (*Gate)(nil)

// Gate calls the mapped image directly: Enter through the header's entry
// offset, everything else through its hypercall gate offset. Cell
// configurations are staged in a scratch window at the tail of the mapped
// region so the hypervisor receives a stable physical address; a userspace
// buffer has none.
type Gate struct {
	region memmap.Region
	phys   uint64
	entry  uintptr
	gate   uintptr
}

// Bind is the hypercall.Binder for direct gate calls.
func Bind(region memmap.Region, physStart uint64, hdr *types.ImageHeader) Caller {
	return &Gate{
		region: region,
		phys:   physStart,
		entry:  region.Base() + uintptr(hdr.Entry),
		gate:   region.Base() + uintptr(hdr.Gate),
	}
}

// Enter invokes the activation entry with the core id.
func (g *Gate) Enter(core int) int32 {
	r1, _, _ := purego.SyscallN(g.entry, uintptr(core))
	return int32(int64(r1)) //nolint:gosec // entry returns a 32-bit code
}

// Leave issues the disable hypercall on the calling core.
func (g *Gate) Leave() int32 {
	r1, _, _ := purego.SyscallN(g.gate, callDisable)
	return int32(int64(r1)) //nolint:gosec
}

// CellCreate stages config in the scratch window and passes its physical
// address to the create hypercall.
func (g *Gate) CellCreate(config []byte) int64 {
	off := g.stage(config)
	r1, _, _ := purego.SyscallN(g.gate, callCellCreate, uintptr(g.phys+off))
	return int64(r1)
}

// CellDestroy issues the destroy hypercall with the cell id.
func (g *Gate) CellDestroy(id uint32) int32 {
	r1, _, _ := purego.SyscallN(g.gate, callCellDestroy, uintptr(id))
	return int32(int64(r1)) //nolint:gosec
}

// stage copies blob into the last pages of the region and returns its offset
// from the physical start. The hypervisor consumes the blob synchronously
// during the call, so one window suffices; calls are serialized by the
// controller's global lock.
func (g *Gate) stage(blob []byte) uint64 {
	mem := g.region.Bytes()
	off := uint64(len(mem)) - types.AlignUp(uint64(len(blob)))
	copy(mem[off:], blob)
	return off
}
