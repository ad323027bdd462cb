// Package hypercall issues privileged calls into the resident partitioning
// layer. The instruction-level mechanism belongs to the hypervisor image;
// this package only invokes its published entry points and reports their
// return codes.
package hypercall

import (
	"github.com/projecteru2/hive/memmap"
	"github.com/projecteru2/hive/types"
)

// Caller is the privileged-call surface the lifecycle controller consumes.
// Every method returns the hypervisor's own code space verbatim: zero (or a
// non-negative id for CellCreate) on success, a negative code on failure.
type Caller interface {
	// Enter invokes the activation entry point on the calling core. Must
	// run on a thread bound to that core.
	Enter(core int) int32
	// Leave invokes the deactivation call on the calling core.
	Leave() int32
	// CellCreate hands the serialized cell configuration to the running
	// hypervisor and returns the new cell id, or a negative code.
	CellCreate(config []byte) int64
	// CellDestroy destroys the cell with the given id.
	CellDestroy(id uint32) int32
}

// Binder produces a Caller bound to a freshly mapped hypervisor region.
// The lifecycle controller invokes it once per Enable, after the image has
// been copied in and patched.
type Binder func(region memmap.Region, physStart uint64, hdr *types.ImageHeader) Caller
