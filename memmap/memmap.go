// Package memmap maps physical memory ranges into the process address space.
package memmap

// Region is a live mapping of a physical range. Bytes aliases the mapped
// memory directly; it is invalid after Unmap.
type Region interface {
	Base() uintptr
	Bytes() []byte
	Unmap() error
}

// Mapper maps a physical range at a caller-chosen virtual base (virt != 0)
// or wherever the host picks (virt == 0), with execute permission. size must
// be page aligned.
type Mapper interface {
	Map(phys uint64, virt uintptr, size uint64) (Region, error)
}
