package types

import (
	"encoding/binary"
	"fmt"
)

// NameMaxLen is the maximum length of a cell name. Longer names are rejected
// at validation time; the on-wire field is NameMaxLen+1 bytes, NUL padded.
const NameMaxLen = 31

// PageSize is the allocation granule of the hypervisor memory layout.
const PageSize = 4096

// MemoryRegion describes one physical memory assignment of a cell: where it
// lives physically, where the cell expects it mapped, and its size.
type MemoryRegion struct {
	PhysStart uint64 `json:"phys_start" yaml:"phys_start"`
	VirtStart uint64 `json:"virt_start" yaml:"virt_start"`
	Size      uint64 `json:"size" yaml:"size"`
	Flags     uint64 `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Contains reports whether [addr, addr+size) fits inside the region's
// virtual range.
func (m *MemoryRegion) Contains(addr, size uint64) bool {
	if addr < m.VirtStart {
		return false
	}
	off := addr - m.VirtStart
	return off < m.Size && size <= m.Size-off
}

// CellDescriptor describes one partition: its name, the CPUs dedicated to
// it, and its memory regions. It is consumed for the duration of a request
// and never retained.
type CellDescriptor struct {
	Name          string         `json:"name" yaml:"name"`
	CPUs          []int          `json:"cpus" yaml:"cpus"`
	MemoryRegions []MemoryRegion `json:"memory_regions" yaml:"memory_regions"`
}

// Validate checks structural consistency: a non-empty name within
// NameMaxLen, at least one CPU, no duplicate CPUs, and sane regions.
func (c *CellDescriptor) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cell name is empty")
	}
	if len(c.Name) > NameMaxLen {
		return fmt.Errorf("cell name %q exceeds %d characters", c.Name, NameMaxLen)
	}
	if len(c.CPUs) == 0 {
		return fmt.Errorf("cell %q has no CPUs assigned", c.Name)
	}
	seen := make(map[int]struct{}, len(c.CPUs))
	for _, cpu := range c.CPUs {
		if cpu < 0 {
			return fmt.Errorf("cell %q: negative CPU id %d", c.Name, cpu)
		}
		if _, dup := seen[cpu]; dup {
			return fmt.Errorf("cell %q: duplicate CPU id %d", c.Name, cpu)
		}
		seen[cpu] = struct{}{}
	}
	for i := range c.MemoryRegions {
		if c.MemoryRegions[i].Size == 0 {
			return fmt.Errorf("cell %q: memory region %d has zero size", c.Name, i)
		}
	}
	return nil
}

// EncodedSize returns the byte length of the descriptor's binary form.
func (c *CellDescriptor) EncodedSize() int {
	return (NameMaxLen + 1) + 4 + 4 + 4*len(c.CPUs) + 32*len(c.MemoryRegions)
}

// AppendBinary appends the fixed little-endian layout the resident
// hypervisor consumes: NUL-padded name, CPU count, region count, CPU ids,
// then {phys, virt, size, flags} per region.
func (c *CellDescriptor) AppendBinary(buf []byte) []byte {
	var name [NameMaxLen + 1]byte
	copy(name[:NameMaxLen], c.Name)
	buf = append(buf, name[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.CPUs)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.MemoryRegions)))
	for _, cpu := range c.CPUs {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(cpu))
	}
	for i := range c.MemoryRegions {
		m := &c.MemoryRegions[i]
		buf = binary.LittleEndian.AppendUint64(buf, m.PhysStart)
		buf = binary.LittleEndian.AppendUint64(buf, m.VirtStart)
		buf = binary.LittleEndian.AppendUint64(buf, m.Size)
		buf = binary.LittleEndian.AppendUint64(buf, m.Flags)
	}
	return buf
}

// SystemDescriptor is the Enable argument: the physical memory handed to the
// hypervisor itself plus the root cell that inherits the remaining hardware.
type SystemDescriptor struct {
	HypervisorMemory MemoryRegion   `json:"hypervisor_memory" yaml:"hypervisor_memory"`
	RootCell         CellDescriptor `json:"root_cell" yaml:"root_cell"`
}

// Validate checks the hypervisor region and the root cell descriptor.
func (s *SystemDescriptor) Validate() error {
	if s.HypervisorMemory.Size == 0 {
		return fmt.Errorf("hypervisor memory size is zero")
	}
	if s.HypervisorMemory.Size%PageSize != 0 {
		return fmt.Errorf("hypervisor memory size %#x is not page aligned", s.HypervisorMemory.Size)
	}
	if s.HypervisorMemory.PhysStart%PageSize != 0 {
		return fmt.Errorf("hypervisor memory start %#x is not page aligned", s.HypervisorMemory.PhysStart)
	}
	return s.RootCell.Validate()
}

// ConfigSize returns the byte length of the serialized system configuration:
// the hypervisor memory record followed by the root cell descriptor.
func (s *SystemDescriptor) ConfigSize() int {
	return 16 + s.RootCell.EncodedSize()
}

// AppendBinary appends the system configuration blob that is copied into the
// mapped hypervisor region behind the per-core storage.
func (s *SystemDescriptor) AppendBinary(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, s.HypervisorMemory.PhysStart)
	buf = binary.LittleEndian.AppendUint64(buf, s.HypervisorMemory.Size)
	return s.RootCell.AppendBinary(buf)
}

// PreloadImage is one payload to place into a cell's memory before the cell
// is created: the raw bytes and the cell-virtual address they belong at.
type PreloadImage struct {
	TargetAddress uint64 `json:"target_address" yaml:"target_address"`
	Data          []byte `json:"data" yaml:"data"`
}

// Size returns the payload length.
func (p *PreloadImage) Size() uint64 { return uint64(len(p.Data)) }

// AlignUp rounds n up to the next multiple of PageSize.
func AlignUp(n uint64) uint64 {
	return (n + PageSize - 1) &^ uint64(PageSize-1)
}
