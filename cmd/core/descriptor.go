package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"gopkg.in/yaml.v3"

	"github.com/projecteru2/hive/types"
)

// File-level descriptor schema. Addresses accept hex or decimal strings,
// sizes additionally accept human-readable forms ("16MiB"), so descriptor
// files read like the datasheets they are transcribed from.

type fileRegion struct {
	PhysStart string `yaml:"phys_start"`
	VirtStart string `yaml:"virt_start"`
	Size      string `yaml:"size"`
	Flags     uint64 `yaml:"flags"`
}

type fileCell struct {
	Name          string       `yaml:"name"`
	CPUs          []int        `yaml:"cpus"`
	MemoryRegions []fileRegion `yaml:"memory_regions"`
}

type fileSystem struct {
	HypervisorMemory fileRegion `yaml:"hypervisor_memory"`
	RootCell         fileCell   `yaml:"root_cell"`
}

// LoadSystemDescriptor parses a YAML system descriptor file.
func LoadSystemDescriptor(path string) (*types.SystemDescriptor, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI argument
	if err != nil {
		return nil, fmt.Errorf("read system descriptor: %w", err)
	}
	var f fileSystem
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	hvMem, err := f.HypervisorMemory.convert()
	if err != nil {
		return nil, fmt.Errorf("%s: hypervisor_memory: %w", path, err)
	}
	rootCell, err := f.RootCell.convert()
	if err != nil {
		return nil, fmt.Errorf("%s: root_cell: %w", path, err)
	}
	return &types.SystemDescriptor{HypervisorMemory: hvMem, RootCell: *rootCell}, nil
}

// LoadCellDescriptor parses a YAML cell descriptor file.
func LoadCellDescriptor(path string) (*types.CellDescriptor, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI argument
	if err != nil {
		return nil, fmt.Errorf("read cell descriptor: %w", err)
	}
	var f fileCell
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cell, err := f.convert()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cell, nil
}

func (f *fileCell) convert() (*types.CellDescriptor, error) {
	cell := &types.CellDescriptor{Name: f.Name, CPUs: f.CPUs}
	for i := range f.MemoryRegions {
		region, err := f.MemoryRegions[i].convert()
		if err != nil {
			return nil, fmt.Errorf("memory region %d: %w", i, err)
		}
		cell.MemoryRegions = append(cell.MemoryRegions, region)
	}
	return cell, nil
}

func (f *fileRegion) convert() (types.MemoryRegion, error) {
	phys, err := ParseAddr(f.PhysStart)
	if err != nil {
		return types.MemoryRegion{}, fmt.Errorf("phys_start: %w", err)
	}
	virt, err := ParseAddr(f.VirtStart)
	if err != nil {
		return types.MemoryRegion{}, fmt.Errorf("virt_start: %w", err)
	}
	size, err := ParseSize(f.Size)
	if err != nil {
		return types.MemoryRegion{}, fmt.Errorf("size: %w", err)
	}
	return types.MemoryRegion{PhysStart: phys, VirtStart: virt, Size: size, Flags: f.Flags}, nil
}

// ParseAddr parses a hex (0x...) or decimal address. Empty means zero.
func ParseAddr(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return v, nil
}

// ParseSize parses a byte count: plain/hex integer or human-readable form
// such as "16MiB".
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing size")
	}
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, nil
	}
	v, err := units.RAMInBytes(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("bad size %q", s)
	}
	return uint64(v), nil
}
