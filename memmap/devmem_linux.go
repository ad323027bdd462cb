package memmap

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// compile-time interface checks.
var (
	_ Mapper = (*DevMem)(nil)
	_ Region = (*devMemRegion)(nil)
)

// DevMem maps physical memory through /dev/mem. The hypervisor region must
// be carved out of the kernel's allocator (memmap=/mem= boot parameters) so
// nothing else touches it.
type DevMem struct {
	path string
}

// NewDevMem creates a DevMem mapper. An empty path defaults to /dev/mem.
func NewDevMem(path string) *DevMem {
	if path == "" {
		path = "/dev/mem"
	}
	return &DevMem{path: path}
}

// Map mmaps [phys, phys+size) read/write/execute. When virt is non-zero the
// mapping is placed exactly there (MAP_FIXED_NOREPLACE, so an occupied range
// fails instead of silently clobbering the address space).
func (d *DevMem) Map(phys uint64, virt uintptr, size uint64) (Region, error) {
	if size == 0 || size%uint64(unix.Getpagesize()) != 0 {
		return nil, fmt.Errorf("map size %#x is not page aligned", size)
	}
	f, err := os.OpenFile(d.path, os.O_RDWR|unix.O_SYNC, 0) //nolint:gosec // fixed device path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.path, err)
	}
	defer f.Close() //nolint:errcheck // read-only use of the fd after mmap

	prot := unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
	flags := unix.MAP_SHARED
	if virt != 0 {
		flags |= unix.MAP_FIXED_NOREPLACE
	}
	addr, _, errno := unix.Syscall6(unix.SYS_MMAP,
		virt, uintptr(size), uintptr(prot), uintptr(flags), f.Fd(), uintptr(phys))
	if errno != 0 {
		return nil, fmt.Errorf("mmap phys %#x size %#x at %#x: %w", phys, size, virt, errno)
	}
	if virt != 0 && addr != virt {
		_, _, _ = unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(size), 0)
		return nil, fmt.Errorf("mmap placed phys %#x at %#x, wanted %#x", phys, addr, virt)
	}
	mem := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &devMemRegion{mem: mem}, nil
}

type devMemRegion struct {
	mem []byte
}

func (r *devMemRegion) Base() uintptr { return uintptr(unsafe.Pointer(&r.mem[0])) }
func (r *devMemRegion) Bytes() []byte { return r.mem }

func (r *devMemRegion) Unmap() error {
	if r.mem == nil {
		return nil
	}
	base, size := r.Base(), uintptr(len(r.mem))
	r.mem = nil
	if _, _, errno := unix.Syscall(unix.SYS_MUNMAP, base, size, 0); errno != 0 {
		return fmt.Errorf("munmap %#x: %w", base, errno)
	}
	return nil
}
