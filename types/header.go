package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Signature identifies a hypervisor image. It occupies the first eight bytes
// of the image and of the mapped region.
const Signature = "HIVEHV01"

// HeaderSize is the byte length of the image header.
const HeaderSize = 64

// Header field offsets within the image. The layout is a fixed private ABI
// shared with the hypervisor build; the control plane reads CoreSize,
// PercpuSize, Entry and Gate from the image and patches Size, PageOffset and
// the CPU counts into the mapped copy before activation.
const (
	hdrOffSignature    = 0
	hdrOffCoreSize     = 8
	hdrOffPercpuSize   = 16
	hdrOffEntry        = 24
	hdrOffGate         = 32
	hdrOffSize         = 40
	hdrOffPageOffset   = 48
	hdrOffPossibleCPUs = 56
	hdrOffOnlineCPUs   = 60
)

// ImageHeader is the decoded form of the header at the start of a hypervisor
// image.
type ImageHeader struct {
	CoreSize   uint64 // shared core segment, bytes
	PercpuSize uint64 // per-CPU private storage, bytes
	Entry      uint64 // activation entry point, offset from image base
	Gate       uint64 // hypercall gate, offset from image base
}

// ParseImageHeader validates the signature and decodes the header fields
// from a raw image.
func ParseImageHeader(image []byte) (*ImageHeader, error) {
	if len(image) < HeaderSize {
		return nil, fmt.Errorf("image too short: %d bytes", len(image))
	}
	if !bytes.Equal(image[hdrOffSignature:hdrOffSignature+8], []byte(Signature)) {
		return nil, fmt.Errorf("bad image signature %q", image[:8])
	}
	h := &ImageHeader{
		CoreSize:   binary.LittleEndian.Uint64(image[hdrOffCoreSize:]),
		PercpuSize: binary.LittleEndian.Uint64(image[hdrOffPercpuSize:]),
		Entry:      binary.LittleEndian.Uint64(image[hdrOffEntry:]),
		Gate:       binary.LittleEndian.Uint64(image[hdrOffGate:]),
	}
	if h.CoreSize == 0 {
		return nil, fmt.Errorf("image declares zero core size")
	}
	return h, nil
}

// CoreRegionSize returns the page-aligned core segment plus per-CPU storage
// for the given number of possible CPUs.
func (h *ImageHeader) CoreRegionSize(possibleCPUs int) uint64 {
	return AlignUp(h.CoreSize) + uint64(possibleCPUs)*h.PercpuSize
}

// PatchHeader writes the relocation fields into the header of the mapped
// image copy: the total region size, the delta between the mapped virtual
// base and the physical start (used by the hypervisor to relocate itself),
// and the possible-CPU count.
func PatchHeader(mapped []byte, totalSize, pageOffset uint64, possibleCPUs int) {
	binary.LittleEndian.PutUint64(mapped[hdrOffSize:], totalSize)
	binary.LittleEndian.PutUint64(mapped[hdrOffPageOffset:], pageOffset)
	binary.LittleEndian.PutUint32(mapped[hdrOffPossibleCPUs:], uint32(possibleCPUs))
}

// PatchOnlineCPUs records the number of currently-online CPUs. Written
// immediately before the activation rendezvous.
func PatchOnlineCPUs(mapped []byte, onlineCPUs int) {
	binary.LittleEndian.PutUint32(mapped[hdrOffOnlineCPUs:], uint32(onlineCPUs))
}
