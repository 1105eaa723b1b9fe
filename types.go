package mman

import "fmt"

// Addr is an opaque address within a managed range. It is never a raw Go
// pointer — arithmetic on it is plain integer arithmetic, and the only
// place it is ever turned into real memory is the thin slice-returning
// edge in Map/Unmap that hands zeroed spans back to callers.
type Addr uint64

// String renders an address the way the teacher's diagnostics do: hex,
// zero-padded to 16 digits.
func (a Addr) String() string {
	return fmt.Sprintf("0x%016x", uint64(a))
}

// Prot enumerates the protection bits a region is created with.
type Prot uint32

const (
	ProtRead Prot = 1 << iota
	ProtWrite
	ProtExec
)

// MapFlags enumerates the mapping flags a region is created with.
type MapFlags uint32

const (
	MapShared MapFlags = 1 << iota
	MapPrivate
	MapFixed
	MapAnonymous
)

// RemapFlags enumerates the flags Remap accepts. MayMove is the only
// flag; Remap checks for it only when a grow cannot happen in place, and
// fails such a grow without it.
type RemapFlags uint32

const (
	MayMove RemapFlags = 1
)
