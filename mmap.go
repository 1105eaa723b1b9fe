package mman

import (
	"github.com/coalwood/mman/internal/align"
	"github.com/coalwood/mman/internal/descpool"
)

// requiredProt and requiredFlags/forbiddenFlags encode the only legal
// values Map accepts, per the manager's non-goals: anonymous, private
// memory only, read-write, never executable, never shared or fixed.
const (
	requiredProt  = ProtRead | ProtWrite
	forbiddenProt = ProtExec

	requiredFlags  = MapAnonymous | MapPrivate
	forbiddenFlags = MapShared | MapFixed
)

// Map allocates length bytes of fresh, zero-filled memory and returns its
// starting address. length is rounded up to a page multiple. prot must
// include read and write and must not include exec; flags must include
// anonymous and private and must exclude shared and fixed. There is no
// address-hint parameter — spec.md's "hint must be null" constraint has
// no Go rendering other than omitting the parameter entirely.
func (m *Manager) Map(length uint64, prot Prot, flags MapFlags) (Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr()

	if err := m.checkSanityBoundary("map entry", KindOutOfMemory); err != nil {
		return 0, err
	}

	if length == 0 {
		return 0, m.setErr(newError(KindInvalidParameter, "length must be non-zero"))
	}
	if prot&requiredProt != requiredProt {
		return 0, m.setErr(newError(KindInvalidParameter, "prot must include read and write"))
	}
	if prot&forbiddenProt != 0 {
		return 0, m.setErr(newError(KindInvalidParameter, "prot must not include exec"))
	}
	if flags&requiredFlags != requiredFlags {
		return 0, m.setErr(newError(KindInvalidParameter, "flags must include anonymous and private"))
	}
	if flags&forbiddenFlags != 0 {
		return 0, m.setErr(newError(KindInvalidParameter, "flags must not include shared or fixed"))
	}

	start, err := m.mapLocked(length, prot, flags)
	if err != nil {
		return 0, err
	}

	if err := m.checkSanityBoundary("map exit", KindOutOfMemory); err != nil {
		return 0, err
	}

	return start, nil
}

// mapLocked is Map's body, callable from Remap's grow-by-move path
// without re-acquiring m.mu.
func (m *Manager) mapLocked(length uint64, prot Prot, flags MapFlags) (Addr, error) {
	length = align.Up(length)

	start, left, right, ok := m.findGap(length)
	if !ok {
		return 0, m.setErr(newError(KindOutOfMemory, "no gap of %d bytes available", length))
	}

	switch {
	case left != descpool.None && m.regionEnd(left) == start:
		// Coalesce with the left neighbor.
		ld := m.pool.Get(left)
		ld.Size += length

		if right != descpool.None && uint64(start)+length == m.pool.Get(right).Addr {
			// The grown left region now also touches its right
			// neighbor: absorb it and return its descriptor.
			rd := m.pool.Get(right)
			ld.Size += rd.Size
			m.listRemove(right)
			m.pool.Free(right)
		}
		m.byStart.Put(Addr(ld.Addr), left)
		m.syncMapFrontier()
		m.coverage.record(BranchMapCoalesceLeft)

	case right != descpool.None && uint64(start)+length == m.pool.Get(right).Addr:
		// Coalesce with the right neighbor: extend it downward.
		rd := m.pool.Get(right)
		m.byStart.Delete(Addr(rd.Addr))
		rd.Addr = uint64(start)
		rd.Size += length
		m.byStart.Put(Addr(rd.Addr), right)
		m.syncMapFrontier()
		m.coverage.record(BranchMapCoalesceRight)

	default:
		idx, ok := m.pool.Alloc()
		if !ok {
			return 0, m.setErr(newError(KindFailure, "descriptor pool exhausted"))
		}
		d := m.pool.Get(idx)
		d.Addr = uint64(start)
		d.Size = length
		d.Prot = uint32(prot)
		d.Flags = uint32(flags)
		m.listInsertAfter(left, idx)
		m.syncMapFrontier()
		m.coverage.record(BranchMapNewDescriptor)
	}

	m.zeroBytes(start, length)
	return start, nil
}

// bufSlice returns the backing bytes for [addr, addr+length) as a Go
// slice. It is the thin edge where an opaque Addr becomes real memory.
func (m *Manager) bufSlice(addr Addr, length uint64) []byte {
	lo := uint64(addr) - uint64(m.base)
	return m.buf[lo : lo+length]
}

// zeroBytes writes zeros across [addr, addr+length) of the backing
// buffer. It is the only place Map ever touches caller-visible bytes.
func (m *Manager) zeroBytes(addr Addr, length uint64) {
	lo := uint64(addr) - uint64(m.base)
	hi := lo + length
	for i := lo; i < hi; i++ {
		m.buf[i] = 0
	}
}

// scrubBytes overwrites [addr, addr+length) with the fixed 0xDD pattern.
// It is applied only to released bytes, and callers invoke it before
// returning the descriptor that described those bytes to the free list.
func (m *Manager) scrubBytes(addr Addr, length uint64) {
	lo := uint64(addr) - uint64(m.base)
	hi := lo + length
	for i := lo; i < hi; i++ {
		m.buf[i] = 0xDD
	}
}
