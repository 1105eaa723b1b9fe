package mman

import (
	"github.com/coalwood/mman/internal/align"
	"github.com/coalwood/mman/internal/descpool"
)

// Remap resizes the (addr, oldSize) range to newSize. addr need not be a
// region's own start; it only has to fall inside one, with oldSize fitting
// entirely within that region. Shrinking always succeeds in place. Growing
// succeeds in place when the range ends at its region's end and the
// region's right gap is large enough; otherwise
// flags must include MayMove, and the region's contents are copied to a
// freshly mapped location and the old range is released.
func (m *Manager) Remap(addr Addr, oldSize, newSize uint64, flags RemapFlags) (Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr()

	if err := m.checkSanityBoundary("remap entry", KindFailure); err != nil {
		return 0, err
	}

	if oldSize == 0 || newSize == 0 {
		return 0, m.setErr(newError(KindInvalidParameter, "oldSize and newSize must be non-zero"))
	}
	if !align.Is(uint64(addr)) {
		return 0, m.setErr(newError(KindInvalidParameter, "addr %s is not page aligned", addr))
	}

	oldSize = align.Up(oldSize)
	newSize = align.Up(newSize)

	idx, ok := m.findContaining(addr)
	if !ok {
		return 0, m.setErr(newError(KindInvalidParameter, "addr %s is not contained in any region", addr))
	}

	oldEnd := addr + Addr(oldSize)
	regionEnd := m.regionEnd(idx)
	if oldEnd > regionEnd {
		return 0, m.setErr(newError(KindInvalidParameter, "range %s-%s exceeds region end %s", addr, oldEnd, regionEnd))
	}

	var result Addr
	var rerr *Error

	switch {
	case newSize == oldSize:
		result = addr
		m.coverage.record(BranchRemapNoChange)

	case newSize < oldSize:
		result, rerr = m.remapShrinkLocked(idx, addr, oldSize, newSize, regionEnd, oldEnd)

	default:
		result, rerr = m.remapGrowLocked(idx, addr, oldSize, newSize, flags, regionEnd, oldEnd)
	}

	if rerr != nil {
		return 0, rerr
	}

	if err := m.checkSanityBoundary("remap exit", KindFailure); err != nil {
		return 0, err
	}

	return result, nil
}

// remapShrinkLocked handles newSize < oldSize. If the old range did not
// reach the region's end, the excess tail becomes its own descriptor
// rather than being silently absorbed into the shrunk region.
func (m *Manager) remapShrinkLocked(idx int32, addr Addr, oldSize, newSize uint64, regionEnd, oldEnd Addr) (Addr, *Error) {
	d := m.pool.Get(idx)
	newEnd := addr + Addr(newSize)

	if regionEnd != oldEnd {
		rightAddr := oldEnd
		rightSize := uint64(regionEnd) - uint64(oldEnd)

		newIdx, ok := m.pool.Alloc()
		if !ok {
			return 0, m.setErr(newError(KindFailure, "descriptor pool exhausted during remap shrink split"))
		}
		nd := m.pool.Get(newIdx)
		nd.Addr = uint64(rightAddr)
		nd.Size = rightSize
		nd.Prot = d.Prot
		nd.Flags = d.Flags
		m.listInsertAfter(idx, newIdx)
		m.coverage.record(BranchRemapShrinkSplit)
	} else {
		m.coverage.record(BranchRemapShrinkNoSplit)
	}

	if m.scrub {
		m.scrubBytes(newEnd, oldSize-newSize)
	}
	d.Size = uint64(newEnd) - d.Addr
	m.syncMapFrontier()

	return addr, nil
}

// remapGrowLocked handles newSize > oldSize: grow in place (coalescing
// the right neighbor if it becomes flush) when the right gap allows it,
// otherwise map a fresh region, copy the old bytes, and unmap the old one.
func (m *Manager) remapGrowLocked(idx int32, addr Addr, oldSize, newSize uint64, flags RemapFlags, regionEnd, oldEnd Addr) (Addr, *Error) {
	delta := newSize - oldSize
	d := m.pool.Get(idx)

	if regionEnd == oldEnd && m.rightGap(idx) >= delta {
		d.Size += delta
		m.zeroBytes(addr+Addr(oldSize), delta)
		m.coverage.record(BranchRemapGrowInPlace)

		next := d.Next
		if next != descpool.None && m.regionEnd(idx) == Addr(m.pool.Get(next).Addr) {
			nd := m.pool.Get(next)
			d.Size += nd.Size
			m.listRemove(next)
			m.pool.Free(next)
			m.syncMapFrontier()
			m.coverage.record(BranchRemapGrowCoalesce)
		}

		return addr, nil
	}

	if flags&MayMove == 0 {
		return 0, m.setErr(newError(KindOutOfMemory, "remap of %s would require moving but MayMove is not set", addr))
	}

	newAddr, err := m.mapLocked(newSize, Prot(d.Prot), MapFlags(d.Flags))
	if err != nil {
		return 0, err.(*Error)
	}

	copy(m.bufSlice(newAddr, oldSize), m.bufSlice(addr, oldSize))

	if uerr := m.unmapLocked(addr, oldSize); uerr != nil {
		return 0, uerr
	}

	m.coverage.record(BranchRemapGrowMove)
	return newAddr, nil
}
