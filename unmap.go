package mman

import "github.com/coalwood/mman/internal/align"

// Unmap releases the (addr, length) byte range, which must fall entirely
// within a single live region — spanning multiple regions is an error.
// Both addr and length must be page-aligned/page-multiple and non-zero.
func (m *Manager) Unmap(addr Addr, length uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr()

	if err := m.checkSanityBoundary("unmap entry", KindUnexpected); err != nil {
		return err
	}

	if length == 0 {
		return m.setErr(newError(KindInvalidParameter, "length must be non-zero"))
	}
	if !align.Is(uint64(addr)) {
		return m.setErr(newError(KindInvalidParameter, "addr %s is not page aligned", addr))
	}
	if !align.Is(length) {
		return m.setErr(newError(KindInvalidParameter, "length %d is not a page multiple", length))
	}

	if err := m.unmapLocked(addr, length); err != nil {
		return err
	}

	if err := m.checkSanityBoundary("unmap exit", KindUnexpected); err != nil {
		return err
	}

	return nil
}

// unmapLocked is Unmap's body, callable from Remap's grow-by-move path
// without re-acquiring m.mu.
func (m *Manager) unmapLocked(addr Addr, length uint64) *Error {
	end := addr + Addr(length)

	idx, ok := m.findContaining(addr)
	if !ok {
		return m.setErr(newError(KindInvalidParameter, "address %s not found", addr))
	}

	d := m.pool.Get(idx)
	regionEnd := m.regionEnd(idx)
	if end > regionEnd {
		return m.setErr(newError(KindInvalidParameter, "range %s-%s spans past region end %s", addr, end, regionEnd))
	}

	switch {
	case Addr(d.Addr) == addr && regionEnd == end:
		// Case 1: the entire region is released.
		if m.scrub {
			m.scrubBytes(addr, length)
		}
		m.listRemove(idx)
		m.syncMapFrontier()
		m.pool.Free(idx)
		m.coverage.record(BranchUnmapFull)

	case Addr(d.Addr) == addr:
		// Case 2: a prefix is released; the region shrinks from the left.
		if m.scrub {
			m.scrubBytes(addr, length)
		}
		m.byStart.Delete(Addr(d.Addr))
		d.Addr += length
		d.Size -= length
		m.byStart.Put(Addr(d.Addr), idx)
		m.syncMapFrontier()
		m.coverage.record(BranchUnmapPrefix)

	case regionEnd == end:
		// Case 3: a suffix is released; the region shrinks from the right.
		if m.scrub {
			m.scrubBytes(addr, length)
		}
		d.Size -= length
		m.coverage.record(BranchUnmapSuffix)

	default:
		// Case 4: the middle is released; split into two descriptors.
		rightAddr := end
		rightSize := uint64(regionEnd) - uint64(end)

		newIdx, ok := m.pool.Alloc()
		if !ok {
			return m.setErr(newError(KindFailure, "descriptor pool exhausted during middle split"))
		}
		if m.scrub {
			m.scrubBytes(addr, length)
		}

		d.Size = uint64(addr) - d.Addr

		nd := m.pool.Get(newIdx)
		nd.Addr = uint64(rightAddr)
		nd.Size = rightSize
		nd.Prot = d.Prot
		nd.Flags = d.Flags
		m.listInsertAfter(idx, newIdx)
		m.coverage.record(BranchUnmapMiddle)
	}

	return nil
}

