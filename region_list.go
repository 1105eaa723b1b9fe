package mman

import "github.com/coalwood/mman/internal/descpool"

// regionEnd returns the exclusive end address of the descriptor at idx.
func (m *Manager) regionEnd(idx int32) Addr {
	d := m.pool.Get(idx)
	return Addr(d.Addr + d.Size)
}

// rightGap returns the number of free bytes between the descriptor at idx
// and its right neighbor, or between it and end if it has none.
func (m *Manager) rightGap(idx int32) uint64 {
	d := m.pool.Get(idx)
	if d.Next == descpool.None {
		return uint64(m.end) - (d.Addr + d.Size)
	}
	next := m.pool.Get(d.Next)
	return next.Addr - (d.Addr + d.Size)
}

// listInsertAfter links idx into the region list immediately after prev.
// prev == descpool.None means idx becomes the new head.
func (m *Manager) listInsertAfter(prev, idx int32) {
	d := m.pool.Get(idx)
	if prev != descpool.None {
		p := m.pool.Get(prev)
		d.Prev = prev
		d.Next = p.Next
		if p.Next != descpool.None {
			m.pool.Get(p.Next).Prev = idx
		}
		p.Next = idx
		m.coverage.record(BranchListInsertAfter)
	} else {
		d.Prev = descpool.None
		d.Next = m.regionHead
		if m.regionHead != descpool.None {
			m.pool.Get(m.regionHead).Prev = idx
		}
		m.regionHead = idx
		m.coverage.record(BranchListInsertHead)
	}
	m.byStart.Put(Addr(d.Addr), idx)
}

// listRemove unlinks idx from the region list. It does not return idx to
// the descriptor pool — callers decide that separately, after any
// required scrubbing.
func (m *Manager) listRemove(idx int32) {
	d := m.pool.Get(idx)
	m.byStart.Delete(Addr(d.Addr))

	if idx == m.regionHead {
		m.regionHead = d.Next
		if d.Next != descpool.None {
			m.pool.Get(d.Next).Prev = descpool.None
		}
		return
	}

	if d.Prev != descpool.None {
		m.pool.Get(d.Prev).Next = d.Next
	}
	if d.Next != descpool.None {
		m.pool.Get(d.Next).Prev = d.Prev
	}
}

// syncMapFrontier resyncs mp (the map/mmap frontier) to the region list's
// head, or to end if the list is empty. It must be called after every
// list mutation that can change the head's address.
func (m *Manager) syncMapFrontier() {
	if m.regionHead != descpool.None {
		m.mp = Addr(m.pool.Get(m.regionHead).Addr)
	} else {
		m.mp = m.end
	}
}

// findGap performs the manager's first-fit gap search: interior gaps in
// address order, falling back to the space immediately below mp. It
// returns the chosen start address and the descriptor indices flanking
// it (descpool.None where there is no neighbor on that side).
func (m *Manager) findGap(length uint64) (start Addr, left, right int32, ok bool) {
	left, right = descpool.None, descpool.None

	for p := m.regionHead; p != descpool.None; p = m.pool.Get(p).Next {
		if m.rightGap(p) >= length {
			left = p
			right = m.pool.Get(p).Next
			start = m.regionEnd(p)
			m.coverage.record(BranchFindGapInterior)
			return start, left, right, true
		}
	}

	if length > uint64(m.mp) {
		m.coverage.record(BranchFindGapExhausted)
		return 0, descpool.None, descpool.None, false
	}
	candidate := uint64(m.mp) - length
	if uint64(m.brk) > candidate {
		m.coverage.record(BranchFindGapExhausted)
		return 0, descpool.None, descpool.None, false
	}

	if m.regionHead != descpool.None {
		right = m.regionHead
	}
	m.coverage.record(BranchFindGapTop)
	return Addr(candidate), descpool.None, right, true
}

// findByStart returns the descriptor index whose Addr equals addr
// exactly, via the O(1) index rather than a list scan.
func (m *Manager) findByStart(addr Addr) (int32, bool) {
	idx, ok := m.byStart.Get(addr)
	return idx, ok
}

// findContaining returns the descriptor index of the live region that
// contains addr, scanning the list in address order. It is the fallback
// used whenever the requested range does not begin exactly at a region's
// start.
func (m *Manager) findContaining(addr Addr) (int32, bool) {
	if idx, ok := m.findByStart(addr); ok {
		return idx, true
	}
	for p := m.regionHead; p != descpool.None; p = m.pool.Get(p).Next {
		d := m.pool.Get(p)
		if uint64(addr) >= d.Addr && uint64(addr) < d.Addr+d.Size {
			return p, true
		}
	}
	return descpool.None, false
}
