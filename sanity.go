package mman

import (
	"gopkg.in/errgo.v2/errors"

	"github.com/coalwood/mman/internal/align"
	"github.com/coalwood/mman/internal/descpool"
)

// IsSane returns true iff every invariant in the manager's data model
// holds. It acquires the lock itself; call it between operations, not
// from within one (the public operations already call it internally when
// sanity checking is enabled).
func (m *Manager) IsSane() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isSaneLocked()
}

// SetSanity enables or disables the full sanity predicate on entry and
// exit of every public operation. Enabling it is expensive — O(live
// region count) per call — and intended for debugging and testing.
func (m *Manager) SetSanity(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sanity = enabled
}

// isSaneLocked implements IsSane assuming the caller already holds mu.
func (m *Manager) isSaneLocked() bool {
	if m.magic != managerMagic {
		m.lastErr = "bad magic"
		return false
	}

	if !(m.base <= m.start) {
		m.lastErr = "base not <= start"
		return false
	}
	if !(m.start <= m.brk) {
		m.lastErr = "start not <= brk"
		return false
	}
	if !(m.brk <= m.mp) {
		m.lastErr = "brk not <= map"
		return false
	}
	if !(m.mp <= m.end) {
		m.lastErr = "map not <= end"
		return false
	}

	for _, a := range []Addr{m.start, m.brk, m.mp, m.end} {
		if !align.Is(uint64(a)) {
			m.lastErr = "an address is not page aligned"
			return false
		}
	}

	if m.regionHead != descpool.None {
		if Addr(m.pool.Get(m.regionHead).Addr) != m.mp {
			m.lastErr = "map != region list head address"
			return false
		}
	} else {
		if m.mp != m.end {
			m.lastErr = "map != end for an empty region list"
			return false
		}
	}

	liveCount := 0
	for p := m.regionHead; p != descpool.None; p = m.pool.Get(p).Next {
		d := m.pool.Get(p)
		liveCount++

		if d.Size == 0 || !align.Is(d.Size) {
			m.lastErr = "region size is zero or not a page multiple"
			return false
		}
		if !align.Is(d.Addr) {
			m.lastErr = "region address is not page aligned"
			return false
		}

		next := d.Next
		if next != descpool.None {
			nd := m.pool.Get(next)

			if !(d.Addr < nd.Addr) {
				m.lastErr = "unordered region list"
				return false
			}
			if d.Addr+d.Size == nd.Addr {
				m.lastErr = "contiguous region list elements were not coalesced"
				return false
			}
			if !(d.Addr+d.Size < nd.Addr) {
				m.lastErr = "unordered region list (gap check)"
				return false
			}
		}
	}

	if liveCount > m.pool.Capacity() {
		m.lastErr = "live region count exceeds descriptor pool capacity"
		return false
	}

	return true
}

// checkSanityBoundary runs the sanity predicate if enabled and turns a
// failure into a *Error of the given kind — the kind an operation's own
// entry in the external-interfaces table allows for a post-condition
// break — masked with errgo so a caller unwrapping the error can see
// exactly where in the manager's own logic the invariant broke.
func (m *Manager) checkSanityBoundary(context string, kind Kind) *Error {
	if !m.sanity {
		return nil
	}
	if m.isSaneLocked() {
		return nil
	}
	masked := errors.Wrap(newError(kind, "%s: %s", context, m.lastErr))
	return m.setErr(&Error{Kind: kind, Msg: context + ": " + m.lastErr, err: masked})
}
