package mman

// Sbrk atomically advances brk by increment bytes and returns the value
// brk held before the change. increment == 0 queries brk without
// mutating it. Negative increments shrink the heap; the returned value is
// still the pre-change brk. Advancing past mp fails with OutOfMemory and
// leaves brk unchanged.
func (m *Manager) Sbrk(increment int64) (Addr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr()

	if err := m.checkSanityBoundary("sbrk entry", KindOutOfMemory); err != nil {
		return 0, err
	}

	old := m.brk

	if increment != 0 {
		// Widened, ordered arithmetic: never let a large negative
		// increment wrap Addr (which is unsigned) past zero, and never
		// let a large positive increment overflow past mp undetected.
		next := int64(old) + increment
		if next < int64(m.start) || next > int64(m.mp) {
			err := m.setErr(newError(KindOutOfMemory, "sbrk(%d) would move brk outside [%s, %s]", increment, m.start, m.mp))
			return 0, err
		}
		m.brk = Addr(next)
	}

	if err := m.checkSanityBoundary("sbrk exit", KindOutOfMemory); err != nil {
		m.brk = old
		return 0, err
	}

	return old, nil
}

// Brk sets brk to addr unconditionally, provided start <= addr < mp.
func (m *Manager) Brk(addr Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErr()

	if err := m.checkSanityBoundary("brk entry", KindFailure); err != nil {
		return err
	}

	if addr < m.start || addr >= m.mp {
		return m.setErr(newError(KindInvalidParameter, "brk address %s outside [%s, %s)", addr, m.start, m.mp))
	}

	old := m.brk
	m.brk = addr

	if err := m.checkSanityBoundary("brk exit", KindFailure); err != nil {
		m.brk = old
		return err
	}

	return nil
}
