package mman

import "testing"

func mapN(t *testing.T, m *Manager, pages uint64) Addr {
	t.Helper()
	addr, err := m.Map(pages*PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map(%d pages): %v", pages, err)
	}
	return addr
}

func TestUnmapRejectsBadParameters(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 2)

	if err := m.Unmap(base, 0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if err := m.Unmap(base+1, PageSize); err == nil {
		t.Fatal("expected error for a misaligned address")
	}
	if err := m.Unmap(base, PageSize+1); err == nil {
		t.Fatal("expected error for a non-page-multiple length")
	}
	if err := m.Unmap(m.start, PageSize); err == nil {
		t.Fatal("expected error for an address with no containing region")
	}
}

func TestUnmapFullRegion(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 2)

	if err := m.Unmap(base, 2*PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if !m.Coverage().Hit(BranchUnmapFull) {
		t.Fatal("expected BranchUnmapFull")
	}
	if _, ok := m.findByStart(base); ok {
		t.Fatal("region still present after a full unmap")
	}
	if m.mp != m.end {
		t.Fatalf("map frontier = %s, want %s after releasing the only region", m.mp, m.end)
	}
}

func TestUnmapPrefix(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 3)

	if err := m.Unmap(base, PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if !m.Coverage().Hit(BranchUnmapPrefix) {
		t.Fatal("expected BranchUnmapPrefix")
	}

	newBase := base + Addr(PageSize)
	idx, ok := m.findByStart(newBase)
	if !ok {
		t.Fatal("shrunk region not found at its new start")
	}
	if got := m.pool.Get(idx).Size; got != 2*PageSize {
		t.Fatalf("region size = %d, want %d", got, 2*PageSize)
	}
}

func TestUnmapSuffix(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 3)

	if err := m.Unmap(base+Addr(2*PageSize), PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if !m.Coverage().Hit(BranchUnmapSuffix) {
		t.Fatal("expected BranchUnmapSuffix")
	}

	idx, ok := m.findByStart(base)
	if !ok {
		t.Fatal("region not found at its original start")
	}
	if got := m.pool.Get(idx).Size; got != 2*PageSize {
		t.Fatalf("region size = %d, want %d", got, 2*PageSize)
	}
}

func TestUnmapMiddleSplitsRegion(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 3)

	if err := m.Unmap(base+Addr(PageSize), PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if !m.Coverage().Hit(BranchUnmapMiddle) {
		t.Fatal("expected BranchUnmapMiddle")
	}

	left, ok := m.findByStart(base)
	if !ok {
		t.Fatal("left half of the split not found")
	}
	if got := m.pool.Get(left).Size; got != PageSize {
		t.Fatalf("left half size = %d, want %d", got, PageSize)
	}

	right, ok := m.findByStart(base + Addr(2*PageSize))
	if !ok {
		t.Fatal("right half of the split not found")
	}
	if got := m.pool.Get(right).Size; got != PageSize {
		t.Fatalf("right half size = %d, want %d", got, PageSize)
	}
	if m.pool.Get(left).Next != right {
		t.Fatal("split halves are not linked to each other")
	}
}

func TestUnmapScrubsReleasedBytes(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 1)

	for i := range m.bufSlice(base, PageSize) {
		m.bufSlice(base, PageSize)[i] = 0x11
	}

	if err := m.Unmap(base, PageSize); err != nil {
		t.Fatalf("Unmap: %v", err)
	}

	for _, b := range m.bufSlice(base, PageSize) {
		if b != 0xDD {
			t.Fatal("released bytes were not scrubbed")
		}
	}
}

func TestUnmapRejectsSpanningMultipleRegions(t *testing.T) {
	m := newTestManager(t, 16)
	base := mapN(t, m, 3)

	// Open a one-page gap in the middle, leaving two one-page regions.
	if err := m.Unmap(base+Addr(PageSize), PageSize); err != nil {
		t.Fatalf("Unmap middle: %v", err)
	}

	if err := m.Unmap(base, 3*PageSize); err == nil {
		t.Fatal("expected error unmapping a range that spans past its containing region")
	}
}
