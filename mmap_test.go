package mman

import (
	"testing"

	"github.com/coalwood/mman/internal/descpool"
)

func TestMapRejectsBadParameters(t *testing.T) {
	m := newTestManager(t, 16)

	cases := []struct {
		name   string
		length uint64
		prot   Prot
		flags  MapFlags
	}{
		{"zero length", 0, ProtRead | ProtWrite, MapPrivate | MapAnonymous},
		{"missing write", PageSize, ProtRead, MapPrivate | MapAnonymous},
		{"exec requested", PageSize, ProtRead | ProtWrite | ProtExec, MapPrivate | MapAnonymous},
		{"missing anonymous", PageSize, ProtRead | ProtWrite, MapPrivate},
		{"shared requested", PageSize, ProtRead | ProtWrite, MapPrivate | MapAnonymous | MapShared},
		{"fixed requested", PageSize, ProtRead | ProtWrite, MapPrivate | MapAnonymous | MapFixed},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := m.Map(c.length, c.prot, c.flags); err == nil {
				t.Fatalf("expected Map to reject %s", c.name)
			}
		})
	}
}

func TestMapRoundsLengthUpToPage(t *testing.T) {
	m := newTestManager(t, 16)

	addr, err := m.Map(1, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	idx, ok := m.findByStart(addr)
	if !ok {
		t.Fatal("mapped region not found by start")
	}
	if got := m.pool.Get(idx).Size; got != PageSize {
		t.Fatalf("region size = %d, want %d", got, PageSize)
	}
}

func TestMapGrowsDownwardFromEnd(t *testing.T) {
	m := newTestManager(t, 16)

	first, err := m.Map(PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if first != m.end-Addr(PageSize) {
		t.Fatalf("first mapping at %s, want %s", first, m.end-Addr(PageSize))
	}

	second, err := m.Map(PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if second != first-Addr(PageSize) {
		t.Fatalf("second mapping at %s, want %s", second, first-Addr(PageSize))
	}
	// The new gap sits directly below the sole existing region, so it
	// extends that region's start rather than allocating a new descriptor.
	if !m.Coverage().Hit(BranchMapCoalesceRight) {
		t.Fatal("expected the second mapping to coalesce with the first")
	}
	idx, ok := m.findByStart(second)
	if !ok {
		t.Fatal("merged region not found by its new start")
	}
	if got := m.pool.Get(idx).Size; got != 2*PageSize {
		t.Fatalf("merged region size = %d, want %d", got, 2*PageSize)
	}
}

func TestMapReturnsZeroFilledMemory(t *testing.T) {
	m := newTestManager(t, 16)

	for i := range m.buf {
		m.buf[i] = 0xAB
	}

	addr, err := m.Map(PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	for _, b := range m.bufSlice(addr, PageSize) {
		if b != 0 {
			t.Fatal("newly mapped memory is not zero-filled")
		}
	}
}

func TestMapExhaustion(t *testing.T) {
	m := newTestManager(t, 16)
	room := uint64(m.mp) - uint64(m.brk)

	if _, err := m.Map(room, ProtRead|ProtWrite, MapPrivate|MapAnonymous); err != nil {
		t.Fatalf("Map(room): %v", err)
	}
	if _, err := m.Map(PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous); err == nil {
		t.Fatal("expected OutOfMemory once brk and map frontiers meet")
	}
	if !m.Coverage().Hit(BranchFindGapExhausted) {
		t.Fatal("expected BranchFindGapExhausted to have fired")
	}
}

func TestMapCoalescesBothNeighbors(t *testing.T) {
	m := newTestManager(t, 16)

	base, err := m.Map(3*PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	middle := base + Addr(PageSize)

	if err := m.Unmap(middle, PageSize); err != nil {
		t.Fatalf("Unmap middle: %v", err)
	}
	if !m.Coverage().Hit(BranchUnmapMiddle) {
		t.Fatal("expected the middle unmap branch to fire")
	}

	filled, err := m.Map(PageSize, ProtRead|ProtWrite, MapPrivate|MapAnonymous)
	if err != nil {
		t.Fatalf("Map into the reopened gap: %v", err)
	}
	if filled != middle {
		t.Fatalf("Map filled %s, want the reopened gap at %s", filled, middle)
	}
	if !m.Coverage().Hit(BranchMapCoalesceLeft) {
		t.Fatal("expected the fill to coalesce with its left neighbor")
	}

	idx, ok := m.findByStart(base)
	if !ok {
		t.Fatal("expected a single merged region at the original base")
	}
	if got := m.pool.Get(idx).Size; got != 3*PageSize {
		t.Fatalf("merged region size = %d, want %d", got, 3*PageSize)
	}
	if got := m.pool.Get(idx).Next; got != descpool.None {
		t.Fatalf("expected the merge to leave no separate right region, got next=%d", got)
	}
}
