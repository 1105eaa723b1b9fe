// Package descpool implements the manager's embedded, fixed-capacity
// descriptor pool: a bump allocator over a never-used array plus a
// singly-linked free list of released descriptors.
//
// Descriptors reference each other by index rather than by pointer, per
// the region-list design that treats the pool as the sole owner of every
// descriptor: an index is the natural handle for a fixed-capacity array,
// and it sidesteps the cyclic prev/next pointers a doubly-linked list
// would otherwise need.
package descpool

// None is the sentinel index meaning "no descriptor."
const None int32 = -1

// Descriptor describes one live or free region. Addr and Size are page
// quantities in bytes; Prot and Flags are the informational protection and
// mapping bits recorded at creation. Prev and Next link the descriptor
// into whichever list currently owns it (the live region list); the free
// list reuses Next only.
type Descriptor struct {
	Addr  uint64
	Size  uint64
	Prot  uint32
	Flags uint32
	Prev  int32
	Next  int32
}

// Pool is a fixed-capacity array of descriptors. Every descriptor is in
// exactly one of three states: unused (within [bumpNext, bumpEnd)), on the
// free list, or owned by the caller (on the region list).
type Pool struct {
	descriptors []Descriptor
	freeHead    int32
	bumpNext    int32
	bumpEnd     int32
}

// New allocates a pool with room for exactly capacity descriptors — one
// per page of the managed range, per the manager's sizing rule.
func New(capacity int) *Pool {
	return &Pool{
		descriptors: make([]Descriptor, capacity),
		freeHead:    None,
		bumpNext:    0,
		bumpEnd:     int32(capacity),
	}
}

// Capacity returns the total number of descriptors the pool can hold.
func (p *Pool) Capacity() int {
	return len(p.descriptors)
}

// InUse returns the number of descriptors neither unused nor on the free
// list — i.e. currently owned by a caller's region list.
func (p *Pool) InUse() int {
	free := 0
	for i := p.freeHead; i != None; i = p.descriptors[i].Next {
		free++
	}
	unused := int(p.bumpEnd - p.bumpNext)
	return p.Capacity() - free - unused
}

// Alloc returns a fresh descriptor index, preferring the free list over
// the bump region, and reports false if the pool is exhausted.
func (p *Pool) Alloc() (int32, bool) {
	if p.freeHead != None {
		idx := p.freeHead
		p.freeHead = p.descriptors[idx].Next
		p.descriptors[idx] = Descriptor{Prev: None, Next: None}
		return idx, true
	}
	if p.bumpNext < p.bumpEnd {
		idx := p.bumpNext
		p.bumpNext++
		p.descriptors[idx] = Descriptor{Prev: None, Next: None}
		return idx, true
	}
	return None, false
}

// Free returns a descriptor to the free list. Callers must have already
// unlinked it from the region list and, if scrubbing is enabled, scrubbed
// whatever bytes it described that are being released (bytes merged into a
// neighboring region stay live) — this call is what makes the index eligible for
// reuse by a subsequent Alloc.
func (p *Pool) Free(idx int32) {
	p.descriptors[idx] = Descriptor{Next: p.freeHead, Prev: None}
	p.freeHead = idx
}

// Get returns a pointer to the descriptor at idx for direct mutation.
func (p *Pool) Get(idx int32) *Descriptor {
	return &p.descriptors[idx]
}

// IsOnFreeList reports whether idx currently sits on the free list. It is
// O(free-list length) and intended for sanity checks and tests only.
func (p *Pool) IsOnFreeList(idx int32) bool {
	for i := p.freeHead; i != None; i = p.descriptors[i].Next {
		if i == idx {
			return true
		}
	}
	return false
}

// IsUnused reports whether idx has never been handed out by Alloc.
func (p *Pool) IsUnused(idx int32) bool {
	return idx >= p.bumpNext && idx < p.bumpEnd
}
