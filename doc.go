// Package mman implements a page-granular virtual memory manager: it
// partitions a single contiguous, pre-reserved, page-aligned byte range
// into named allocation regions and services brk/sbrk (linear heap growth)
// and map/remap/unmap (arbitrary region allocation with coalescing) over
// that range.
//
// It is meant for use inside a confined address space — an isolated
// execution environment whose heap is a fixed, pre-provisioned slab —
// where the hosting runtime cannot delegate to the operating system's
// virtual memory subsystem. The manager itself touches the OS once, at
// Init, to obtain that slab, and once more if Close releases it; every
// operation in between is pure bookkeeping over the bytes it was given.
package mman

import "github.com/coalwood/mman/internal/align"

// PageSize is the page granularity every address, length, and frontier in
// this package is measured in.
const PageSize = align.PageSize
