//go:build windows

package pagemem

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procVirtualAlloc = modkernel32.NewProc("VirtualAlloc")
	procVirtualFree  = modkernel32.NewProc("VirtualFree")
)

const (
	memCommit     = 0x1000
	memRelease    = 0x8000
	pageReadWrite = 0x04
)

// reserve commits size bytes of read-write memory via VirtualAlloc.
func reserve(size int) ([]byte, error) {
	addr, _, err := procVirtualAlloc.Call(
		0,
		uintptr(size),
		memCommit,
		pageReadWrite,
	)
	if addr == 0 {
		return nil, fmt.Errorf("VirtualAlloc failed: %w", err)
	}

	var sl = struct {
		addr uintptr
		len  int
		cap  int
	}{addr, size, size}
	return *(*[]byte)(unsafe.Pointer(&sl)), nil
}

// release decommits and releases a slab obtained from reserve.
func release(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	ret, _, err := procVirtualFree.Call(addr, 0, memRelease)
	if ret == 0 {
		return fmt.Errorf("VirtualFree failed: %w", err)
	}
	return nil
}
