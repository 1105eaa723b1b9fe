//go:build !windows

package pagemem

import "syscall"

// reserve maps size bytes of anonymous, private, read-write memory.
func reserve(size int) ([]byte, error) {
	return syscall.Mmap(
		-1, // fd: -1 for an anonymous mapping
		0,  // offset
		size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANONYMOUS|syscall.MAP_PRIVATE,
	)
}

// release unmaps a slab obtained from reserve.
func release(buf []byte) error {
	return syscall.Munmap(buf)
}
