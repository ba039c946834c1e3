//go:build unix

package logs

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MmapAllocator 匿名mmap分配器，返回内存天然按页对齐
//
// unix.Munmap 按映射起始地址查找映射，只有原始切片才能释放。
type MmapAllocator struct{}

func newMmapAllocator() (Allocator, error) {
	return MmapAllocator{}, nil
}

func (MmapAllocator) Allocate(n int) []byte {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(errors.Wrapf(ErrAllocationFailed, "mmap %d bytes: %v", n, err))
	}
	return b
}

func (MmapAllocator) Free(b []byte) {
	if err := unix.Munmap(b); err != nil {
		panic(errors.Wrapf(err, "munmap %d bytes", len(b)))
	}
}

func (MmapAllocator) Name() string {
	return AllocatorMmap
}
