package logs

import (
	"strings"

	gxbytes "github.com/dubbogo/gost/bytes"
	"github.com/pkg/errors"
)

// Allocator 日志块底层内存分配器
//
// Free 必须拿到 Allocate 返回的原始切片，传入其子切片属于未定义行为。
// 分配失败视为致命错误，实现直接panic。
type Allocator interface {
	Allocate(n int) []byte
	Free(b []byte)
	Name() string
}

const (
	AllocatorPool = "pool"
	AllocatorMmap = "mmap"
)

// NewAllocator 按名称创建分配器
func NewAllocator(name string) (Allocator, error) {
	switch strings.ToLower(name) {
	case "", AllocatorPool:
		return PoolAllocator{}, nil
	case AllocatorMmap:
		return newMmapAllocator()
	default:
		return nil, errors.Errorf("unknown log block allocator %q", name)
	}
}

// PoolAllocator 基于gost字节池的分配器
type PoolAllocator struct{}

func (PoolAllocator) Allocate(n int) []byte {
	if n <= 0 {
		panic(errors.Wrapf(ErrAllocationFailed, "pool allocate %d bytes", n))
	}
	bufp := gxbytes.GetBytes(n)
	buf := (*bufp)[:n]
	// 池中内存可能残留旧数据
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (PoolAllocator) Free(b []byte) {
	if b == nil {
		return
	}
	gxbytes.PutBytes(&b)
}

func (PoolAllocator) Name() string {
	return AllocatorPool
}
