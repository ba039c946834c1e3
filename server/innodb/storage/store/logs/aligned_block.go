package logs

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/util"
)

/*
AlignedBlock 直接I/O模式下的日志块。

通用分配器不保证设备要求的传输对齐，O_DIRECT写入未对齐内存会失败或退化为
缓冲I/O。这里多分配boundary字节，把日志块放在第一个按boundary对齐的地址上:

	base                 usable = base + offset           base + size + boundary
	|<----- offset ----->|<------------ size ------------>|<- rest ->|

释放时只能归还base。
*/
type AlignedBlock struct {
	alloc    Allocator
	base     []byte
	block    *LogBlock
	offset   int
	boundary int
}

// AllocateAligned 分配 size+boundary 字节，并在对齐位置初始化一个size字节的日志块
func AllocateAligned(alloc Allocator, size, boundary int) *AlignedBlock {
	if !util.IsPowerOfTwo(boundary) {
		panic(errors.Wrapf(ErrInvalidBoundary, "logs.AllocateAligned: boundary %d", boundary))
	}
	checkBlockSize("AllocateAligned", size)

	base := alloc.Allocate(size + boundary)
	if len(base) < size+boundary {
		panic(errors.Wrapf(ErrAllocationFailed, "%s allocator returned %d bytes, want %d",
			alloc.Name(), len(base), size+boundary))
	}
	offset := AlignmentOffset(addressOf(base), boundary)

	return &AlignedBlock{
		alloc:    alloc,
		base:     base,
		block:    InitLogBlock(base[offset : offset+size : offset+size]),
		offset:   offset,
		boundary: boundary,
	}
}

// FreeAligned 通过base归还内存，重复释放会panic
func FreeAligned(ab *AlignedBlock) {
	if ab.base == nil {
		panic(errors.WithStack(ErrDoubleFree))
	}
	base := ab.base
	ab.base = nil
	ab.block = nil
	ab.alloc.Free(base)
}

// Block 对齐后的日志块
func (ab *AlignedBlock) Block() *LogBlock {
	return ab.block
}

// Offset usable 相对 base 的偏移，取值 [0, boundary)
func (ab *AlignedBlock) Offset() int {
	return ab.offset
}

// Boundary 对齐边界
func (ab *AlignedBlock) Boundary() int {
	return ab.boundary
}

// BaseAddress 原始分配起始地址
func (ab *AlignedBlock) BaseAddress() uintptr {
	return addressOf(ab.base)
}

// UsableAddress 日志块起始地址
func (ab *AlignedBlock) UsableAddress() uintptr {
	return addressOf(ab.block.buf)
}

// Freed 是否已释放
func (ab *AlignedBlock) Freed() bool {
	return ab.base == nil
}

// AlignmentOffset 从addr前进到下一个boundary对齐地址需要的字节数
func AlignmentOffset(addr uintptr, boundary int) int {
	b := uintptr(boundary)
	return int((b - addr%b) % b)
}

// IsAligned b的起始地址是否按boundary对齐
func IsAligned(b []byte, boundary int) bool {
	return len(b) > 0 && addressOf(b)%uintptr(boundary) == 0
}

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
