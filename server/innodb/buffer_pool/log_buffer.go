package buffer_pool

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/latch"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

var nextBufferID uint64

/*
LogBuffer 对一个日志块的引用计数包装。

创建时计数为1。轮换管理器与任意多个刷盘/复制任务共享同一个LogBuffer，
计数归零的那次Release负责销毁日志块(对齐块按base归还分配器)。
Retain/Release 由所有缓冲区共享的 latch.LogBufferLatch 串行化，
销毁时的字段清理也在latch内完成；Size/Block 只读，无需加锁。
*/
type LogBuffer struct {
	id      uint64
	block   *logs.LogBlock
	aligned *logs.AlignedBlock
	size    int

	// 以下字段受 latch.LogBufferLatch 保护
	refs      int
	destroyed bool
}

// NewLogBuffer 包装普通日志块
func NewLogBuffer(block *logs.LogBlock, size int) *LogBuffer {
	if block == nil {
		contractViolation("NewLogBuffer", errors.WithStack(ErrNilBlock))
	}
	return newLogBuffer(block, nil, size)
}

// NewAlignedLogBuffer 包装直接I/O用的对齐日志块
func NewAlignedLogBuffer(ab *logs.AlignedBlock, size int) *LogBuffer {
	if ab == nil || ab.Freed() {
		contractViolation("NewAlignedLogBuffer", errors.WithStack(ErrNilBlock))
	}
	return newLogBuffer(ab.Block(), ab, size)
}

func newLogBuffer(block *logs.LogBlock, ab *logs.AlignedBlock, size int) *LogBuffer {
	if block.Size() != size {
		contractViolation("NewLogBuffer", errors.Wrapf(ErrBufferSizeMismatch, "size %d, block %d", size, block.Size()))
	}
	b := &LogBuffer{
		id:      atomic.AddUint64(&nextBufferID, 1),
		block:   block,
		aligned: ab,
		size:    size,
		refs:    1,
	}
	stats.RecordCreate(ab != nil)
	return b
}

// Retain 引用计数加一，刷盘任务在异步写出前调用
func (b *LogBuffer) Retain() {
	var err error
	latch.LogBufferLatch.WithLock(func() {
		if b.destroyed {
			err = errors.Wrapf(ErrBufferDestroyed, "buffer %d", b.id)
			return
		}
		b.refs++
	})
	if err != nil {
		contractViolation("LogBuffer.Retain", err)
	}
	stats.RecordRetain()
}

// Release 引用计数减一，归零时销毁日志块
func (b *LogBuffer) Release() {
	var (
		err  error
		last bool
		dead *logs.AlignedBlock
	)
	latch.LogBufferLatch.WithLock(func() {
		if b.destroyed || b.refs <= 0 {
			err = errors.Wrapf(ErrRefCountUnderflow, "buffer %d", b.id)
			return
		}
		b.refs--
		if b.refs > 0 {
			return
		}
		last = true
		b.destroyed = true
		dead = b.aligned
		b.aligned = nil
		b.block = nil
	})
	if err != nil {
		contractViolation("LogBuffer.Release", err)
	}
	stats.RecordRelease()

	// 只有把计数减到0的调用者会走到这里，销毁恰好执行一次
	if last {
		b.teardown(dead)
	}
}

func (b *LogBuffer) teardown(ab *logs.AlignedBlock) {
	if ab != nil {
		logs.FreeAligned(ab)
	}
	stats.RecordDestroy()
	logger.Debugf("log buffer %d destroyed, size %d", b.id, b.size)
}

// Size 缓冲区大小
func (b *LogBuffer) Size() int {
	return b.size
}

// Block 被包装的日志块，调用方须持有引用。
// 最后一次Release在latch内清空该字段，持有者的读取都发生在它自己的Release之前。
func (b *LogBuffer) Block() *logs.LogBlock {
	return b.block
}

// ID 进程内唯一编号，用于日志
func (b *LogBuffer) ID() uint64 {
	return b.id
}

// IsAligned 是否为直接I/O对齐块，销毁后为false
func (b *LogBuffer) IsAligned() (aligned bool) {
	latch.LogBufferLatch.WithRLock(func() { aligned = b.aligned != nil })
	return
}

// RefCount 当前引用计数，仅用于诊断
func (b *LogBuffer) RefCount() (refs int) {
	latch.LogBufferLatch.WithRLock(func() { refs = b.refs })
	return
}

// Destroyed 是否已销毁
func (b *LogBuffer) Destroyed() (destroyed bool) {
	latch.LogBufferLatch.WithRLock(func() { destroyed = b.destroyed })
	return
}

func contractViolation(op string, err error) {
	e := NewError(op, err)
	logger.Errorf("log buffer contract violation: %+v", err)
	panic(e)
}
