package manager

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/conf"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/buffer_pool"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

/*
LogBufferManager 持有唯一的"当前"日志缓冲区，实现轮换协议:

	Empty --GetNextBuffer(nil,size)--> Holding(B1) --GetNextBuffer(B1,size)--> Holding(B2) --> ...

只允许一个写入者(日志追加路径)调用 GetNextBuffer，管理器内部不加锁；
传入过期的previous或不同的size都视为协议错误，直接panic。
*/
type LogBufferManager struct {
	current     *buffer_pool.LogBuffer
	currentSize int

	directIO  bool
	boundary  int
	allocator logs.Allocator

	rotations uint64
}

// LogBufferOption 管理器选项
type LogBufferOption func(*LogBufferManager)

// WithDirectIO 直接I/O模式，日志块按boundary对齐分配
func WithDirectIO(boundary int) LogBufferOption {
	return func(m *LogBufferManager) {
		m.directIO = true
		m.boundary = boundary
	}
}

// WithAllocator 直接I/O模式下对齐块使用的底层分配器
func WithAllocator(alloc logs.Allocator) LogBufferOption {
	return func(m *LogBufferManager) {
		m.allocator = alloc
	}
}

// NewLogBufferManager 创建空的轮换管理器
func NewLogBufferManager(opts ...LogBufferOption) *LogBufferManager {
	m := &LogBufferManager{
		boundary:  logs.DefaultAlignmentBoundary,
		allocator: logs.PoolAllocator{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewLogBufferManagerFromConfig 按配置创建管理器
func NewLogBufferManagerFromConfig(cfg *conf.Cfg) (*LogBufferManager, error) {
	alloc, err := logs.NewAllocator(cfg.Allocator)
	if err != nil {
		return nil, err
	}
	opts := []LogBufferOption{WithAllocator(alloc)}
	if cfg.DirectIO {
		opts = append(opts, WithDirectIO(cfg.AlignmentBoundary))
	}
	return NewLogBufferManager(opts...), nil
}

// GetNextBuffer 轮换到下一个缓冲区
//
// previous为nil表示第一次调用。否则previous必须是当前缓冲区、size必须等于当前大小；
// 新块原样继承previous的头尾标签，由调用方决定随后递增版本号还是块号。
// 管理器对previous的持有在返回前释放，刷盘任务若已Retain则previous继续存活。
func (m *LogBufferManager) GetNextBuffer(previous *buffer_pool.LogBuffer, size int) *buffer_pool.LogBuffer {
	if previous == nil {
		if m.current != nil {
			m.contractViolation("GetNextBuffer", errors.Wrapf(ErrLogBufferHeld,
				"current buffer %d, got nil previous", m.current.ID()))
		}
		buf := m.newBuffer(size)
		m.install(buf, size)
		logger.Debugf("log buffer manager started with buffer %d, size %d", buf.ID(), size)
		return buf
	}

	if previous != m.current {
		m.contractViolation("GetNextBuffer", errors.Wrapf(ErrStaleLogBuffer,
			"previous %d, current %s", previous.ID(), m.currentID()))
	}
	if size != m.currentSize {
		m.contractViolation("GetNextBuffer", errors.Wrapf(ErrLogBufferSizeMismatch,
			"size %d, current size %d", size, m.currentSize))
	}

	buf := m.newBuffer(size)
	buf.Block().CopyTagsFrom(previous.Block())
	m.install(buf, size)
	m.rotations++
	previous.Release()

	logger.Debugf("log buffer rotated %d -> %d, tag %s", previous.ID(), buf.ID(), buf.Block().HeaderTag())
	return buf
}

func (m *LogBufferManager) newBuffer(size int) *buffer_pool.LogBuffer {
	if m.directIO {
		return buffer_pool.NewAlignedLogBuffer(logs.AllocateAligned(m.allocator, size, m.boundary), size)
	}
	return buffer_pool.NewLogBuffer(logs.NewLogBlock(size), size)
}

func (m *LogBufferManager) install(buf *buffer_pool.LogBuffer, size int) {
	m.current = buf
	m.currentSize = size
}

// Close 释放管理器持有的当前缓冲区，可重复调用
func (m *LogBufferManager) Close() {
	if m.current == nil {
		return
	}
	cur := m.current
	m.current = nil
	m.currentSize = 0
	cur.Release()
	logger.Debugf("log buffer manager closed after %d rotations", m.rotations)
}

// Current 当前缓冲区，可能为nil
func (m *LogBufferManager) Current() *buffer_pool.LogBuffer {
	return m.current
}

// CurrentSize 当前缓冲区大小
func (m *LogBufferManager) CurrentSize() int {
	return m.currentSize
}

// Rotations 已完成的轮换次数
func (m *LogBufferManager) Rotations() uint64 {
	return m.rotations
}

// DirectIO 是否为直接I/O模式
func (m *LogBufferManager) DirectIO() bool {
	return m.directIO
}

func (m *LogBufferManager) currentID() string {
	if m.current == nil {
		return "none"
	}
	return strconv.FormatUint(m.current.ID(), 10)
}

func (m *LogBufferManager) contractViolation(op string, err error) {
	logger.Errorf("log buffer rotation contract violation: %+v", err)
	panic(NewError(op, err))
}
