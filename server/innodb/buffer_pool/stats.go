package buffer_pool

import (
	"sync/atomic"
	"time"

	"github.com/jarmoruuth/solidDB-sub021/server/innodb/latch"
)

// LogBufferStats 日志缓冲区生命周期统计
type LogBufferStats struct {
	Created   int64
	Destroyed int64
	Aligned   int64
	Retains   int64
	Releases  int64

	// LatchLocks 引用计数latch的累计加锁次数，进程级，不随Reset清零
	LatchLocks uint64

	LastResetTime time.Time
}

var stats = NewLogBufferStats()

// NewLogBufferStats 创建新的统计对象
func NewLogBufferStats() *LogBufferStats {
	return &LogBufferStats{
		LastResetTime: time.Now(),
	}
}

// Stats 进程级日志缓冲区统计
func Stats() *LogBufferStats {
	return stats
}

// RecordCreate 记录创建
func (s *LogBufferStats) RecordCreate(aligned bool) {
	atomic.AddInt64(&s.Created, 1)
	if aligned {
		atomic.AddInt64(&s.Aligned, 1)
	}
}

// RecordDestroy 记录销毁
func (s *LogBufferStats) RecordDestroy() {
	atomic.AddInt64(&s.Destroyed, 1)
}

// RecordRetain 记录retain
func (s *LogBufferStats) RecordRetain() {
	atomic.AddInt64(&s.Retains, 1)
}

// RecordRelease 记录release
func (s *LogBufferStats) RecordRelease() {
	atomic.AddInt64(&s.Releases, 1)
}

// Live 尚未销毁的缓冲区数量
func (s *LogBufferStats) Live() int64 {
	return atomic.LoadInt64(&s.Created) - atomic.LoadInt64(&s.Destroyed)
}

// Snapshot 获取快照副本
func (s *LogBufferStats) Snapshot() LogBufferStats {
	return LogBufferStats{
		Created:       atomic.LoadInt64(&s.Created),
		Destroyed:     atomic.LoadInt64(&s.Destroyed),
		Aligned:       atomic.LoadInt64(&s.Aligned),
		Retains:       atomic.LoadInt64(&s.Retains),
		Releases:      atomic.LoadInt64(&s.Releases),
		LatchLocks:    latch.LogBufferLatch.LockCount(),
		LastResetTime: s.LastResetTime,
	}
}

// Reset 重置统计信息
func (s *LogBufferStats) Reset() {
	atomic.StoreInt64(&s.Created, 0)
	atomic.StoreInt64(&s.Destroyed, 0)
	atomic.StoreInt64(&s.Aligned, 0)
	atomic.StoreInt64(&s.Retains, 0)
	atomic.StoreInt64(&s.Releases, 0)
	s.LastResetTime = time.Now()
}
