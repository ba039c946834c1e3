package latch

import (
	"sync"
	"sync/atomic"
)

// Latch 带名字的互斥锁，读写两种模式，并统计写锁获取次数
type Latch struct {
	mu    sync.RWMutex
	name  string
	locks uint64
}

// LogBufferLatch 所有日志缓冲区引用计数共享的进程级锁
// 缓冲区轮换频率远低于日志追加频率，单把锁的竞争可以忽略。
var LogBufferLatch = NewLatch("log_buffer")

// NewLatch 创建一个新的锁
func NewLatch(name string) *Latch {
	return &Latch{name: name}
}

// Name 锁名称
func (l *Latch) Name() string {
	return l.name
}

// Lock 获取写锁
func (l *Latch) Lock() {
	l.mu.Lock()
	atomic.AddUint64(&l.locks, 1)
}

// Unlock 释放写锁
func (l *Latch) Unlock() {
	l.mu.Unlock()
}

// RLock 获取读锁
func (l *Latch) RLock() {
	l.mu.RLock()
}

// RUnlock 释放读锁
func (l *Latch) RUnlock() {
	l.mu.RUnlock()
}

// WithLock 持有写锁执行fn
func (l *Latch) WithLock(fn func()) {
	l.Lock()
	defer l.Unlock()
	fn()
}

// WithRLock 持有读锁执行fn
func (l *Latch) WithRLock(fn func()) {
	l.RLock()
	defer l.RUnlock()
	fn()
}

// LockCount 写锁累计获取次数
func (l *Latch) LockCount() uint64 {
	return atomic.LoadUint64(&l.locks)
}
