package manager

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/buffer_pool"
)

const defaultFlushQueueDepth = 64

// FlushStats 刷盘统计
type FlushStats struct {
	Submitted     int64
	Flushed       int64
	Shipped       int64
	Failed        int64
	FlushLatency  int64 // 纳秒累计
	BytesFlushed  int64
	BytesShipped  int64
	LastFlushTime time.Time
}

type flushRequest struct {
	buf  *buffer_pool.LogBuffer
	slot int64
}

/*
LogFlusher 被轮换下来的缓冲区的刷盘/复制路径。

Submit 在入队前Retain缓冲区，后台协程把块写到本地 slot*size 处、
并把HSB帧发给备机，完成(或放弃)后Release。不做重试，第一个错误被保留。
*/
type LogFlusher struct {
	local   io.WriterAt
	replica *FrameEncoder

	mu     sync.Mutex
	closed bool
	queue  chan flushRequest
	done   chan struct{}

	errMu sync.Mutex
	err   error

	submitted    int64
	flushed      int64
	shipped      int64
	failed       int64
	latency      int64
	bytesFlushed int64
	bytesShipped int64
	lastFlush    atomic.Value
}

// LogFlusherOption 刷盘器选项
type LogFlusherOption func(*LogFlusher)

// WithReplica 同时把块发送给HSB备机
func WithReplica(w io.Writer, compression CompressionType) LogFlusherOption {
	return func(f *LogFlusher) {
		f.replica = NewFrameEncoder(w, compression)
	}
}

// WithQueueDepth 刷盘队列长度
func WithQueueDepth(depth int) LogFlusherOption {
	return func(f *LogFlusher) {
		f.queue = make(chan flushRequest, depth)
	}
}

// NewLogFlusher 创建刷盘器并启动后台协程，local可以为nil(仅复制)
func NewLogFlusher(local io.WriterAt, opts ...LogFlusherOption) (*LogFlusher, error) {
	f := &LogFlusher{
		local: local,
		queue: make(chan flushRequest, defaultFlushQueueDepth),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.local == nil && f.replica == nil {
		return nil, errors.WithStack(ErrNoFlushTarget)
	}
	if f.replica != nil {
		logger.WithFields(logrus.Fields{
			"stream":      f.replica.StreamID().String(),
			"compression": f.replica.compression.String(),
		}).Info("hsb replica stream started")
	}
	go f.run()
	return f, nil
}

// Submit 提交一个缓冲区写到slot号槽位，队列满时阻塞
func (f *LogFlusher) Submit(buf *buffer_pool.LogBuffer, slot int64) error {
	if slot < 0 {
		return errors.Wrapf(ErrInvalidSlot, "slot %d", slot)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.WithStack(ErrFlusherClosed)
	}
	buf.Retain()
	atomic.AddInt64(&f.submitted, 1)
	f.queue <- flushRequest{buf: buf, slot: slot}
	return nil
}

func (f *LogFlusher) run() {
	defer close(f.done)
	for req := range f.queue {
		f.flush(req)
	}
}

func (f *LogFlusher) flush(req flushRequest) {
	defer req.buf.Release()

	start := time.Now()
	data := req.buf.Block().Bytes()
	failed := false

	if f.local != nil {
		if _, err := f.local.WriteAt(data, req.slot*int64(req.buf.Size())); err != nil {
			f.recordError(errors.Wrapf(err, "flush buffer %d to slot %d", req.buf.ID(), req.slot))
			failed = true
		} else {
			atomic.AddInt64(&f.flushed, 1)
			atomic.AddInt64(&f.bytesFlushed, int64(len(data)))
		}
	}
	if f.replica != nil {
		if err := f.replica.Encode(uint64(req.slot), data); err != nil {
			f.recordError(errors.Wrapf(err, "ship buffer %d slot %d", req.buf.ID(), req.slot))
			failed = true
		} else {
			atomic.AddInt64(&f.shipped, 1)
			atomic.AddInt64(&f.bytesShipped, int64(len(data)))
		}
	}
	if failed {
		atomic.AddInt64(&f.failed, 1)
	}
	atomic.AddInt64(&f.latency, int64(time.Since(start)))
	f.lastFlush.Store(time.Now())
}

func (f *LogFlusher) recordError(err error) {
	logger.Errorf("log flush failed: %v", err)
	f.errMu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.errMu.Unlock()
}

// Err 第一个刷盘错误
func (f *LogFlusher) Err() error {
	f.errMu.Lock()
	defer f.errMu.Unlock()
	return f.err
}

// Close 停止接收，等待队列中的请求全部完成，返回第一个刷盘错误
func (f *LogFlusher) Close() error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	<-f.done
	return f.Err()
}

// Stats 刷盘统计快照
func (f *LogFlusher) Stats() FlushStats {
	s := FlushStats{
		Submitted:    atomic.LoadInt64(&f.submitted),
		Flushed:      atomic.LoadInt64(&f.flushed),
		Shipped:      atomic.LoadInt64(&f.shipped),
		Failed:       atomic.LoadInt64(&f.failed),
		FlushLatency: atomic.LoadInt64(&f.latency),
		BytesFlushed: atomic.LoadInt64(&f.bytesFlushed),
		BytesShipped: atomic.LoadInt64(&f.bytesShipped),
	}
	if t, ok := f.lastFlush.Load().(time.Time); ok {
		s.LastFlushTime = t
	}
	return s
}
