package buffer_pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

// countingAllocator 统计释放次数
type countingAllocator struct {
	logs.PoolAllocator
	mu    sync.Mutex
	frees int
}

func (a *countingAllocator) Free(b []byte) {
	a.mu.Lock()
	a.frees++
	a.mu.Unlock()
	a.PoolAllocator.Free(b)
}

func TestLogBufferRefCount(t *testing.T) {
	t.Run("retain后两次release才销毁", func(t *testing.T) {
		before := Stats().Snapshot()

		b := NewLogBuffer(logs.NewLogBlock(64), 64)
		assert.Equal(t, 1, b.RefCount())
		assert.Equal(t, 64, b.Size())
		assert.False(t, b.IsAligned())

		b.Retain()
		assert.Equal(t, 2, b.RefCount())

		b.Release()
		assert.Equal(t, 1, b.RefCount())
		assert.False(t, b.Destroyed())
		require.NotNil(t, b.Block())
		assert.True(t, b.Block().IsConsistent())

		b.Release()
		assert.True(t, b.Destroyed())
		assert.Equal(t, 0, b.RefCount())
		assert.Nil(t, b.Block())

		after := Stats().Snapshot()
		assert.Equal(t, int64(1), after.Created-before.Created)
		assert.Equal(t, int64(1), after.Destroyed-before.Destroyed)
		assert.Equal(t, int64(1), after.Retains-before.Retains)
		assert.Equal(t, int64(2), after.Releases-before.Releases)
		assert.GreaterOrEqual(t, after.LatchLocks-before.LatchLocks, uint64(3))
	})

	t.Run("对齐块销毁时按base释放一次", func(t *testing.T) {
		alloc := &countingAllocator{}
		ab := logs.AllocateAligned(alloc, 512, 512)
		b := NewAlignedLogBuffer(ab, 512)
		assert.True(t, b.IsAligned())
		assert.True(t, logs.IsAligned(b.Block().Bytes(), 512))

		b.Retain()
		b.Release()
		assert.Equal(t, 0, alloc.frees)
		assert.False(t, ab.Freed())

		b.Release()
		assert.Equal(t, 1, alloc.frees)
		assert.True(t, ab.Freed())
		assert.False(t, b.IsAligned())
		assert.Nil(t, b.Block())
	})

	t.Run("多余的release", func(t *testing.T) {
		b := NewLogBuffer(logs.NewLogBlock(64), 64)
		b.Release()
		err := recoverError(b.Release)
		require.Error(t, err)
		assert.True(t, IsRefCountUnderflow(err))
	})

	t.Run("销毁后retain", func(t *testing.T) {
		b := NewLogBuffer(logs.NewLogBlock(64), 64)
		b.Release()
		err := recoverError(b.Retain)
		require.Error(t, err)
		assert.True(t, IsBufferDestroyed(err))
	})
}

func TestNewLogBufferContract(t *testing.T) {
	err := recoverError(func() { NewLogBuffer(logs.NewLogBlock(64), 128) })
	assert.ErrorIs(t, err, ErrBufferSizeMismatch)

	err = recoverError(func() { NewLogBuffer(nil, 64) })
	assert.ErrorIs(t, err, ErrNilBlock)

	ab := logs.AllocateAligned(logs.PoolAllocator{}, 64, 512)
	logs.FreeAligned(ab)
	err = recoverError(func() { NewAlignedLogBuffer(ab, 64) })
	assert.ErrorIs(t, err, ErrNilBlock)

	var bpErr *BufferPoolError
	require.ErrorAs(t, err, &bpErr)
	assert.Equal(t, "NewAlignedLogBuffer", bpErr.Op)
}

func TestLogBufferConcurrentRetainRelease(t *testing.T) {
	alloc := &countingAllocator{}
	b := NewAlignedLogBuffer(logs.AllocateAligned(alloc, 4096, 512), 4096)

	const workers = 16
	const rounds = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				b.Retain()
				_ = b.Block().BlockNumber()
				b.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, b.RefCount())
	assert.Equal(t, 0, alloc.frees)

	// 模拟刷盘任务持有最后一个引用，同时有诊断读取
	b.Retain()
	released := make(chan struct{})
	go func() {
		b.Release()
		close(released)
	}()
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		for !b.Destroyed() {
			_ = b.IsAligned()
			_ = b.RefCount()
		}
	}()
	b.Release()
	<-released
	<-watched

	assert.True(t, b.Destroyed())
	assert.False(t, b.IsAligned())
	assert.Equal(t, 1, alloc.frees)
}
