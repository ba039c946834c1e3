package latch

import (
	"sync"
	"testing"

	"github.com/smartystreets/assertions"
	"github.com/stretchr/testify/assert"
)

func TestLatch(t *testing.T) {
	l := NewLatch("test")
	assert.Equal(t, "test", l.Name())

	t.Run("写锁互斥", func(t *testing.T) {
		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					l.WithLock(func() { counter++ })
				}
			}()
		}
		wg.Wait()
		assert.Empty(t, assertions.ShouldEqual(counter, 8000))
		assert.Empty(t, assertions.ShouldEqual(l.LockCount(), uint64(8000)))
	})

	t.Run("读锁可重入共享", func(t *testing.T) {
		l.RLock()
		done := make(chan struct{})
		go func() {
			l.WithRLock(func() {})
			close(done)
		}()
		<-done
		l.RUnlock()
	})
}

func TestLogBufferLatch(t *testing.T) {
	assert.Equal(t, "log_buffer", LogBufferLatch.Name())
}
