//go:build unix

package logs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapAllocator(t *testing.T) {
	alloc, err := NewAllocator(AllocatorMmap)
	require.NoError(t, err)
	assert.Equal(t, AllocatorMmap, alloc.Name())

	t.Run("页对齐", func(t *testing.T) {
		b := alloc.Allocate(8192)
		require.Len(t, b, 8192)
		assert.True(t, IsAligned(b, os.Getpagesize()))
		alloc.Free(b)
	})

	t.Run("对齐日志块通过base释放", func(t *testing.T) {
		ab := AllocateAligned(alloc, 4096, 512)
		// mmap返回的地址已经对齐，无需偏移
		assert.Equal(t, 0, ab.Offset())
		assert.True(t, ab.Block().IsConsistent())
		ab.Block().Payload()[0] = 1
		assert.NotPanics(t, func() { FreeAligned(ab) })
	})

	t.Run("子切片不能释放", func(t *testing.T) {
		b := alloc.Allocate(8192)
		err := recoverError(func() { alloc.Free(b[512:]) })
		assert.Error(t, err)
		alloc.Free(b)
	})
}
