package manager

import (
	"errors"
	"io"
	"sync"
)

// memFile 内存中的io.WriterAt/io.ReaderAt
type memFile struct {
	mu   sync.Mutex
	data []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := int(off) + len(p)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

func (m *memFile) Slot(slot, size int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, size)
	copy(out, m.data[slot*size:])
	return out
}

var errDiskFull = errors.New("disk full")

type failingWriterAt struct{}

func (failingWriterAt) WriteAt(p []byte, off int64) (int, error) {
	return 0, errDiskFull
}

// writeTaggedSlot 直接按布局写一个槽位，torn时尾部版本号与头部不同
func writeTaggedSlot(f *memFile, slot, size int, blockNumber, version byte, torn bool) {
	buf := make([]byte, size)
	buf[0] = blockNumber
	buf[1] = version
	buf[size-2] = blockNumber
	buf[size-1] = version
	if torn {
		buf[size-1] = version - 1
	}
	buf[2] = 0xAB
	f.WriteAt(buf, int64(slot*size))
}
