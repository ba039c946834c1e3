package manager

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/buffer_pool"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

// 负载内每条记录前的长度前缀，长度为0表示后面没有记录
const recordLengthSize = 2

/*
LogWriter 日志追加路径，唯一调用 LogBufferManager.GetNextBuffer 的写入者。

日志文件按逻辑块分组，每个逻辑块占 slotsPerBlock 个物理槽位:

	slot = logical*slotsPerBlock + writes%slotsPerBlock

同一逻辑块的多次落盘交替写入组内槽位，撕裂写最多损坏其中一个。
块写满时换到下一个逻辑块(块号加一)，Sync 重写当前块(版本号加一)。
逻辑块在一轮中的第一次落盘写满组内全部槽位，组内不会残留上一轮的块。
回绕后同组块号相差 ringBlocks，因此 ringBlocks 不能超过 logs.MaxVersionDistance。
*/
type LogWriter struct {
	manager *LogBufferManager
	flusher *LogFlusher

	size          int
	slotsPerBlock int
	ringBlocks    int

	buf     *buffer_pool.LogBuffer
	logical int
	writes  int
	used    int
	dirty   bool

	records int64
	synced  int64
}

// NewLogWriter 创建写入者并从管理器取得第一个缓冲区，
// 日志文件在 ringBlocks 个逻辑块后回绕
func NewLogWriter(m *LogBufferManager, f *LogFlusher, size, slotsPerBlock, ringBlocks int) (*LogWriter, error) {
	if size < logs.MinLogBlockSize+recordLengthSize+1 {
		return nil, errors.Wrapf(ErrInvalidBufferSize, "log buffer size %d", size)
	}
	if slotsPerBlock < 1 || ringBlocks < 1 {
		return nil, errors.Wrapf(ErrInvalidSlot, "slots per block %d, ring blocks %d", slotsPerBlock, ringBlocks)
	}
	if ringBlocks > logs.MaxVersionDistance {
		return nil, errors.Wrapf(ErrRingTooLarge, "ring blocks %d, max %d", ringBlocks, logs.MaxVersionDistance)
	}
	return &LogWriter{
		manager:       m,
		flusher:       f,
		size:          size,
		slotsPerBlock: slotsPerBlock,
		ringBlocks:    ringBlocks,
		buf:           m.GetNextBuffer(nil, size),
	}, nil
}

// Append 追加一条记录，当前块放不下时先把它落盘并换到下一个逻辑块
func (w *LogWriter) Append(rec []byte) error {
	if len(rec) == 0 {
		return errors.WithStack(ErrEmptyRecord)
	}
	need := recordLengthSize + len(rec)
	if need > w.size-2*logs.TagSize || len(rec) > 0xFFFF {
		return errors.Wrapf(ErrRecordTooLarge, "record of %d bytes, block size %d", len(rec), w.size)
	}
	if w.used+need > len(w.buf.Block().Payload()) {
		if err := w.advance(); err != nil {
			return err
		}
	}
	payload := w.buf.Block().Payload()
	binary.BigEndian.PutUint16(payload[w.used:], uint16(len(rec)))
	copy(payload[w.used+recordLengthSize:], rec)
	w.used += need
	w.dirty = true
	w.records++
	return nil
}

// Sync 把未写满的当前块落盘，之后的追加在新缓冲区上继续并以更高版本重写同一逻辑块
func (w *LogWriter) Sync() error {
	if !w.dirty {
		return nil
	}
	prev := w.buf
	if err := w.submit(prev); err != nil {
		return err
	}
	// 管理器轮换时释放自己的持有，复制负载期间prev必须存活
	prev.Retain()
	next := w.manager.GetNextBuffer(prev, w.size)
	copy(next.Block().Payload(), prev.Block().Payload()[:w.used])
	prev.Release()

	next.Block().IncrementVersion()
	w.buf = next
	w.dirty = false
	w.synced++
	return nil
}

func (w *LogWriter) advance() error {
	prev := w.buf
	if w.dirty {
		if err := w.submit(prev); err != nil {
			return err
		}
	}
	next := w.manager.GetNextBuffer(prev, w.size)
	next.Block().IncrementBlockNumber()

	w.buf = next
	w.logical = (w.logical + 1) % w.ringBlocks
	w.writes = 0
	w.used = 0
	w.dirty = false
	return nil
}

func (w *LogWriter) submit(buf *buffer_pool.LogBuffer) error {
	base := int64(w.logical * w.slotsPerBlock)
	if w.writes == 0 {
		for k := 0; k < w.slotsPerBlock; k++ {
			if err := w.flusher.Submit(buf, base+int64(k)); err != nil {
				return err
			}
		}
	} else if err := w.flusher.Submit(buf, base+int64(w.writes%w.slotsPerBlock)); err != nil {
		return err
	}
	w.writes++
	return nil
}

// Close 落盘最后一个块并关闭管理器，不关闭刷盘器
func (w *LogWriter) Close() error {
	if w.buf == nil {
		return nil
	}
	var err error
	if w.dirty {
		err = w.submit(w.buf)
	}
	w.buf = nil
	w.manager.Close()
	logger.Debugf("log writer closed: %d records, %d syncs", w.records, w.synced)
	return err
}

// Records 已追加的记录数
func (w *LogWriter) Records() int64 {
	return w.records
}

// Current 当前正在填充的缓冲区
func (w *LogWriter) Current() *buffer_pool.LogBuffer {
	return w.buf
}

// ReadRecords 解析日志块负载中的记录
func ReadRecords(block *logs.LogBlock) ([][]byte, error) {
	payload := block.Payload()
	var recs [][]byte
	for off := 0; off+recordLengthSize <= len(payload); {
		n := int(binary.BigEndian.Uint16(payload[off:]))
		if n == 0 {
			break
		}
		off += recordLengthSize
		if off+n > len(payload) {
			return recs, errors.Wrapf(ErrRecordTooLarge, "record at %d overruns payload", off-recordLengthSize)
		}
		recs = append(recs, payload[off:off+n])
		off += n
	}
	return recs, nil
}
