package manager

import (
	"bytes"
	"io"
	"math"
	"os"

	"github.com/juju/errors"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

// RecoveredBlock 一个逻辑块最新有效版本所在的物理槽位
type RecoveredBlock struct {
	Group int64
	Slot  int64
	Tag   logs.IntegrityTag
}

// RecoveryResult 恢复扫描结果
type RecoveryResult struct {
	Blocks          []RecoveredBlock // 按组号升序
	TornSlots       []int64          // 头尾标签不一致的槽位，文件末尾的残缺槽位也算在内
	LostGroups      []int64          // 有写入痕迹但没有任何有效槽位的组
	ConflictGroups  []int64          // 组内出现不同块号
	AmbiguousGroups []int64          // 组内块号相差超出回绕比较范围，无法判断新旧
	EmptySlots      int64
	Duplicates      int64
	ScannedSlots    int64
}

/*
LogRecoveryScanner 重启后扫描落盘的日志块。

日志文件由连续的槽位组成，每 slotsPerBlock 个槽位为一组，承载同一个逻辑块的
交替(ping-pong)写入。对每组只信任头尾标签一致的槽位，用版本号的回绕比较选出最新者。

组内块号不同时只有相差一轮(ringBlocks)的两个块能比较新旧，
未设置 ringBlocks 时接受回绕比较范围内的任意距离。
*/
type LogRecoveryScanner struct {
	bufferSize    int
	slotsPerBlock int
	ringBlocks    int
}

// LogRecoveryOption 扫描器选项
type LogRecoveryOption func(*LogRecoveryScanner)

// WithRingBlocks 写入时的逻辑块个数
func WithRingBlocks(n int) LogRecoveryOption {
	return func(s *LogRecoveryScanner) {
		s.ringBlocks = n
	}
}

// NewLogRecoveryScanner 创建扫描器
func NewLogRecoveryScanner(bufferSize, slotsPerBlock int, opts ...LogRecoveryOption) (*LogRecoveryScanner, error) {
	if bufferSize < logs.MinLogBlockSize {
		return nil, errors.Annotatef(ErrInvalidBufferSize, "buffer size %d", bufferSize)
	}
	if slotsPerBlock < 1 {
		return nil, errors.NotValidf("slots per block %d", slotsPerBlock)
	}
	s := &LogRecoveryScanner{bufferSize: bufferSize, slotsPerBlock: slotsPerBlock}
	for _, opt := range opts {
		opt(s)
	}
	if s.ringBlocks < 0 || s.ringBlocks > logs.MaxVersionDistance {
		return nil, errors.NotValidf("ring blocks %d", s.ringBlocks)
	}
	return s, nil
}

// ScanFile 扫描日志文件
func (s *LogRecoveryScanner) ScanFile(path string) (*RecoveryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotatef(err, "open log file %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.Scan(f, info.Size())
}

// groupState 当前组内的最佳候选
type groupState struct {
	group    int64
	best     *logs.LogBlock
	bestSlot int64
	torn      bool
	conflict  bool
	ambiguous bool
}

// Scan 扫描r中前fileSize字节
func (s *LogRecoveryScanner) Scan(r io.ReaderAt, fileSize int64) (*RecoveryResult, error) {
	bs := int64(s.bufferSize)
	slots := fileSize / bs
	res := &RecoveryResult{}

	buf := make([]byte, bs)
	zero := make([]byte, bs)
	state := &groupState{group: -1}

	for slot := int64(0); slot < slots; slot++ {
		group := slot / int64(s.slotsPerBlock)
		if group != state.group {
			s.finishGroup(res, state)
			state = &groupState{group: group}
		}

		if err := readSlot(r, buf, slot*bs); err != nil {
			return nil, errors.Annotatef(err, "read slot %d", slot)
		}
		res.ScannedSlots++

		if bytes.Equal(buf, zero) {
			res.EmptySlots++
			continue
		}
		blk := logs.WrapLogBlock(buf)
		if !blk.IsConsistent() {
			res.TornSlots = append(res.TornSlots, slot)
			state.torn = true
			logger.Warnf("torn log slot %d: header %s, trailer %s", slot, blk.HeaderTag(), blk.TrailerTag())
			continue
		}
		s.consider(res, state, blk, slot)
	}
	s.finishGroup(res, state)

	if fileSize%bs != 0 {
		res.TornSlots = append(res.TornSlots, slots)
		logger.Warnf("log file ends with a partial slot %d (%d bytes)", slots, fileSize%bs)
	}
	return res, nil
}

func (s *LogRecoveryScanner) consider(res *RecoveryResult, state *groupState, blk *logs.LogBlock, slot int64) {
	if state.best == nil {
		state.best = blk.TagSnapshot()
		state.bestSlot = slot
		return
	}
	if logs.SameBlock(state.best, blk) {
		res.Duplicates++
		return
	}
	if !logs.SameBlockNumber(state.best, blk) {
		// 组内块号不同，说明槽位残留着更早一轮的逻辑块，块号同样按回绕比较
		state.conflict = true
		d := int8(blk.BlockNumber() - state.best.BlockNumber())
		if !s.oneLapApart(d) {
			state.ambiguous = true
			logger.Warnf("log group %d holds blocks %d and %d, cannot order them",
				state.group, state.best.BlockNumber(), blk.BlockNumber())
			return
		}
		if d > 0 {
			state.best = blk.TagSnapshot()
			state.bestSlot = slot
		}
		return
	}
	if logs.CompareVersions(blk, state.best) > 0 {
		state.best = blk.TagSnapshot()
		state.bestSlot = slot
	}
}

// oneLapApart 块号差d能否可靠地判断新旧
func (s *LogRecoveryScanner) oneLapApart(d int8) bool {
	if d == math.MinInt8 {
		return false
	}
	if s.ringBlocks == 0 {
		return true
	}
	return d == int8(s.ringBlocks) || d == -int8(s.ringBlocks)
}

func (s *LogRecoveryScanner) finishGroup(res *RecoveryResult, state *groupState) {
	if state.group < 0 {
		return
	}
	if state.conflict {
		res.ConflictGroups = append(res.ConflictGroups, state.group)
	}
	if state.ambiguous {
		res.AmbiguousGroups = append(res.AmbiguousGroups, state.group)
		return
	}
	if state.best == nil {
		if state.torn {
			res.LostGroups = append(res.LostGroups, state.group)
		}
		return
	}
	res.Blocks = append(res.Blocks, RecoveredBlock{
		Group: state.group,
		Slot:  state.bestSlot,
		Tag:   state.best.HeaderTag(),
	})
}

func readSlot(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Trace(err)
}
