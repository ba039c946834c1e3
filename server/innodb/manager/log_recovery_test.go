package manager

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	jujuerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

func TestLogRecoveryScan(t *testing.T) {
	const size = 64
	file := &memFile{}

	// 组0: 同一块的两个版本
	writeTaggedSlot(file, 0, size, 1, 1, false)
	writeTaggedSlot(file, 1, size, 1, 2, false)
	// 组1: 新版本写到一半
	writeTaggedSlot(file, 2, size, 2, 3, false)
	writeTaggedSlot(file, 3, size, 2, 4, true)
	// 组2: 两个槽位完全相同
	writeTaggedSlot(file, 4, size, 3, 1, false)
	writeTaggedSlot(file, 5, size, 3, 1, false)
	// 组3: 唯一写入被撕裂，另一槽位为空
	writeTaggedSlot(file, 6, size, 4, 1, true)
	// 组4: 版本号回绕
	writeTaggedSlot(file, 8, size, 4, 255, false)
	writeTaggedSlot(file, 9, size, 4, 1, false)
	// 组5: 残留上一轮的块
	writeTaggedSlot(file, 10, size, 2, 9, false)
	writeTaggedSlot(file, 11, size, 5, 1, false)
	// 末尾残缺槽位
	file.WriteAt([]byte{7, 7, 7}, 12*size)

	s, err := NewLogRecoveryScanner(size, 2)
	require.NoError(t, err)
	res, err := s.Scan(file, file.Size())
	require.NoError(t, err)

	want := &RecoveryResult{
		Blocks: []RecoveredBlock{
			{Group: 0, Slot: 1, Tag: logs.IntegrityTag{BlockNumber: 1, Version: 2}},
			{Group: 1, Slot: 2, Tag: logs.IntegrityTag{BlockNumber: 2, Version: 3}},
			{Group: 2, Slot: 4, Tag: logs.IntegrityTag{BlockNumber: 3, Version: 1}},
			{Group: 4, Slot: 9, Tag: logs.IntegrityTag{BlockNumber: 4, Version: 1}},
			{Group: 5, Slot: 11, Tag: logs.IntegrityTag{BlockNumber: 5, Version: 1}},
		},
		TornSlots:      []int64{3, 6, 12},
		LostGroups:     []int64{3},
		ConflictGroups: []int64{5},
		EmptySlots:     1,
		Duplicates:     1,
		ScannedSlots:   12,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("recovery result mismatch (-want +got):\n%s", diff)
	}
}

func TestLogRecoveryScanLapDistance(t *testing.T) {
	const size = 64
	file := &memFile{}
	// 组0: 相差一轮
	writeTaggedSlot(file, 0, size, 161, 3, false)
	writeTaggedSlot(file, 1, size, 157, 3, false)
	// 组1: 相差40轮，块号差按int8计算为负
	writeTaggedSlot(file, 2, size, 162, 3, false)
	writeTaggedSlot(file, 3, size, 2, 2, false)
	// 组2: 块号差正好128
	writeTaggedSlot(file, 4, size, 129, 1, false)
	writeTaggedSlot(file, 5, size, 1, 1, false)

	t.Run("不知道回绕长度", func(t *testing.T) {
		s, err := NewLogRecoveryScanner(size, 2)
		require.NoError(t, err)
		res, err := s.Scan(file, file.Size())
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1, 2}, res.ConflictGroups)
		assert.Equal(t, []int64{2}, res.AmbiguousGroups)
		require.Len(t, res.Blocks, 2)
		assert.Equal(t, int64(0), res.Blocks[0].Slot)
		assert.Equal(t, int64(1), res.Blocks[1].Group)
	})

	t.Run("按回绕长度判断", func(t *testing.T) {
		s, err := NewLogRecoveryScanner(size, 2, WithRingBlocks(4))
		require.NoError(t, err)
		res, err := s.Scan(file, file.Size())
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1, 2}, res.ConflictGroups)
		assert.Equal(t, []int64{1, 2}, res.AmbiguousGroups)
		want := []RecoveredBlock{{Group: 0, Slot: 0, Tag: logs.IntegrityTag{BlockNumber: 161, Version: 3}}}
		if diff := cmp.Diff(want, res.Blocks); diff != "" {
			t.Errorf("blocks mismatch (-want +got):\n%s", diff)
		}
	})

	_, err := NewLogRecoveryScanner(size, 2, WithRingBlocks(logs.MaxVersionDistance+1))
	assert.True(t, jujuerrors.IsNotValid(err))
}

func TestLogRecoveryScanEmpty(t *testing.T) {
	s, err := NewLogRecoveryScanner(512, 2)
	require.NoError(t, err)
	res, err := s.Scan(bytes.NewReader(nil), 0)
	require.NoError(t, err)
	assert.True(t, cmp.Equal(&RecoveryResult{}, res))
}

func TestLogRecoveryScannerArgs(t *testing.T) {
	_, err := NewLogRecoveryScanner(3, 2)
	assert.Equal(t, ErrInvalidBufferSize, jujuerrors.Cause(err))

	_, err = NewLogRecoveryScanner(512, 0)
	assert.True(t, jujuerrors.IsNotValid(err))

	s, err := NewLogRecoveryScanner(512, 1)
	require.NoError(t, err)
	_, err = s.ScanFile(filepath.Join(t.TempDir(), "missing.log"))
	assert.True(t, os.IsNotExist(jujuerrors.Cause(err)))
}

// 主机轮换、刷盘并复制，备机应用后两边恢复结果一致
func TestPrimaryReplicaRecovery(t *testing.T) {
	const size = 512
	const slotsPerBlock = 2

	primary := &memFile{}
	var stream bytes.Buffer
	f, err := NewLogFlusher(primary, WithReplica(&stream, CompressionLZ4))
	require.NoError(t, err)

	m := NewLogBufferManager(WithDirectIO(512))
	buf := m.GetNextBuffer(nil, size)
	writes := 0
	for logical := 0; logical < 3; logical++ {
		for rewrite := 0; rewrite < 3; rewrite++ {
			slot := int64(logical*slotsPerBlock + writes%slotsPerBlock)
			require.NoError(t, f.Submit(buf, slot))
			writes++

			prev := buf
			buf = m.GetNextBuffer(prev, size)
			if rewrite == 2 {
				buf.Block().IncrementBlockNumber()
			} else {
				buf.Block().IncrementVersion()
			}
		}
	}
	m.Close()
	require.NoError(t, f.Close())

	standby := &memFile{}
	applied, err := NewReplicaApplier(standby, size).Apply(&stream)
	require.NoError(t, err)
	assert.Equal(t, int64(9), applied)

	s, err := NewLogRecoveryScanner(size, slotsPerBlock)
	require.NoError(t, err)
	onPrimary, err := s.Scan(primary, primary.Size())
	require.NoError(t, err)
	onStandby, err := s.Scan(standby, standby.Size())
	require.NoError(t, err)

	if diff := cmp.Diff(onPrimary, onStandby); diff != "" {
		t.Errorf("standby differs from primary (-primary +standby):\n%s", diff)
	}
	require.Len(t, onPrimary.Blocks, 3)
	// 换块不重置版本号，每个逻辑块最后一次重写的版本依次为3、5、7
	for i, b := range onPrimary.Blocks {
		assert.Equal(t, byte(i+1), b.Tag.BlockNumber)
		assert.Equal(t, byte(3+2*i), b.Tag.Version)
	}
	assert.Empty(t, onPrimary.TornSlots)
}
