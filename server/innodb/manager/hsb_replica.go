package manager

import (
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

// ReplicaApplier 备机端，把HSB帧中的块写到备机日志文件相同槽位
type ReplicaApplier struct {
	standby    io.WriterAt
	bufferSize int
	streamID   uuid.UUID
	applied    int64
	torn       int64
}

// NewReplicaApplier 创建备机应用器
func NewReplicaApplier(standby io.WriterAt, bufferSize int) *ReplicaApplier {
	return &ReplicaApplier{standby: standby, bufferSize: bufferSize}
}

// Apply 读取并应用r中的全部帧，直到流结束
func (a *ReplicaApplier) Apply(r io.Reader) (int64, error) {
	var n int64
	for {
		frame, err := DecodeFrame(r)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := a.ApplyFrame(frame); err != nil {
			return n, err
		}
		n++
	}
}

// ApplyFrame 应用单个帧
func (a *ReplicaApplier) ApplyFrame(frame *HSBFrame) error {
	if len(frame.Block) != a.bufferSize {
		return errors.Wrapf(ErrFrameLength, "slot %d carries %d bytes, want %d", frame.Slot, len(frame.Block), a.bufferSize)
	}
	if frame.StreamID != a.streamID {
		logger.WithFields(logrus.Fields{
			"stream":   frame.StreamID.String(),
			"previous": a.streamID.String(),
		}).Info("hsb replica stream switched")
		a.streamID = frame.StreamID
	}
	// 帧校验和已通过，块本身不一致说明主机发送的就是撕裂块，照样落盘由恢复扫描处理
	if !logs.WrapLogBlock(frame.Block).IsConsistent() {
		a.torn++
		logger.Warnf("hsb replica received inconsistent block at slot %d", frame.Slot)
	}
	if _, err := a.standby.WriteAt(frame.Block, int64(frame.Slot)*int64(a.bufferSize)); err != nil {
		return errors.Wrapf(err, "apply slot %d", frame.Slot)
	}
	a.applied++
	return nil
}

// Applied 已应用帧数
func (a *ReplicaApplier) Applied() int64 {
	return a.applied
}

// Torn 收到的不一致块数
func (a *ReplicaApplier) Torn() int64 {
	return a.torn
}

// StreamID 最近一次看到的流ID
func (a *ReplicaApplier) StreamID() uuid.UUID {
	return a.streamID
}
