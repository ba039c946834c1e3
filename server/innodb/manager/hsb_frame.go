package manager

import (
	"encoding/binary"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/util"
)

/*
HSB帧，把一个日志块发送给备机:

	magic        uint32  "HSB1"
	stream id    [16]byte
	slot         uint64
	compression  uint8
	raw length   uint32
	data length  uint32
	checksum     uint64  前面各头部字段与原始块内容的xxhash
	data         [data length]byte

整数均为大端。
*/
const (
	hsbFrameMagic      uint32 = 0x48534231
	hsbFrameHeaderSize        = 4 + 16 + 8 + 1 + 4 + 4 + 8

	// 单帧原始数据上限，防止损坏的长度字段导致超大分配
	hsbMaxFrameSize = 64 << 20
)

// CompressionType HSB帧压缩算法
type CompressionType byte

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionLZ4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseCompressionType 解析配置中的压缩算法名
func ParseCompressionType(name string) (CompressionType, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, errors.Wrapf(ErrFrameCompression, "%q", name)
	}
}

// HSBFrame 解码后的帧
type HSBFrame struct {
	StreamID    uuid.UUID
	Slot        uint64
	Compression CompressionType
	Block       []byte
}

// FrameEncoder 把日志块编码为HSB帧写入w，非并发安全
type FrameEncoder struct {
	w           io.Writer
	streamID    uuid.UUID
	compression CompressionType
	compressor  lz4.Compressor
	header      [hsbFrameHeaderSize]byte
	scratch     []byte
}

// NewFrameEncoder 创建编码器，每个编码器有独立的流ID
func NewFrameEncoder(w io.Writer, compression CompressionType) *FrameEncoder {
	return &FrameEncoder{
		w:           w,
		streamID:    uuid.New(),
		compression: compression,
	}
}

// StreamID 复制流ID
func (e *FrameEncoder) StreamID() uuid.UUID {
	return e.streamID
}

// Encode 编码并写出一个块
func (e *FrameEncoder) Encode(slot uint64, block []byte) error {
	if len(block) > hsbMaxFrameSize {
		return errors.Wrapf(ErrFrameLength, "block of %d bytes", len(block))
	}
	data, compression, err := e.compress(block)
	if err != nil {
		return err
	}

	h := e.header[:]
	binary.BigEndian.PutUint32(h[0:4], hsbFrameMagic)
	copy(h[4:20], e.streamID[:])
	binary.BigEndian.PutUint64(h[20:28], slot)
	h[28] = byte(compression)
	binary.BigEndian.PutUint32(h[29:33], uint32(len(block)))
	binary.BigEndian.PutUint32(h[33:37], uint32(len(data)))
	binary.BigEndian.PutUint64(h[37:45], util.HashCodeOf(h[:37], block))

	if _, err := e.w.Write(h); err != nil {
		return errors.Wrap(err, "write hsb frame header")
	}
	if _, err := e.w.Write(data); err != nil {
		return errors.Wrap(err, "write hsb frame data")
	}
	return nil
}

func (e *FrameEncoder) compress(block []byte) ([]byte, CompressionType, error) {
	switch e.compression {
	case CompressionNone:
		return block, CompressionNone, nil
	case CompressionSnappy:
		e.scratch = snappy.Encode(e.scratch[:cap(e.scratch)], block)
		return e.scratch, CompressionSnappy, nil
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(block))
		if cap(e.scratch) < bound {
			e.scratch = make([]byte, bound)
		}
		n, err := e.compressor.CompressBlock(block, e.scratch[:bound])
		if err != nil {
			return nil, CompressionNone, errors.Wrap(err, "lz4 compress")
		}
		// 不可压缩时原样发送
		if n == 0 || n >= len(block) {
			return block, CompressionNone, nil
		}
		return e.scratch[:n], CompressionLZ4, nil
	default:
		return nil, CompressionNone, errors.Wrapf(ErrFrameCompression, "%d", e.compression)
	}
}

// DecodeFrame 从r读取一个帧，流结束时返回io.EOF
func DecodeFrame(r io.Reader) (*HSBFrame, error) {
	var h [hsbFrameHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "read hsb frame header")
	}
	if magic := binary.BigEndian.Uint32(h[0:4]); magic != hsbFrameMagic {
		return nil, errors.Wrapf(ErrFrameMagic, "got %#x", magic)
	}

	frame := &HSBFrame{
		Slot:        binary.BigEndian.Uint64(h[20:28]),
		Compression: CompressionType(h[28]),
	}
	copy(frame.StreamID[:], h[4:20])
	rawLen := int(binary.BigEndian.Uint32(h[29:33]))
	dataLen := int(binary.BigEndian.Uint32(h[33:37]))
	checksum := binary.BigEndian.Uint64(h[37:45])
	if rawLen > hsbMaxFrameSize || dataLen > hsbMaxFrameSize {
		return nil, errors.Wrapf(ErrFrameLength, "raw %d, data %d", rawLen, dataLen)
	}

	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "read hsb frame data")
	}

	block, err := decompress(frame.Compression, data, rawLen)
	if err != nil {
		return nil, err
	}
	if util.HashCodeOf(h[:37], block) != checksum {
		return nil, errors.Wrapf(ErrFrameChecksum, "slot %d", frame.Slot)
	}
	frame.Block = block
	return frame, nil
}

func decompress(compression CompressionType, data []byte, rawLen int) ([]byte, error) {
	var block []byte
	switch compression {
	case CompressionNone:
		block = data
	case CompressionSnappy:
		decoded, err := snappy.Decode(make([]byte, rawLen), data)
		if err != nil {
			return nil, errors.Wrap(err, "snappy decode")
		}
		block = decoded
	case CompressionLZ4:
		block = make([]byte, rawLen)
		n, err := lz4.UncompressBlock(data, block)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decode")
		}
		block = block[:n]
	default:
		return nil, errors.Wrapf(ErrFrameCompression, "%d", compression)
	}
	if len(block) != rawLen {
		return nil, errors.Wrapf(ErrFrameLength, "decoded %d bytes, want %d", len(block), rawLen)
	}
	return block, nil
}
