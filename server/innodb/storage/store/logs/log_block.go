package logs

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// IntegrityTag 完整性标签 {块号, 版本号}
type IntegrityTag struct {
	BlockNumber byte
	Version     byte
}

// Uint16 将标签作为一个16位整体返回，块号在高位
func (t IntegrityTag) Uint16() uint16 {
	return uint16(t.BlockNumber)<<8 | uint16(t.Version)
}

func (t IntegrityTag) String() string {
	return fmt.Sprintf("{block:%d version:%d}", t.BlockNumber, t.Version)
}

// LogBlock 固定大小的日志块，头尾各带一份完整性标签用于撕裂写检测
//
// LogBlock 不做任何同步，版本/块号递增只能在块被私有持有(未在刷盘)时调用。
type LogBlock struct {
	buf []byte
}

// NewLogBlock 分配size字节的日志块，并把头尾标签都置为{1,1}
func NewLogBlock(size int) *LogBlock {
	checkBlockSize("NewLogBlock", size)
	return InitLogBlock(make([]byte, size))
}

// InitLogBlock 在已有内存上初始化日志块，覆盖头尾标签
func InitLogBlock(buf []byte) *LogBlock {
	b := WrapLogBlock(buf)
	b.setHeaderTag(IntegrityTag{BlockNumber: InitialBlockNumber, Version: InitialVersion})
	b.syncTrailer()
	return b
}

// WrapLogBlock 把已有字节视为日志块，不修改内容
// 恢复扫描读取落盘的槽位时使用
func WrapLogBlock(buf []byte) *LogBlock {
	checkBlockSize("WrapLogBlock", len(buf))
	return &LogBlock{buf: buf}
}

func checkBlockSize(op string, size int) {
	if size < MinLogBlockSize {
		panic(errors.Wrapf(ErrInvalidBlockSize, "logs.%s: size %d, need at least %d", op, size, MinLogBlockSize))
	}
}

// Size 块大小
func (b *LogBlock) Size() int {
	return len(b.buf)
}

// Bytes 整个块，供刷盘/复制使用
func (b *LogBlock) Bytes() []byte {
	return b.buf
}

// Payload 头尾标签之间的日志记录区
func (b *LogBlock) Payload() []byte {
	return b.buf[TagSize : len(b.buf)-TagSize]
}

// HeaderTag 头部标签
func (b *LogBlock) HeaderTag() IntegrityTag {
	return IntegrityTag{
		BlockNumber: b.buf[TagBlockNumberOffset],
		Version:     b.buf[TagVersionOffset],
	}
}

// TrailerTag 尾部标签
func (b *LogBlock) TrailerTag() IntegrityTag {
	off := len(b.buf) - TagSize
	return IntegrityTag{
		BlockNumber: b.buf[off+TagBlockNumberOffset],
		Version:     b.buf[off+TagVersionOffset],
	}
}

func (b *LogBlock) setHeaderTag(tag IntegrityTag) {
	b.buf[TagBlockNumberOffset] = tag.BlockNumber
	b.buf[TagVersionOffset] = tag.Version
}

func (b *LogBlock) setTrailerTag(tag IntegrityTag) {
	off := len(b.buf) - TagSize
	b.buf[off+TagBlockNumberOffset] = tag.BlockNumber
	b.buf[off+TagVersionOffset] = tag.Version
}

func (b *LogBlock) syncTrailer() {
	b.setTrailerTag(b.HeaderTag())
}

// BlockNumber 头部块号
func (b *LogBlock) BlockNumber() byte {
	return b.buf[TagBlockNumberOffset]
}

// Version 头部版本号
func (b *LogBlock) Version() byte {
	return b.buf[TagVersionOffset]
}

// IsConsistent 头尾标签逐字段相等
//
// 写入路径按从前到后的顺序写出整个块(不要求原子)，中途被打断时
// 两份标签必然一新一旧，从而检测出撕裂写。
func (b *LogBlock) IsConsistent() bool {
	return b.HeaderTag() == b.TrailerTag()
}

// IncrementVersion 版本号加一(模256)，尾部标签随即同步
func (b *LogBlock) IncrementVersion() {
	b.buf[TagVersionOffset]++
	b.syncTrailer()
}

// IncrementBlockNumber 块号加一(模256)，表示进入新的逻辑块
func (b *LogBlock) IncrementBlockNumber() {
	b.buf[TagBlockNumberOffset]++
	b.syncTrailer()
}

// CopyTagsFrom 原样复制src的头尾标签，不做同步
func (b *LogBlock) CopyTagsFrom(src *LogBlock) {
	b.setHeaderTag(src.HeaderTag())
	b.setTrailerTag(src.TrailerTag())
}

// TagSnapshot 返回只携带当前头尾标签的最小块
func (b *LogBlock) TagSnapshot() *LogBlock {
	s := &LogBlock{buf: make([]byte, MinLogBlockSize)}
	s.CopyTagsFrom(b)
	return s
}

// CompareVersions 按有符号字节差比较版本号，>0 表示a更新
// 只有两者真实版本距离不超过 MaxVersionDistance 时结果才正确。
func CompareVersions(a, b *LogBlock) int8 {
	return int8(a.Version() - b.Version())
}

// SameBlockNumber 块号是否相同
func SameBlockNumber(a, b *LogBlock) bool {
	return a.BlockNumber() == b.BlockNumber()
}

// SameBlock 把头部2字节标签作为整体比较
func SameBlock(a, b *LogBlock) bool {
	return binary.BigEndian.Uint16(a.buf[:TagSize]) == binary.BigEndian.Uint16(b.buf[:TagSize])
}
