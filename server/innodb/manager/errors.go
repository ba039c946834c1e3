package manager

import "errors"

// 日志缓冲区轮换错误，均为调用方违反约定，以panic抛出
var (
	ErrStaleLogBuffer        = errors.New("previous log buffer is not the current buffer")
	ErrLogBufferSizeMismatch = errors.New("log buffer size differs from current size")
	ErrLogBufferHeld         = errors.New("log buffer manager already holds a buffer")
)

// 刷盘/复制错误
var (
	ErrFlusherClosed  = errors.New("log flusher closed")
	ErrNoFlushTarget  = errors.New("log flusher has neither local nor replica target")
	ErrInvalidSlot    = errors.New("invalid log slot")
	ErrDirectIOFailed = errors.New("direct I/O unavailable")
)

// HSB帧错误
var (
	ErrFrameMagic       = errors.New("bad hsb frame magic")
	ErrFrameChecksum    = errors.New("hsb frame checksum mismatch")
	ErrFrameCompression = errors.New("unknown hsb frame compression")
	ErrFrameLength      = errors.New("hsb frame length mismatch")
)

// 日志写入/恢复扫描错误
var (
	ErrInvalidBufferSize = errors.New("invalid log buffer size")
	ErrEmptyRecord       = errors.New("empty log record")
	ErrRecordTooLarge    = errors.New("log record does not fit in a log block")
	ErrRingTooLarge      = errors.New("log ring exceeds block number comparison distance")
)

// ManagerError 带操作名的错误
type ManagerError struct {
	Op  string
	Err error
}

func (e *ManagerError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ManagerError) Unwrap() error {
	return e.Err
}

// NewError 创建带操作名的错误
func NewError(op string, err error) error {
	return &ManagerError{Op: op, Err: err}
}
