package buffer_pool

import "errors"

var (
	// 引用计数错误，属于调用方违反约定
	ErrRefCountUnderflow = errors.New("log buffer released more times than retained")
	ErrBufferDestroyed   = errors.New("log buffer already destroyed")

	// 构造错误
	ErrBufferSizeMismatch = errors.New("log buffer size does not match its block")
	ErrNilBlock           = errors.New("log buffer requires a block")
)

// BufferPoolError 日志缓冲区错误结构
type BufferPoolError struct {
	Op  string // 操作名称
	Err error  // 原始错误
}

func (e *BufferPoolError) Error() string {
	if e.Err == nil {
		return "<nil>"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *BufferPoolError) Unwrap() error {
	return e.Err
}

// NewError 创建新的缓冲区错误
func NewError(op string, err error) error {
	return &BufferPoolError{
		Op:  op,
		Err: err,
	}
}

// IsRefCountUnderflow 检查是否为引用计数下溢
func IsRefCountUnderflow(err error) bool {
	return errors.Is(err, ErrRefCountUnderflow)
}

// IsBufferDestroyed 检查是否为已销毁缓冲区
func IsBufferDestroyed(err error) bool {
	return errors.Is(err, ErrBufferDestroyed)
}
