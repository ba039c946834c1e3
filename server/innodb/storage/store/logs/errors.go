package logs

import "errors"

// 日志块错误，均属于调用方违反约定，以panic形式抛出
var (
	ErrInvalidBlockSize = errors.New("invalid log block size")
	ErrInvalidBoundary  = errors.New("alignment boundary must be a power of two")
	ErrAllocationFailed = errors.New("log block allocation failed")
	ErrDoubleFree       = errors.New("aligned log block freed twice")
)
