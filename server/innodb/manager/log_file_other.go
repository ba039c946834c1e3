//go:build !linux

package manager

import (
	"os"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/logger"
)

// OpenLogFile 打开本地日志文件，该平台不支持O_DIRECT，directIO时退化为缓冲I/O并告警
func OpenLogFile(path string, directIO bool) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	if directIO {
		logger.Warnf("direct I/O is not supported on this platform, %s uses buffered I/O", path)
	}
	return f, nil
}
