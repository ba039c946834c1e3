//go:build linux

package manager

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/jarmoruuth/solidDB-sub021/logger"
)

// OpenLogFile 打开本地日志文件，directIO时使用O_DIRECT绕过页缓存
//
// 文件系统不支持O_DIRECT时返回错误，不会静默退化为缓冲I/O。
func OpenLogFile(path string, directIO bool) (*os.File, error) {
	flag := os.O_CREATE | os.O_RDWR
	if directIO {
		flag |= unix.O_DIRECT
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		if directIO {
			return nil, errors.Wrapf(ErrDirectIOFailed, "open %s: %v", path, err)
		}
		return nil, errors.Wrapf(err, "open log file %s", path)
	}
	logger.Debugf("log file %s opened, direct I/O %v", path, directIO)
	return f, nil
}
