//go:build !unix

package logs

import "github.com/pkg/errors"

func newMmapAllocator() (Allocator, error) {
	return nil, errors.New("mmap log block allocator is only available on unix")
}
