package util

import (
	"github.com/OneOfOne/xxhash"
)

// HashCodeOf 对多段数据连续计算64位xxhash，结果等于拼接后整体计算
func HashCodeOf(parts ...[]byte) uint64 {
	h := xxhash.New64()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum64()
}
