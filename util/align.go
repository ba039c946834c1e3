package util

// IsPowerOfTwo n是否为2的幂
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// IsMultipleOf n是否为unit的整数倍
func IsMultipleOf(n, unit int) bool {
	return unit > 0 && n%unit == 0
}
