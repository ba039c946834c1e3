package logs

/*
日志块布局(与恢复扫描器、HSB备机共享，逐字节一致):

	offset 0            块号 (block number)
	offset 1            版本号 (version)
	[2, size-2)         日志记录负载，本层不解释
	offset size-2       块号副本
	offset size-1       版本号副本

头尾两份标签不一致即说明该块发生了撕裂写(torn write)。
*/
const (
	// TagSize 完整性标签长度: 块号 + 版本号
	TagSize = 2

	// 头部标签内偏移
	TagBlockNumberOffset = 0
	TagVersionOffset     = 1

	// MinLogBlockSize 日志块至少要容纳头尾两份标签
	MinLogBlockSize = 2 * TagSize

	// 新块的初始标签
	InitialBlockNumber byte = 1
	InitialVersion     byte = 1

	// DefaultLogBlockSize 默认日志块大小
	DefaultLogBlockSize = 16 * 1024
	// DefaultAlignmentBoundary 默认对齐边界，一般等于扇区大小
	DefaultAlignmentBoundary = 512

	// MaxVersionDistance 版本比较在该距离内保证正确
	MaxVersionDistance = 127
)
