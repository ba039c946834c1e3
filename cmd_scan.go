package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jarmoruuth/solidDB-sub021/server/conf"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/manager"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/storage/store/logs"
)

// ScanCmd 扫描日志文件，列出每个逻辑块最新的有效槽位
type ScanCmd struct {
	Path       string `arg:"" optional:"" help:"日志文件路径，默认取配置中的日志文件" type:"path"`
	Records    bool   `help:"同时统计每个块中的记录条数"`
	RingBlocks int    `name:"ring-blocks" help:"写入时的逻辑块个数，0表示未知" default:"0"`
}

func (c *ScanCmd) Run(cfg *conf.Cfg) error {
	path := c.Path
	if path == "" {
		path = cfg.LogFilePath()
	}
	s, err := manager.NewLogRecoveryScanner(cfg.LogBufferSize, cfg.SlotsPerBlock, manager.WithRingBlocks(c.RingBlocks))
	if err != nil {
		return err
	}
	res, err := s.ScanFile(path)
	if err != nil {
		return err
	}
	var r io.ReaderAt
	if c.Records {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return printScan(os.Stdout, res, r, cfg.LogBufferSize)
}

func printScan(out io.Writer, res *manager.RecoveryResult, r io.ReaderAt, size int) error {
	fmt.Fprintf(out, "scanned %d slots: %d blocks, %d torn, %d empty, %d duplicates\n",
		res.ScannedSlots, len(res.Blocks), len(res.TornSlots), res.EmptySlots, res.Duplicates)

	buf := make([]byte, size)
	for _, b := range res.Blocks {
		line := fmt.Sprintf("group %-6d slot %-6d tag %s", b.Group, b.Slot, b.Tag)
		if r != nil {
			if _, err := r.ReadAt(buf, b.Slot*int64(size)); err != nil {
				return err
			}
			recs, err := manager.ReadRecords(logs.WrapLogBlock(buf))
			if err != nil {
				return err
			}
			line += fmt.Sprintf(" records %d", len(recs))
		}
		fmt.Fprintln(out, line)
	}
	if len(res.TornSlots) > 0 {
		fmt.Fprintf(out, "torn slots: %v\n", res.TornSlots)
	}
	if len(res.LostGroups) > 0 {
		fmt.Fprintf(out, "lost groups: %v\n", res.LostGroups)
	}
	if len(res.ConflictGroups) > 0 {
		fmt.Fprintf(out, "groups holding an older block: %v\n", res.ConflictGroups)
	}
	if len(res.AmbiguousGroups) > 0 {
		fmt.Fprintf(out, "groups with unordered blocks: %v\n", res.AmbiguousGroups)
	}
	return nil
}
