package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/conf"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/buffer_pool"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/manager"
	"github.com/jarmoruuth/solidDB-sub021/util"
)

// RunCmd 模拟日志追加路径: 写记录、轮换缓冲区、刷盘并可选地复制到备机
type RunCmd struct {
	Records    int `help:"追加的日志记录条数" default:"1000"`
	RecordSize int `name:"record-size" help:"单条记录字节数" default:"100"`
	SyncEvery  int `name:"sync-every" help:"每N条记录同步一次，0表示只在块写满时落盘" default:"0"`
	RingBlocks int `name:"ring-blocks" help:"日志文件中的逻辑块个数，写满后回绕" default:"64"`
}

func (c *RunCmd) Run(cfg *conf.Cfg) error {
	if err := util.EnsureDir(filepath.Dir(cfg.LogFilePath())); err != nil {
		return err
	}
	file, err := manager.OpenLogFile(cfg.LogFilePath(), cfg.DirectIO)
	if err != nil {
		return err
	}
	defer file.Close()

	var opts []manager.LogFlusherOption
	var stream *bufio.Writer
	if cfg.HSBEnabled {
		compression, err := manager.ParseCompressionType(cfg.HSBCompression)
		if err != nil {
			return err
		}
		if err := util.EnsureDir(filepath.Dir(cfg.HSBReplicaFile)); err != nil {
			return err
		}
		replica, err := os.Create(cfg.HSBReplicaFile)
		if err != nil {
			return errors.Wrap(err, "create hsb replica stream")
		}
		defer replica.Close()
		stream = bufio.NewWriter(replica)
		opts = append(opts, manager.WithReplica(stream, compression))
	}

	flusher, err := manager.NewLogFlusher(file, opts...)
	if err != nil {
		return err
	}
	m, err := manager.NewLogBufferManagerFromConfig(cfg)
	if err != nil {
		flusher.Close()
		return err
	}
	w, err := manager.NewLogWriter(m, flusher, cfg.LogBufferSize, cfg.SlotsPerBlock, c.RingBlocks)
	if err != nil {
		flusher.Close()
		return err
	}

	appendErr := c.appendRecords(w)
	closeErr := w.Close()
	flushErr := flusher.Close()
	replicaErr := flushReplica(stream)
	for _, err := range []error{appendErr, closeErr, flushErr, replicaErr} {
		if err != nil {
			return err
		}
	}

	stats := flusher.Stats()
	live := buffer_pool.Stats().Snapshot()
	logger.WithFields(logrus.Fields{
		"records":   w.Records(),
		"rotations": m.Rotations(),
		"flushed":   stats.Flushed,
		"shipped":   stats.Shipped,
		"buffers":   live.Created,
		"live":      live.Live(),
		"latch":     live.LatchLocks,
	}).Info("log writer finished")
	fmt.Printf("appended %d records, %d rotations, %d blocks flushed, %d shipped\n",
		w.Records(), m.Rotations(), stats.Flushed, stats.Shipped)
	return nil
}

// flushReplica 刷盘器关闭后把缓冲的HSB帧写入复制流文件
func flushReplica(stream *bufio.Writer) error {
	if stream == nil {
		return nil
	}
	return errors.Wrap(stream.Flush(), "flush hsb replica stream")
}

func (c *RunCmd) appendRecords(w *manager.LogWriter) error {
	rec := make([]byte, c.RecordSize)
	for i := 0; i < c.Records; i++ {
		copy(rec, fmt.Sprintf("record %08d ", i))
		if err := w.Append(rec); err != nil {
			return err
		}
		if c.SyncEvery > 0 && (i+1)%c.SyncEvery == 0 {
			if err := w.Sync(); err != nil {
				return err
			}
		}
	}
	return w.Sync()
}
