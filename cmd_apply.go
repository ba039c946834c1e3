package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/jarmoruuth/solidDB-sub021/server/conf"
	"github.com/jarmoruuth/solidDB-sub021/server/innodb/manager"
	"github.com/jarmoruuth/solidDB-sub021/util"
)

// ApplyCmd 备机端: 读取HSB帧流写入备机日志文件
type ApplyCmd struct {
	Stream  string `arg:"" optional:"" help:"HSB帧流文件，默认取配置中的hsb_replica_file" type:"path"`
	Standby string `arg:"" optional:"" help:"备机日志文件，默认在主机日志文件名后加.standby" type:"path"`
}

func (c *ApplyCmd) Run(cfg *conf.Cfg) error {
	streamPath := c.Stream
	if streamPath == "" {
		streamPath = cfg.HSBReplicaFile
	}
	standbyPath := c.Standby
	if standbyPath == "" {
		standbyPath = cfg.LogFilePath() + ".standby"
	}

	in, err := os.Open(streamPath)
	if err != nil {
		return errors.Wrap(err, "open hsb stream")
	}
	defer in.Close()

	if err := util.EnsureDir(filepath.Dir(standbyPath)); err != nil {
		return err
	}
	standby, err := os.OpenFile(standbyPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrap(err, "open standby log file")
	}
	defer standby.Close()

	a := manager.NewReplicaApplier(standby, cfg.LogBufferSize)
	n, err := a.Apply(bufio.NewReader(in))
	if err != nil {
		return err
	}
	if err := standby.Sync(); err != nil {
		return errors.Wrap(err, "sync standby log file")
	}
	fmt.Printf("applied %d frames from stream %s, %d torn blocks\n", n, a.StreamID(), a.Torn())
	return nil
}
