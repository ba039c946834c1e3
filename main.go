package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jarmoruuth/solidDB-sub021/logger"
	"github.com/jarmoruuth/solidDB-sub021/server/conf"
)

const version = "0.1.0"

const banner = `
******************************************************************************************
*  soliddb-hsb  日志缓冲区 / HSB 复制工具
*  1. run    轮换日志缓冲区并刷盘，可同时发送HSB帧
*  2. scan   扫描日志文件，找出每个逻辑块的最新有效槽位
*  3. apply  把HSB帧流应用到备机日志文件
******************************************************************************************
`

// CLI 命令行定义
type CLI struct {
	Config   string `name:"config" short:"c" help:"配置文件路径(ini或toml)" type:"path"`
	LogLevel string `name:"log-level" help:"覆盖配置中的日志级别"`
	Stdout   bool   `name:"stdout" help:"日志输出到标准输出而不是日志文件"`

	Run     RunCmd     `cmd:"" help:"轮换日志缓冲区并刷盘"`
	Scan    ScanCmd    `cmd:"" help:"扫描日志文件"`
	Apply   ApplyCmd   `cmd:"" help:"应用HSB帧流到备机日志文件"`
	Version VersionCmd `cmd:"" help:"打印版本"`
}

// VersionCmd 打印版本
type VersionCmd struct{}

func (c *VersionCmd) Run(cfg *conf.Cfg) error {
	fmt.Printf("%s %s\n", cfg.AppName, version)
	return nil
}

// loadConfig 读取配置，未指定配置文件时使用默认值
func (cli *CLI) loadConfig() (*conf.Cfg, error) {
	cfg := conf.NewCfg()
	if cli.Config != "" {
		if err := cfg.LoadFile(cli.Config); err != nil {
			return nil, err
		}
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	return cfg, nil
}

func (cli *CLI) initLogger(cfg *conf.Cfg) error {
	if cli.Stdout {
		logger.SetOutput(os.Stdout, cfg.LogLevel)
		return nil
	}
	return logger.InitLogger(logger.LogConfig{
		ErrorLogPath: cfg.LogError,
		InfoLogPath:  cfg.LogInfos,
		LogLevel:     cfg.LogLevel,
	})
}

func newParser(cli *CLI) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("soliddb-hsb"),
		kong.Description(banner),
		kong.UsageOnError(),
	)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cfg, err := cli.loadConfig()
	ctx.FatalIfErrorf(err)
	ctx.FatalIfErrorf(cli.initLogger(cfg))

	logger.Debugf("config loaded: log file %s, buffer size %d, direct io %v", cfg.LogFilePath(), cfg.LogBufferSize, cfg.DirectIO)
	ctx.FatalIfErrorf(ctx.Run(cfg))
}
