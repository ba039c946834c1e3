package conf

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/jarmoruuth/solidDB-sub021/util"
)

/*
*
[logs]
log_error          = /var/log/soliddb/error.log
log_infos          = /var/log/soliddb/soliddb.log
log_level          = info

[log_buffer]
log_buffer_size    = 16384
sector_size        = 512
direct_io          = false
alignment_boundary = 512
allocator          = pool
slots_per_block    = 2
log_dir            = redo
log_file           = hsb.log

[hsb]
hsb_enabled        = false
hsb_replica_file   = redo/hsb.replica
hsb_compression    = snappy
*/
type Cfg struct {
	AppName string

	// logs
	LogError string `default:"/var/log/soliddb/error.log" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"/var/log/soliddb/soliddb.log" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`

	// log buffer
	LogBufferSize     int    `default:"16384" yaml:"log_buffer_size" json:"log_buffer_size,omitempty"`
	SectorSize        int    `default:"512" yaml:"sector_size" json:"sector_size,omitempty"`
	DirectIO          bool   `default:"false" yaml:"direct_io" json:"direct_io,omitempty"`
	AlignmentBoundary int    `default:"512" yaml:"alignment_boundary" json:"alignment_boundary,omitempty"`
	Allocator         string `default:"pool" yaml:"allocator" json:"allocator,omitempty"`
	SlotsPerBlock     int    `default:"2" yaml:"slots_per_block" json:"slots_per_block,omitempty"`
	LogDir            string `default:"redo" yaml:"log_dir" json:"log_dir,omitempty"`
	LogFile           string `default:"hsb.log" yaml:"log_file" json:"log_file,omitempty"`

	// hot standby
	HSBEnabled     bool   `default:"false" yaml:"hsb_enabled" json:"hsb_enabled,omitempty"`
	HSBReplicaFile string `default:"redo/hsb.replica" yaml:"hsb_replica_file" json:"hsb_replica_file,omitempty"`
	HSBCompression string `default:"snappy" yaml:"hsb_compression" json:"hsb_compression,omitempty"`
}

const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
	CompressionLZ4    = "lz4"
)

func NewCfg() *Cfg {
	return &Cfg{
		AppName: "soliddb-hsb",
		// Logs 默认配置
		LogError: "/var/log/soliddb/error.log",
		LogInfos: "/var/log/soliddb/soliddb.log",
		LogLevel: "info",
		// 日志缓冲区默认配置
		LogBufferSize:     16384, // 16KB
		SectorSize:        512,
		DirectIO:          false,
		AlignmentBoundary: 512,
		Allocator:         "pool",
		SlotsPerBlock:     2,
		LogDir:            "redo",
		LogFile:           "hsb.log",
		// HSB 默认配置
		HSBEnabled:     false,
		HSBReplicaFile: filepath.Join("redo", "hsb.replica"),
		HSBCompression: CompressionSnappy,
	}
}

// LoadFile 按扩展名读取ini或toml配置并校验
func (cfg *Cfg) LoadFile(path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".toml") {
		if err := cfg.loadTOML(path); err != nil {
			return err
		}
		return cfg.Validate()
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	cfg.parseLogsCfg(iniFile.Section("logs"))
	cfg.parseLogBufferCfg(iniFile.Section("log_buffer"))
	cfg.parseHSBCfg(iniFile.Section("hsb"))
	return cfg.Validate()
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	cfg.LogError = section.Key("log_error").MustString(cfg.LogError)
	cfg.LogInfos = section.Key("log_infos").MustString(cfg.LogInfos)
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)
	return cfg
}

func (cfg *Cfg) parseLogBufferCfg(section *ini.Section) *Cfg {
	cfg.LogBufferSize = section.Key("log_buffer_size").MustInt(cfg.LogBufferSize)
	cfg.SectorSize = section.Key("sector_size").MustInt(cfg.SectorSize)
	cfg.DirectIO = section.Key("direct_io").MustBool(cfg.DirectIO)
	cfg.AlignmentBoundary = section.Key("alignment_boundary").MustInt(cfg.AlignmentBoundary)
	cfg.Allocator = section.Key("allocator").MustString(cfg.Allocator)
	cfg.SlotsPerBlock = section.Key("slots_per_block").MustInt(cfg.SlotsPerBlock)
	cfg.LogDir = section.Key("log_dir").MustString(cfg.LogDir)
	cfg.LogFile = section.Key("log_file").MustString(cfg.LogFile)
	return cfg
}

func (cfg *Cfg) parseHSBCfg(section *ini.Section) *Cfg {
	cfg.HSBEnabled = section.Key("hsb_enabled").MustBool(cfg.HSBEnabled)
	cfg.HSBReplicaFile = section.Key("hsb_replica_file").MustString(cfg.HSBReplicaFile)
	cfg.HSBCompression = strings.ToLower(section.Key("hsb_compression").MustString(cfg.HSBCompression))
	return cfg
}

// Validate 校验日志缓冲区相关配置
func (cfg *Cfg) Validate() error {
	if cfg.SectorSize <= 0 {
		return errors.Errorf("sector_size must be positive, got %d", cfg.SectorSize)
	}
	if cfg.LogBufferSize <= 4 {
		return errors.Errorf("log_buffer_size %d is too small", cfg.LogBufferSize)
	}
	if !util.IsMultipleOf(cfg.LogBufferSize, cfg.SectorSize) {
		return errors.Errorf("log_buffer_size %d is not a multiple of sector_size %d", cfg.LogBufferSize, cfg.SectorSize)
	}
	if cfg.DirectIO && !util.IsPowerOfTwo(cfg.AlignmentBoundary) {
		return errors.Errorf("alignment_boundary %d is not a power of two", cfg.AlignmentBoundary)
	}
	if cfg.SlotsPerBlock < 1 {
		return errors.Errorf("slots_per_block must be at least 1, got %d", cfg.SlotsPerBlock)
	}
	switch strings.ToLower(cfg.Allocator) {
	case "", "pool", "mmap":
	default:
		return errors.Errorf("unknown allocator %q", cfg.Allocator)
	}
	switch cfg.HSBCompression {
	case CompressionNone, CompressionSnappy, CompressionLZ4:
	default:
		return errors.Errorf("unknown hsb_compression %q", cfg.HSBCompression)
	}
	return nil
}

// LogFilePath 本地日志文件完整路径
func (cfg *Cfg) LogFilePath() string {
	if filepath.IsAbs(cfg.LogFile) {
		return cfg.LogFile
	}
	return filepath.Join(cfg.LogDir, cfg.LogFile)
}
