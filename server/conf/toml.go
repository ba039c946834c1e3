package conf

import (
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// loadTOML 读取与ini同结构的toml配置，表名对应ini的section
func (cfg *Cfg) loadTOML(path string) error {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}

	cfg.LogError = tomlString(tree, "logs.log_error", cfg.LogError)
	cfg.LogInfos = tomlString(tree, "logs.log_infos", cfg.LogInfos)
	cfg.LogLevel = tomlString(tree, "logs.log_level", cfg.LogLevel)

	cfg.LogBufferSize = tomlInt(tree, "log_buffer.log_buffer_size", cfg.LogBufferSize)
	cfg.SectorSize = tomlInt(tree, "log_buffer.sector_size", cfg.SectorSize)
	cfg.DirectIO = tomlBool(tree, "log_buffer.direct_io", cfg.DirectIO)
	cfg.AlignmentBoundary = tomlInt(tree, "log_buffer.alignment_boundary", cfg.AlignmentBoundary)
	cfg.Allocator = tomlString(tree, "log_buffer.allocator", cfg.Allocator)
	cfg.SlotsPerBlock = tomlInt(tree, "log_buffer.slots_per_block", cfg.SlotsPerBlock)
	cfg.LogDir = tomlString(tree, "log_buffer.log_dir", cfg.LogDir)
	cfg.LogFile = tomlString(tree, "log_buffer.log_file", cfg.LogFile)

	cfg.HSBEnabled = tomlBool(tree, "hsb.hsb_enabled", cfg.HSBEnabled)
	cfg.HSBReplicaFile = tomlString(tree, "hsb.hsb_replica_file", cfg.HSBReplicaFile)
	cfg.HSBCompression = strings.ToLower(tomlString(tree, "hsb.hsb_compression", cfg.HSBCompression))
	return nil
}

func tomlString(tree *toml.Tree, key, def string) string {
	if v, ok := tree.Get(key).(string); ok {
		return v
	}
	return def
}

func tomlInt(tree *toml.Tree, key string, def int) int {
	switch v := tree.Get(key).(type) {
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func tomlBool(tree *toml.Tree, key string, def bool) bool {
	if v, ok := tree.Get(key).(bool); ok {
		return v
	}
	return def
}
