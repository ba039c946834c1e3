package logger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("verbose"))
}

func TestCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")

	Debugf("rotate buffer %d", 7)
	WithFields(logrus.Fields{"slot": 3, "block": 2}).Info("flushed")

	out := buf.String()
	assert.Contains(t, out, "[DEBU]")
	assert.Contains(t, out, "rotate buffer 7")
	assert.Contains(t, out, "logger_test.go")
	assert.Contains(t, out, "flushed block=2 slot=3")
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	err := InitLogger(LogConfig{
		ErrorLogPath: filepath.Join(dir, "logs", "error.log"),
		InfoLogPath:  filepath.Join(dir, "logs", "info.log"),
		LogLevel:     "warn",
	})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, Logger.GetLevel())
	assert.FileExists(t, filepath.Join(dir, "logs", "info.log"))
	assert.FileExists(t, filepath.Join(dir, "logs", "error.log"))
}
