package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, Init("DEBUG").GetLevel())
	assert.Equal(t, logrus.WarnLevel, Init("warn").GetLevel())
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, Init("loud").GetLevel())
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")

	l := New(Options{Level: "info", File: path, MaxSizeMB: 1})
	l.WithField("run_id", "abc").Info("sync finished")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sync finished")
	assert.Contains(t, string(data), "run_id=abc")
}
