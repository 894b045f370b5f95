package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
	assert.Equal(t, "WARN", WARN.String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", F("task", "t1"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown | task=t1")
	assert.Contains(t, out, "logger_test.go")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: DEBUG, Output: &buf})
	require.NoError(t, err)

	child := l.WithFields(F("component", "api"))
	child.Debug("request", F("status", 200))
	l.Debug("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=api status=200")
	assert.NotContains(t, lines[1], "component")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskprox.log")
	l, err := New(Config{Level: INFO, FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Error("boom", F("err", "x"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ERROR")
	assert.Contains(t, string(data), "boom | err=x")
}

func TestGlobal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: INFO, Output: &buf}))
	defer Close()

	Info("hello", F("k", "v"))
	WithFields(F("a", 1)).Warn("warned")

	assert.Contains(t, buf.String(), "hello | k=v")
	assert.Contains(t, buf.String(), "a=1")
	assert.Contains(t, buf.String(), "logger_test.go")
	assert.Equal(t, INFO, GetConfig().Level)
}

func TestWithoutInit(t *testing.T) {
	require.NoError(t, Close())
	assert.NotPanics(t, func() {
		Info("nothing")
		WithFields(F("a", 1)).Error("nothing")
	})
}
