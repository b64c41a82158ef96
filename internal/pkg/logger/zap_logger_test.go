package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ModuleAndDetails(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &ZapLogger{logger: zap.New(core)}

	l.Info("EXECUTOR", "search dispatched", map[string]interface{}{"index": "r100"})
	l.Warn("RETRIEVER", "no examples", nil)
	l.Error("GENERATOR", "llm failed", map[string]interface{}{"error": "boom"})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "search dispatched", entries[0].Message)
	assert.Equal(t, "EXECUTOR", entries[0].ContextMap()["module"])
	assert.Equal(t, map[string]interface{}{"index": "r100"}, entries[0].ContextMap()["details"])

	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])
	assert.Equal(t, "boom", entries[2].ContextMap()["error_ref"])
}

func TestNewIsolatedLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := NewIsolatedLogger(path)
	l.Info("AUDIT", "record persisted", nil)
	assert.NoError(t, l.Sync())
	assert.FileExists(t, path)
}
