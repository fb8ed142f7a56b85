package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medicai.log")
	var console bytes.Buffer

	l, closeFn := New(Options{FilePath: path, ConsoleLevel: zapcore.WarnLevel, Console: &console})
	l.Named("backend").Info("report uploaded", zap.String("file", "report.pdf"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "report uploaded", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "report.pdf", entry["file"])

	assert.Empty(t, console.String(), "info is below the console level")
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer

	l, closeFn := New(Options{Production: true, ConsoleLevel: zapcore.InfoLevel, Console: &console})
	l.Warn("query failed")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), `"message":"query failed"`)
}
