package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mongoplug.log")
	log := New(Options{File: path})

	log.Named("reconciler").Infow("entity applied", "entity", "m1", "result", "reconfigured")
	log.Debugw("hidden at info level")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"entity applied"`)
	assert.Contains(t, out, `"logger":"reconciler"`)
	assert.Contains(t, out, `"entity":"m1"`)
	assert.False(t, strings.Contains(out, "hidden at info level"))
}

func TestNew_DebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log := New(Options{File: path, Debug: true})
	log.Debugw("visible at debug level")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "visible at debug level")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Infow("discarded")
	assert.NoError(t, log.Close())
}
