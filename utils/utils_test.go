package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLog_WritesFile(t *testing.T) {
	dir := t.TempDir()
	logger := NewLog(dir, "backend")
	logger.Info().Str("key", "value").Msg("hello")

	data, err := os.ReadFile(filepath.Join(dir, "backend.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"component":"backend"`)
}

func TestShortSig(t *testing.T) {
	assert.Equal(t, "abc", ShortSig("abc"))
	assert.Equal(t, "5VERv8NMvz...", ShortSig("5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnb"))
}
