package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/meetingintel/internal/batch"
)

func TestOpenOutput_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	for _, path := range []string{"", "-"} {
		w, closeFn, err := openOutput(&stdout, path)
		require.NoError(t, err)
		assert.Same(t, &stdout, w)
		closeFn()
	}
}

func TestOpenOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	w, closeFn, err := openOutput(nil, path)
	require.NoError(t, err)
	_, err = w.Write([]byte("{}\n"))
	require.NoError(t, err)
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestOpenOutput_BadPath(t *testing.T) {
	_, _, err := openOutput(nil, filepath.Join(t.TempDir(), "missing", "out.jsonl"))
	assert.Error(t, err)
}

func TestFormatSummary(t *testing.T) {
	s := batch.Summary{Rows: 4, Succeeded: 1, Fallbacks: 1, Failed: 2, Quota: 1}
	assert.Equal(t, "4 rows: 1 succeeded, 1 fallback, 2 failed (1 quota)", formatSummary(s))
}
