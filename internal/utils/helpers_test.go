package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "/in/report.json", SiblingPath("/in/report.pdf", ".json"))
	assert.Equal(t, "out.xlsx", SiblingPath("out.json", ".xlsx"))
	assert.Equal(t, "noext.jsonl", SiblingPath("noext", ".jsonl"))
	assert.Equal(t, "a.b.json", SiblingPath("a.b.pdf", ".json"))
}
