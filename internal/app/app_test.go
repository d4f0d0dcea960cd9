package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pdfjson/internal/common"
)

type stubEngine struct{}

func (stubEngine) Recognize(context.Context, []byte) (string, error) { return "", nil }

func TestBuildWithoutLedger(t *testing.T) {
	a, err := Build(context.Background(), common.DefaultConfig(), stubEngine{}, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Driver)
	assert.NotNil(t, a.OCR)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Driver.Recorder)
}

func TestBuildWithSQLiteLedger(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Ledger.DSN = filepath.Join(t.TempDir(), "runs.db")

	a, err := Build(context.Background(), cfg, stubEngine{}, nil)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.DB)
	assert.NotNil(t, a.Driver.Recorder)
	runs, err := a.Runs.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo, true).Info("hello", "page", 3)
	assert.Contains(t, buf.String(), `"page":3`)

	buf.Reset()
	l := NewLogger(&buf, slog.LevelWarn, false)
	l.Info("dropped")
	l.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}
