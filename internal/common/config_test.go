package common

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "input.pdf", cfg.Input.Path)
	assert.Equal(t, "output.json", cfg.Input.Output)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm)
	assert.Equal(t, "eng", cfg.OCR.Lang)
	assert.Empty(t, cfg.Ledger.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pdfjson.yaml")

	configData := `
input:
  path: "scans/contract.pdf"
  output: "out/contract.json"
  jsonl: "out/contract.jsonl"

ocr:
  lang: "deu"
  tessdata_dir: "/usr/share/tessdata"

ledger:
  dsn: "runs.db"
  max_conns: 2
  dial_timeout: 10s

log:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "scans/contract.pdf", cfg.Input.Path)
	assert.Equal(t, "out/contract.json", cfg.Input.Output)
	assert.Equal(t, "out/contract.jsonl", cfg.Input.JSONL)
	assert.Equal(t, "deu", cfg.OCR.Lang)
	assert.Equal(t, "/usr/share/tessdata", cfg.OCR.TessdataDir)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm, "unset keys keep defaults")
	assert.Equal(t, "runs.db", cfg.Ledger.DSN)
	assert.Equal(t, int32(2), cfg.Ledger.MaxConns)
	assert.Equal(t, 10*time.Second, cfg.Ledger.DialTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pdfjson.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("ocr:\n  lang: deu\n"), 0644))

	t.Setenv("PDFJSON_OCR_LANG", "fra")
	t.Setenv("PDFJSON_OUTPUT", "env.json")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "fra", cfg.OCR.Lang)
	assert.Equal(t, "env.json", cfg.Input.Output)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("input: [unclosed"), 0644))
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "blank input",
			mutate:  func(c *Config) { c.Input.Path = "  " },
			wantErr: "input.path",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name: "ledger needs connections",
			mutate: func(c *Config) {
				c.Ledger.DSN = "runs.db"
				c.Ledger.MaxConns = 0
			},
			wantErr: "ledger.max_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
