package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/pdfjson/constants"
)

// DefaultConfigFile is picked up from the working directory when no -config is given.
const DefaultConfigFile = "pdfjson.yaml"

// Config holds all application configuration
type Config struct {
	Input  InputConfig  `yaml:"input"`
	OCR    OCRConfig    `yaml:"ocr"`
	Ledger LedgerConfig `yaml:"ledger"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// InputConfig holds the source document and the sinks written for it
type InputConfig struct {
	Path   string `yaml:"path"`
	Output string `yaml:"output"`
	JSONL  string `yaml:"jsonl"`
	XLSX   string `yaml:"xlsx"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string `yaml:"pdftoppm"`
	TessdataDir string `yaml:"tessdata_dir"`
	Lang        string `yaml:"lang"`
}

// LedgerConfig holds run-ledger database configuration. An empty DSN disables the ledger.
type LedgerConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file or environment overrides exist.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Path:   constants.DefaultInputPath,
			Output: constants.DefaultOutputPath,
		},
		OCR: OCRConfig{
			Pdftoppm: "pdftoppm",
			Lang:     "eng",
		},
		Ledger: LedgerConfig{
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			GRPCAddr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig resolves defaults, then the YAML file at path (or DefaultConfigFile
// if path is empty and the file exists), then environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse config file %q", path), err)
		}
	}

	mergeWithEnv(cfg)
	return cfg, nil
}

func mergeWithEnv(c *Config) {
	c.Input.Path = getEnv("PDFJSON_INPUT", c.Input.Path)
	c.Input.Output = getEnv("PDFJSON_OUTPUT", c.Input.Output)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM", c.OCR.Pdftoppm)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Lang = getEnv("PDFJSON_OCR_LANG", c.OCR.Lang)
	c.Ledger.DSN = getEnv("PDFJSON_LEDGER_DSN", c.Ledger.DSN)
	c.Ledger.MaxConns = getEnvAsInt32("PDFJSON_LEDGER_MAX_CONNS", c.Ledger.MaxConns)
	c.Ledger.DialTimeout = getEnvAsDuration("PDFJSON_LEDGER_DIAL_TIMEOUT", c.Ledger.DialTimeout)
	c.Server.GRPCAddr = getEnv("PDFJSON_GRPC_ADDR", c.Server.GRPCAddr)
	c.Log.Level = getEnv("PDFJSON_LOG_LEVEL", c.Log.Level)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("input.path", c.Input.Path, Required).
		Field("input.output", c.Input.Output, Required).
		Field("ocr.pdftoppm", c.OCR.Pdftoppm, Required).
		Field("ocr.lang", c.OCR.Lang, Required).
		Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "error"))
	if c.Ledger.DSN != "" {
		v.Field("ledger.max_conns", c.Ledger.MaxConns, Positive)
	}
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

// SlogLevel maps Log.Level to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
