package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// GenerateConfig holds the settings for building a model and generating from it.
type GenerateConfig struct {
	Length      int     `json:"length" yaml:"length"`
	Count       int     `json:"count" yaml:"count"`
	OrderCap    int     `json:"order_cap" yaml:"order_cap"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopK        int     `json:"top_k" yaml:"top_k"`
	WindowReset int     `json:"window_reset" yaml:"window_reset"`
	RandSeed    uint64  `json:"rand_seed" yaml:"rand_seed"` // 0 picks a random seed
	SeedText    string  `json:"seed_text" yaml:"seed_text"`
	Separator   string  `json:"separator" yaml:"separator"` // Written between outputs when count > 1
}

// NormalizeConfig holds the settings used when reading a raw corpus.
type NormalizeConfig struct {
	KeepParagraphs bool   `json:"keep_paragraphs" yaml:"keep_paragraphs"`
	ParagraphBreak string `json:"paragraph_break" yaml:"paragraph_break"`
	MaxLineSize    int    `json:"max_line_size" yaml:"max_line_size"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	LogLevel     string          `json:"log_level" yaml:"log_level"`
	LogFormat    string          `json:"log_format" yaml:"log_format"`
	DatabasePath string          `json:"database_path" yaml:"database_path"`
	OutputPath   string          `json:"output_path" yaml:"output_path"`
	MetricsPath  string          `json:"metrics_path" yaml:"metrics_path"`
	Generate     GenerateConfig  `json:"generate_config" yaml:"generate_config"`
	Normalize    NormalizeConfig `json:"normalize_config" yaml:"normalize_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		DatabasePath: "./data/runechain.db",
		OutputPath:   "",
		MetricsPath:  "",
		Generate: GenerateConfig{
			Length:      500,
			Count:       1,
			OrderCap:    0,
			Temperature: 1.0,
			TopK:        0,
			WindowReset: 1,
			RandSeed:    0,
			SeedText:    "",
			Separator:   "\n\n",
		},
		Normalize: NormalizeConfig{
			KeepParagraphs: true,
			ParagraphBreak: "\n",
			MaxLineSize:    1 << 20,
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig reads the configuration from a JSON or YAML file at the given
// path, chosen by extension. If the file doesn't exist, it creates one with
// default values. RUNECHAIN_* environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Not fatal, the defaults are still usable.
				slog.Warn("Failed to write default config file", "path", path, "error", err)
			}
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)
	return config, nil
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if !isYAML(path) {
		return json.MarshalIndent(config, "", "  ")
	}
	var node yaml.Node
	if err := node.Encode(config); err != nil {
		return nil, err
	}
	quoteStrings(&node)
	return yaml.Marshal(&node)
}

// quoteStrings double-quotes every string value below n. Block scalars drop
// newline-only values such as the default paragraph break on reload.
func quoteStrings(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		for i := 1; i < len(n.Content); i += 2 {
			if v := n.Content[i]; v.Kind == yaml.ScalarNode && v.ShortTag() == "!!str" {
				v.Style = yaml.DoubleQuotedStyle
			}
		}
	}
	for _, child := range n.Content {
		quoteStrings(child)
	}
}

// applyEnvOverrides reads RUNECHAIN_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RUNECHAIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RUNECHAIN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("RUNECHAIN_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("RUNECHAIN_OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("RUNECHAIN_METRICS_PATH"); v != "" {
		cfg.MetricsPath = v
	}
	if v := os.Getenv("RUNECHAIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generate.Length = n
		}
	}
	if v := os.Getenv("RUNECHAIN_ORDER_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generate.OrderCap = n
		}
	}
}

// newLogger builds the application logger. Logs go to stderr so generated
// text on stdout stays clean.
func newLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
