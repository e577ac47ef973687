package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/obby/inbox-sorter/internal/classify"
	"github.com/obby/inbox-sorter/internal/mover"
	"github.com/obby/inbox-sorter/internal/patterns"
)

// Category is one [[category]] table from the config file
type Category struct {
	Name       string   `toml:"name"`
	Extensions []string `toml:"extensions"`
}

// Config holds the configuration for the sorter as read from file and env
type Config struct {
	SourceDir    string     `toml:"source_dir"`
	DestDir      string     `toml:"dest_dir"`
	SettleMs     int        `toml:"settle_ms"`
	Workers      int        `toml:"workers"`
	OnConflict   string     `toml:"on_conflict"`
	Ignore       []string   `toml:"ignore"`
	SweepOnStart bool       `toml:"sweep_on_start"`
	LogLevel     string     `toml:"log_level"`
	LogFormat    string     `toml:"log_format"`
	LogOutput    string     `toml:"log_output"`
	GRPCPort     int        `toml:"grpc_port"`
	MetricsAddr  string     `toml:"metrics_addr"`
	LockFile     string     `toml:"lock_file"`
	Categories   []Category `toml:"category"`
}

// DefaultCategories is the stock extension table, in lookup order
func DefaultCategories() []Category {
	return []Category{
		{Name: "Images", Extensions: []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}},
		{Name: "Documents", Extensions: []string{".pdf", ".docx", ".doc", ".txt", ".pptx", ".xlsx", ".md"}},
		{Name: "Audio", Extensions: []string{".mp3", ".wav", ".aac", ".flac"}},
		{Name: "Video", Extensions: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}},
		{Name: "Archives", Extensions: []string{".zip", ".rar", ".7z", ".gz"}},
		{Name: "Code", Extensions: []string{".py", ".js", ".html", ".css", ".json", ".xml"}},
		{Name: "Programs and Installers", Extensions: []string{".exe", ".msi"}},
		{Name: "Jars", Extensions: []string{".jar"}},
		{Name: classify.Fallback},
	}
}

// Default returns the configuration used when nothing is specified
func Default() Config {
	return Config{
		SettleMs:   int(time.Second / time.Millisecond),
		Workers:    4,
		OnConflict: string(mover.PolicyFail),
		LogLevel:   "info",
		LogFormat:  "console",
		Categories: DefaultCategories(),
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}

		// A file that lists categories replaces the stock table outright.
		cfg.Categories = nil
		dec := toml.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return cfg, fmt.Errorf("%s: %s", path, strict.String())
			}
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		if cfg.Categories == nil {
			cfg.Categories = DefaultCategories()
		}
	}

	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides fields from SORTER_* environment variables.
// Unparseable numbers are ignored.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("SORTER_SOURCE"); v != "" {
		cfg.SourceDir = v
	}
	if v := os.Getenv("SORTER_DEST"); v != "" {
		cfg.DestDir = v
	}
	if v := os.Getenv("SORTER_SETTLE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.SettleMs = ms
		}
	}
	if v := os.Getenv("SORTER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SORTER_GRPC_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.GRPCPort = p
		}
	}
	if v := os.Getenv("SORTER_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// WatchConfig is the validated, resolved configuration. It is built once at
// startup and passed by value.
type WatchConfig struct {
	SourceDir    string
	DestDir      string
	Categories   classify.CategoryMap
	SettleDelay  time.Duration
	Workers      int
	Policy       mover.Policy
	Ignore       []string
	SweepOnStart bool
	GRPCPort     int
	MetricsAddr  string
	LockFile     string
}

// Resolve validates cfg and builds a WatchConfig from it
func (cfg Config) Resolve() (WatchConfig, error) {
	var wc WatchConfig

	src, err := resolveDir("source_dir", cfg.SourceDir)
	if err != nil {
		return wc, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return wc, fmt.Errorf("source_dir: %w", err)
	}
	if !info.IsDir() {
		return wc, fmt.Errorf("source_dir %s is not a directory", src)
	}

	dst, err := resolveDir("dest_dir", cfg.DestDir)
	if err != nil {
		return wc, err
	}
	if info, err := os.Stat(dst); err == nil && !info.IsDir() {
		return wc, fmt.Errorf("dest_dir %s is not a directory", dst)
	}

	if cfg.SettleMs < 0 {
		return wc, fmt.Errorf("settle_ms must be >= 0, got %d", cfg.SettleMs)
	}
	if cfg.Workers < 1 {
		return wc, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.GRPCPort < 0 || cfg.GRPCPort > 65535 {
		return wc, fmt.Errorf("grpc_port out of range: %d", cfg.GRPCPort)
	}

	policy, err := mover.ParsePolicy(cfg.OnConflict)
	if err != nil {
		return wc, fmt.Errorf("on_conflict: %w", err)
	}

	if _, err := patterns.NewMatcher(cfg.Ignore); err != nil {
		return wc, err
	}

	categories, err := cfg.CategoryMap()
	if err != nil {
		return wc, err
	}

	lockFile := cfg.LockFile
	if lockFile == "" {
		lockFile = filepath.Join(dst, ".inbox-sorter.lock")
	} else if lockFile, err = expandHome(lockFile); err != nil {
		return wc, err
	}

	return WatchConfig{
		SourceDir:    src,
		DestDir:      dst,
		Categories:   categories,
		SettleDelay:  time.Duration(cfg.SettleMs) * time.Millisecond,
		Workers:      cfg.Workers,
		Policy:       policy,
		Ignore:       append([]string(nil), cfg.Ignore...),
		SweepOnStart: cfg.SweepOnStart,
		GRPCPort:     cfg.GRPCPort,
		MetricsAddr:  cfg.MetricsAddr,
		LockFile:     lockFile,
	}, nil
}

// CategoryMap builds the lookup table from the configured categories
func (cfg Config) CategoryMap() (classify.CategoryMap, error) {
	cats := make([]classify.Category, len(cfg.Categories))
	for i, c := range cfg.Categories {
		cats[i] = classify.Category{Name: c.Name, Extensions: c.Extensions}
	}
	m, err := classify.NewCategoryMap(cats)
	if err != nil {
		return m, fmt.Errorf("category: %w", err)
	}
	return m, nil
}

func resolveDir(key, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	expanded, err := expandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
