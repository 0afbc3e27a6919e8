// Package config holds the recall settings shared by the daemon and the
// clients: their viper keys, defaults, validation and the default config
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/view"
)

// Viper keys.
const (
	KeyMaxDisplayed    = "max-displayed-history-size"
	KeyMaxPages        = "max-pages"
	KeyElementSize     = "element-size"
	KeyMaxHistorySize  = "max-history-size"
	KeyMaxMemoryUsage  = "max-memory-usage"
	KeyMinTextItemSize = "min-text-item-size"
	KeyMaxTextItemSize = "max-text-item-size"
	KeyTrimItems       = "trim-items"
	KeyGrowingLines    = "growing-lines"
	KeyTrackChanges    = "track-changes"
	KeyHistoryName     = "history-name"
)

// Limits for the clamped settings.
const (
	minDisplayed      = 1
	maxDisplayed      = 255
	maxElementSize    = 511
	minHistorySize    = 5
	maxHistorySize    = 65535
	maxMemoryUsageMiB = 1024
)

// Settings are the user-tunable history and view settings.
type Settings struct {
	MaxDisplayedHistorySize int    `toml:"max-displayed-history-size" comment:"entries shown per page"`
	MaxPages                int    `toml:"max-pages" comment:"page cap; 0 disables it"`
	ElementSize             int    `toml:"element-size" comment:"entries longer than this many characters are elided; 0 disables it"`
	MaxHistorySize          int    `toml:"max-history-size" comment:"entries kept by the daemon"`
	MaxMemoryUsage          int    `toml:"max-memory-usage" comment:"MiB of text kept by the daemon"`
	MinTextItemSize         int    `toml:"min-text-item-size" comment:"shorter clipboard text is ignored"`
	MaxTextItemSize         int    `toml:"max-text-item-size" comment:"longer clipboard text is ignored; 0 disables it"`
	TrimItems               bool   `toml:"trim-items" comment:"strip surrounding whitespace before storing"`
	GrowingLines            bool   `toml:"growing-lines" comment:"text extending the newest entry replaces it"`
	TrackChanges            bool   `toml:"track-changes" comment:"record clipboard changes at daemon start"`
	HistoryName             string `toml:"history-name" comment:"named history the daemon starts on"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		MaxDisplayedHistorySize: 20,
		MaxPages:                view.DefaultMaxPages,
		ElementSize:             60,
		MaxHistorySize:          100,
		MaxMemoryUsage:          5,
		MinTextItemSize:         1,
		MaxTextItemSize:         0,
		TrimItems:               false,
		GrowingLines:            false,
		TrackChanges:            true,
		HistoryName:             history.DefaultName,
	}
}

// SetDefaults registers the defaults on v, below config file, env and flags.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyMaxDisplayed, d.MaxDisplayedHistorySize)
	v.SetDefault(KeyMaxPages, d.MaxPages)
	v.SetDefault(KeyElementSize, d.ElementSize)
	v.SetDefault(KeyMaxHistorySize, d.MaxHistorySize)
	v.SetDefault(KeyMaxMemoryUsage, d.MaxMemoryUsage)
	v.SetDefault(KeyMinTextItemSize, d.MinTextItemSize)
	v.SetDefault(KeyMaxTextItemSize, d.MaxTextItemSize)
	v.SetDefault(KeyTrimItems, d.TrimItems)
	v.SetDefault(KeyGrowingLines, d.GrowingLines)
	v.SetDefault(KeyTrackChanges, d.TrackChanges)
	v.SetDefault(KeyHistoryName, d.HistoryName)
}

// FromViper reads and clamps the settings.
func FromViper(v *viper.Viper) Settings {
	s := Settings{
		MaxDisplayedHistorySize: v.GetInt(KeyMaxDisplayed),
		MaxPages:                v.GetInt(KeyMaxPages),
		ElementSize:             v.GetInt(KeyElementSize),
		MaxHistorySize:          v.GetInt(KeyMaxHistorySize),
		MaxMemoryUsage:          v.GetInt(KeyMaxMemoryUsage),
		MinTextItemSize:         v.GetInt(KeyMinTextItemSize),
		MaxTextItemSize:         v.GetInt(KeyMaxTextItemSize),
		TrimItems:               v.GetBool(KeyTrimItems),
		GrowingLines:            v.GetBool(KeyGrowingLines),
		TrackChanges:            v.GetBool(KeyTrackChanges),
		HistoryName:             v.GetString(KeyHistoryName),
	}
	return s.Clamp()
}

// Clamp forces every value into its valid range.
func (s Settings) Clamp() Settings {
	s.MaxDisplayedHistorySize = clamp(s.MaxDisplayedHistorySize, minDisplayed, maxDisplayed)
	s.MaxPages = max(s.MaxPages, 0)
	s.ElementSize = clamp(s.ElementSize, 0, maxElementSize)
	s.MaxHistorySize = clamp(s.MaxHistorySize, minHistorySize, maxHistorySize)
	s.MaxMemoryUsage = clamp(s.MaxMemoryUsage, 1, maxMemoryUsageMiB)
	s.MinTextItemSize = max(s.MinTextItemSize, 1)
	s.MaxTextItemSize = max(s.MaxTextItemSize, 0)
	if s.MaxTextItemSize > 0 && s.MaxTextItemSize < s.MinTextItemSize {
		s.MaxTextItemSize = s.MinTextItemSize
	}
	if s.HistoryName = strings.TrimSpace(s.HistoryName); s.HistoryName == "" {
		s.HistoryName = history.DefaultName
	}
	return s
}

func clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}

// History returns the history engine rules.
func (s Settings) History() history.Config {
	return history.Config{
		MaxHistorySize:  s.MaxHistorySize,
		MaxMemoryUsage:  s.MaxMemoryUsage << 20,
		MinTextItemSize: s.MinTextItemSize,
		MaxTextItemSize: s.MaxTextItemSize,
		TrimItems:       s.TrimItems,
		GrowingLines:    s.GrowingLines,
	}
}

// View returns the synchronizer options.
func (s Settings) View() view.Options {
	return view.Options{
		MaxDisplayed: s.MaxDisplayedHistorySize,
		MaxPages:     s.MaxPages,
	}
}

// ErrExists is returned by WriteDefault when the file exists and overwrite
// is false.
var ErrExists = errors.New("config file already exists")

// Header holds the daemon keys written above the settings in a generated
// config file. It is exported so the TOML encoder flattens it.
type Header struct {
	Token    string `toml:"token" comment:"shared secret for TCP clients; also derives the TLS key"`
	Addr     string `toml:"addr" comment:"daemon TCP listen address; empty keeps the daemon IPC-only"`
	DataDir  string `toml:"data-dir" comment:"directory holding history.db"`
	LogLevel string `toml:"log-level" comment:"debug|info|warn|error"`
}

type file struct {
	Header
	Settings
}

// DefaultPath returns $HOME/.config/recall/recall.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "recall", "recall.toml"), nil
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "recall")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "recall")
	}
	return filepath.Join(os.TempDir(), "recall")
}

// WriteDefault writes a commented config file with the default settings.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	data, err := toml.Marshal(file{
		Header:   Header{DataDir: DefaultDataDir(), LogLevel: "info"},
		Settings: Defaults(),
	})
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
