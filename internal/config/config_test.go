package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	assert.Equal(t, Defaults(), FromViper(v))
}

func TestClamp(t *testing.T) {
	s := Settings{
		MaxDisplayedHistorySize: 0,
		MaxPages:                -4,
		ElementSize:             9000,
		MaxHistorySize:          1,
		MaxMemoryUsage:          0,
		MinTextItemSize:         4,
		MaxTextItemSize:         2,
	}.Clamp()

	assert.Equal(t, 1, s.MaxDisplayedHistorySize)
	assert.Equal(t, 0, s.MaxPages)
	assert.Equal(t, 511, s.ElementSize)
	assert.Equal(t, 5, s.MaxHistorySize)
	assert.Equal(t, 1, s.MaxMemoryUsage)
	assert.Equal(t, 4, s.MaxTextItemSize)
	assert.Equal(t, "history", s.HistoryName)

	s = Settings{HistoryName: "  work "}.Clamp()
	assert.Equal(t, "work", s.HistoryName)
}

func TestHistoryAndViewOptions(t *testing.T) {
	s := Defaults()
	h := s.History()
	assert.Equal(t, 5<<20, h.MaxMemoryUsage)
	assert.Equal(t, 100, h.MaxHistorySize)

	o := s.View()
	assert.Equal(t, 20, o.MaxDisplayed)
	assert.Equal(t, 20, o.MaxPages)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall", "recall.toml")
	require.NoError(t, WriteDefault(path, false))
	assert.ErrorIs(t, WriteDefault(path, false), ErrExists)
	require.NoError(t, WriteDefault(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max-displayed-history-size = 20")
	assert.Contains(t, string(data), "# entries shown per page")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, Defaults(), FromViper(v))
	assert.Equal(t, "info", v.GetString("log-level"))
	assert.Equal(t, DefaultDataDir(), v.GetString("data-dir"))
	assert.True(t, v.InConfig("token"))
	assert.True(t, v.InConfig("addr"))
	assert.Contains(t, string(data), "# shared secret for TCP clients")
}
