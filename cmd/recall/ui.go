package main

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/config"
	"go.klb.dev/recall/internal/logging"
	"go.klb.dev/recall/internal/tui"
)

func newUICmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Browse and search the clipboard history",
		Long: `Opens the interactive history browser.

Type to search (regular expressions, case-insensitive). enter copies the
highlighted entry, alt+0..9 copies a row directly, ctrl+x deletes, ctrl+t
toggles tracking, ctrl+e empties the history, esc clears the search or
quits. f1 shows every key.

max-displayed-history-size and element-size are picked up live when the
config file changes.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runUI(v) },
	}

	f := cmd.Flags()
	f.Bool("keep-open", false, "stay open after copying an entry")
	f.String("log-file", "", "write logs to this file (default: discard)")
	f.String("log-format", "json", "log format: auto|text|json")
	f.String("log-level", "info", "log level: debug|info|warn|error")
	addClientFlags(cmd)

	return cmd
}

func runUI(v *viper.Viper) error {
	logFile, err := logging.OpenFile(v.GetString("log-file"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	resolveLogging(logFile, false, v.GetString("log-format"), v.GetString("log-level"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := dialDaemon(ctx, v)
	if err != nil {
		return err
	}
	defer c.Close()
	slog.Info("ui connected", "via", c.Via())

	settings := config.FromViper(v)
	m := tui.New(ctx, c, c.Watch(ctx), tui.Options{
		View:         settings.View(),
		ElementSize:  settings.ElementSize,
		QuitOnSelect: !v.GetBool("keep-open"),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			s := config.FromViper(v)
			slog.Info("display settings reloaded", "file", e.Name,
				"max_displayed", s.MaxDisplayedHistorySize, "element_size", s.ElementSize)
			p.Send(tui.SettingsMsg{MaxDisplayed: s.MaxDisplayedHistorySize, ElementSize: s.ElementSize})
		})
		v.WatchConfig()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}
