package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/client"
	"go.klb.dev/recall/internal/config"
	"go.klb.dev/recall/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and RECALL_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → RECALL_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)

	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("recall")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/recall/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/recall", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the flags every daemon client needs.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "", "daemon TCP address, used when no local daemon is running")
	f.String("token", "", "shared secret (must match the daemon)")
	f.String("source", defaultSource(), "identifier shown in the daemon's watcher list")
	addConfigFlag(cmd)
}

// setupLogging reads logging flags from viper and configures slog on w.
func setupLogging(v *viper.Viper, w io.Writer) {
	interactive := v.GetBool("no-background") || logging.IsTTY(w)
	resolveLogging(w, interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(w io.Writer, interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(w, format, level)
}

// dialDaemon connects to the daemon named by the client flags.
func dialDaemon(ctx context.Context, v *viper.Viper) (*client.Client, error) {
	return client.Dial(ctx, client.Options{
		Addr:   v.GetString("server"),
		Token:  v.GetString("token"),
		Source: v.GetString("source"),
	})
}
