// recall: clipboard history daemon and browser.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "recall",
		Short: "Clipboard history daemon and browser",
		Long: `recall keeps a history of the system clipboard and lets you browse,
search and re-select past entries.

Run "recall daemon" once per session. "recall ui" opens the interactive
browser; "recall list", "recall search" and the other sub-commands are
scriptable front ends to the same daemon.

Clients reach the daemon over a local IPC socket. The daemon can also
listen on TCP (--addr) for remote clients and an HTTP/JSON API.

Config file search order (first found wins):
  /etc/recall/recall.toml
  $HOME/.config/recall/recall.toml
  path supplied via --config

All flags can be set via RECALL_<FLAG> env vars or config-file keys.
Run "recall config init" to write a commented default config.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newUICmd(),
		newListCmd(),
		newSearchCmd(),
		newAddCmd(),
		newSelectCmd(),
		newDeleteCmd(),
		newReplaceCmd(),
		newEmptyCmd(),
		newHistoryCmd(),
		newTrackCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("recall %s\n", Version)
		},
	}
}
