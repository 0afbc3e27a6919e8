package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/recall/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the recall config file",
	}

	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a commented default config file",
		Long: `Writes the default settings to PATH, or to
$HOME/.config/recall/recall.toml when PATH is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			force, _ := cmd.Flags().GetBool("force")
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
