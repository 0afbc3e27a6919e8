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
)

// clientCmd builds a sub-command that dials the daemon and runs fn.
func clientCmd(use, short, long string, args cobra.PositionalArgs, fn func(ctx context.Context, c *client.Client, v *viper.Viper, args []string) error) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Args:    args,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			c, err := dialDaemon(ctx, v)
			if err != nil {
				return err
			}
			defer c.Close()
			return fn(ctx, c, v, args)
		},
	}
	addClientFlags(cmd)
	return cmd
}

func newAddCmd() *cobra.Command {
	return clientCmd("add [TEXT]", "Add text to the history (reads stdin without TEXT)",
		`Adds TEXT, or stdin when TEXT is omitted, as the newest history entry.
The daemon applies its trimming and size rules; rejected text is an error.`,
		cobra.MaximumNArgs(1),
		func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			it, err := c.Add(ctx, text)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			fmt.Println(it.ID)
			return nil
		})
}

func newSelectCmd() *cobra.Command {
	return clientCmd("select ID", "Put an entry back on the clipboard",
		`Moves the entry to the front of the history and writes it to the
system clipboard of the daemon's session.`,
		cobra.ExactArgs(1),
		func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
			if _, err := c.Select(ctx, args[0]); err != nil {
				return fmt.Errorf("select: %w", err)
			}
			return nil
		})
}

func newDeleteCmd() *cobra.Command {
	return clientCmd("delete ID", "Delete an entry", "Removes the entry with ID from the history.",
		cobra.ExactArgs(1),
		func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
			if err := c.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			return nil
		})
}

func newReplaceCmd() *cobra.Command {
	return clientCmd("replace ID [TEXT]", "Edit an entry in place (reads stdin without TEXT)",
		`Replaces the text of the entry with ID, keeping its ID and position.
Replacing the newest entry also updates the clipboard.`,
		cobra.MinimumNArgs(1),
		func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
			text := strings.Join(args[1:], " ")
			if len(args) == 1 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			if _, err := c.Replace(ctx, args[0], text); err != nil {
				return fmt.Errorf("replace: %w", err)
			}
			return nil
		})
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage named histories",
		Long: `The daemon keeps any number of named histories and records into the
current one. "history-name" in the config file picks the one used at start.`,
	}
	cmd.AddCommand(
		clientCmd("list", "List histories, marking the current one", "", cobra.NoArgs,
			func(ctx context.Context, c *client.Client, _ *viper.Viper, _ []string) error {
				names, current, err := c.Histories(ctx)
				if err != nil {
					return fmt.Errorf("list histories: %w", err)
				}
				for _, name := range names {
					mark := " "
					if name == current {
						mark = "*"
					}
					fmt.Printf("%s %s\n", mark, name)
				}
				return nil
			}),
		clientCmd("switch NAME", "Record into another history", "Makes NAME the current history, creating it when new.",
			cobra.ExactArgs(1),
			func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
				if err := c.Switch(ctx, args[0]); err != nil {
					return fmt.Errorf("switch history: %w", err)
				}
				return nil
			}),
		clientCmd("delete NAME", "Delete a history", "Deletes NAME. Deleting the current history empties it.",
			cobra.ExactArgs(1),
			func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
				if err := c.DeleteHistory(ctx, args[0]); err != nil {
					return fmt.Errorf("delete history: %w", err)
				}
				return nil
			}),
	)
	return cmd
}

func newEmptyCmd() *cobra.Command {
	cmd := clientCmd("empty", "Clear the whole history", "Removes every entry from the history. Requires --yes.",
		cobra.NoArgs,
		func(ctx context.Context, c *client.Client, v *viper.Viper, _ []string) error {
			if !v.GetBool("yes") {
				return fmt.Errorf("refusing to empty the history without --yes")
			}
			if err := c.Empty(ctx); err != nil {
				return fmt.Errorf("empty: %w", err)
			}
			return nil
		})
	cmd.Flags().BoolP("yes", "y", false, "confirm")
	return cmd
}

func newTrackCmd() *cobra.Command {
	return clientCmd("track [on|off]", "Show or switch clipboard tracking",
		`Without an argument prints whether the daemon records clipboard changes.
"on" and "off" switch it.`,
		cobra.MaximumNArgs(1),
		func(ctx context.Context, c *client.Client, _ *viper.Viper, args []string) error {
			if len(args) == 0 {
				st, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				fmt.Println(onOff(st.Tracking))
				return nil
			}
			var on bool
			switch strings.ToLower(args[0]) {
			case "on", "true", "1":
				on = true
			case "off", "false", "0":
			default:
				return fmt.Errorf("track: want on or off, got %q", args[0])
			}
			got, err := c.SetTracking(ctx, on)
			if err != nil {
				return fmt.Errorf("track: %w", err)
			}
			fmt.Println(onOff(got))
			return nil
		})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
