package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/api"
	"go.klb.dev/recall/internal/client"
	"go.klb.dev/recall/internal/tlsconf"
)

func newStatusCmd() *cobra.Command {
	cmd := clientCmd("status", "Show daemon status and watchers",
		`Displays the daemon version, current history and its size, tracking
state and every client currently watching the history.

If a local daemon is running, the request is sent via the IPC socket.
Otherwise --server is used over TCP.`,
		cobra.NoArgs,
		func(ctx context.Context, c *client.Client, v *viper.Viper, _ []string) error {
			resp, err := c.Status(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if v.GetBool("json") {
				return printStatusJSON(os.Stdout, resp)
			}
			printStatus(resp, c.Via(), v.GetString("token"))
			return nil
		})
	cmd.Flags().Bool("json", false, "output raw JSON")
	return cmd
}

func printStatusJSON(w io.Writer, resp *api.StatusResponse) error {
	enc, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	_, err = fmt.Fprintln(w, string(enc))
	return err
}

func printStatus(resp *api.StatusResponse, transport, token string) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "History:\t%s\n", resp.History)
	fmt.Fprintf(w, "Entries:\t%d\n", resp.Size)
	fmt.Fprintf(w, "Tracking:\t%s\n", onOff(resp.Tracking))
	passphrase := token
	if passphrase == "" {
		passphrase = tlsconf.DefaultPassphrase
	}
	if creds, err := tlsconf.New(passphrase); err == nil {
		fmt.Fprintf(w, "TLS key:\t%s\n", creds.Fingerprint[:16])
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(resp.Watchers) == 0 {
		fmt.Println("No watchers connected.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tSOURCE\tCONNECTED\n")
	_, _ = fmt.Fprintf(tw, "--\t------\t---------\n")
	for _, wi := range resp.Watchers {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", wi.ID, wi.Source, tsAge(wi.ConnectedAt))
	}
	_ = tw.Flush()
}
