package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/recall/internal/config"
	"go.klb.dev/recall/internal/view"
)

const requestTimeout = 10 * time.Second

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of the history",
		Long: `Prints one page of the clipboard history as a table. Index 0 is the
most recent entry and is marked with "*".

Page size and page cap come from max-displayed-history-size and max-pages.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(v, v.GetString("search"))
		},
	}

	f := cmd.Flags()
	f.Int("page", 1, "page to print (1-based)")
	f.String("search", "", "only show entries matching this pattern")
	f.Bool("json", false, "output JSON")
	addClientFlags(cmd)

	return cmd
}

func newSearchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "search PATTERN",
		Short:   "Print the entries matching a pattern",
		Long:    `Same as "recall list --search PATTERN". PATTERN is a case-insensitive regular expression; invalid expressions match literally.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			return runList(v, args[0])
		},
	}

	f := cmd.Flags()
	f.Int("page", 1, "page to print (1-based)")
	f.Bool("json", false, "output JSON")
	addClientFlags(cmd)

	return cmd
}

// runList resolves one window with the synchronous host and prints it.
func runList(v *viper.Viper, query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	c, err := dialDaemon(ctx, v)
	if err != nil {
		return err
	}
	defer c.Close()

	settings := config.FromViper(v)
	snap, err := resolvePage(ctx, c, settings.View(), query, v.GetInt("page"))
	if err != nil {
		return err
	}
	if v.GetBool("json") {
		return printListJSON(os.Stdout, snap)
	}
	view.TextRenderer{W: os.Stdout, Width: settings.ElementSize}.Render(snap)
	return nil
}

// resolvePage loads page (1-based) of src, filtered by query when set.
func resolvePage(ctx context.Context, src view.Source, opts view.Options, query string, page int) (view.Snapshot, error) {
	s := view.New(opts)
	var reqs []view.Request
	if query != "" {
		reqs = s.SetQuery(query)
	} else {
		reqs = s.Start()
	}
	if err := view.Drain(ctx, s, src, reqs, nil); err != nil {
		return view.Snapshot{}, err
	}
	if page != 1 {
		if page < 1 || page > s.Pages() {
			return view.Snapshot{}, fmt.Errorf("page %d out of range: %d page(s)", page, s.Pages())
		}
		if err := view.Drain(ctx, s, src, s.SwitchPage(page), nil); err != nil {
			return view.Snapshot{}, err
		}
	}
	return s.Snapshot(), nil
}

// listJSON is the --json output. Total is only known outside a search.
type listJSON struct {
	Query   string     `json:"query,omitempty"`
	Page    int        `json:"page"`
	Pages   int        `json:"pages"`
	Total   *int       `json:"total,omitempty"`
	Matches int        `json:"matches,omitempty"`
	Items   []listItem `json:"items"`
}

type listItem struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

func printListJSON(w io.Writer, snap view.Snapshot) error {
	out := listJSON{
		Query:   snap.Query,
		Page:    snap.Page,
		Pages:   snap.Pages,
		Matches: snap.Matches,
		Items:   []listItem{},
	}
	if snap.Query == "" {
		out.Total = &snap.Total
	}
	for _, sl := range snap.Slots {
		if sl.Bound() {
			out.Items = append(out.Items, listItem{Index: sl.Index, ID: sl.ID, Text: sl.Text})
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
