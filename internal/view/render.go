package view

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// Source is the remote list the Synchronizer mirrors.
type Source interface {
	Size(ctx context.Context) (int, error)
	ElementAt(ctx context.Context, index int) (Entry, error)
	Search(ctx context.Context, query string) ([]int, error)
}

// Drain executes reqs, and every request their results produce, one at a
// time against src. It renders once the queue is empty. Drain is the
// synchronous host used by one-shot commands; interactive hosts run requests
// concurrently and feed results back themselves.
func Drain(ctx context.Context, s *Synchronizer, src Source, reqs []Request, r Renderer) error {
	queue := append([]Request(nil), reqs...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := queue[0]
		queue = queue[1:]

		switch req.Kind {
		case RequestSize:
			n, err := src.Size(ctx)
			queue = append(queue, s.HandleSize(req.Gen, n, err)...)
		case RequestSearch:
			idx, err := src.Search(ctx, req.Query)
			queue = append(queue, s.HandleSearch(req.Gen, idx, err)...)
		case RequestElement:
			e, err := src.ElementAt(ctx, req.Index)
			s.HandleElement(req, e, err)
		}
	}
	if r != nil {
		r.Render(s.Snapshot())
	}
	return nil
}

// TextRenderer writes a snapshot as a plain table.
type TextRenderer struct {
	W io.Writer
	// Width elides entry text longer than this many runes; <= 0 disables it.
	Width int
}

func (t TextRenderer) Render(snap Snapshot) {
	switch snap.Placeholder {
	case PlaceholderDisconnected:
		fmt.Fprintln(t.W, "(daemon unavailable)")
		return
	case PlaceholderEmpty:
		fmt.Fprintln(t.W, "(history is empty)")
		return
	case PlaceholderNoResults:
		fmt.Fprintf(t.W, "(no results for %q)\n", snap.Query)
		return
	}

	tw := tabwriter.NewWriter(t.W, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tTEXT")
	for _, sl := range snap.Slots {
		if !sl.Bound() {
			continue
		}
		mark := ""
		if sl.MostRecent() {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\n", sl.Index, mark, sl.ID, Elide(sl.Text, t.Width))
	}
	tw.Flush()
	if snap.Pages > 1 {
		fmt.Fprintf(t.W, "page %d/%d\n", snap.Page, snap.Pages)
	}
}

// Elide shortens s to at most width runes, replacing the middle with an
// ellipsis. width <= 0 returns s unchanged.
func Elide(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	head := (width - 1) / 2
	tail := width - 1 - head
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}
