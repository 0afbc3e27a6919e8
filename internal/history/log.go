package history

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

const previewRunes = 120

// LogItem logs a history event at INFO (id, size) and DEBUG (text preview up
// to 120 runes).
func LogItem(event string, it Item) {
	slog.Info(event, "id", it.ID, "size_bytes", len(it.Text))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug("history item", "id", it.ID, "preview", Preview(it.Text, previewRunes))
}

// Preview cuts s to at most n runes, marking the cut with an ellipsis.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
