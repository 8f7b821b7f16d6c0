package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/gcadmin/extaudit/internal/audit"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// stderrIsTerminal reports whether stderr is an interactive terminal.
// Live progress lines are only rendered on a TTY; piped output gets plain
// logs instead.
func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// watchProgress consumes pipeline progress events and renders them to
// stderr. Returns a done channel closed when the progress channel closes.
func watchProgress(ch <-chan audit.Progress) <-chan struct{} {
	done := make(chan struct{})
	tty := stderrIsTerminal()

	go func() {
		defer close(done)

		var lastStage string

		for p := range ch {
			if flagQuiet {
				continue
			}

			switch {
			case tty && p.Total > 0:
				fmt.Fprintf(os.Stderr, "\r%s: %d/%d", p.Stage, p.Current, p.Total)
			case tty && p.Current > 0:
				fmt.Fprintf(os.Stderr, "\r%s: %d", p.Stage, p.Current)
			case p.Stage != lastStage:
				fmt.Fprintf(os.Stderr, "%s...\n", p.Stage)
			}

			lastStage = p.Stage
		}

		if tty {
			fmt.Fprintln(os.Stderr)
		}
	}()

	return done
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}
