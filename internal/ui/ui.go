// Package ui holds the terminal palette and the small printers the CLI
// uses. Colors are disabled automatically when the output is not a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vk/tensorscope/internal/conn"
)

// Palette
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// Table writes an aligned table to w. Nothing is written for zero rows.
func Table(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	fmt.Fprintln(w, Subtle.Sprint(strings.TrimRight(headerLine, " ")))
	fmt.Fprintln(w, Subtle.Sprint(strings.TrimRight(sepLine, " ")))

	for _, row := range rows {
		line := "  "
		for i, cell := range row {
			if i < len(widths) {
				line += fmt.Sprintf("%-*s  ", widths[i], cell)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// ConnectionState renders a connection state in its color.
func ConnectionState(s conn.State) string {
	switch s {
	case conn.Connected:
		return Good.Sprint(s.String())
	case conn.Connecting, conn.Reconnecting:
		return Warn.Sprint(s.String())
	case conn.Failed:
		return Bad.Sprint(s.String())
	default:
		return Subtle.Sprint(s.String())
	}
}

// StatusIcon returns a check mark or a cross.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a warning sign.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}
