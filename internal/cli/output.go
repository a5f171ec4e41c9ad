package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Field is one row of a key/value table.
type Field struct {
	Key   string
	Value string
}

// RenderFields writes fields as a two-column rounded table.
func RenderFields(w io.Writer, title string, fields []Field) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	for _, f := range fields {
		value := f.Value
		if value == "" {
			value = "-"
		}
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(f.Key), value})
	}
	t.Render()
}

// RenderList writes values as a numbered single-column table.
func RenderList(w io.Writer, header string, values []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", header})
	for i, v := range values {
		t.AppendRow(table.Row{i + 1, v})
	}
	t.Render()
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("%s %s", text.FgGreen.Sprint("✓"), msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("%s %s", text.FgYellow.Sprint("⚠"), msg)
}

// FormatStatus colors an HTTP status code by class.
func FormatStatus(status int) string {
	switch {
	case status >= 500:
		return text.FgRed.Sprint(status)
	case status >= 400:
		return text.FgYellow.Sprint(status)
	default:
		return text.FgGreen.Sprint(status)
	}
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "expired"
	}
	if d < time.Minute {
		return "< 1 minute"
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

// FormatExpiry formats seconds-until-expiry as "in X" or "expired".
// Zero means unknown or expired; the caller distinguishes via hasExpiry.
func FormatExpiry(seconds int64, hasExpiry bool) string {
	if !hasExpiry {
		return "unknown"
	}
	if seconds <= 0 {
		return text.FgYellow.Sprint("expired")
	}
	return "in " + FormatDuration(time.Duration(seconds)*time.Second)
}
