package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats Diagnostics against one named source buffer, the way
// internal/errors.ErrorReporter does for a Kanso source file: a header
// line, a `--> file:row:col` location line, the offending source line
// with a caret underline, and any suggestions/notes/help text.
type Reporter struct {
	filename string
	lines    []string
}

// NewReporter creates a Reporter for a file's textual IR source.
func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

// Format renders d as a colorized, multi-line string.
func (r *Reporter) Format(d *Diagnostic) string {
	var out strings.Builder

	levelColor := r.levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if d.Code != "" {
		fmt.Fprintf(&out, "%s[%s]: %s\n", levelColor(string(d.Level)), d.Code, d.Message)
	} else {
		fmt.Fprintf(&out, "%s: %s\n", levelColor(string(d.Level)), d.Message)
	}

	width := r.lineNumberWidth(d.Position.Line)
	indent := strings.Repeat(" ", width)

	fmt.Fprintf(&out, "%s %s %s:%s\n", indent, dim("-->"), r.filename, d.Position)
	fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))

	line := d.Position.Line
	if line > 1 && line-1 <= len(r.lines) {
		fmt.Fprintf(&out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, line-1)), dim("│"), r.lines[line-2])
	}
	if line > 0 && line <= len(r.lines) {
		fmt.Fprintf(&out, "%s %s %s\n", bold(fmt.Sprintf("%*d", width, line)), dim("│"), r.lines[line-1])
		fmt.Fprintf(&out, "%s %s %s\n", indent, dim("│"), r.marker(d))
	}
	if line < len(r.lines) {
		fmt.Fprintf(&out, "%s %s %s\n", dim(fmt.Sprintf("%*d", width, line+1)), dim("│"), r.lines[line])
	}

	if len(d.Suggestions) > 0 {
		fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
		suggestionColor := color.New(color.FgCyan).SprintFunc()
		for i, s := range d.Suggestions {
			if i == 0 {
				fmt.Fprintf(&out, "%s %s %s: %s\n", indent, suggestionColor("help"), suggestionColor("try"), s.Message)
			} else {
				fmt.Fprintf(&out, "%s %s %s\n", indent, suggestionColor("    "), s.Message)
			}
			if s.Replacement != "" {
				fmt.Fprintf(&out, "%s %s\n", indent, dim("│"))
				replacement := strings.ReplaceAll(s.Replacement, "\n", fmt.Sprintf("\n%s %s ", indent, dim("│")))
				fmt.Fprintf(&out, "%s %s %s\n", indent, suggestionColor("│"), suggestionColor(replacement))
			}
		}
	}

	for _, note := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), noteColor("note:"), note)
	}

	if d.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&out, "%s %s %s %s\n", indent, dim("│"), helpColor("help:"), d.HelpText)
	}

	out.WriteString("\n")
	return out.String()
}

// Print writes the formatted diagnostic to w.
func (r *Reporter) Print(w io.Writer, d *Diagnostic) {
	fmt.Fprint(w, r.Format(d))
}

func (r *Reporter) levelColor(level Level) func(...interface{}) string {
	switch level {
	case LevelWarning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case LevelNote:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	case LevelHelp:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func (r *Reporter) marker(d *Diagnostic) string {
	length := d.Length
	if length <= 0 {
		length = 1
	}
	spaces := strings.Repeat(" ", max(0, d.Position.Column-1))

	markerColor := color.New(color.FgRed, color.Bold).SprintFunc()
	if d.Level == LevelWarning {
		markerColor = color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	return spaces + markerColor(strings.Repeat("^", length))
}

func (r *Reporter) lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
