package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one key/value line in a header or result box.
// Fields keep their order, unlike a map.
type Field struct {
	Key   string
	Value string
}

// Printer writes styled boxes for the command line.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, fields ...Field) {
	p.Println(RenderHeader(title, command, fields, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, fields ...Field) {
	p.Println(RenderSuccessBox(title, fields, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting ...string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, fields []Field, width int) string {
	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)
	if len(fields) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	dividerWidth := width - 6
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, ParamKeyStyle.Render(f.Key+":")+" "+ParamValueStyle.Render(f.Value))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		top,
		RenderHorizontalDivider(dividerWidth, "─"),
		strings.Join(lines, "\n"),
	)
	return HeaderBorderStyle(width).Render(content)
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, fields []Field, width int) string {
	lines := []string{"", SuccessTitleStyle.Render("   " + SuccessMarker + "  SUCCESS  ─  " + title), ""}
	for _, f := range fields {
		lines = append(lines, ResultKeyStyle.Render("   "+f.Key+":")+" "+ParamValueStyle.Render(f.Value))
	}
	lines = append(lines, "")
	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{"", ErrorTitleStyle.Render("   " + FailureMarker + "  FAILED  ─  " + title), ""}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+err.Error()), "")
	}
	if len(troubleshooting) > 0 {
		lines = append(lines, HintStyle.Bold(true).Render("   Troubleshooting:"))
		for _, tip := range troubleshooting {
			lines = append(lines, HintStyle.Render("     • "+tip))
		}
		lines = append(lines, "")
	}
	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}
