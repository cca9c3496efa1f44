package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dlkinney/particle-go/internal/build"
)

// RenderHeader renders a bordered operation header with parameters.
func RenderHeader(title string, params [][2]string) string {
	var b strings.Builder
	b.WriteString(HeaderTitleStyle.Render(title))
	if len(params) > 0 {
		b.WriteString("\n")
		for _, p := range params {
			b.WriteString("\n")
			b.WriteString(HeaderParamKeyStyle.Render(p[0] + ": "))
			b.WriteString(HeaderParamValueStyle.Render(p[1]))
		}
	}
	width := GetTerminalWidth()
	return HeaderBorderStyle(width).Render(b.String())
}

// RenderSuccessBox renders a success result box with detail rows.
func RenderSuccessBox(title string, details [][2]string) string {
	var b strings.Builder
	b.WriteString(SuccessTitleStyle.Render(SuccessMarker + " " + title))
	for _, d := range details {
		b.WriteString("\n")
		b.WriteString(ResultKeyStyle.Render(d[0]))
		b.WriteString(ResultValueStyle.Render(d[1]))
	}
	width := GetTerminalWidth()
	return SuccessBoxStyle(width).Render(b.String())
}

// RenderErrorBox renders an error result box.
func RenderErrorBox(title string, lines []string) string {
	var b strings.Builder
	b.WriteString(ErrorTitleStyle.Render(FailureMarker + " " + title))
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(ResultValueStyle.Render(line))
	}
	width := GetTerminalWidth()
	return ErrorBoxStyle(width).Render(b.String())
}

// RenderIssues renders classified build issues, colored by severity.
// Continuation lines within an issue message render muted under the
// diagnostic heading.
func RenderIssues(issues []build.BuildIssue) string {
	if len(issues) == 0 {
		return ""
	}
	var b strings.Builder
	for i, issue := range issues {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderIssue(issue))
	}
	return b.String()
}

func renderIssue(issue build.BuildIssue) string {
	var kind string
	switch issue.Kind {
	case build.IssueError:
		kind = ErrorTitleStyle.Render("error")
	case build.IssueWarning:
		kind = WarningTitleStyle.Render("warning")
	default:
		kind = IssueMessageStyle.Render(string(issue.Kind))
	}

	location := IssueLocationStyle.Render(
		fmt.Sprintf("%s:%d:%d", issue.Filename, issue.Line, issue.Column))

	lines := strings.Split(issue.Message, "\n")
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s: %s", location, kind,
		IssueMessageStyle.Render(lines[0])))
	for _, extra := range lines[1:] {
		b.WriteString("\n")
		b.WriteString("  " + IssueContextStyle.Render(extra))
	}
	return b.String()
}

// IssueSummary returns a short count line like "2 errors, 1 warning".
func IssueSummary(issues []build.BuildIssue) string {
	var errs, warns int
	for _, issue := range issues {
		switch issue.Kind {
		case build.IssueError:
			errs++
		case build.IssueWarning:
			warns++
		}
	}
	parts := make([]string, 0, 2)
	if errs > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", errs, plural(errs, "error")))
	}
	if warns > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", warns, plural(warns, "warning")))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// RenderSizeReport formats firmware section sizes as detail rows.
func RenderSizeReport(r build.SizeReport) [][2]string {
	return [][2]string{
		{"Flash used", formatBytes(r.Text + r.Data)},
		{"RAM used", formatBytes(r.Data + r.BSS)},
		{"Total size", formatBytes(r.Size)},
	}
}

func formatBytes(n int) string {
	if n >= 1024 {
		return fmt.Sprintf("%.1f KB (%d bytes)", float64(n)/1024, n)
	}
	return fmt.Sprintf("%d bytes", n)
}

// RenderRawOutput renders raw compiler output inside a muted box, preceded
// by a heading.
func RenderRawOutput(output string) string {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return ""
	}
	width := GetTerminalWidth()
	return lipgloss.JoinVertical(lipgloss.Left,
		RawOutputTitleStyle.Render("Compiler output"),
		RawOutputBoxStyle(width).Render(RawOutputContentStyle.Render(output)))
}
