package ui

import (
	"strings"
	"testing"

	"github.com/dlkinney/particle-go/internal/build"
)

func TestIssueSummary(t *testing.T) {
	tests := []struct {
		name   string
		issues []build.BuildIssue
		want   string
	}{
		{"empty", nil, "no issues"},
		{"single error", []build.BuildIssue{
			{Kind: build.IssueError},
		}, "1 error"},
		{"mixed", []build.BuildIssue{
			{Kind: build.IssueError},
			{Kind: build.IssueError},
			{Kind: build.IssueWarning},
		}, "2 errors, 1 warning"},
		{"warnings only", []build.BuildIssue{
			{Kind: build.IssueWarning},
			{Kind: build.IssueWarning},
		}, "2 warnings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IssueSummary(tt.issues); got != tt.want {
				t.Errorf("IssueSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{512, "512 bytes"},
		{1024, "1.0 KB (1024 bytes)"},
		{101312, "98.9 KB (101312 bytes)"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestRenderIssuesContinuationLines(t *testing.T) {
	issues := []build.BuildIssue{
		{
			Kind:     build.IssueError,
			Filename: "app.ino",
			Line:     12,
			Column:   5,
			Message:  "expected ';' before '}' token\n   digitalWrite(D7 HIGH);\n                   ^",
		},
	}
	out := RenderIssues(issues)
	if !strings.Contains(out, "app.ino:12:5") {
		t.Errorf("output missing location, got:\n%s", out)
	}
	if !strings.Contains(out, "digitalWrite(D7 HIGH);") {
		t.Errorf("output missing continuation line, got:\n%s", out)
	}
}
