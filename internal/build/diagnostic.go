package build

import (
	"regexp"
	"strconv"
	"strings"
)

// IssueKind classifies a build issue by severity.
type IssueKind string

const (
	IssueWarning IssueKind = "warning"
	IssueError   IssueKind = "error"
)

// BuildIssue is a single structured compiler diagnostic, addressable by
// file, line, and column. Message may span multiple source lines when the
// compiler emitted continuation text (notes, code excerpts, caret markers)
// after the opening diagnostic line.
type BuildIssue struct {
	Kind     IssueKind `json:"kind"`
	Path     string    `json:"path"`
	Filename string    `json:"filename"`
	Line     int       `json:"line"`
	Column   int       `json:"column"`
	Message  string    `json:"message"`
}

// diagnosticPattern matches one compiler diagnostic line:
//
//	path:line:col: kind: message
//
// The path is any run of non-colon characters, line and column are decimal,
// and the message is the untouched remainder (it may itself contain colons).
var diagnosticPattern = regexp.MustCompile(`^([^:]+):(\d+):(\d+): (warning|error): (.*)$`)

// ParseDiagnosticLine classifies a single line of compiler output. It
// returns the issue and true when the line is a diagnostic, or a zero
// value and false when the line is continuation text. Any mismatch, a
// non-numeric position or an unrecognized severity word, falls back to
// continuation rather than an error: compiler output routinely contains
// context lines that are not diagnostics themselves.
func ParseDiagnosticLine(line string) (BuildIssue, bool) {
	m := diagnosticPattern.FindStringSubmatch(line)
	if m == nil {
		return BuildIssue{}, false
	}

	lineNo, err := strconv.Atoi(m[2])
	if err != nil {
		return BuildIssue{}, false
	}
	column, err := strconv.Atoi(m[3])
	if err != nil {
		return BuildIssue{}, false
	}

	path := m[1]
	return BuildIssue{
		Kind:     IssueKind(m[4]),
		Path:     path,
		Filename: basename(path),
		Line:     lineNo,
		Column:   column,
		Message:  m[5],
	}, true
}

// basename returns the last /-delimited segment of path. Compile paths are
// always slash-separated regardless of the client platform.
func basename(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ParseIssues folds an ordered sequence of raw compiler error blobs into
// structured issues. Each blob is split on newlines; a diagnostic line opens
// a new issue, and a continuation line is appended (newline-joined) to the
// message of the most recent issue. Continuation text before the first
// diagnostic has nothing to attach to and is dropped.
//
// The function is pure: the same input always yields the same issues, in
// the order their opening lines were encountered.
func ParseIssues(errors []string) []BuildIssue {
	issues := make([]BuildIssue, 0, len(errors))

	for _, blob := range errors {
		for _, line := range strings.Split(blob, "\n") {
			if issue, ok := ParseDiagnosticLine(line); ok {
				issues = append(issues, issue)
				continue
			}
			if len(issues) > 0 {
				issues[len(issues)-1].Message += "\n" + line
			}
		}
	}

	return issues
}
