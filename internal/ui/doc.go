// Package ui provides terminal rendering for the particle-cfg command.
//
// The package wraps lipgloss styles and Bubble Tea programs behind a small
// set of render helpers so commands never deal with styling directly.
// Output falls into three shapes:
//
//   - Headers: a bordered block naming the operation and its parameters,
//     rendered before work starts.
//   - Progress: a live step list with a progress bar, shown while a cloud
//     request is in flight. On non-interactive outputs the progress display
//     degrades to plain step lines.
//   - Results: a success or error box summarizing the outcome. Compile
//     failures additionally render the classified build issues, colored by
//     severity, followed by the raw compiler output when requested.
//
// All helpers honor the terminal width, clamped between MinTerminalWidth
// and MaxContentWidth, so boxes stay readable on both narrow and very wide
// terminals.
package ui
