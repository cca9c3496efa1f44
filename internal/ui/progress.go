package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// StepStatus is the lifecycle state of a single progress step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
)

type progressStep struct {
	title  string
	note   string
	status StepStatus
}

// Reporter lets a task update the progress display while it runs.
type Reporter struct {
	send func(tea.Msg)
}

// Start marks step i as running.
func (r *Reporter) Start(i int) {
	r.send(stepMsg{index: i, status: StepRunning})
}

// Complete marks step i as complete, with an optional note.
func (r *Reporter) Complete(i int, note string) {
	r.send(stepMsg{index: i, status: StepComplete, note: note})
}

// Fail marks step i as failed, with an optional note.
func (r *Reporter) Fail(i int, note string) {
	r.send(stepMsg{index: i, status: StepFailed, note: note})
}

type stepMsg struct {
	index  int
	status StepStatus
	note   string
}

type doneMsg struct {
	err error
}

type progressModel struct {
	label string
	steps []progressStep
	bar   progress.Model
	width int
	done  bool
	err   error
}

func newProgressModel(label string, steps []string) progressModel {
	m := progressModel{
		label: label,
		steps: make([]progressStep, len(steps)),
		bar:   progress.New(progress.WithDefaultGradient()),
		width: GetTerminalWidth(),
	}
	for i, title := range steps {
		m.steps[i] = progressStep{title: title, status: StepPending}
	}
	m.bar.Width = m.width - 8
	return m
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.width > MaxContentWidth {
			m.width = MaxContentWidth
		}
		m.bar.Width = m.width - 8
		return m, nil

	case stepMsg:
		if msg.index >= 0 && msg.index < len(m.steps) {
			m.steps[msg.index].status = msg.status
			if msg.note != "" {
				m.steps[msg.index].note = msg.note
			}
		}
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(ProgressLabelStyle.Render(m.label))
	b.WriteString("\n\n")

	completed := 0
	for _, s := range m.steps {
		if s.status == StepComplete {
			completed++
		}
	}
	pct := 0.0
	if len(m.steps) > 0 {
		pct = float64(completed) / float64(len(m.steps))
	}
	b.WriteString("  " + m.bar.ViewAs(pct))
	b.WriteString("\n\n")
	b.WriteString(renderStepList(m.steps))
	return b.String()
}

func renderStepList(steps []progressStep) string {
	var b strings.Builder
	for _, s := range steps {
		b.WriteString("  " + renderStepLine(s) + "\n")
	}
	return b.String()
}

func renderStepLine(s progressStep) string {
	var marker, title string
	switch s.status {
	case StepComplete:
		marker = StepCompleteStyle.Render(StepMarkerComplete)
		title = StepCompleteStyle.Render(s.title)
	case StepRunning:
		marker = StepRunningStyle.Render(StepMarkerRunning)
		title = StepRunningStyle.Render(s.title)
	case StepFailed:
		marker = ErrorTitleStyle.Render(FailureMarker)
		title = ErrorTitleStyle.Render(s.title)
	default:
		marker = StepPendingStyle.Render(StepMarkerPending)
		title = StepPendingStyle.Render(s.title)
	}
	line := marker + " " + title
	if s.note != "" {
		line += " " + StepNoteStyle.Render("("+s.note+")")
	}
	return line
}

// RunProgress runs task while showing a live step display. The task receives
// a Reporter to advance steps as work proceeds. When stdout is not a
// terminal the display degrades to plain step lines.
func RunProgress(label string, steps []string, task func(r *Reporter) error) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runProgressPlain(label, steps, task)
	}

	p := tea.NewProgram(newProgressModel(label, steps))
	rep := &Reporter{send: func(msg tea.Msg) { p.Send(msg) }}

	go func() {
		err := task(rep)
		p.Send(doneMsg{err: err})
	}()

	final, runErr := p.Run()
	if runErr != nil {
		return runErr
	}
	if m, ok := final.(progressModel); ok {
		// Leave the final step list on screen after the program exits.
		fmt.Print(renderStepList(m.steps))
		return m.err
	}
	return nil
}

func runProgressPlain(label string, steps []string, task func(r *Reporter) error) error {
	fmt.Println(label)
	rep := &Reporter{send: func(msg tea.Msg) {
		sm, ok := msg.(stepMsg)
		if !ok || sm.index < 0 || sm.index >= len(steps) {
			return
		}
		switch sm.status {
		case StepComplete:
			fmt.Printf("  %s %s\n", StepMarkerComplete, steps[sm.index])
		case StepFailed:
			fmt.Printf("  %s %s\n", FailureMarker, steps[sm.index])
		}
	}}
	return task(rep)
}
