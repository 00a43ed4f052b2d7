package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

const maxBarWidth = 60

type entityStartedMsg struct {
	entity string
	index  int
	total  int
}

type entityFinishedMsg struct {
	outcome erpsync.EntityOutcome
	percent int
}

type finishedMsg struct {
	report *erpsync.SyncReport
}

// Model is the bubbletea model of a running pass.
type Model struct {
	keys     KeyMap
	spinner  spinner.Model
	bar      progress.Model
	onCancel func()

	current string
	index   int
	total   int
	percent int
	done    []erpsync.EntityOutcome

	cancelling bool
	report     *erpsync.SyncReport
}

// NewModel creates the progress model. onCancel runs once when the user asks to stop.
func NewModel(onCancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return Model{
		keys:     DefaultKeyMap(),
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		onCancel: onCancel,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) && !m.cancelling {
			m.cancelling = true
			if m.onCancel != nil {
				m.onCancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case entityStartedMsg:
		m.current = msg.entity
		m.index = msg.index
		m.total = msg.total
		return m, nil

	case entityFinishedMsg:
		m.done = append(m.done, msg.outcome)
		m.percent = msg.percent
		m.current = ""
		return m, nil

	case finishedMsg:
		m.report = msg.report
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("erpsync"))
	b.WriteString("\n")

	for _, o := range m.done {
		b.WriteString(outcomeLine(o))
		b.WriteString("\n")
	}

	if m.report != nil {
		return b.String()
	}

	if m.current != "" {
		fmt.Fprintf(&b, "%s Loading %s (%d/%d)\n", m.spinner.View(), m.current, m.index+1, m.total)
	}
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	b.WriteString("\n")

	if m.cancelling {
		b.WriteString(WarningStyle.Render("Cancelling, waiting for the current entity type to roll back..."))
	} else {
		b.WriteString(HelpStyle.Render(m.keys.HelpText()))
	}
	b.WriteString("\n")
	return b.String()
}

func outcomeLine(o erpsync.EntityOutcome) string {
	r := o.Result
	if o.Err != nil {
		return ErrorStyle.Render(fmt.Sprintf("%s %s rolled back: %v", SymbolCross, r.Entity, o.Err))
	}
	line := fmt.Sprintf("%s %-18s %d inserted, %d updated, %d unchanged", SymbolCheck, r.Entity, r.Inserted, r.Updated, r.Unchanged)
	if r.Errors > 0 {
		return WarningStyle.Render(fmt.Sprintf("%s, %d errors", line, r.Errors))
	}
	return SuccessStyle.Render(line)
}

// ProgressView runs Model in a bubbletea program and feeds it the events of a pass.
type ProgressView struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// NewProgressView creates a view rendering to out. Signals are left to the
// caller; the cancel key calls onCancel instead.
func NewProgressView(out io.Writer, onCancel func()) *ProgressView {
	return &ProgressView{
		program: tea.NewProgram(NewModel(onCancel), tea.WithOutput(out), tea.WithoutSignalHandler()),
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background.
func (v *ProgressView) Start() {
	go func() {
		defer close(v.done)
		_, v.err = v.program.Run()
	}()
}

// Stop ends the program and waits until the terminal is restored.
func (v *ProgressView) Stop() error {
	v.program.Quit()
	<-v.done
	return v.err
}

// EntityStarted implements erpsync.ProgressReporter.
func (v *ProgressView) EntityStarted(entity string, index, total int) {
	v.program.Send(entityStartedMsg{entity: entity, index: index, total: total})
}

// EntityFinished implements erpsync.ProgressReporter.
func (v *ProgressView) EntityFinished(outcome erpsync.EntityOutcome, percent int) {
	v.program.Send(entityFinishedMsg{outcome: outcome, percent: percent})
}

// Finished implements erpsync.ProgressReporter.
func (v *ProgressView) Finished(report *erpsync.SyncReport) {
	v.program.Send(finishedMsg{report: report})
}

// Logger returns an erpsync.Logger that prints above the view while it runs.
func (v *ProgressView) Logger(verbose bool) erpsync.Logger {
	return &viewLogger{program: v.program, verbose: verbose}
}

type viewLogger struct {
	program *tea.Program
	verbose bool
}

func (l *viewLogger) Verbose(format string, args ...any) {
	if l.verbose {
		l.program.Println(MutedStyle.Render(fmt.Sprintf(format, args...)))
	}
}

func (l *viewLogger) Info(format string, args ...any) {
	l.program.Println(fmt.Sprintf(format, args...))
}

func (l *viewLogger) Error(format string, args ...any) {
	l.program.Println(ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

var _ erpsync.ProgressReporter = (*ProgressView)(nil)
