package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fumiya-kume/secpatch/internal/types"
)

const maxBarWidth = 60

// ProgressMsg reports how many fragments have been patched so far
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg ends the progress view with the run's outcome
type DoneMsg struct {
	Report *types.Report
	Err    error
}

// ProgressModel is a bubbletea model showing batch progress
type ProgressModel struct {
	bar         progress.Model
	theme       Theme
	done        int
	total       int
	report      *types.Report
	err         error
	interrupted bool
}

// NewProgressModel creates a progress view for total fragments
func NewProgressModel(theme Theme, total int) ProgressModel {
	bar := progress.New(progress.WithGradient(theme.ProgressFrom, theme.ProgressTo))
	bar.ShowPercentage = true
	bar.Width = 40

	return ProgressModel{bar: bar, theme: theme, total: total}
}

// Init implements tea.Model
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil

	case ProgressMsg:
		m.done, m.total = msg.Done, msg.Total
		return m, nil

	case DoneMsg:
		m.report, m.err = msg.Report, msg.Err
		if m.report != nil {
			m.done = m.report.Rows
		}
		return m, tea.Quit
	}

	return m, nil
}

// Percent is the finished share in [0, 1]
func (m ProgressModel) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// View implements tea.Model
func (m ProgressModel) View() string {
	s := m.theme.Styles

	status := s.Muted.Render(fmt.Sprintf("%d/%d fragments", m.done, m.total))
	switch {
	case m.err != nil:
		status = s.StatusError.Render(fmt.Sprintf("failed: %v", m.err))
	case m.report != nil:
		status = s.StatusSuccess.Render(fmt.Sprintf("%d/%d fragments, %d modified", m.report.Rows, m.report.Rows, m.report.Modified))
	case m.interrupted:
		status = s.StatusWarning.Render("interrupted")
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.bar.ViewAs(m.Percent()), status) + "\n"
}

// Interrupted reports whether the user quit before the run finished
func (m ProgressModel) Interrupted() bool {
	return m.interrupted
}

// Work is a batch run that reports progress through the given callback
type Work func(ctx context.Context, progress func(done, total int)) (*types.Report, error)

type workResult struct {
	report *types.Report
	err    error
}

// RunWithProgress runs work while a progress view is shown. Quitting the view
// cancels the work; the run's own result is returned either way.
func RunWithProgress(ctx context.Context, theme Theme, total int, work Work, opts ...tea.ProgramOption) (*types.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(theme, total), opts...)

	results := make(chan workResult, 1)
	go func() {
		report, err := work(ctx, func(done, total int) {
			p.Send(ProgressMsg{Done: done, Total: total})
		})
		p.Send(DoneMsg{Report: report, Err: err})
		results <- workResult{report: report, err: err}
	}()

	final, err := p.Run()
	if m, ok := final.(ProgressModel); err != nil || (ok && m.Interrupted()) {
		cancel()
	}

	res := <-results
	return res.report, res.err
}
