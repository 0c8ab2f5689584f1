package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/svg2avd/pkg/pipeline"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// Progress view styles
var (
	barDoneStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barTodoStyle  = lipgloss.NewStyle().Foreground(colorDim)
	listDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
	listFailStyle = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	progressBarWidth = 30
	progressRecent   = 6
)

// =============================================================================
// ProgressModel - Live view of a batch conversion
// =============================================================================

// resultMsg reports one finished source.
type resultMsg struct{ res *pipeline.Result }

// finishedMsg reports the end of the batch.
type finishedMsg struct{}

type tickMsg time.Time

// ProgressModel is the bubbletea model shown by convert --progress.
type ProgressModel struct {
	Total     int
	Done      int
	Failed    int
	Cached    int
	Recent    []string
	Cancelled bool

	frame  int
	start  time.Time
	cancel context.CancelFunc
}

// NewProgressModel creates a model for total sources. cancel is called when
// the user quits.
func NewProgressModel(total int, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Total: total, start: time.Now(), cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case resultMsg:
		m.Done++
		line := filepath.Base(msg.res.Source)
		switch {
		case msg.res.Err != nil:
			m.Failed++
			line = listFailStyle.Render(iconError+" "+line) + " " + listDimStyle.Render(errs.UserMessage(msg.res.Err))
		case msg.res.Cached:
			m.Cached++
			line = styleIconSuccess.Render(iconSuccess) + " " + line + " " + styleCached.Render(iconCached)
		default:
			line = styleIconSuccess.Render(iconSuccess) + " " + line
		}
		m.Recent = append(m.Recent, line)
		if len(m.Recent) > progressRecent {
			m.Recent = m.Recent[len(m.Recent)-progressRecent:]
		}
	case finishedMsg:
		return m, tea.Quit
	case tickMsg:
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	b.WriteString(styleIconSpinner.Render(frames[m.frame%len(frames)]))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render("Converting"))
	b.WriteString("\n\n")

	filled := 0
	if m.Total > 0 {
		filled = m.Done * progressBarWidth / m.Total
	}
	b.WriteString("  ")
	b.WriteString(barDoneStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(barTodoStyle.Render(strings.Repeat("░", progressBarWidth-filled)))
	b.WriteString(fmt.Sprintf("  %d/%d", m.Done, m.Total))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d cached · %d failed · %s",
		m.Cached, m.Failed, time.Since(m.start).Round(time.Second))))
	b.WriteString("\n\n")

	for _, line := range m.Recent {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}

// runWithProgress runs the batch while rendering a ProgressModel on stderr.
func runWithProgress(ctx context.Context, runner *pipeline.Runner, paths []string, concurrency int) ([]*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(len(paths), cancel), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	runner.Progress = func(res *pipeline.Result) { p.Send(resultMsg{res: res}) }
	defer func() { runner.Progress = nil }()

	var (
		results []*pipeline.Result
		runErr  error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		results, runErr = runner.ConvertAll(ctx, paths, concurrency)
		p.Send(finishedMsg{})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return nil, err
	}
	<-done
	return results, runErr
}
