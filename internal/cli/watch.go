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
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dyntopo/pkg/dyntopo"
	"github.com/matzehuels/dyntopo/pkg/pipeline"
)

const (
	// watchStepsPerTick is the number of queue steps between redraws.
	watchStepsPerTick = 64

	watchBarWidth = 30
)

var (
	watchBarStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	watchRestStyle = lipgloss.NewStyle().Foreground(colorDim)
	watchHeadStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// watchModel - Interactive remesh progress
// =============================================================================

// passRow is one finished pass shown by [watchModel].
type passRow struct {
	stats    dyntopo.Stats
	faces    int
	modified bool
	elapsed  time.Duration
}

// watchModel is the bubbletea model that drives remesh passes step by step
// and draws the queue as it drains.
type watchModel struct {
	ctx     context.Context
	name    string
	session *pipeline.Session
	opts    pipeline.Options
	pass    dyntopo.Options
	perTick int

	qc        *dyntopo.QueueContext
	current   int
	passStart time.Time
	rows      []passRow
	total     dyntopo.Stats
	aborted   bool
	done      bool
}

// stepMsg asks the model to run the next batch of steps.
type stepMsg struct{}

func stepCmd() tea.Msg { return stepMsg{} }

func newWatchModel(ctx context.Context, name string, s *pipeline.Session, opts pipeline.Options, pass dyntopo.Options) watchModel {
	return watchModel{
		ctx:     ctx,
		name:    name,
		session: s,
		opts:    opts,
		pass:    pass,
		perTick: watchStepsPerTick,
	}
}

func (m watchModel) Init() tea.Cmd {
	return stepCmd
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// The running pass still finishes so the mesh stays valid.
			m.aborted = true
			m.session.Remesher.RequestStop()
		}
	case stepMsg:
		return m.step()
	}
	return m, nil
}

// step opens the next pass when none is running, advances the current one
// and closes it once its queue is done.
func (m watchModel) step() (tea.Model, tea.Cmd) {
	if m.qc == nil {
		if m.aborted || m.current >= m.opts.Passes || m.session.Mark(m.opts) == 0 {
			m.done = true
			return m, tea.Quit
		}
		m.current++
		m.passStart = time.Now()
		m.qc = m.session.Remesher.NewContext(m.ctx, m.pass)
	}

	for i := 0; i < m.perTick && !m.qc.Done(); i++ {
		m.qc.Step()
	}
	if !m.qc.Done() {
		return m, stepCmd
	}

	modified := m.qc.Finish()
	s := m.qc.Stats()
	m.total = m.total.Add(s)
	m.rows = append(m.rows, passRow{
		stats:    s,
		faces:    m.session.Mesh.NumFaces(),
		modified: modified,
		elapsed:  time.Since(m.passStart),
	})
	m.qc = nil
	if !modified || m.aborted || m.ctx.Err() != nil {
		m.done = true
		return m, tea.Quit
	}
	return m, stepCmd
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Remeshing " + m.name))
	b.WriteString("\n")

	if m.qc != nil {
		minLen, maxLen := m.qc.Limits()
		b.WriteString(fmt.Sprintf("%s  %s  %s\n",
			StyleValue.Render(fmt.Sprintf("pass %d/%d", m.current, m.opts.Passes)),
			StyleHighlight.Render(m.qc.Op().String()),
			StyleDim.Render(fmt.Sprintf("edges %.4g to %.4g", minLen, maxLen))))
		b.WriteString(progressBar(m.qc.Steps(), m.qc.MaxSteps(), watchBarWidth))
		b.WriteString(StyleDim.Render(fmt.Sprintf("  %d steps  %d queued  %d pending",
			m.qc.Steps(), m.qc.Len(), m.qc.Pending())))
		b.WriteString("\n")
	}

	if len(m.rows) > 0 {
		rows := make([][]string, len(m.rows))
		for i, r := range m.rows {
			rows[i] = []string{
				fmt.Sprintf("%d", i+1),
				fmt.Sprintf("%d", r.stats.Steps),
				fmt.Sprintf("%d", r.stats.Splits),
				fmt.Sprintf("%d", r.stats.Collapses),
				fmt.Sprintf("%d", r.faces),
				r.elapsed.Round(time.Millisecond).String(),
			}
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			Headers("Pass", "Steps", "Splits", "Collapses", "Faces", "Time").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == -1 {
					return watchHeadStyle
				}
				return lipgloss.NewStyle().Foreground(colorWhite)
			})
		b.WriteString(t.Render())
		b.WriteString("\n")
	}

	if m.aborted && !m.done {
		b.WriteString(StyleWarning.Render("stopping after this pass"))
	} else {
		b.WriteString(StyleDim.Render("q stop"))
	}
	b.WriteString("\n")
	return b.String()
}

// progressBar draws n of total as a bar of the given width.
func progressBar(n, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width, n*width/total)
	}
	return watchBarStyle.Render(strings.Repeat("█", filled)) +
		watchRestStyle.Render(strings.Repeat("░", width-filled))
}

// runWatch remeshes opts.Input in the interactive view and writes the
// outputs. It bypasses the result cache.
func (c *CLI) runWatch(ctx context.Context, opts pipeline.Options, output string) error {
	// Log lines would tear the interactive view; ValidateAndSetDefaults
	// installs a discarding logger.
	opts.Logger = nil
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	loaded, _, err := pipeline.Load(ctx, opts)
	if err != nil {
		return err
	}
	session, err := pipeline.NewSession(loaded.Mesh, opts)
	if err != nil {
		return err
	}
	pass, err := opts.PassOptions(loaded.Mesh)
	if err != nil {
		return err
	}

	model := newWatchModel(ctx, filepath.Base(opts.Input), session, opts, pass)
	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr)).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	wm := final.(watchModel)

	artifacts, err := pipeline.Export(ctx, session.Mesh, opts)
	if err != nil {
		return err
	}
	paths, err := writeArtifacts(artifacts, output, opts.Input)
	if err != nil {
		return err
	}

	if wm.aborted {
		printWarning("Stopped after %d passes", len(wm.rows))
	} else {
		printSuccess("Remesh complete")
	}
	for _, p := range paths {
		printFile(p)
	}
	printStats(session.Mesh.NumVerts(), session.Mesh.NumFaces(), false)
	printEdits(pipeline.RemeshInfo{Edits: wm.total, Passes: len(wm.rows)})
	return nil
}
