// Package inspector is a terminal stepper over a transcript replay. The
// left pane lists the steps, the right pane shows what the selected step
// did: the delegate calls it caused, the selection it left and the
// resulting document.
package inspector

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/transcript"
)

// Stepper is the part of a transcript player the inspector drives
type Stepper interface {
	Step(ctx context.Context) (transcript.Outcome, error)
	Finished() bool
	Transcript() *transcript.Transcript
	Setup() []router.Entry
}

type pane int

const (
	stepsPane pane = iota
	detailPane
)

// stepMsg carries the outcome of one step back into Update
type stepMsg struct {
	outcome transcript.Outcome
	err     error
	runAll  bool
}

// Model is the bubbletea model of the inspector
type Model struct {
	ctx     context.Context
	stepper Stepper

	outcomes []transcript.Outcome
	selected int // index into the steps, -1 for the setup view
	running  bool
	err      error

	stepsViewport  viewport.Model
	detailViewport viewport.Model
	activePane     pane

	width  int
	height int
}

// NewModel returns an inspector positioned before the first step
func NewModel(ctx context.Context, stepper Stepper) *Model {
	m := &Model{
		ctx:            ctx,
		stepper:        stepper,
		selected:       -1,
		stepsViewport:  viewport.New(40, 20),
		detailViewport: viewport.New(80, 20),
	}
	m.refresh()
	return m
}

// Run shows the inspector until the user quits
func Run(ctx context.Context, stepper Stepper) error {
	p := tea.NewProgram(NewModel(ctx, stepper), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run inspector: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// step runs the next transcript step off the UI goroutine
func (m *Model) step(runAll bool) tea.Cmd {
	if m.running || m.err != nil || m.stepper.Finished() {
		return nil
	}
	m.running = true
	ctx, stepper := m.ctx, m.stepper
	return func() tea.Msg {
		out, err := stepper.Step(ctx)
		return stepMsg{outcome: out, err: err, runAll: runAll}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refresh()

	case stepMsg:
		m.running = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.outcomes = append(m.outcomes, msg.outcome)
			m.selected = len(m.outcomes) - 1
		}
		m.refresh()
		m.stepsViewport.GotoBottom()
		if msg.runAll && msg.err == nil {
			cmds = append(cmds, m.step(true))
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit

		case "n", "enter", " ":
			cmds = append(cmds, m.step(false))

		case "a":
			cmds = append(cmds, m.step(true))

		case "tab":
			if m.activePane == stepsPane {
				m.activePane = detailPane
			} else {
				m.activePane = stepsPane
			}

		case "left", "h":
			if m.selected > -1 {
				m.selected--
				m.refresh()
			}

		case "right", "l":
			if m.selected < len(m.outcomes)-1 {
				m.selected++
				m.refresh()
			}

		default:
			var cmd tea.Cmd
			if m.activePane == stepsPane {
				m.stepsViewport, cmd = m.stepsViewport.Update(msg)
			} else {
				m.detailViewport, cmd = m.detailViewport.Update(msg)
			}
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	contentHeight := m.height - 6 // header and help rows
	if contentHeight < 5 {
		contentHeight = 5
	}
	stepsWidth := m.width / 3
	detailWidth := m.width - stepsWidth - 4
	m.stepsViewport.Width = stepsWidth - 4
	m.stepsViewport.Height = contentHeight - 3
	m.detailViewport.Width = detailWidth - 4
	m.detailViewport.Height = contentHeight - 3
}

func (m *Model) refresh() {
	m.stepsViewport.SetContent(m.stepsContent())
	m.detailViewport.SetContent(m.detailContent())
	m.detailViewport.GotoTop()
}

func (m *Model) stepsContent() string {
	var b strings.Builder
	steps := m.stepper.Transcript().Steps
	marker := func(i int) string {
		if i == m.selected {
			return currentStyle.Render("▸ ")
		}
		return "  "
	}

	b.WriteString(marker(-1))
	b.WriteString(normalStyle.Render("setup"))
	b.WriteString("\n")

	for i, step := range steps {
		b.WriteString(marker(i))
		label := fmt.Sprintf("%d %s", i+1, step.String())
		switch {
		case i < len(m.outcomes) && m.outcomes[i].Err != nil:
			b.WriteString(failedStyle.Render("✗ " + label))
		case i < len(m.outcomes):
			b.WriteString(doneStyle.Render("✓ " + label))
		case i == len(m.outcomes) && m.running:
			b.WriteString(currentStyle.Render("… " + label))
		default:
			b.WriteString(dimStyle.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) detailContent() string {
	width := m.detailViewport.Width
	if width <= 0 {
		width = 80
	}
	var b strings.Builder

	if m.selected < 0 {
		writeSection(&b, "SETUP")
		writeCalls(&b, m.stepper.Setup())
		return b.String()
	}

	out := m.outcomes[m.selected]
	writeSection(&b, "STEP")
	b.WriteString(out.Step.String())
	b.WriteString("\n")
	if out.Step.Note != "" {
		b.WriteString(dimStyle.Render(wordwrap.String(out.Step.Note, width)))
		b.WriteString("\n")
	}
	if out.Err != nil {
		b.WriteString(failedStyle.Render(wordwrap.String("error: "+out.Err.Error(), width)))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("took %s", out.Elapsed)))
	b.WriteString("\n\n")

	writeSection(&b, "CALLS")
	writeCalls(&b, out.Calls)
	b.WriteString("\n")

	writeSection(&b, "SELECTION")
	b.WriteString(wordwrap.String(summarize(out), width))
	b.WriteString("\n\n")

	writeSection(&b, "DOCUMENT")
	b.WriteString(wordwrap.String(out.HTML, width))
	b.WriteString("\n")
	return b.String()
}

func writeSection(b *strings.Builder, title string) {
	b.WriteString(headerStyle.Render(title))
	b.WriteString(colonStyle.Render(":"))
	b.WriteString("\n")
}

func writeCalls(b *strings.Builder, calls []router.Entry) {
	if len(calls) == 0 {
		b.WriteString(dimStyle.Render("(none)"))
		b.WriteString("\n")
		return
	}
	for _, call := range calls {
		b.WriteString("  ")
		b.WriteString(call.String())
		b.WriteString("\n")
	}
}

// summarize renders the parts of a selection worth looking at
func summarize(out transcript.Outcome) string {
	s := out.Selection
	if !s.Valid {
		return "(no selection)"
	}
	parts := []string{"div " + s.DivID}
	if s.SelectionText != "" {
		parts = append(parts, fmt.Sprintf("text %q", s.SelectionText))
	}
	if flags := s.Flags(); len(flags) > 0 {
		parts = append(parts, strings.Join(flags, "+"))
	}
	parts = append(parts, "style "+s.Style.String())
	if s.IsListItem {
		parts = append(parts, "list "+s.List.String())
	}
	if s.Href != "" {
		parts = append(parts, "link "+s.Href)
	}
	if s.Src != "" {
		parts = append(parts, fmt.Sprintf("image %s at %d%%", s.Src, s.ScalePercent))
	}
	if s.InTable {
		parts = append(parts, fmt.Sprintf("table %dx%d at %d,%d", s.RowCount, s.ColCount, s.Row, s.Col))
	}
	return strings.Join(parts, ", ")
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	t := m.stepper.Transcript()
	title := t.Name
	if title == "" {
		title = "transcript"
	}
	status := fmt.Sprintf("%d/%d", len(m.outcomes), len(t.Steps))
	if m.stepper.Finished() {
		status = "done " + status
	}
	header := paddingStyle.Render(headerStyle.Render(strings.ToUpper(title)) + " " + badgeStyle.Render(status))

	stepsStyle, detailStyle := inactiveBorderStyle, inactiveBorderStyle
	if m.activePane == stepsPane {
		stepsStyle = activeBorderStyle
	} else {
		detailStyle = activeBorderStyle
	}

	stepsBox := stepsStyle.
		Width(m.stepsViewport.Width + 2).
		Height(m.stepsViewport.Height + 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("STEPS"), m.stepsViewport.View()))
	detailBox := detailStyle.
		Width(m.detailViewport.Width + 2).
		Height(m.detailViewport.Height + 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("DETAIL"), m.detailViewport.View()))

	body := lipgloss.JoinHorizontal(lipgloss.Top, stepsBox, " ", detailBox)

	help := "n step • a run all • ←/→ select • tab switch pane • ↑/↓ scroll • q quit"
	footer := dimStyle.Render(help)
	if m.err != nil {
		footer = failedStyle.Render("replay stopped: "+m.err.Error()) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, paddingStyle.Render(footer))
}
