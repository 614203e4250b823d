package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bundleworks/hermes-post/compiler"
	"github.com/bundleworks/hermes-post/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	assetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type assetRow struct {
	name  string
	stage pipeline.Stage
	err   error
}

type runModel struct {
	err   error
	rows  []assetRow
	index map[string]int
	spin  spinner.Model
	done  bool
}

type progressMsg pipeline.Event

type runDoneMsg struct {
	err error
}

func newRunModel(names []string) *runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := &runModel{
		spin:  s,
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		m.rows = append(m.rows, assetRow{name: name})
		m.index[name] = i
	}
	return m
}

func (m *runModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case progressMsg:
		if i, ok := m.index[msg.Asset.Name]; ok {
			m.rows[i].stage = msg.Stage
			m.rows[i].err = msg.Err
		}

	case runDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *runModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hermespost"))
	b.WriteString(" compiling bundles to bytecode\n\n")

	for _, row := range m.rows {
		b.WriteString("  ")
		b.WriteString(m.renderStage(row))
		b.WriteString(" ")
		b.WriteString(assetStyle.Render(row.name))
		b.WriteString(" ")
		b.WriteString(m.renderDetail(row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Run failed: %v", m.err)))
		} else {
			b.WriteString(doneStyle.Render("All bundles processed."))
		}
	} else {
		b.WriteString(helpStyle.Render("q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m *runModel) renderStage(row assetRow) string {
	switch row.stage {
	case pipeline.StageDone:
		return doneStyle.Render("✓")
	case pipeline.StageSkipped:
		return skipStyle.Render("-")
	case pipeline.StageFailed:
		return errorStyle.Render("✗")
	default:
		return m.spin.View()
	}
}

func (m *runModel) renderDetail(row assetRow) string {
	switch row.stage {
	case pipeline.StageCompiling:
		return helpStyle.Render("compiling")
	case pipeline.StageComposing:
		return helpStyle.Render("composing maps")
	case pipeline.StageSkipped:
		return skipStyle.Render("bundle not on disk")
	case pipeline.StageFailed:
		return errorStyle.Render(fmt.Sprintf("failed: %v", row.err))
	case pipeline.StageDone:
		return doneStyle.Render("bytecode")
	default:
		return ""
	}
}

func runInteractive(m *manifest, match pipeline.MatchFunc, comp *compiler.Compiler) error {
	assets := m.assetList()

	var names []string
	for _, a := range assets {
		if match == nil || match(a.Name) {
			names = append(names, a.Name)
		}
	}

	model := newRunModel(names)
	prog := tea.NewProgram(model)

	p := pipeline.New(m.config(), match, comp,
		pipeline.Enabled(m.isEnabled()),
		pipeline.WithObserver(func(e pipeline.Event) {
			prog.Send(progressMsg(e))
		}),
	)

	go func() {
		prog.Send(runDoneMsg{err: p.Run(context.Background(), assets)})
	}()

	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(*runModel); ok {
		return fm.err
	}
	return nil
}
