// Package tui provides interactive terminal UI components.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/shelfscan/internal/scanner"
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

type outcomeMsg scanner.Outcome

type clearMsg struct{}

// ScanNotifier bridges pipeline outcomes into the scan view. Outcomes
// are buffered so the pipeline never blocks on the UI.
type ScanNotifier struct {
	msgs chan tea.Msg
}

// NewScanNotifier creates a notifier for the scan view.
func NewScanNotifier() *ScanNotifier {
	return &ScanNotifier{msgs: make(chan tea.Msg, 16)}
}

func (n *ScanNotifier) Announce(outcome scanner.Outcome) {
	n.msgs <- outcomeMsg(outcome)
}

func (n *ScanNotifier) Clear() {
	n.msgs <- clearMsg{}
}

type scanStyles struct {
	prompt    lipgloss.Style
	success   lipgloss.Style
	duplicate lipgloss.Style
	notFound  lipgloss.Style
	failure   lipgloss.Style
	idle      lipgloss.Style
	help      lipgloss.Style
}

func newScanStyles() scanStyles {
	return scanStyles{
		prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("114")),
		duplicate: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		notFound: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		failure: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203")),
		idle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

type scanModel struct {
	ctx      context.Context
	pipeline *scanner.Pipeline
	notifier *ScanNotifier
	input      textinput.Model
	styles     scanStyles
	status     string
	statusKind scanner.OutcomeKind
	scanned    int
	quitting   bool
}

func newScanModel(ctx context.Context, pipeline *scanner.Pipeline, notifier *ScanNotifier) scanModel {
	input := textinput.New()
	input.Placeholder = "scan or type an ISBN"
	input.Focus()
	input.CharLimit = 32
	input.Width = 40

	return scanModel{
		ctx:      ctx,
		pipeline: pipeline,
		notifier: notifier,
		input:    input,
		styles:   newScanStyles(),
	}
}

func waitForNotification(msgs chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-msgs
	}
}

func (m scanModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForNotification(m.notifier.msgs))
}

func (m scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			raw := m.input.Value()
			m.input.SetValue("")
			if raw != "" {
				m.pipeline.HandleScan(m.ctx, raw)
			}
			return m, nil
		}

	case outcomeMsg:
		outcome := scanner.Outcome(msg)
		m.status = outcome.Message()
		m.statusKind = outcome.Kind
		if outcome.Kind == scanner.OutcomeSuccess {
			m.scanned++
		}
		return m, waitForNotification(m.notifier.msgs)

	case clearMsg:
		m.status = ""
		return m, waitForNotification(m.notifier.msgs)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m scanModel) View() string {
	if m.quitting {
		return fmt.Sprintf("Added %d books.\n", m.scanned)
	}

	status := m.styles.idle.Render("Ready to scan")
	if m.status != "" {
		status = m.styleForStatus().Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.prompt.Render("Scan books"),
		m.input.View(),
		"",
		status,
		"",
		m.styles.help.Render("enter: submit  esc: quit"),
	) + "\n"
}

func (m scanModel) styleForStatus() lipgloss.Style {
	switch m.statusKind {
	case scanner.OutcomeSuccess:
		return m.styles.success
	case scanner.OutcomeDuplicate:
		return m.styles.duplicate
	case scanner.OutcomeNotFound:
		return m.styles.notFound
	default:
		return m.styles.failure
	}
}

// RunScanView runs the interactive scan loop until the user quits.
// The notifier must be the one wired into the pipeline.
func RunScanView(ctx context.Context, pipeline *scanner.Pipeline, notifier *ScanNotifier) error {
	model := newScanModel(ctx, pipeline, notifier)
	if _, err := runProgram(model); err != nil {
		return fmt.Errorf("scan view failed: %w", err)
	}
	pipeline.Wait()
	return nil
}
