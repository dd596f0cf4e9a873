// Package tui renders the chat widget in the terminal and feeds its input to the shell presenter.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/shell"
)

const (
	maxPanelWidth  = 60
	maxPanelHeight = 24
	minPanelWidth  = 24
	// header, status, input, buttons, hint
	chromeLines = 5

	triggerLabel = " Chat "
	micLabel     = "[ Mic]"
	stopLabel    = "[Stop]"
	sendLabel    = "[Send]"
	clearLabel   = "[Clear]"
	closeLabel   = "[x]"
)

type stateMsg struct{}

type noticeMsg session.Notice

// Model is the bubbletea program model.
type Model struct {
	presenter *shell.Presenter
	mailbox   *shell.Mailbox
	pointer   *shell.PointerBus

	vm         shell.ViewModel
	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	rows       int

	width  int
	height int
	layout layout
}

// layout holds the clickable regions of the last frame.
type layout struct {
	panel   shell.Rect
	trigger shell.Rect
	close   shell.Rect
	mic     shell.Rect
	send    shell.Rect
	clear   shell.Rect

	innerWidth     int
	viewportHeight int
}

// New builds the model. pointer receives presses that do not land on a control.
func New(presenter *shell.Presenter, mailbox *shell.Mailbox, pointer *shell.PointerBus) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	m := Model{
		presenter:  presenter,
		mailbox:    mailbox,
		pointer:    pointer,
		input:      input,
		transcript: viewport.New(maxPanelWidth, maxPanelHeight),
		spinner:    sp,
		width:      80,
		height:     30,
	}
	m.refresh()
	return m
}

// Program wraps the model in a full-screen program with mouse support.
func Program(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForState(), m.waitForNotice(), m.spinner.Tick, textinput.Blink)
}

// The wait commands return nil once the mailbox closes.
func (m Model) waitForState() tea.Cmd {
	states, done := m.mailbox.States(), m.mailbox.Done()
	return func() tea.Msg {
		select {
		case <-states:
			return stateMsg{}
		case <-done:
			return nil
		}
	}
}

func (m Model) waitForNotice() tea.Cmd {
	notices, done := m.mailbox.Notices(), m.mailbox.Done()
	return func() tea.Msg {
		select {
		case notice := <-notices:
			return noticeMsg(notice)
		case <-done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case stateMsg:
		m.refresh()
		return m, m.waitForState()

	case noticeMsg:
		m.presenter.Notify(session.Notice(msg))
		m.refresh()
		return m, m.waitForNotice()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+o":
		m.presenter.TriggerClicked()
		m.refresh()
		return m, nil
	}

	if !m.vm.PanelOpen {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		m.presenter.KeyPressed(shell.Key{Name: "enter"})
	case "ctrl+t":
		m.presenter.MicClicked()
	case "esc":
		m.presenter.ClearClicked()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	default:
		if !m.vm.InputEnabled {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != m.vm.Draft {
			m.presenter.DraftEdited(m.input.Value())
		}
		m.refresh()
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	at := shell.Point{X: msg.X, Y: msg.Y}
	switch {
	case m.layout.trigger.Contains(at):
		m.presenter.TriggerClicked()
	case m.layout.close.Contains(at):
		m.presenter.CloseClicked()
	case m.layout.mic.Contains(at):
		if m.vm.MicEnabled {
			m.presenter.MicClicked()
		}
	case m.layout.send.Contains(at):
		m.presenter.SendClicked()
	case m.layout.clear.Contains(at):
		m.presenter.ClearClicked()
	default:
		m.pointer.Publish(at)
	}
	m.refresh()
	return m, nil
}

// refresh pulls a fresh snapshot so a stale queued state can never roll the draft back.
func (m *Model) refresh() {
	m.vm = m.presenter.View(m.presenter.Snapshot())
	m.layout = computeLayout(m.width, m.height, m.vm.PanelOpen, m.vm.ClearVisible)

	if m.input.Value() != m.vm.Draft {
		m.input.SetValue(m.vm.Draft)
		m.input.CursorEnd()
	}
	m.input.Placeholder = m.vm.Placeholder
	m.input.Width = max(m.layout.innerWidth-lipgloss.Width(m.input.Prompt)-1, 1)
	if m.vm.InputEnabled {
		m.input.Focus()
	} else {
		m.input.Blur()
	}

	m.transcript.Width = max(m.layout.innerWidth, 1)
	m.transcript.Height = max(m.layout.viewportHeight, 1)
	m.transcript.SetContent(renderRows(m.vm.Rows, m.transcript.Width))
	if len(m.vm.Rows) != m.rows {
		m.rows = len(m.vm.Rows)
		m.transcript.GotoBottom()
	}

	m.presenter.SetLayout(m.layout.panel, m.layout.trigger)
}

func computeLayout(width, height int, open bool, clearVisible bool) layout {
	triggerWidth := lipgloss.Width(triggerLabel)
	l := layout{
		trigger: shell.Rect{X: width - triggerWidth, Y: height - 1, Width: triggerWidth, Height: 1},
	}
	if !open {
		return l
	}

	outerWidth := min(maxPanelWidth, width)
	outerHeight := min(maxPanelHeight, height-1)
	if outerWidth < minPanelWidth || outerHeight < chromeLines+3 {
		return l
	}

	l.panel = shell.Rect{X: width - outerWidth, Y: height - 1 - outerHeight, Width: outerWidth, Height: outerHeight}
	l.innerWidth = outerWidth - 4
	l.viewportHeight = outerHeight - 2 - chromeLines

	innerX := l.panel.X + 2
	innerY := l.panel.Y + 1
	buttonsY := innerY + 1 + l.viewportHeight + 2

	l.close = shell.Rect{X: innerX + l.innerWidth - lipgloss.Width(closeLabel), Y: innerY, Width: lipgloss.Width(closeLabel), Height: 1}
	l.mic = shell.Rect{X: innerX, Y: buttonsY, Width: lipgloss.Width(micLabel), Height: 1}
	l.send = shell.Rect{X: l.mic.X + l.mic.Width + 1, Y: buttonsY, Width: lipgloss.Width(sendLabel), Height: 1}
	if clearVisible {
		l.clear = shell.Rect{X: l.send.X + l.send.Width + 1, Y: buttonsY, Width: lipgloss.Width(clearLabel), Height: 1}
	}
	return l
}

func renderRows(rows []shell.Row, width int) string {
	if width < 4 {
		return ""
	}
	bubbleMax := max(width*4/5, 4)

	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		style, align := botStyle, lipgloss.Left
		if row.FromUser {
			style, align = userStyle, lipgloss.Right
		}
		bubbleWidth := min(lipgloss.Width(row.Text)+2, bubbleMax)
		bubble := style.Padding(0, 1).Width(bubbleWidth).Render(row.Text)
		rendered = append(rendered, lipgloss.PlaceHorizontal(width, align, bubble))
	}
	return strings.Join(rendered, "\n\n")
}

func (m Model) View() string {
	trigger := triggerStyle.Render(triggerLabel)
	if m.layout.panel.Width == 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Right, lipgloss.Bottom, trigger)
	}

	inner := m.layout.innerWidth
	fit := lipgloss.NewStyle().MaxWidth(inner)

	title := titleStyle.Render("Assistant")
	header := title + strings.Repeat(" ", max(inner-lipgloss.Width(title)-lipgloss.Width(closeLabel), 1)) + buttonStyle.Render(closeLabel)

	status := ""
	switch {
	case m.vm.Typing:
		status = m.spinner.View() + dimStyle.Render(" Assistant is typing...")
	case m.vm.Notice != "":
		status = noticeStyle.Render(m.vm.Notice)
	}

	mic := buttonStyle.Render(micLabel)
	switch {
	case !m.vm.MicEnabled:
		mic = disabledStyle.Render(micLabel)
	case m.vm.Listening:
		mic = activeButtonStyle.Render(stopLabel)
	}
	send := disabledStyle.Render(sendLabel)
	if m.vm.SendEnabled {
		send = buttonStyle.Render(sendLabel)
	}
	buttons := mic + " " + send
	if m.vm.ClearVisible {
		buttons += " " + buttonStyle.Render(clearLabel)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		fit.Render(header),
		m.transcript.View(),
		fit.Render(status),
		fit.Render(m.input.View()),
		fit.Render(buttons),
		fit.Render(dimStyle.Render(m.vm.Hint)),
	)
	panel := panelStyle.
		Width(inner + 2).
		Height(m.layout.panel.Height - 2).
		Render(content)

	block := lipgloss.JoinVertical(lipgloss.Right, panel, trigger)
	return lipgloss.Place(m.width, m.height, lipgloss.Right, lipgloss.Bottom, block)
}
