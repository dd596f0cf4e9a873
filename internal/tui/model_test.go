package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/shell"
	"github.com/stretchr/testify/require"
)

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) session.Outcome {
	return session.Success("echo: " + prompt)
}

type fixture struct {
	model      Model
	controller *session.Controller
	mailbox    *shell.Mailbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mailbox := shell.NewMailbox(4)
	controller := session.NewController(nil, nil, echoGenerator{}, nil, mailbox, session.Options{})
	bus := shell.NewPointerBus()
	presenter := shell.NewPresenter(context.Background(), controller, bus, nil)
	t.Cleanup(presenter.Close)

	f := &fixture{model: New(presenter, mailbox, bus), controller: controller, mailbox: mailbox}
	f.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	next, cmd := f.model.Update(msg)
	f.model = next.(Model)
	return cmd
}

func (f *fixture) typeText(text string) {
	for _, r := range text {
		f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (f *fixture) click(rect shell.Rect) {
	f.send(tea.MouseMsg{X: rect.X, Y: rect.Y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func TestClosedPanelShowsOnlyTrigger(t *testing.T) {
	f := newFixture(t)

	require.Zero(t, f.model.layout.panel.Width)
	require.NotZero(t, f.model.layout.trigger.Width)
	require.Contains(t, f.model.View(), "Chat")
	require.NotContains(t, f.model.View(), "Assistant")

	// typing is ignored while the panel is closed
	f.typeText("hi")
	require.Empty(t, f.controller.State().Draft)
}

func TestCtrlOTogglesPanel(t *testing.T) {
	f := newFixture(t)

	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.True(t, f.controller.State().PanelOpen)
	require.Contains(t, f.model.View(), "Hello!")

	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.False(t, f.controller.State().PanelOpen)
}

func TestTypingAndEnterSubmits(t *testing.T) {
	f := newFixture(t)
	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})

	f.typeText("hello")
	require.Equal(t, "hello", f.controller.State().Draft)
	require.True(t, f.model.vm.SendEnabled)
	require.Equal(t, shell.HintEditDraft, f.model.vm.Hint)

	f.send(tea.KeyMsg{Type: tea.KeyEnter})
	f.controller.Wait()
	f.send(stateMsg{})

	state := f.controller.State()
	require.Empty(t, state.Draft)
	require.Equal(t, session.Message{Sender: session.SenderBot, Text: "echo: hello"}, state.Transcript[len(state.Transcript)-1])
	require.Empty(t, f.model.input.Value())
	require.Contains(t, f.model.View(), "echo: hello")
}

func TestEscClearsDraft(t *testing.T) {
	f := newFixture(t)
	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})
	f.typeText("oops")
	require.True(t, f.model.vm.ClearVisible)

	f.send(tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, f.controller.State().Draft)
	require.Empty(t, f.model.input.Value())
}

func TestMicWithoutRecognitionShowsNotice(t *testing.T) {
	f := newFixture(t)
	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})
	f.send(tea.KeyMsg{Type: tea.KeyCtrlT})

	notice := <-f.mailbox.Notices()
	f.send(noticeMsg(notice))
	require.Equal(t, "Speech recognition is not supported on this system.", f.model.vm.Notice)
	require.False(t, f.controller.State().Listening)
}

func TestMouseControls(t *testing.T) {
	f := newFixture(t)

	f.click(f.model.layout.trigger)
	require.True(t, f.controller.State().PanelOpen)

	f.typeText("abc")
	f.click(f.model.layout.clear)
	require.Empty(t, f.controller.State().Draft)

	f.typeText("ping")
	f.click(f.model.layout.send)
	f.controller.Wait()
	require.Len(t, f.controller.State().Transcript, 3)

	f.click(f.model.layout.close)
	require.False(t, f.controller.State().PanelOpen)
}

func TestOutsideClickClosesPanel(t *testing.T) {
	f := newFixture(t)
	f.send(tea.KeyMsg{Type: tea.KeyCtrlO})

	inside := f.model.layout.panel
	f.send(tea.MouseMsg{X: inside.X + 3, Y: inside.Y + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.True(t, f.controller.State().PanelOpen)

	f.send(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.False(t, f.controller.State().PanelOpen)
}

func TestComputeLayout(t *testing.T) {
	l := computeLayout(100, 40, true, true)
	require.Equal(t, shell.Rect{X: 40, Y: 15, Width: 60, Height: 24}, l.panel)
	require.Equal(t, 56, l.innerWidth)
	require.Equal(t, 17, l.viewportHeight)
	require.Equal(t, 39, l.trigger.Y)
	require.Equal(t, l.mic.Y, l.send.Y)
	require.Greater(t, l.clear.X, l.send.X)

	small := computeLayout(10, 5, true, false)
	require.Zero(t, small.panel.Width)
	require.NotZero(t, small.trigger.Width)
}

func TestWaitCommandsReturnAfterMailboxCloses(t *testing.T) {
	f := newFixture(t)
	for len(f.mailbox.States()) > 0 {
		<-f.mailbox.States()
	}
	for len(f.mailbox.Notices()) > 0 {
		<-f.mailbox.Notices()
	}
	f.mailbox.Close()

	require.Nil(t, f.model.waitForNotice()())
	require.Nil(t, f.model.waitForState()())
}
