// Package tui is the terminal chat client. It wraps the controller
// state machine in a bubbletea program: key and stream events become
// controller events, controller effects become commands.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cagkan/chatty"
	"github.com/cagkan/chatty/controller"
)

// Model is the TUI state.
type Model struct {
	client ChatClient

	state   controller.State
	history []chatty.Message
	events  chan controller.Event

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	md       markdown

	ready  bool
	width  int
	height int
	err    error
}

// New returns a chat model opened on the given conversation. An empty
// chatID starts a new chat.
func New(client ChatClient, chatID string) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle = ta.FocusedStyle

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = loadingStyle

	return Model{
		client:   client,
		state:    controller.NewState(chatID),
		events:   make(chan controller.Event),
		textarea: ta,
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		awaitEvent(m.events),
	}
	if id := m.state.ActiveChatID; id != "" {
		cmds = append(cmds, loadHistory(m.client, id))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth := m.width - 4
		vpHeight := m.height - 10
		if vpHeight < 5 {
			vpHeight = 5
		}
		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 2)
		m.md.setWidth(contentWidth - 2)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			cmds = append(cmds, m.dispatch(controller.SubmitRequested{})...)
			m.textarea.Reset()
			m.refreshViewport()
			m.viewport.GotoBottom()
		default:
			if m.state.Phase == controller.Idle {
				m.textarea, cmd = m.textarea.Update(msg)
				cmds = append(cmds, cmd)
				cmds = append(cmds, m.dispatch(controller.DraftChanged{Text: m.textarea.Value()})...)
			}
		}

	case eventMsg:
		cmds = append(cmds, m.dispatch(msg.event)...)
		cmds = append(cmds, awaitEvent(m.events))
		m.refreshViewport()
		m.viewport.GotoBottom()

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.history = msg.conversation.Messages
			m.err = nil
		}
		m.refreshViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.state.Phase == controller.Sending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// dispatch feeds one event through the controller and turns the
// resulting effects into commands. Navigate is handled inline: the
// view follows the relay-assigned conversation id.
func (m *Model) dispatch(event controller.Event) []tea.Cmd {
	var cmds []tea.Cmd
	queue := []controller.Event{event}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		var effects []controller.Effect
		m.state, effects = controller.Update(m.state, next)
		for _, effect := range effects {
			switch e := effect.(type) {
			case controller.SendTurn:
				cmds = append(cmds,
					runTurn(m.client, e.ChatID, e.Message, m.events),
					m.spinner.Tick,
				)
			case controller.Navigate:
				queue = append(queue, controller.RouteChanged{ChatID: e.ChatID})
			case controller.ReloadHistory:
				cmds = append(cmds, loadHistory(m.client, e.ChatID))
			}
		}
	}
	return cmds
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	var sections []string
	for _, msg := range m.state.Visible(m.history) {
		sections = append(sections, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(sections, "\n\n"))
}

func (m *Model) renderMessage(msg controller.DisplayMessage) string {
	switch msg.Role {
	case chatty.RoleUser:
		return userLabelStyle.Render("You") + "\n" + msg.Content
	case chatty.RoleAssistant:
		return assistantLabelStyle.Render("Chatty") + "\n" + m.md.render(msg.Content)
	case chatty.RoleNotice:
		return noticeStyle.Render(msg.Content)
	default:
		return msg.Content
	}
}

func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	contentWidth := m.width - 4

	title := titleStyle.Render("✦ Chatty")
	if id := m.state.ActiveChatID; id != "" {
		title += subtitleStyle.Render("  •  " + id)
	}
	header := headerStyle.Width(contentWidth).Render(title)

	var input string
	if m.state.Phase == controller.Sending {
		input = loadingStyle.Render(m.spinner.View() + " Chatty is thinking...")
	} else {
		input = m.textarea.View()
	}
	inputPanel := inputPanelStyle.Width(contentWidth).Render(input)

	sections := []string{
		header,
		m.viewport.View(),
		inputPanel,
		m.statusBar(contentWidth),
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("  error: %v", m.err)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusBar(width int) string {
	shortcuts := []string{
		statusKeyStyle.Render("Enter") + " Send",
		statusKeyStyle.Render("Esc") + " Quit",
		statusKeyStyle.Render("↑↓") + " Scroll",
	}
	return statusBarStyle.Width(width).
		Align(lipgloss.Center).
		Render(strings.Join(shortcuts, "  │  "))
}
