// Package tui is the terminal front end: the same Entry and Session screens
// as the web portal, driving core.ChatSession from a bubbletea program.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"beelogical.com/chat-portal/internal/auth"
	"beelogical.com/chat-portal/internal/core"
	"beelogical.com/chat-portal/internal/store"
)

// Backend is what the terminal front end needs from the remote service.
type Backend interface {
	core.Asker
	Links(userID string) []core.Link
	LoginURL() string
}

type screen int

const (
	entryScreen screen = iota
	sessionScreen
)

type entryMode int

const (
	entryIdle entryMode = iota
	entryWaiting
	entryPasting
)

const (
	headerHeight = 4
	footerHeight = 12
)

type identityMsg struct {
	identity auth.Identity
}

type callbackErrMsg struct {
	err error
}

type replyMsg struct {
	exchange *core.Exchange
	reply    core.Reply
}

type Options struct {
	// CallbackAddr is where the loopback listener waits for the return
	// redirect, e.g. "127.0.0.1:5173".
	CallbackAddr string
	// Identity skips the Entry screen when set.
	Identity *auth.Identity
}

type Model struct {
	backend Backend
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc

	screen screen
	mode   entryMode
	err    error

	paste    textinput.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	session  *core.ChatSession
	links    []core.Link
	exchange *core.Exchange

	width  int
	height int
	ready  bool
}

func New(backend Backend, opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	paste := textinput.New()
	paste.Placeholder = "Paste the URL you were redirected to"
	paste.CharLimit = 4096

	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = typingStyle

	m := Model{
		backend:  backend,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		paste:    paste,
		input:    input,
		viewport: viewport.New(80, 10),
		spinner:  sp,
		width:    80,
	}
	m.renderer = newRenderer(m.width)

	if opts.Identity != nil {
		m.mount(*opts.Identity)
	}
	return m
}

func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-8, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// mount switches to the Session screen with a fresh conversation.
func (m *Model) mount(identity auth.Identity) {
	m.screen = sessionScreen
	m.mode = entryIdle
	m.err = nil
	m.session = core.NewChatSession(identity, store.NewConversation(), m.backend)
	m.links = m.backend.Links(identity.UserID)
	m.exchange = nil
	m.input.Reset()
	m.input.Focus()
	m.paste.Blur()
	m.refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.paste.Width = max(msg.Width-4, 10)
		m.renderer = newRenderer(msg.Width)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}
		if m.screen == entryScreen {
			return m.updateEntry(msg)
		}
		return m.updateSession(msg)

	case identityMsg:
		m.mount(msg.identity)
		return m, textinput.Blink

	case callbackErrMsg:
		if m.screen == entryScreen {
			m.mode = entryIdle
			if !errors.Is(msg.err, context.Canceled) {
				m.err = msg.err
			}
		}
		return m, nil

	case replyMsg:
		if msg.exchange != m.exchange {
			return m, nil
		}
		msg.exchange.Settle(msg.reply)
		m.exchange = nil
		m.input.Reset()
		m.input.Focus()
		m.refresh()
		return m, textinput.Blink

	case spinner.TickMsg:
		if m.exchange == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == entryPasting {
		switch msg.Type {
		case tea.KeyEsc:
			m.mode = entryIdle
			m.paste.Blur()
			m.paste.Reset()
			return m, nil
		case tea.KeyEnter:
			identity, err := auth.FromURL(strings.TrimSpace(m.paste.Value()))
			if err != nil {
				m.err = err
				return m, nil
			}
			m.mount(identity)
			return m, textinput.Blink
		}
		var cmd tea.Cmd
		m.paste, cmd = m.paste.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		m.cancel()
		return m, tea.Quit
	case "enter":
		if m.mode == entryWaiting {
			return m, nil
		}
		m.mode = entryWaiting
		m.err = nil
		return m, m.waitForCallback()
	case "p":
		m.mode = entryPasting
		m.err = nil
		m.paste.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) waitForCallback() tea.Cmd {
	ctx, addr := m.ctx, m.opts.CallbackAddr
	return func() tea.Msg {
		identity, err := listenForCallback(ctx, addr)
		if err != nil {
			return callbackErrMsg{err: err}
		}
		return identityMsg{identity: identity}
	}
}

func (m Model) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.cancel()
		return m, tea.Quit
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		return m.submit()
	}

	if m.session.Conversation().Pending() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.session.Conversation().SetDraft(m.input.Value())
	return m, cmd
}

// submit dispatches the draft and hands the backend call to a command. The
// reply comes back as a replyMsg and is settled on the update loop.
func (m Model) submit() (tea.Model, tea.Cmd) {
	ex, err := m.session.DispatchText(m.input.Value())
	if err != nil {
		return m, nil
	}
	m.exchange = ex
	m.input.Blur()
	m.refresh()
	return m, tea.Batch(callCmd(m.ctx, ex), m.spinner.Tick)
}

func callCmd(ctx context.Context, ex *core.Exchange) tea.Cmd {
	callCtx := context.WithoutCancel(ctx)
	return func() tea.Msg {
		return replyMsg{exchange: ex, reply: ex.Call(callCtx)}
	}
}

func (m *Model) refresh() {
	if m.session == nil {
		return
	}
	m.viewport.SetContent(m.renderTranscript(m.session.Conversation().Snapshot()))
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript(snap store.Snapshot) string {
	var b strings.Builder
	for _, msg := range snap.Messages {
		switch msg.Role {
		case store.RoleUser:
			line := userMsgStyle.Render(msg.Text)
			b.WriteString(lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, line))
			b.WriteString("\n\n")
		default:
			b.WriteString(botLabelStyle.Render("Bee"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(msg.Text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) View() string {
	if m.screen == entryScreen {
		return m.entryView()
	}
	return m.sessionView()
}

func (m Model) entryView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Welcome to Bee Logical"))
	b.WriteString("\n\n")
	b.WriteString(metaStyle.Render("Login with Zoho by opening:"))
	b.WriteString("\n")
	b.WriteString(linkStyle.Render(m.backend.LoginURL()))
	b.WriteString("\n\n")

	switch m.mode {
	case entryWaiting:
		b.WriteString(typingStyle.Render(fmt.Sprintf("Waiting for the login redirect on http://%s/home ...", m.opts.CallbackAddr)))
		b.WriteString("\n")
	case entryPasting:
		b.WriteString(metaStyle.Render("Return URL:"))
		b.WriteString("\n")
		b.WriteString(m.paste.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter: continue • esc: back"))
		b.WriteString("\n")
	default:
		b.WriteString(hintStyle.Render("enter: wait for login redirect • p: paste return URL • q: quit"))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	return boxStyle.Render(b.String())
}

func (m Model) sessionView() string {
	id := m.session.Identity()
	snap := m.session.Conversation().Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render("👋 Welcome, " + id.DisplayName))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render("Email: " + id.Email))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render("User ID: " + id.UserID))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if snap.Pending {
		b.WriteString(m.spinner.View())
		b.WriteString(typingStyle.Render(" Bot is typing..."))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	for _, link := range m.links {
		style := linkStyle
		if link.Danger {
			style = dangerStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s %s", link.Icon, link.Label)))
		b.WriteString(hintStyle.Render("  " + link.Href))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("enter: ask • ↑/↓: scroll • esc: quit"))
	return b.String()
}

// Run starts the program on the terminal and blocks until it exits.
func Run(backend Backend, opts Options) error {
	m := New(backend, opts)
	defer m.cancel()
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return errors.Wrap(err, "run terminal ui")
	}
	return nil
}
