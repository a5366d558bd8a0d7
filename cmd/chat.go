package cmd

import (
	"context"
	"fmt"
	"strings"

	"taxchat/internal"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var chatResume string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant interactively",
	Long: `Open the interactive chat.

Your message appears immediately while the assistant answers in the
background. Keys:
  enter       send
  ctrl+n      start a new chat
  ctrl+t      toggle light/dark theme
  esc/ctrl+c  quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newAppEnv()
		defer env.Close()

		if err := env.requireAuth(); err != nil {
			return err
		}

		ctx := context.Background()
		env.controller.LoadConversationList(ctx)
		if chatResume != "" {
			if err := env.controller.OpenConversation(ctx, chatResume); err != nil {
				return fmt.Errorf("could not resume conversation %s: %w", chatResume, err)
			}
		}

		model := newChatModel(env)
		program := tea.NewProgram(model, tea.WithAltScreen())
		_, err := program.Run()
		return err
	},
}

// chatTheme is a small palette the TUI renders with. The choice is
// persisted as a preference.
type chatTheme struct {
	name      string
	user      lipgloss.Color
	assistant lipgloss.Color
	muted     lipgloss.Color
	errColor  lipgloss.Color
}

var (
	darkTheme  = chatTheme{name: "dark", user: "212", assistant: "42", muted: "240", errColor: "196"}
	lightTheme = chatTheme{name: "light", user: "90", assistant: "22", muted: "245", errColor: "124"}
)

// sendDoneMsg reports a finished round trip. The controller already
// reconciled its own state; the view just refreshes from it.
type sendDoneMsg struct {
	err error
}

type chatModel struct {
	env  *appEnv
	ctrl *internal.Controller

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	history  []internal.Message
	inflight int
	errText  string
	theme    chatTheme

	width  int
	height int
	ready  bool
}

func newChatModel(env *appEnv) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask about the tax reform..."
	ta.Focus()
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	theme := darkTheme
	if env.store != nil {
		var stored string
		if ok, err := env.store.GetJSON(internal.KeyTheme, &stored); err == nil && ok && stored == lightTheme.name {
			theme = lightTheme
		}
	}

	return chatModel{
		env:     env,
		ctrl:    env.controller,
		input:   ta,
		spinner: sp,
		history: env.controller.Messages(),
		theme:   theme,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - m.input.Height() - 5
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.input.SetWidth(msg.Width - 2)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+n":
			m.ctrl.StartNewChat()
			m.history = m.ctrl.Messages()
			m.errText = ""
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, nil
		case "ctrl+t":
			m = m.toggleTheme()
			m.viewport.SetContent(m.renderHistory())
			return m, nil
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.errText = ""
			// Optimistic echo: the user's line renders before the
			// round trip resolves. Overlapping sends are allowed;
			// the last one to resolve wins.
			m.history = append(m.history, internal.Message{Role: internal.RoleUser, Content: text})
			m.inflight++
			m.viewport.SetContent(m.renderHistory())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)
		}

	case sendDoneMsg:
		m.inflight--
		if m.inflight < 0 {
			m.inflight = 0
		}
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		// The controller keeps the optimistic message even on failure.
		m.history = m.ctrl.Messages()
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.inflight > 0 {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m chatModel) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: m.ctrl.SendMessage(context.Background(), text)}
	}
}

func (m chatModel) toggleTheme() chatModel {
	if m.theme.name == darkTheme.name {
		m.theme = lightTheme
	} else {
		m.theme = darkTheme
	}
	if m.env.store != nil {
		if err := m.env.store.SetJSON(internal.KeyTheme, m.theme.name); err != nil {
			internal.LogWarn("could not persist theme preference: %v", err)
		}
	}
	return m
}

func (m chatModel) renderHistory() string {
	var sb strings.Builder
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	body := lipgloss.NewStyle().Width(width)
	userStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.user)
	assistantStyle := lipgloss.NewStyle().Bold(true).Foreground(m.theme.assistant)
	sourceStyle := lipgloss.NewStyle().Foreground(m.theme.muted).Italic(true)

	for _, msg := range m.history {
		if msg.Role == internal.RoleUser {
			sb.WriteString(userStyle.Render("You") + "\n")
		} else {
			sb.WriteString(assistantStyle.Render("Assistant") + "\n")
		}
		sb.WriteString(body.Render(msg.Content))
		sb.WriteString("\n")
		for _, src := range msg.Sources {
			sb.WriteString(sourceStyle.Render(fmt.Sprintf("  ↳ %s: %s", src.Document, src.Excerpt)))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	muted := lipgloss.NewStyle().Foreground(m.theme.muted)
	header := muted.Render(m.headerLine())

	status := ""
	if m.inflight > 0 {
		status = m.spinner.View() + muted.Render(" thinking...")
	}
	if m.errText != "" {
		status = lipgloss.NewStyle().Foreground(m.theme.errColor).Render("✗ " + m.errText)
	}

	help := muted.Render("enter send · ctrl+n new chat · ctrl+t theme · esc quit")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, m.viewport.View(), status, m.input.View(), help)
}

func (m chatModel) headerLine() string {
	id := m.ctrl.ChatID()
	if id == "" {
		return "taxchat: new conversation"
	}
	return "taxchat: conversation " + id
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "Resume an existing conversation by id")
}
