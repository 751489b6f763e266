package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/taskdeck/taskdeck/internal/api"
)

// ---------- messages sent from the chat loop via program.Send() ----------

type readInputMsg struct{}

type inputResult struct {
	text string
	err  error
}

type userMsg struct{ text string }
type sendStartMsg struct{}
type assistantMsg struct{ text string }
type systemMsg struct{ text string }
type errorMsg struct{ text string }
type conversationMsg struct{ id int64 }
type taskTableMsg struct{ tasks []api.Task }
type chatDoneMsg struct{ err error }
type sendTickMsg struct{}

type pickOption struct {
	label  string
	detail string
}

type pickMsg struct {
	title   string
	options []pickOption
	replyCh chan int
}

// ChatConfig carries server/user info for the welcome page and status bar.
type ChatConfig struct {
	Version     string
	Server      string
	UserEmail   string
	ShowWelcome bool
}

// ---------- styles ----------

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// spinnerStyle: orange while a request is outbound
	spinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	dotRunningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	// Status bar
	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	statusBarBgStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235"))

	statusServerStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("2")).
				Bold(true)

	// Welcome box
	welcomeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2")).
				Bold(true)

	welcomeLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("8"))

	welcomeValueStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252"))

	welcomeHintStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	// ── task table: ✓ / ○ marks ──────────────────────────────────────────
	taskHeaderStyle = lipgloss.NewStyle().
			Bold(true)

	taskDoneMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("2"))

	taskOpenMarkStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	taskDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Strikethrough(true)

	taskOpenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Conversation picker: rounded border, blue-purple
	pickerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true)

	pickerItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	pickerHintStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))
)

// pulseSpinner is the braille-free pulse used while a reply is pending.
var pulseSpinner = spinner.Spinner{
	Frames: []string{"·", "✢", "✳", "✶", "✻", "✽", "✻", "✶", "✳", "✢"},
	FPS:    120 * time.Millisecond,
}

// ---------- Model ----------

// Model is the bubbletea model managing the full chat TUI state.
type Model struct {
	textinput textinput.Model
	spinner   spinner.Model
	width     int
	height    int
	sending   bool
	sendStart time.Time
	inputMode bool

	picking  bool
	pickCh   chan int
	pickOpts []pickOption
	pickSel  int

	menuItems []SlashMenuItem
	menuSel   int

	inputCh chan inputResult

	noiseDropCount int

	quitting bool

	conversationID int64

	cancelSendFn func() bool

	cfg ChatConfig

	mdRenderer      *glamour.TermRenderer
	mdRendererWidth int
}

// NewModel creates the initial bubbletea model.
func NewModel(inputCh chan inputResult, cfg ChatConfig) Model {
	ti := textinput.New()
	ti.Prompt = "❯ "
	ti.CharLimit = 4096

	sp := spinner.New()
	sp.Spinner = pulseSpinner
	sp.Style = spinnerStyle

	return Model{
		textinput: ti,
		spinner:   sp,
		inputCh:   inputCh,
		cfg:       cfg,
	}
}

func sendTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return sendTickMsg{} })
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.cfg.ShowWelcome {
		cmds = append(cmds, tea.Println(renderWelcome(m.cfg)))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textinput.Width = m.width - 4

	case spinner.TickMsg:
		if m.sending {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		s := msg.String()
		if isTerminalNoiseKey(s) {
			m.noiseDropCount = 4
			return m, nil
		}
		if s == "esc" && m.inputMode {
			if m.menuItems != nil {
				m.menuItems = nil
				m.menuSel = 0
				return m, nil
			}
			m.noiseDropCount = 4
			return m, nil
		}
		if m.noiseDropCount > 0 && len(s) <= 2 {
			m.noiseDropCount--
			return m, nil
		}
		switch s {
		case "ctrl+c":
			if m.picking && m.pickCh != nil {
				close(m.pickCh)
				m.picking = false
				m.pickCh = nil
				cmds = append(cmds, tea.Println(systemStyle.Render("  [cancelled]")))
				return m, tea.Batch(cmds...)
			}
			if m.inputMode {
				m.inputCh <- inputResult{err: fmt.Errorf("interrupted")}
				m.inputMode = false
				m.textinput.Blur()
			}
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.picking && m.pickCh != nil {
				if m.pickSel >= 0 && m.pickSel < len(m.pickOpts) {
					m.pickCh <- m.pickSel
				}
				m.picking = false
				m.pickCh = nil
				return m, nil
			}
			if m.inputMode {
				text := strings.TrimSpace(m.textinput.Value())
				if len(m.menuItems) > 0 {
					text = m.menuItems[m.menuSel].Name
				}
				m.textinput.SetValue("")
				m.menuItems = nil
				m.menuSel = 0
				m.inputCh <- inputResult{text: text}
				m.inputMode = false
				m.textinput.Blur()
			}
			return m, nil
		case "tab":
			if m.inputMode && len(m.menuItems) > 0 {
				m.textinput.SetValue(m.menuItems[m.menuSel].Name + " ")
				m.textinput.CursorEnd()
				m.menuItems = nil
				m.menuSel = 0
				return m, nil
			}
		case "up":
			if m.picking && m.pickSel > 0 {
				m.pickSel--
			} else if m.inputMode && len(m.menuItems) > 0 && m.menuSel > 0 {
				m.menuSel--
			}
			return m, nil
		case "down":
			if m.picking && m.pickSel < len(m.pickOpts)-1 {
				m.pickSel++
			} else if m.inputMode && m.menuSel < len(m.menuItems)-1 {
				m.menuSel++
			}
			return m, nil
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if m.picking && m.pickCh != nil {
				idx := int(s[0]-'0') - 1
				if idx >= 0 && idx < len(m.pickOpts) {
					m.pickCh <- idx
					m.picking = false
					m.pickCh = nil
				}
				return m, nil
			}
		case "esc":
			if m.picking && m.pickCh != nil {
				close(m.pickCh)
				m.picking = false
				m.pickCh = nil
				cmds = append(cmds, tea.Println(systemStyle.Render("  [cancelled]")))
				return m, tea.Batch(cmds...)
			}
			if m.sending && m.cancelSendFn != nil {
				m.cancelSendFn()
				return m, nil
			}
		}

		if m.inputMode && !m.picking {
			if isControlKeyMsg(msg.String()) {
				return m, nil
			}
			var cmd tea.Cmd
			m.textinput, cmd = m.textinput.Update(msg)
			cmds = append(cmds, cmd)
			m.syncSlashMenu()
		}

	// ---------- custom messages from the chat loop ----------

	case readInputMsg:
		m.inputMode = true
		m.textinput.Focus()

	case userMsg:
		cmds = append(cmds, tea.Println(userStyle.Render("You: "+msg.text)))

	case sendStartMsg:
		m.sending = true
		m.sendStart = time.Now()
		cmds = append(cmds, m.spinner.Tick, sendTickCmd())

	case sendTickMsg:
		if m.sending {
			cmds = append(cmds, sendTickCmd())
		}
		return m, tea.Batch(cmds...)

	case assistantMsg:
		m.sending = false
		rendered := m.renderMarkdown(msg.text)
		cmds = append(cmds, tea.Println(rendered))

	case systemMsg:
		cmds = append(cmds, tea.Println(systemStyle.Render(msg.text)))

	case errorMsg:
		m.sending = false
		cmds = append(cmds, tea.Println(errorStyle.Render("Error: "+msg.text)))

	case conversationMsg:
		m.conversationID = msg.id

	case taskTableMsg:
		cmds = append(cmds, tea.Println(renderTaskTable(msg.tasks)))

	case pickMsg:
		m.picking = true
		m.pickCh = msg.replyCh
		m.pickOpts = msg.options
		m.pickSel = 0
		cmds = append(cmds, tea.Println(renderPickerBlock(msg.title, msg.options)))

	case chatDoneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

// syncSlashMenu recomputes the autocomplete menu from the input value.
func (m *Model) syncSlashMenu() {
	val := m.textinput.Value()
	if !strings.HasPrefix(val, "/") {
		m.menuItems = nil
		m.menuSel = 0
		return
	}
	m.menuItems = filterSlashItems(BuiltinSlashCommands(), val)
	if m.menuSel >= len(m.menuItems) {
		m.menuSel = 0
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var live string
	if m.sending {
		elapsed := int(time.Since(m.sendStart).Seconds())
		live = dotRunningStyle.Render(m.spinner.View()) + hintStyle.Render(" Thinking…") +
			hintStyle.Render(fmt.Sprintf("  %ds · esc to cancel", elapsed))
	}

	var input string
	switch {
	case m.picking:
		sel := ""
		if m.pickSel >= 0 && m.pickSel < len(m.pickOpts) {
			sel = fmt.Sprintf(" [%d. %s]", m.pickSel+1, m.pickOpts[m.pickSel].label)
		}
		input = pickerHintStyle.Render("↑↓ select  1-9 pick  enter confirm  esc cancel" + sel)
	case m.inputMode:
		input = m.textinput.View()
		if len(m.menuItems) > 0 {
			input += "\n" + renderSlashMenu(m.menuItems, m.menuSel, m.width)
		}
	default:
		input = systemStyle.Render("❯")
	}

	bar := m.renderStatusBar()

	var parts []string
	if live != "" {
		parts = append(parts, live)
	}
	parts = append(parts, input, bar)
	return strings.Join(parts, "\n")
}

// renderStatusBar renders the bottom separator + server/user/conversation bar.
func (m *Model) renderStatusBar() string {
	server := serverLabel(m.cfg.Server)
	if server == "" {
		server = "unknown"
	}
	status := statusServerStyle.Render(" " + server)
	if m.cfg.UserEmail != "" {
		status += statusBarStyle.Render(" │ " + m.cfg.UserEmail)
	}
	conv := "new conversation"
	if m.conversationID != 0 {
		conv = fmt.Sprintf("conversation #%d", m.conversationID)
	}
	status += statusBarStyle.Render(" │ " + conv)
	if m.sending {
		elapsed := int(time.Since(m.sendStart).Seconds())
		status += statusBarStyle.Render(fmt.Sprintf(" │ sending (%ds)", elapsed))
	}
	return separatorStyle.Width(m.width).Render(strings.Repeat("─", m.width)) + "\n" +
		statusBarBgStyle.Width(m.width).Render(status)
}

// ---------- markdown rendering ----------

func (m *Model) getMarkdownRenderer() *glamour.TermRenderer {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := width - 4
	if m.mdRenderer != nil && m.mdRendererWidth == wrapWidth {
		return m.mdRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return nil
	}
	m.mdRenderer = r
	m.mdRendererWidth = wrapWidth
	return r
}

func (m *Model) renderMarkdown(text string) string {
	r := m.getMarkdownRenderer()
	if r == nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// ---------- welcome page ----------

func renderWelcome(cfg ChatConfig) string {
	deck := []string{
		"▛▀▀▀▀▀▜",
		"▌ ✓ ─ ▐",
		"▌ ✓ ─ ▐",
		"▌ ○ ─ ▐",
		"▙▄▄▄▄▄▟",
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	info := []string{
		welcomeLabelStyle.Render("Server: ") + welcomeValueStyle.Render(serverLabel(cfg.Server)),
		welcomeLabelStyle.Render("User:   ") + welcomeValueStyle.Render(cfg.UserEmail),
		"",
		welcomeHintStyle.Render("Manage your tasks in plain words, e.g. \"add buy milk\"."),
		welcomeHintStyle.Render("/tasks shows the list, /new starts over, /help lists commands."),
	}

	var lines []string
	deckWidth := 10
	for i := 0; i < len(deck) || i < len(info); i++ {
		left := ""
		if i < len(deck) {
			left = deck[i]
		}
		right := ""
		if i < len(info) {
			right = info[i]
		}
		visualWidth := lipgloss.Width(left)
		padding := deckWidth - visualWidth
		if padding < 0 {
			padding = 0
		}
		lines = append(lines, left+strings.Repeat(" ", padding)+right)
	}

	inner := strings.Join(lines, "\n")
	title := welcomeTitleStyle.Render(fmt.Sprintf("taskdeck %s", version))
	box := welcomeBorderStyle.Render(inner)
	return title + "\n" + box
}

// ---------- task table ----------

// renderTaskTable renders the /tasks snapshot printed to scrollback.
//
//	Tasks · 1 open · 2 total
//	  ○ #13 write report
//	  ✓ #12 buy milk
func renderTaskTable(tasks []api.Task) string {
	if len(tasks) == 0 {
		return systemStyle.Render("No tasks yet. Try \"add buy milk\".")
	}

	open := 0
	for _, t := range tasks {
		if !t.Completed {
			open++
		}
	}

	lines := make([]string, 0, len(tasks)+1)
	lines = append(lines, taskHeaderStyle.Render(fmt.Sprintf("Tasks · %d open · %d total", open, len(tasks))))
	for _, t := range tasks {
		title := runewidth.Truncate(t.Title, 60, "…")
		if t.Completed {
			lines = append(lines, taskDoneMarkStyle.Render("  ✓ ")+taskDoneStyle.Render(fmt.Sprintf("#%d %s", t.ID, title)))
		} else {
			lines = append(lines, taskOpenMarkStyle.Render("  ○ ")+taskOpenStyle.Render(fmt.Sprintf("#%d %s", t.ID, title)))
		}
	}
	return strings.Join(lines, "\n")
}

// ---------- conversation picker ----------

// renderPickerBlock renders the picker with numbered options.
func renderPickerBlock(title string, opts []pickOption) string {
	var lines []string
	lines = append(lines, pickerTitleStyle.Render("? "+title))
	for i, o := range opts {
		line := pickerItemStyle.Render(fmt.Sprintf("  %d. %s", i+1, o.label))
		if o.detail != "" {
			line += "  " + hintStyle.Render(o.detail)
		}
		lines = append(lines, line)
	}
	return pickerBorderStyle.Render(strings.Join(lines, "\n"))
}

// conversationOption builds the picker row for one stored conversation.
func conversationOption(c api.Conversation) pickOption {
	label := strings.TrimSpace(c.Title)
	if label == "" {
		label = fmt.Sprintf("Conversation #%d", c.ID)
	}
	label = runewidth.Truncate(label, 48, "…")
	return pickOption{label: label, detail: relativeAge(c.UpdatedAt.Time)}
}

// ---------- display helpers ----------

// serverLabel strips the scheme and trailing slash for compact display.
func serverLabel(raw string) string {
	s := strings.TrimPrefix(raw, "https://")
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimSuffix(s, "/")
}

// relativeAge formats how long ago t was, in the coarsest sensible unit.
func relativeAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// ---------- key event helpers ----------

func isTerminalNoiseKey(s string) bool {
	if strings.Contains(s, ";rgb:") || strings.HasPrefix(s, "]") || strings.HasPrefix(s, "alt+]") {
		return true
	}
	if (strings.HasSuffix(s, "M") || strings.HasSuffix(s, "m")) && strings.Contains(s, ";") {
		return true
	}
	if strings.HasPrefix(s, "[<") || strings.HasPrefix(s, "alt+[<") {
		return true
	}
	if strings.HasPrefix(s, "[?") || strings.HasPrefix(s, "alt+[?") {
		return true
	}
	if len(s) > 1 && s[0] == '[' && s[1] >= '0' && s[1] <= '9' {
		return true
	}
	return false
}

func isControlKeyMsg(s string) bool {
	for _, r := range s {
		if r == '\x1b' || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return true
		}
	}
	return false
}
