package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/api"
)

func TestServerLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://localhost:8000", "localhost:8000"},
		{"https://deck.example.com/", "deck.example.com"},
		{"deck.example.com", "deck.example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := serverLabel(tc.in); got != tc.want {
			t.Errorf("serverLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRelativeAge(t *testing.T) {
	now := time.Now()
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tc := range cases {
		if got := relativeAge(tc.in); got != tc.want {
			t.Errorf("relativeAge(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestConversationOption_TitleFallback(t *testing.T) {
	opt := conversationOption(api.Conversation{ID: 7})
	if opt.label != "Conversation #7" {
		t.Errorf("expected fallback label, got %q", opt.label)
	}

	opt = conversationOption(api.Conversation{ID: 7, Title: "  groceries  "})
	if opt.label != "groceries" {
		t.Errorf("expected trimmed title, got %q", opt.label)
	}
}

func TestConversationOption_TruncatesLongTitle(t *testing.T) {
	opt := conversationOption(api.Conversation{ID: 1, Title: strings.Repeat("x", 100)})
	if !strings.HasSuffix(opt.label, "…") {
		t.Errorf("expected truncated label, got %q", opt.label)
	}
	if len(opt.label) > 60 {
		t.Errorf("label too long: %d bytes", len(opt.label))
	}
}

func TestRenderTaskTable(t *testing.T) {
	out := renderTaskTable([]api.Task{
		{ID: 12, Title: "buy milk", Completed: true},
		{ID: 13, Title: "write report"},
	})

	if !strings.Contains(out, "1 open · 2 total") {
		t.Errorf("expected counts in header, got %q", out)
	}
	if !strings.Contains(out, "#12 buy milk") || !strings.Contains(out, "#13 write report") {
		t.Errorf("expected both rows, got %q", out)
	}
}

func TestRenderTaskTable_Empty(t *testing.T) {
	out := renderTaskTable(nil)
	if !strings.Contains(out, "No tasks yet") {
		t.Errorf("expected empty state, got %q", out)
	}
}

func TestRenderWelcome(t *testing.T) {
	out := renderWelcome(ChatConfig{
		Version:   "1.2.0",
		Server:    "http://localhost:8000",
		UserEmail: "ada@example.com",
	})
	if !strings.Contains(out, "taskdeck 1.2.0") {
		t.Errorf("expected title with version, got %q", out)
	}
	if !strings.Contains(out, "localhost:8000") {
		t.Errorf("expected server without scheme, got %q", out)
	}
	if !strings.Contains(out, "ada@example.com") {
		t.Errorf("expected user email, got %q", out)
	}
}

func TestSyncSlashMenu(t *testing.T) {
	m := NewModel(make(chan inputResult, 1), ChatConfig{})

	m.textinput.SetValue("/ta")
	m.syncSlashMenu()
	if len(m.menuItems) != 1 || m.menuItems[0].Name != "/tasks" {
		t.Fatalf("expected /tasks only, got %v", m.menuItems)
	}

	m.textinput.SetValue("/")
	m.syncSlashMenu()
	if len(m.menuItems) != len(BuiltinSlashCommands()) {
		t.Errorf("expected full menu for bare slash, got %v", m.menuItems)
	}

	m.textinput.SetValue("hello")
	m.syncSlashMenu()
	if m.menuItems != nil {
		t.Errorf("expected no menu for plain text, got %v", m.menuItems)
	}
}

func TestIsTerminalNoiseKey(t *testing.T) {
	noise := []string{"]11;rgb:1e1e/1e1e/1e1e", "[<35;10;20M", "[?2004h", "[200~"}
	for _, s := range noise {
		if !isTerminalNoiseKey(s) {
			t.Errorf("expected %q to be noise", s)
		}
	}
	clean := []string{"a", "enter", "/tasks", "ctrl+c"}
	for _, s := range clean {
		if isTerminalNoiseKey(s) {
			t.Errorf("expected %q to be clean", s)
		}
	}
}
