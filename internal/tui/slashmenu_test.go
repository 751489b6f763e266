package tui

import (
	"strings"
	"testing"
)

func TestFilterSlashItems(t *testing.T) {
	items := BuiltinSlashCommands()

	if got := filterSlashItems(items, "/"); len(got) != len(items) {
		t.Errorf("bare slash should keep all items, got %d", len(got))
	}

	got := filterSlashItems(items, "/c")
	if len(got) != 1 || got[0].Name != "/conversations" {
		t.Errorf("expected /conversations for prefix /c, got %v", got)
	}

	// Case-insensitive match.
	got = filterSlashItems(items, "/TA")
	if len(got) != 1 || got[0].Name != "/tasks" {
		t.Errorf("expected /tasks for prefix /TA, got %v", got)
	}

	if got := filterSlashItems(items, "/zzz"); got != nil {
		t.Errorf("expected no match for /zzz, got %v", got)
	}
}

func TestRenderSlashMenu(t *testing.T) {
	items := BuiltinSlashCommands()
	out := renderSlashMenu(items, 0, 80)
	for _, it := range items {
		if !strings.Contains(out, it.Name) {
			t.Errorf("menu missing %s", it.Name)
		}
	}

	if renderSlashMenu(nil, 0, 80) != "" {
		t.Error("expected empty string for empty menu")
	}
}
