/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"strings"
	"testing"
)

func TestColorize(t *testing.T) {
	t.Run("colors enabled", func(t *testing.T) {
		ui := NewUI(false, false)
		got := ui.colorize(ColorRed, "danger")
		if got != ColorRed+"danger"+ColorReset {
			t.Errorf("unexpected colorized text: %q", got)
		}
	})

	t.Run("colors disabled", func(t *testing.T) {
		ui := NewUI(true, false)
		if got := ui.colorize(ColorRed, "danger"); got != "danger" {
			t.Errorf("expected plain text, got %q", got)
		}
	})
}

func TestGetPrompt(t *testing.T) {
	ui := NewUI(true, false)
	if got := ui.GetPrompt(); got != "You: " {
		t.Errorf("expected plain prompt, got %q", got)
	}
}

func TestThinkingWidthCoversAllActions(t *testing.T) {
	ui := NewUI(true, false)
	maxWidth := ui.getThinkingMaxWidth()
	for _, action := range stockActions {
		if len(action)+5 > maxWidth {
			t.Errorf("action %q exceeds animation width %d", action, maxWidth)
		}
	}
}

func TestHelpListsAllCommands(t *testing.T) {
	// The help text and handleInput dispatch must stay in sync.
	for _, cmd := range []string{"help", "quit", "exit", "clear", "sql"} {
		if !strings.Contains(helpMessage, cmd+" ") {
			t.Errorf("help text missing command %q", cmd)
		}
	}
}
