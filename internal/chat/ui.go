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
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorGray    = "\033[90m"
	ColorBold    = "\033[1m"
)

// UI handles terminal input and output for the interactive session
type UI struct {
	noColor        bool
	RenderMarkdown bool
	ShowSQL        bool
}

// NewUI creates a new UI instance
func NewUI(noColor, renderMarkdown bool) *UI {
	return &UI{
		noColor:        noColor,
		RenderMarkdown: renderMarkdown,
		ShowSQL:        true,
	}
}

// colorize applies color if colors are enabled
func (ui *UI) colorize(color, text string) string {
	if ui.noColor {
		return text
	}
	return color + text + ColorReset
}

// PrintWelcome prints the welcome message
func (ui *UI) PrintWelcome(database string) {
	banner := fmt.Sprintf(`
  ____  stockchat
 |    |  Ask questions about the %s inventory in plain language.
 |____|  Type 'quit' or 'exit' to leave, 'help' for commands
`, database)
	fmt.Println(ui.colorize(ColorCyan, banner))
}

// GetPrompt returns the prompt string for readline
func (ui *UI) GetPrompt() string {
	return ui.colorize(ColorGreen+ColorBold, "You: ")
}

// PrintAnswer prints a pipeline answer, optionally preceded by the SQL
// that produced it. Degraded answers carry a visible caveat since they
// were phrased from an error rather than real data.
func (ui *UI) PrintAnswer(answer, statement string, degraded bool) {
	ui.ClearThinkingLine()
	fmt.Println()

	if ui.ShowSQL && statement != "" {
		fmt.Println(ui.colorize(ColorGray, "SQL: "+statement))
	}
	if degraded {
		fmt.Println(ui.colorize(ColorYellow, "Note: the query did not run cleanly; this answer may not reflect real data."))
	}

	fmt.Print(ui.colorize(ColorBlue, "Answer: "))

	if ui.RenderMarkdown {
		style := "dark"
		if ui.noColor {
			style = "notty"
		}

		width := ui.getTerminalWidth()
		if width > 120 {
			width = 120
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithStylePath(style),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			rendered, err := r.Render(answer)
			if err == nil {
				fmt.Print(rendered)
				return
			}
			// Fall back to plain text if rendering fails
		}
	}

	fmt.Println(answer)
}

// PrintSystemMessage prints a system message
func (ui *UI) PrintSystemMessage(text string) {
	fmt.Println(ui.colorize(ColorYellow, "System: ") + text)
}

// PrintError prints an error message
func (ui *UI) PrintError(text string) {
	ui.ClearThinkingLine()
	fmt.Println()
	fmt.Println(ui.colorize(ColorRed, "Error: ") + text)
}

// Inventory themed action words for the thinking animation
var stockActions = []string{
	"Counting shirts",
	"Folding inventory",
	"Checking the racks",
	"Sizing things up",
	"Sorting by color",
	"Tallying stock",
	"Scanning barcodes",
	"Rummaging shelves",
	"Matching brands",
	"Totting up totals",
}

// getThinkingMaxWidth calculates the maximum width needed for the
// thinking animation line
func (ui *UI) getThinkingMaxWidth() int {
	maxWidth := 40
	for _, action := range stockActions {
		width := len(action) + 5 // frame + space + action + "..."
		if width > maxWidth {
			maxWidth = width
		}
	}
	return maxWidth
}

// getTerminalWidth returns the maximum width for markdown rendering
func (ui *UI) getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		if width > 2 {
			return width - 2
		}
		return width
	}
	return 80
}

// ClearThinkingLine clears the thinking animation line
func (ui *UI) ClearThinkingLine() {
	maxWidth := ui.getThinkingMaxWidth()
	fmt.Print("\r" + strings.Repeat(" ", maxWidth) + "\r")
}

// ShowThinking displays an animated "thinking" indicator until done is
// closed or the context is canceled
func (ui *UI) ShowThinking(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frameIndex := 0
	actionIndex := rand.Intn(len(stockActions))
	actionChangeCounter := 0

	maxWidth := ui.getThinkingMaxWidth()

	fmt.Print("\r" + ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, stockActions[actionIndex]) + "...")

	for {
		select {
		case <-done:
			ui.ClearThinkingLine()
			return
		case <-ctx.Done():
			ui.ClearThinkingLine()
			return
		case <-ticker.C:
			frameIndex = (frameIndex + 1) % len(frames)
			actionChangeCounter++

			// Change action text every 4 ticks (2 seconds)
			if actionChangeCounter >= 4 {
				actionIndex = rand.Intn(len(stockActions))
				actionChangeCounter = 0
			}

			msg := ui.colorize(ColorCyan, frames[frameIndex]) + " " + ui.colorize(ColorGray, stockActions[actionIndex]) + "..."
			padding := maxWidth - len(stockActions[actionIndex]) - 5
			if padding > 0 {
				msg += strings.Repeat(" ", padding)
			}
			fmt.Print("\r" + msg)
		}
	}
}

// PromptForPassword prompts for the database password with hidden input
func (ui *UI) PromptForPassword(ctx context.Context) (string, error) {
	fmt.Print(ui.colorize(ColorYellow, "Database password: "))

	type result struct {
		password string
		err      error
	}
	resultChan := make(chan result, 1)

	go func() {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultChan <- result{password: strings.TrimSpace(string(password)), err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Println()
		return "", ctx.Err()
	case res := <-resultChan:
		fmt.Println()
		if res.err != nil {
			return "", res.err
		}
		return res.password, nil
	}
}

const helpMessage = `
Available commands:
  help   - Show this help message
  quit   - Exit stockchat
  exit   - Exit stockchat
  clear  - Clear the screen
  sql    - Toggle display of the generated SQL with each answer

History navigation:
  Up/Down  - Navigate through question history
  Ctrl+R   - Reverse search history

Anything else is treated as a question about the inventory.
`

// PrintHelp prints the help message
func (ui *UI) PrintHelp() {
	fmt.Println(ui.colorize(ColorCyan, helpMessage))
}

// ClearScreen clears the terminal screen
func (ui *UI) ClearScreen() {
	fmt.Print("\033[H\033[2J")
}
