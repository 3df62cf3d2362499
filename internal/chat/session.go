/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package chat provides the interactive terminal session around the
// question-answering pipeline.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"stockchat/internal/logging"
	"stockchat/internal/pipeline"
)

// Asker is the pipeline capability the session needs.
type Asker interface {
	Ask(ctx context.Context, question string) (*pipeline.Result, error)
}

// Session runs the interactive question loop.
type Session struct {
	pipeline    Asker
	ui          *UI
	historyFile string
}

// NewSession creates a session over a constructed pipeline.
func NewSession(p Asker, ui *UI, historyFile string) *Session {
	return &Session{
		pipeline:    p,
		ui:          ui,
		historyFile: historyFile,
	}
}

// Run executes the readline loop until the user quits or the context is
// canceled.
func (s *Session) Run(ctx context.Context, database string) error {
	s.ui.PrintWelcome(database)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            s.ui.GetPrompt(),
		HistoryFile:       s.historyFile,
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer func() {
		if err := rl.Close(); err != nil {
			logging.Debug("Failed to close readline", "error", err.Error())
		}
	}()

	// Closing readline unblocks Readline() when the context ends.
	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				fmt.Println()
				s.ui.PrintSystemMessage("Goodbye!")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if quit := s.handleInput(ctx, input); quit {
			s.ui.PrintSystemMessage("Goodbye!")
			return nil
		}
	}
}

// handleInput dispatches one line of input. Returns true when the
// session should end.
func (s *Session) handleInput(ctx context.Context, input string) bool {
	switch strings.ToLower(input) {
	case "quit", "exit":
		return true
	case "help":
		s.ui.PrintHelp()
		return false
	case "clear":
		s.ui.ClearScreen()
		return false
	case "sql":
		s.ui.ShowSQL = !s.ui.ShowSQL
		if s.ui.ShowSQL {
			s.ui.PrintSystemMessage("Generated SQL will be shown with each answer.")
		} else {
			s.ui.PrintSystemMessage("Generated SQL hidden.")
		}
		return false
	}

	s.askQuestion(ctx, input)
	return false
}

// askQuestion runs one question through the pipeline with the thinking
// animation and prints the outcome.
func (s *Session) askQuestion(ctx context.Context, question string) {
	done := make(chan struct{})
	go s.ui.ShowThinking(ctx, done)

	result, err := s.pipeline.Ask(ctx, question)
	close(done)

	if err != nil {
		var selErr *pipeline.SelectionError
		if errors.As(err, &selErr) {
			s.ui.PrintError("could not match your question against the examples: " + selErr.Err.Error())
			return
		}
		s.ui.PrintError(err.Error())
		return
	}

	s.ui.PrintAnswer(result.Answer, result.Statement, result.Degraded)
}
