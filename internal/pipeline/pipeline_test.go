/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"stockchat/internal/corpus"
	"stockchat/internal/logging"
)

// fakeModel replays canned completions in order and records every
// prompt it receives.
type fakeModel struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeModel) Complete(_ context.Context, prompt string) (string, error) {
	call := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if call < len(f.errs) && f.errs[call] != nil {
		return "", f.errs[call]
	}
	if call >= len(f.responses) {
		return "", fmt.Errorf("unexpected completion call %d", call)
	}
	return f.responses[call], nil
}

// fakeRunner returns a canned rendering or error and records executed
// statements.
type fakeRunner struct {
	rendering  string
	err        error
	statements []string
}

func (f *fakeRunner) Run(_ context.Context, statement string) (string, error) {
	f.statements = append(f.statements, statement)
	if f.err != nil {
		return "", f.err
	}
	return f.rendering, nil
}

func pipelineOptions() Options {
	return Options{
		Examples: []corpus.Example{
			{
				Question:  "How many white Levi's shirts do we have?",
				SQLQuery:  "SELECT SUM(stock_quantity) FROM t_shirts WHERE brand = 'Levi' AND color = 'White'",
				SQLResult: "Result of the SQL query",
				Answer:    "290",
			},
			{
				Question:  "How many S-size shirts are there?",
				SQLQuery:  "SELECT COUNT(*) FROM t_shirts WHERE size = 'S'",
				SQLResult: "Result of the SQL query",
				Answer:    "52",
			},
			{
				Question:  "What is the total price of the inventory?",
				SQLQuery:  "SELECT SUM(price * stock_quantity) FROM t_shirts",
				SQLResult: "Result of the SQL query",
				Answer:    "22292",
			},
		},
		ExampleCount:  2,
		SchemaSummary: "Table: t_shirts\nColumns:\n  brand enum NOT NULL",
		TableNames:    []string{"discounts", "t_shirts"},
		Driver:        "mysql",
		ResultLimit:   5,
	}
}

// questionEmbedder maps the end-to-end question close to the Levi
// example and everything else further away.
func questionEmbedder(opts Options) *fakeEmbedder {
	return &fakeEmbedder{
		vectors: map[string][]float32{
			opts.Examples[0].EmbeddingText(): {1, 0},
			opts.Examples[1].EmbeddingText(): {0.7, 0.7},
			opts.Examples[2].EmbeddingText(): {0, 1},
			"How many white Levi's shirts do we have?": {1, 0},
		},
		fallback: []float32{0.5, 0.5},
	}
}

func TestAskEndToEnd(t *testing.T) {
	opts := pipelineOptions()
	emb := questionEmbedder(opts)
	model := &fakeModel{
		responses: []string{
			"SQLQuery: SELECT SUM(stock_quantity) FROM t_shirts WHERE brand='Levi' AND color='White';",
			"We currently have 45 white Levi's shirts in stock.",
		},
	}
	runner := &fakeRunner{rendering: "SUM(stock_quantity)\n45"}

	p, err := New(context.Background(), model, emb, runner, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := p.Ask(context.Background(), "How many white Levi's shirts do we have?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if result.Answer != "We currently have 45 white Levi's shirts in stock." {
		t.Errorf("unexpected answer: %q", result.Answer)
	}
	if result.Statement != "SELECT SUM(stock_quantity) FROM t_shirts WHERE brand='Levi' AND color='White';" {
		t.Errorf("unexpected statement: %q", result.Statement)
	}
	if result.Degraded {
		t.Error("successful execution should not be degraded")
	}

	if len(runner.statements) != 1 || runner.statements[0] != result.Statement {
		t.Errorf("sanitized statement should be executed exactly once: %v", runner.statements)
	}

	if len(model.prompts) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(model.prompts))
	}

	generation := model.prompts[0]
	for _, want := range []string{
		"You are a MySQL expert.",
		"Question: How many white Levi's shirts do we have?",
		"SELECT SUM(stock_quantity) FROM t_shirts WHERE brand = 'Levi' AND color = 'White'",
		"Only use the following tables:",
	} {
		if !strings.Contains(generation, want) {
			t.Errorf("generation prompt missing %q", want)
		}
	}
	// The selector should have pulled the Levi example plus one other,
	// not the whole corpus.
	if !strings.Contains(generation, "How many S-size shirts are there?") {
		t.Error("generation prompt missing second selected example")
	}
	if strings.Contains(generation, "What is the total price of the inventory?") {
		t.Error("generation prompt should only contain the k selected examples")
	}

	answer := model.prompts[1]
	if !strings.Contains(answer, "SUM(stock_quantity)\n45") {
		t.Error("answer prompt should embed the result rendering")
	}
}

func TestAskExecutionFailureIsAbsorbed(t *testing.T) {
	opts := pipelineOptions()
	model := &fakeModel{
		responses: []string{
			"SELECT nonexistent FROM t_shirts",
			"I could not answer that: the generated query referenced an unknown column.",
		},
	}
	runner := &fakeRunner{err: fmt.Errorf("Unknown column 'nonexistent' in 'field list'")}

	p, err := New(context.Background(), model, questionEmbedder(opts), runner, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := p.Ask(context.Background(), "How many purple shirts?")
	if err != nil {
		t.Fatalf("execution failure must not propagate: %v", err)
	}

	if !result.Degraded {
		t.Error("result should be flagged degraded")
	}
	if result.Statement != "SELECT nonexistent FROM t_shirts;" {
		t.Errorf("unexpected statement: %q", result.Statement)
	}
	if !strings.Contains(model.prompts[1], "Unknown column") {
		t.Error("answer prompt should embed the execution error text")
	}
}

func TestAskUnusableQueryNeverExecuted(t *testing.T) {
	opts := pipelineOptions()
	model := &fakeModel{
		responses: []string{
			"Answer: nothing useful",
			"I was unable to produce a query for that question.",
		},
	}
	runner := &fakeRunner{rendering: "should never be seen"}

	p, err := New(context.Background(), model, questionEmbedder(opts), runner, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result, err := p.Ask(context.Background(), "How many purple shirts?")
	if err != nil {
		t.Fatalf("unusable query must not propagate: %v", err)
	}

	if len(runner.statements) != 0 {
		t.Errorf("unusable query must never reach the database, executed: %v", runner.statements)
	}
	if !result.Degraded {
		t.Error("result should be flagged degraded")
	}
	if result.Statement != "" {
		t.Errorf("statement should be empty, got %q", result.Statement)
	}
	if !strings.Contains(model.prompts[1], "did not produce a usable SQL statement") {
		t.Error("answer prompt should describe the unusable-query condition")
	}
}

func TestAskSelectionFailure(t *testing.T) {
	opts := pipelineOptions()
	emb := questionEmbedder(opts)
	model := &fakeModel{responses: []string{"SELECT 1", "answer"}}
	runner := &fakeRunner{rendering: "1"}

	p, err := New(context.Background(), model, emb, runner, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	emb.err = fmt.Errorf("embedding service unreachable")

	_, err = p.Ask(context.Background(), "How many shirts?")
	var selErr *SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
	if len(model.prompts) != 0 {
		t.Error("no completion should run after selection failure")
	}
}

func TestAskAnswerGenerationFailure(t *testing.T) {
	opts := pipelineOptions()
	model := &fakeModel{
		responses: []string{"SELECT 1", ""},
		errs:      []error{nil, fmt.Errorf("model overloaded")},
	}
	runner := &fakeRunner{rendering: "1"}

	p, err := New(context.Background(), model, questionEmbedder(opts), runner, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, err = p.Ask(context.Background(), "How many shirts?")
	var ansErr *AnswerError
	if !errors.As(err, &ansErr) {
		t.Fatalf("expected AnswerError, got %v", err)
	}
}

func TestNewConstructionFailures(t *testing.T) {
	opts := pipelineOptions()
	model := &fakeModel{}
	runner := &fakeRunner{}

	t.Run("missing collaborators", func(t *testing.T) {
		var consErr *ConstructionError
		_, err := New(context.Background(), nil, questionEmbedder(opts), runner, opts)
		if !errors.As(err, &consErr) {
			t.Fatalf("expected ConstructionError, got %v", err)
		}
	})

	t.Run("corpus embedding failure", func(t *testing.T) {
		broken := &fakeEmbedder{err: fmt.Errorf("unreachable")}
		var consErr *ConstructionError
		_, err := New(context.Background(), model, broken, runner, opts)
		if !errors.As(err, &consErr) {
			t.Fatalf("expected ConstructionError, got %v", err)
		}
		if consErr.Stage != "similarity index" {
			t.Errorf("unexpected stage: %s", consErr.Stage)
		}
	})
}

func TestReplaceExamples(t *testing.T) {
	opts := pipelineOptions()
	emb := questionEmbedder(opts)
	model := &fakeModel{responses: []string{"SELECT 1", "answer"}}

	p, err := New(context.Background(), model, emb, &fakeRunner{rendering: "1"}, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	t.Run("rebuild succeeds", func(t *testing.T) {
		replacement := []corpus.Example{{Question: "new", SQLQuery: "SELECT 2"}}
		if err := p.ReplaceExamples(context.Background(), replacement); err != nil {
			t.Fatalf("ReplaceExamples failed: %v", err)
		}
		if len(p.selector.examples) != 1 {
			t.Errorf("selector should serve the new corpus, has %d examples", len(p.selector.examples))
		}
	})

	t.Run("failed rebuild keeps old corpus", func(t *testing.T) {
		before := p.currentSelector()
		if err := p.ReplaceExamples(context.Background(), nil); err == nil {
			t.Fatal("expected error for empty replacement corpus")
		}
		if p.currentSelector() != before {
			t.Error("failed rebuild must keep the previous selector")
		}
	})
}

// The full generation prompt is only shipped to the log at debug level.
func TestAskLogsGenerationPromptAtDebug(t *testing.T) {
	prevLevel := logging.GetLevel()
	var buf bytes.Buffer
	prevOut := logging.SetOutput(&buf)
	defer func() {
		logging.SetLevel(prevLevel)
		logging.SetOutput(prevOut)
	}()

	opts := pipelineOptions()
	ask := func(t *testing.T) {
		t.Helper()
		p, err := New(context.Background(), staticModel{}, questionEmbedder(opts), staticRunner{}, opts)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, err := p.Ask(context.Background(), "How many white Levi's shirts do we have?"); err != nil {
			t.Fatalf("Ask failed: %v", err)
		}
	}

	logging.SetLevel(logging.LevelInfo)
	buf.Reset()
	ask(t)
	if strings.Contains(buf.String(), "Generation prompt assembled") {
		t.Error("prompt must not be logged above debug level")
	}

	logging.SetLevel(logging.LevelDebug)
	buf.Reset()
	ask(t)
	if !strings.Contains(buf.String(), "Generation prompt assembled") {
		t.Error("prompt should be logged at debug level")
	}
}

// staticModel and staticRunner answer without recording, so they are
// safe under concurrent questions.
type staticModel struct{}

func (staticModel) Complete(_ context.Context, prompt string) (string, error) {
	if strings.HasSuffix(prompt, "SQLQuery:") {
		return "SELECT COUNT(*) FROM t_shirts;", nil
	}
	return "There are 45.", nil
}

type staticRunner struct{}

func (staticRunner) Run(context.Context, string) (string, error) {
	return "count\n45", nil
}

// The corpus watcher calls ReplaceExamples from its own goroutine while
// the chat session may be inside Ask. Run both concurrently so the race
// detector can see any unsynchronized selector access.
func TestReplaceExamplesConcurrentWithAsk(t *testing.T) {
	opts := pipelineOptions()
	emb := questionEmbedder(opts)

	p, err := New(context.Background(), staticModel{}, emb, staticRunner{}, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			if err := p.ReplaceExamples(context.Background(), opts.Examples); err != nil {
				t.Errorf("ReplaceExamples failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		if _, err := p.Ask(context.Background(), "How many white Levi's shirts do we have?"); err != nil {
			t.Fatalf("Ask failed during reload: %v", err)
		}
	}
	<-done
}
