/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package pipeline turns a natural-language inventory question into a
// natural-language answer: select few-shot examples, assemble a prompt,
// generate SQL, sanitize it, execute it, and phrase the outcome.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockchat/internal/corpus"
	"stockchat/internal/logging"
)

// Completer is the text-completion capability of the language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Runner executes a SQL statement and returns its result rendered as
// text, or the execution error.
type Runner interface {
	Run(ctx context.Context, statement string) (string, error)
}

// Outcome is the tagged result of executing a generated statement.
type Outcome struct {
	Success bool
	Text    string // result rendering on success, error description on failure
}

// Result is the answer to one question plus enough detail for the
// caller to judge its reliability. Degraded means the answer was
// produced from an error description rather than real data.
type Result struct {
	Answer    string
	Statement string // empty when the query was unusable
	Degraded  bool
}

// Options configures a pipeline instance.
type Options struct {
	Examples      []corpus.Example
	ExampleCount  int
	SchemaSummary string
	TableNames    []string
	Driver        string
	ResultLimit   int
	CallTimeout   time.Duration // per model/embedding call
	QueryTimeout  time.Duration // per database execution
}

// Pipeline is a long-lived, per-session question answerer. Construction
// is expensive (it embeds the whole example corpus); Ask is cheap by
// comparison and may be called repeatedly.
type Pipeline struct {
	mu           sync.RWMutex // guards selector; hot reload swaps it mid-session
	selector     *Selector
	model        Completer
	runner       Runner
	prompt       *PromptTemplate
	schema       string
	tables       []string
	callTimeout  time.Duration
	queryTimeout time.Duration
}

// New builds a pipeline from already-connected collaborators. Failures
// here are construction failures; the returned error is always a
// *ConstructionError.
func New(ctx context.Context, model Completer, embedder Embedder, runner Runner, opts Options) (*Pipeline, error) {
	if model == nil {
		return nil, NewConstructionError("language model", fmt.Errorf("no completion client provided"))
	}
	if runner == nil {
		return nil, NewConstructionError("database", fmt.Errorf("no query runner provided"))
	}
	if embedder == nil {
		return nil, NewConstructionError("embeddings", fmt.Errorf("no embedding provider provided"))
	}

	selector, err := NewSelector(ctx, embedder, opts.Examples, opts.ExampleCount)
	if err != nil {
		return nil, NewConstructionError("similarity index", err)
	}

	return &Pipeline{
		selector:     selector,
		model:        model,
		runner:       runner,
		prompt:       NewPromptTemplate(opts.Driver, opts.ResultLimit),
		schema:       opts.SchemaSummary,
		tables:       opts.TableNames,
		callTimeout:  opts.CallTimeout,
		queryTimeout: opts.QueryTimeout,
	}, nil
}

// ReplaceExamples rebuilds the similarity index over a new corpus, for
// hot reload of the examples file. The pipeline keeps serving the old
// corpus if the rebuild fails.
func (p *Pipeline) ReplaceExamples(ctx context.Context, examples []corpus.Example) error {
	old := p.currentSelector()
	selector, err := NewSelector(ctx, old.embedder, examples, old.k)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.selector = selector
	p.mu.Unlock()
	return nil
}

func (p *Pipeline) currentSelector() *Selector {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selector
}

// Ask answers one question. Unusable queries and execution failures do
// not abort the pipeline; they are folded into the answer prompt and
// flagged on the result as Degraded. Selection and answer-generation
// failures abort the question with a typed error.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Result, error) {
	startTime := time.Now()

	examples, err := p.selectExamples(ctx, question)
	if err != nil {
		return nil, &SelectionError{Err: err}
	}

	generationPrompt := p.prompt.Generation(question, examples, p.schema, p.tables)
	// Prompts can run to kilobytes; only ship them to the log at debug.
	if logging.GetLevel() == logging.LevelDebug {
		logging.Debug("Generation prompt assembled", "prompt", generationPrompt)
	}

	raw, err := p.complete(ctx, generationPrompt)
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	statement, outcome := p.runStatement(ctx, raw)

	answerPrompt := p.prompt.Answer(question, statement, outcome.Text)

	answer, err := p.complete(ctx, answerPrompt)
	if err != nil {
		return nil, &AnswerError{Err: err}
	}

	logging.Info("Question answered",
		"degraded", !outcome.Success,
		"duration_ms", time.Since(startTime).Milliseconds())

	return &Result{
		Answer:    answer,
		Statement: statement,
		Degraded:  !outcome.Success,
	}, nil
}

// runStatement sanitizes raw model output and executes the result.
// Both sanitizer and executor failures are absorbed into the outcome.
func (p *Pipeline) runStatement(ctx context.Context, raw string) (string, Outcome) {
	statement, err := Sanitize(raw)
	if err != nil {
		logging.Warn("Model output produced no usable query")
		return "", Outcome{Success: false, Text: "error: the model did not produce a usable SQL statement"}
	}

	runCtx := ctx
	if p.queryTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.queryTimeout)
		defer cancel()
	}

	rendering, err := p.runner.Run(runCtx, statement)
	if err != nil {
		logging.Warn("Query execution failed", "error", err.Error())
		return statement, Outcome{Success: false, Text: "error: " + err.Error()}
	}

	return statement, Outcome{Success: true, Text: rendering}
}

func (p *Pipeline) selectExamples(ctx context.Context, question string) ([]corpus.Example, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	return p.currentSelector().Select(ctx, question)
}

func (p *Pipeline) complete(ctx context.Context, prompt string) (string, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	return p.model.Complete(ctx, prompt)
}
