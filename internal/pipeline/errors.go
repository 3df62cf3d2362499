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
	"errors"
	"fmt"
)

// ErrUnusableQuery reports that sanitization left no SQL statement to
// execute. It is never sent to the database; the answer stage receives a
// description of the condition instead.
var ErrUnusableQuery = errors.New("no usable SQL statement after sanitization")

// ConstructionError wraps a failure while assembling the pipeline's
// collaborators (database, LLM, embeddings, similarity index). The
// pipeline is unusable until reconstructed.
type ConstructionError struct {
	Stage string
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("pipeline construction failed at %s: %v", e.Stage, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// NewConstructionError tags an initialization failure with the stage
// that produced it.
func NewConstructionError(stage string, err error) *ConstructionError {
	return &ConstructionError{Stage: stage, Err: err}
}

// SelectionError wraps a failure to embed the question or query the
// similarity index. The question is aborted; no SQL is generated.
type SelectionError struct {
	Err error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("example selection failed: %v", e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// AnswerError wraps a failure of the final answer-generation call. The
// question fails; earlier stages may have completed.
type AnswerError struct {
	Err error
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *AnswerError) Unwrap() error {
	return e.Err
}
