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

import "strings"

// labelPrefixes are labels the model sometimes prepends to the query.
// At most the first matching prefix is stripped, case-sensitively.
var labelPrefixes = []string{
	"SQLQuery:",
	"SQL Query:",
	"Query:",
	"SQL:",
}

// trailerMarkers flag hallucinated continuation lines (the model
// completing the few-shot template past the query). Matching is
// case-insensitive and per line.
var trailerMarkers = []string{
	"sqlresult:",
	"answer:",
	"question:",
}

// Sanitize reduces raw model output to a single executable SQL
// statement: strips a leading label, drops trailer lines, joins the
// rest into one line, and normalizes the terminal semicolon. Returns
// ErrUnusableQuery when nothing survives filtering. Sanitize is
// idempotent: already-clean input passes through unchanged.
func Sanitize(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	for _, prefix := range labelPrefixes {
		if after, found := strings.CutPrefix(text, prefix); found {
			text = after
			break
		}
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		trailer := false
		for _, marker := range trailerMarkers {
			if strings.Contains(lower, marker) {
				trailer = true
				break
			}
		}
		if !trailer {
			kept = append(kept, line)
		}
	}

	statement := strings.Join(kept, " ")
	statement = strings.TrimSpace(strings.TrimRight(statement, "; \t"))
	if statement == "" {
		return "", ErrUnusableQuery
	}

	return statement + ";", nil
}
