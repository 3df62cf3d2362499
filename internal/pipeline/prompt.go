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
	"fmt"
	"strings"

	"stockchat/internal/corpus"
)

// sqlDialect carries the dialect-specific wording for the generation
// prompt. The instructions name the dialect, the identifier-quoting
// convention, and the current-date function so the model emits SQL the
// configured driver will accept.
type sqlDialect struct {
	name      string
	quoteHint string
	dateHint  string
}

var dialects = map[string]sqlDialect{
	"mysql": {
		name:      "MySQL",
		quoteHint: "Wrap each column name in backticks (`) to denote them as delimited identifiers.",
		dateHint:  `Pay attention to use CURDATE() function to get the current date, if the question contains "today".`,
	},
	"postgres": {
		name:      "PostgreSQL",
		quoteHint: `Wrap each column name in double quotes (") to denote them as delimited identifiers.`,
		dateHint:  `Pay attention to use CURRENT_DATE to get the current date, if the question contains "today".`,
	},
	"sqlite": {
		name:      "SQLite",
		quoteHint: `Wrap each column name in double quotes (") to denote them as delimited identifiers.`,
		dateHint:  `Pay attention to use date('now') to get the current date, if the question contains "today".`,
	},
}

// PromptTemplate assembles the two prompts of the pipeline: the
// few-shot SQL-generation prompt and the answer prompt. Assembly is
// deterministic; the same inputs always produce the same text.
type PromptTemplate struct {
	dialect     sqlDialect
	resultLimit int
}

// NewPromptTemplate returns a template for the given driver. Unknown
// drivers fall back to MySQL wording.
func NewPromptTemplate(driver string, resultLimit int) *PromptTemplate {
	d, ok := dialects[driver]
	if !ok {
		d = dialects["mysql"]
	}
	if resultLimit <= 0 {
		resultLimit = 5
	}
	return &PromptTemplate{dialect: d, resultLimit: resultLimit}
}

// Generation builds the few-shot prompt for SQL generation: fixed
// instructions, one block per selected example, the schema summary, the
// usable tables, and the user's question.
func (p *PromptTemplate) Generation(question string, examples []corpus.Example, schemaSummary string, tableNames []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a %s expert. Given an input question, create a syntactically correct %s query to run.\n",
		p.dialect.name, p.dialect.name)
	fmt.Fprintf(&sb, "Unless the user specifies in the question a specific number of examples to obtain, query for at most %d results using the LIMIT clause as per %s. You can order the results to return the most informative data in the database.\n",
		p.resultLimit, p.dialect.name)
	sb.WriteString("Never query for all columns from a table. You must query only the columns that are needed to answer the question. ")
	sb.WriteString(p.dialect.quoteHint)
	sb.WriteString("\n")
	sb.WriteString("Pay attention to use only the column names you can see in the tables below. Be careful to not query for columns that do not exist. Also, pay attention to which column is in which table.\n")
	sb.WriteString(p.dialect.dateHint)
	sb.WriteString("\n")
	sb.WriteString("Return only the SQL query, with no labels, no markdown, and no explanation.\n")

	for _, ex := range examples {
		sb.WriteString("\nQuestion: ")
		sb.WriteString(ex.Question)
		sb.WriteString("\nSQLQuery: ")
		sb.WriteString(ex.SQLQuery)
		sb.WriteString("\nSQLResult: ")
		sb.WriteString(ex.SQLResult)
		sb.WriteString("\nAnswer: ")
		sb.WriteString(ex.Answer)
		sb.WriteString("\n")
	}

	if schemaSummary != "" {
		sb.WriteString("\n")
		sb.WriteString(schemaSummary)
		sb.WriteString("\n")
	}

	sb.WriteString("\nOnly use the following tables:\n")
	sb.WriteString(strings.Join(tableNames, ", "))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nSQLQuery:")

	return sb.String()
}

// Answer builds the prompt for the final natural-language answer. The
// outcome text is either the rendered result rows or the execution
// error description; the model is asked to answer from whichever it
// received.
func (p *PromptTemplate) Answer(question, statement, outcomeText string) string {
	var sb strings.Builder

	sb.WriteString("Given an input question, the SQL query that was run, and the query outcome, write a concise natural-language answer to the question.\n")
	sb.WriteString("If the outcome is an error description rather than data, say that the question could not be answered and briefly why.\n")
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nSQLQuery: ")
	sb.WriteString(statement)
	sb.WriteString("\nSQLResult: ")
	sb.WriteString(outcomeText)
	sb.WriteString("\nAnswer:")

	return sb.String()
}
