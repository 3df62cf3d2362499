/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package render converts SQL result rows into compact text suitable for
// embedding in a language-model prompt.
package render

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormatValue converts a single column value to a TSV-safe string.
// Handles NULLs, special characters, and complex types.
func FormatValue(v interface{}) string {
	if v == nil {
		return "" // NULL represented as empty string
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case []byte:
		s = string(val)
	case time.Time:
		s = val.Format(time.RFC3339)
	case bool:
		if val {
			s = "true"
		} else {
			s = "false"
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s = fmt.Sprintf("%d", val)
	case float32, float64:
		s = fmt.Sprintf("%v", val)
	case []interface{}, map[string]interface{}:
		// Complex types (arrays, JSON objects) - serialize to JSON
		jsonBytes, err := json.Marshal(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		} else {
			s = string(jsonBytes)
		}
	default:
		s = fmt.Sprintf("%v", val)
	}

	// Escape characters that would break the row layout
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")

	return s
}

// FormatRows converts query results to tab-separated text: a header row
// followed by one line per data row. An empty column set yields "".
func FormatRows(columnNames []string, rows [][]interface{}) string {
	if len(columnNames) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(strings.Join(columnNames, "\t"))

	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(FormatRow(row))
	}

	return sb.String()
}

// FormatRow creates a single tab-separated line from raw values.
func FormatRow(values []interface{}) string {
	formatted := make([]string, len(values))
	for i, v := range values {
		formatted[i] = FormatValue(v)
	}
	return strings.Join(formatted, "\t")
}
