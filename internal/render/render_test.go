/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package render

import (
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"nil value", nil, ""},
		{"empty string", "", ""},
		{"simple string", "Levi", "Levi"},
		{"string with tab", "White\tXS", "White\\tXS"},
		{"string with newline", "line1\nline2", "line1\\nline2"},
		{"string with carriage return", "a\rb", "a\\rb"},
		{"integer", 91, "91"},
		{"negative integer", -17, "-17"},
		{"int64", int64(9223372036854775807), "9223372036854775807"},
		{"float64", 16725.4, "16725.4"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"byte slice", []byte("Nike"), "Nike"},
		{"array", []interface{}{"a", "b"}, `["a","b"]`},
		{"map", map[string]interface{}{"key": "value"}, `{"key":"value"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatValue(tt.input)
			if result != tt.expected {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatValue_Time(t *testing.T) {
	testTime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	result := FormatValue(testTime)
	expected := "2024-01-15T10:30:00Z"

	if result != expected {
		t.Errorf("FormatValue(time) = %q, want %q", result, expected)
	}
}

func TestFormatRows(t *testing.T) {
	columnNames := []string{"brand", "color", "stock_quantity"}
	rows := [][]interface{}{
		{"Levi", "White", 290},
		{"Nike", "Black", 31},
	}

	result := FormatRows(columnNames, rows)
	expected := "brand\tcolor\tstock_quantity\nLevi\tWhite\t290\nNike\tBlack\t31"

	if result != expected {
		t.Errorf("FormatRows() = %q, want %q", result, expected)
	}
}

func TestFormatRows_Empty(t *testing.T) {
	result := FormatRows([]string{}, nil)
	if result != "" {
		t.Errorf("FormatRows(empty) = %q, want empty string", result)
	}
}

func TestFormatRows_HeaderOnly(t *testing.T) {
	result := FormatRows([]string{"total"}, nil)
	if result != "total" {
		t.Errorf("FormatRows(header only) = %q, want %q", result, "total")
	}
}

func TestFormatRow(t *testing.T) {
	result := FormatRow([]interface{}{"a", "b\tc", 3})
	expected := "a\tb\\tc\t3"

	if result != expected {
		t.Errorf("FormatRow() = %q, want %q", result, expected)
	}
}
