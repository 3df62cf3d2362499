/*-------------------------------------------------------------------------
 *
 * stockchat - Natural Language Inventory Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package corpus

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Example is one curated question/query pair used as a few-shot
// demonstration. Examples are immutable once loaded.
type Example struct {
	Question  string `yaml:"question"`
	SQLQuery  string `yaml:"sql_query"`
	SQLResult string `yaml:"sql_result"`
	Answer    string `yaml:"answer"`
}

// EmbeddingText returns the text embedded for similarity search: all fields
// of the example joined with single spaces.
func (e Example) EmbeddingText() string {
	return strings.Join([]string{e.Question, e.SQLQuery, e.SQLResult, e.Answer}, " ")
}

// Default returns the built-in example set for the t-shirt inventory
// deployment (tables t_shirts and discounts).
func Default() []Example {
	return []Example{
		{
			Question:  "How many t-shirts do we have left for Nike in XS size and white color?",
			SQLQuery:  "SELECT SUM(stock_quantity) FROM t_shirts WHERE brand = 'Nike' AND color = 'White' AND size = 'XS';",
			SQLResult: "Result of the SQL query",
			Answer:    "91",
		},
		{
			Question:  "How much is the total price of the inventory for all S-size t-shirts?",
			SQLQuery:  "SELECT SUM(price * stock_quantity) FROM t_shirts WHERE size = 'S';",
			SQLResult: "Result of the SQL query",
			Answer:    "22292",
		},
		{
			Question:  "If we have to sell all the Levi's T-shirts today with discounts applied, how much revenue will our store generate (post discounts)?",
			SQLQuery:  "SELECT SUM(a.total_amount * ((100 - COALESCE(d.pct_discount, 0)) / 100)) AS total_revenue FROM (SELECT SUM(price * stock_quantity) AS total_amount, t_shirt_id FROM t_shirts WHERE brand = 'Levi' GROUP BY t_shirt_id) a LEFT JOIN discounts d ON a.t_shirt_id = d.t_shirt_id;",
			SQLResult: "Result of the SQL query",
			Answer:    "16725.4",
		},
		{
			Question:  "If we have to sell all the Levi's T-shirts today, how much revenue will our store generate without discount?",
			SQLQuery:  "SELECT SUM(price * stock_quantity) FROM t_shirts WHERE brand = 'Levi';",
			SQLResult: "Result of the SQL query",
			Answer:    "17462",
		},
		{
			Question:  "How many white color Levi's shirts do I have?",
			SQLQuery:  "SELECT SUM(stock_quantity) FROM t_shirts WHERE color = 'White' AND brand = 'Levi';",
			SQLResult: "Result of the SQL query",
			Answer:    "290",
		},
	}
}

// LoadFile reads an example set from a YAML file. The file holds a list of
// examples with question/sql_query/sql_result/answer keys.
func LoadFile(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file: %w", err)
	}

	if len(examples) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no examples", path)
	}
	for i, ex := range examples {
		if strings.TrimSpace(ex.Question) == "" {
			return nil, fmt.Errorf("example %d: question is empty", i+1)
		}
		if strings.TrimSpace(ex.SQLQuery) == "" {
			return nil, fmt.Errorf("example %d: sql_query is empty", i+1)
		}
	}

	return examples, nil
}
