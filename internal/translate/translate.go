// Package translate maps raw database error text to beginner-friendly
// explanations. Matching is rule based: an ordered list of patterns is
// scanned and the first match wins, so more specific rules must come
// before more general ones.
package translate

import (
	"fmt"
	"strings"
)

// Explanation is the structured, beginner-facing reading of an engine
// error. All three sections are always populated.
type Explanation struct {
	Meaning []string `json:"meaning"`
	Reason  []string `json:"reason"`
	Fix     []string `json:"fix"`
}

// Rule pairs a match predicate with an explanation builder. The build
// function receives the raw error so templates can interpolate the
// offending identifier.
type Rule struct {
	// ID identifies the rule in tests and logs, e.g. "no-such-table".
	ID string

	// Match reports whether this rule applies. It receives the raw
	// error lowercased; predicates are substring or keyword tests.
	Match func(lower string) bool

	// Build constructs the explanation from the original (unlowered)
	// error text.
	Build func(raw string) Explanation
}

// rules is evaluated in order; first match wins. The order is fixed
// and pinned by tests.
var rules = []Rule{
	{
		ID:    "no-such-table",
		Match: func(s string) bool { return strings.Contains(s, "no such table") },
		Build: func(raw string) Explanation {
			name := identifierAfter(raw, "no such table:")
			return Explanation{
				Meaning: []string{fmt.Sprintf("The database does not have a table called %q.", name)},
				Reason:  []string{"The table name in your query is misspelled, or the table was never created."},
				Fix: []string{
					fmt.Sprintf("Check the spelling of %q.", name),
					"List the available datasets and use one of their table names.",
				},
			}
		},
	},
	{
		ID:    "no-such-column",
		Match: func(s string) bool { return strings.Contains(s, "no such column") },
		Build: func(raw string) Explanation {
			name := identifierAfter(raw, "no such column:")
			return Explanation{
				Meaning: []string{fmt.Sprintf("The table you are querying has no column called %q.", name)},
				Reason:  []string{"The column name is misspelled, or it belongs to a different table."},
				Fix: []string{
					fmt.Sprintf("Check the spelling of %q against the table's columns.", name),
					"Look at the dataset's column list to see what is available.",
				},
			}
		},
	},
	{
		ID:    "ambiguous-column",
		Match: func(s string) bool { return strings.Contains(s, "ambiguous column name") },
		Build: func(raw string) Explanation {
			name := identifierAfter(raw, "ambiguous column name:")
			return Explanation{
				Meaning: []string{fmt.Sprintf("More than one table in your query has a column called %q, so the database cannot tell which one you mean.", name)},
				Reason:  []string{"When two joined tables share a column name, the name alone is not enough."},
				Fix:     []string{fmt.Sprintf("Write the table name in front of the column, like table_name.%s.", name)},
			}
		},
	},
	{
		ID:    "no-such-function",
		Match: func(s string) bool { return strings.Contains(s, "no such function") },
		Build: func(raw string) Explanation {
			name := identifierAfter(raw, "no such function:")
			return Explanation{
				Meaning: []string{fmt.Sprintf("The database does not know a function called %q.", name)},
				Reason:  []string{"The function name is misspelled, or it does not exist in this database."},
				Fix: []string{
					fmt.Sprintf("Check the spelling of %q.", name),
					"Common functions include COUNT, SUM, AVG, MIN, MAX, UPPER and LOWER.",
				},
			}
		},
	},
	{
		ID: "syntax-error",
		Match: func(s string) bool {
			return strings.Contains(s, "syntax error") || strings.Contains(s, "incomplete input")
		},
		Build: func(raw string) Explanation {
			e := Explanation{
				Meaning: []string{"Your SQL has a grammar mistake, so the database could not read it."},
				Reason:  []string{"A keyword is misspelled or out of place, or something like a comma or quote is missing."},
				Fix: []string{
					"Read the query out loud and check each part: SELECT columns FROM table.",
					"Make sure keywords like SELECT, FROM and WHERE are in the right order.",
				},
			}
			if tok := identifierAfter(raw, "near"); tok != "" {
				e.Reason = append(e.Reason, fmt.Sprintf("The database stumbled near %q.", tok))
			}
			return e
		},
	},
	{
		ID:    "unique-constraint",
		Match: func(s string) bool { return strings.Contains(s, "unique constraint failed") },
		Build: func(raw string) Explanation {
			col := identifierAfter(raw, "unique constraint failed:")
			return Explanation{
				Meaning: []string{"You tried to insert a value that must be unique, but it already exists."},
				Reason:  []string{fmt.Sprintf("The column %q does not allow two rows with the same value.", col)},
				Fix:     []string{"Use a different value, or leave the column out so the database picks one."},
			}
		},
	},
	{
		ID:    "not-null-constraint",
		Match: func(s string) bool { return strings.Contains(s, "not null constraint failed") },
		Build: func(raw string) Explanation {
			col := identifierAfter(raw, "not null constraint failed:")
			return Explanation{
				Meaning: []string{fmt.Sprintf("The column %q always needs a value, but your query left it empty.", col)},
				Reason:  []string{"Some columns are required and cannot be NULL."},
				Fix:     []string{fmt.Sprintf("Provide a value for %q in your query.", col)},
			}
		},
	},
	{
		ID:    "datatype-mismatch",
		Match: func(s string) bool { return strings.Contains(s, "datatype mismatch") },
		Build: func(string) Explanation {
			return Explanation{
				Meaning: []string{"A value in your query has the wrong kind of data for its column."},
				Reason:  []string{"For example, text was given where the column expects a number."},
				Fix:     []string{"Check that numbers are not wrapped in quotes and text values are."},
			}
		},
	},
	{
		ID: "empty-query",
		Match: func(s string) bool {
			return strings.TrimSpace(s) == "" || strings.Contains(s, "not an error")
		},
		Build: func(string) Explanation {
			return Explanation{
				Meaning: []string{"There was no query for the database to run."},
				Reason:  []string{"The query text was empty."},
				Fix:     []string{"Type a query, for example: SELECT * FROM students."},
			}
		},
	},
	{
		ID: "query-timeout",
		Match: func(s string) bool {
			return strings.Contains(s, "interrupt") || strings.Contains(s, "context deadline exceeded")
		},
		Build: func(string) Explanation {
			return Explanation{
				Meaning: []string{"Your query took too long and was stopped."},
				Reason:  []string{"The query did more work than this playground allows."},
				Fix:     []string{"Try a simpler query, or add a LIMIT to reduce the number of rows."},
			}
		},
	},
}

// fallback is returned when no rule matches.
var fallback = Explanation{
	Meaning: []string{"Something went wrong with your query."},
	Reason:  []string{"The database could not run this query."},
	Fix:     []string{"Check your SQL syntax and the table and column names you used."},
}

// Translate maps raw engine error text to a beginner-friendly
// explanation. It is a pure function of its input and never fails:
// any string, including the empty string, yields a populated
// Explanation.
func Translate(raw string) Explanation {
	lower := strings.ToLower(raw)
	for _, r := range rules {
		if r.Match(lower) {
			return r.Build(raw)
		}
	}
	return fallback
}

// Fallback returns the generic explanation used when no rule matches.
func Fallback() Explanation {
	return fallback
}

// RuleIDs returns the rule identifiers in evaluation order.
func RuleIDs() []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// identifierAfter extracts the identifier that follows marker in raw,
// trimming quotes and trailing punctuation. SQLite reports offenders
// as "no such table: ghosts" or near "SELEC". Returns "" when the
// marker is absent or nothing follows it.
func identifierAfter(raw, marker string) string {
	lower := strings.ToLower(raw)
	idx := strings.Index(lower, strings.ToLower(marker))
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(raw[idx+len(marker):])
	if rest == "" {
		return ""
	}
	// Take the first whitespace-delimited token.
	if sp := strings.IndexAny(rest, " \t\n"); sp >= 0 {
		rest = rest[:sp]
	}
	return strings.Trim(rest, `"'`+"`"+`():,;`)
}
