// Package explain turns a SQL statement into an ordered list of
// plain-English steps. Steps follow the logical execution order of
// the engine (FROM, JOIN, WHERE, GROUP BY, SELECT, ORDER BY, LIMIT),
// not the textual order of the query, because that is the order
// beginners should picture the database applying.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seeql-labs/seeql/internal/augment"
)

// fallbackStep is the single step returned when input cannot be
// classified at all.
const fallbackStep = "The database ran your query and returned the result."

// MethodRules and MethodRemote report which path produced the steps.
const (
	MethodRules  = "rules"
	MethodRemote = "remote"
)

// Steps explains sql as a sequence of plain-English sentences. It is
// total: empty or unparseable input yields a single fallback sentence,
// never an empty slice and never an error.
func Steps(sql string) []string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return []string{fallbackStep}
	}

	clauses, ok := scanClauses(sql)
	if !ok {
		return []string{fallbackStep}
	}

	var steps []string

	if clauses.From != "" {
		steps = append(steps, fmt.Sprintf("Start with the %s table.", describeTables(clauses.From)))
	}
	for _, j := range clauses.Joins {
		steps = append(steps, describeJoin(j))
	}
	if clauses.Where != "" {
		steps = append(steps, fmt.Sprintf("Keep only the rows where %s.", clauses.Where))
	}
	if clauses.GroupBy != "" {
		steps = append(steps, fmt.Sprintf("Group the remaining rows by %s, so each group becomes one row.", clauses.GroupBy))
	}
	if clauses.Having != "" {
		steps = append(steps, fmt.Sprintf("Keep only the groups where %s.", clauses.Having))
	}
	steps = append(steps, describeProjection(clauses.Select))
	if clauses.OrderBy != "" {
		steps = append(steps, describeOrder(clauses.OrderBy))
	}
	if clauses.Limit != "" {
		steps = append(steps, describeLimit(clauses.Limit))
	}

	if len(steps) == 0 {
		return []string{fallbackStep}
	}
	return steps
}

// describeTables renders a FROM argument. Aliases and multiple tables
// are passed through as written.
func describeTables(from string) string {
	if strings.Contains(from, ",") {
		return fmt.Sprintf("combined %s", from)
	}
	return from
}

// describeJoin renders one join clause, splitting off the ON
// condition when present.
func describeJoin(join string) string {
	kw := "JOIN"
	rest := join
	if i := indexWordFold(join, "JOIN"); i >= 0 {
		kw = strings.TrimSpace(join[:i+len("JOIN")])
		rest = strings.TrimSpace(join[i+len("JOIN"):])
	}

	table := rest
	cond := ""
	if i := indexWordFold(rest, "ON"); i >= 0 {
		table = strings.TrimSpace(rest[:i])
		cond = strings.TrimSpace(rest[i+len("ON"):])
	}

	sentence := fmt.Sprintf("Combine it with the %s table", table)
	if cond != "" {
		sentence += fmt.Sprintf(", matching rows where %s", cond)
	}
	if strings.HasPrefix(strings.ToUpper(kw), "LEFT") {
		sentence += " (keeping every row from the first table even without a match)"
	}
	return sentence + "."
}

// describeProjection renders the SELECT list.
func describeProjection(sel string) string {
	sel = strings.TrimSpace(sel)
	switch {
	case sel == "":
		return "Pick the columns to show."
	case sel == "*":
		return "Show every column of the rows that are left."
	case hasWordPrefixFold(sel, "DISTINCT"):
		rest := strings.TrimSpace(sel[len("DISTINCT"):])
		return fmt.Sprintf("Show only the different values of %s, dropping duplicates.", rest)
	case strings.Contains(sel, "("):
		return fmt.Sprintf("Calculate %s for the rows that are left.", sel)
	default:
		return fmt.Sprintf("Show only the %s column(s) of the rows that are left.", sel)
	}
}

// describeOrder renders the ORDER BY argument. Each sort key carries
// its own direction, so "a DESC, b" is not read as one big
// descending sort.
func describeOrder(order string) string {
	keys := splitTopLevel(order, ',')
	if len(keys) == 1 {
		col, dir := orderKey(keys[0])
		return fmt.Sprintf("Sort the result by %s, from %s.", col, dir)
	}

	descs := make([]string, len(keys))
	for i, k := range keys {
		col, dir := orderKey(k)
		descs[i] = fmt.Sprintf("%s (%s)", col, dir)
	}
	return fmt.Sprintf("Sort the result by %s.", strings.Join(descs, ", then by "))
}

// orderKey splits one sort key into its column text and direction.
func orderKey(key string) (string, string) {
	key = strings.TrimSpace(key)
	switch {
	case len(key) >= 5 && strings.EqualFold(key[len(key)-5:], " DESC"):
		return strings.TrimSpace(key[:len(key)-5]), "largest to smallest"
	case len(key) >= 4 && strings.EqualFold(key[len(key)-4:], " ASC"):
		return strings.TrimSpace(key[:len(key)-4]), "smallest to largest"
	}
	return key, "smallest to largest"
}

// splitTopLevel splits s on sep outside parentheses, so function
// arguments stay together.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// describeLimit renders the LIMIT argument.
func describeLimit(limit string) string {
	if n := strings.Fields(limit); len(n) > 0 {
		limit = n[0]
	}
	return fmt.Sprintf("Show at most %s row(s) of the result.", limit)
}

// indexWordFold finds word (uppercase ASCII) in s at a word boundary,
// ignoring ASCII case, or -1. It matches against the original bytes:
// indexing into a ToUpper copy is unsafe, because uppercasing can
// change the byte length of non-ASCII runes.
func indexWordFold(s, word string) int {
	for i := 0; i+len(word) <= len(s); i++ {
		if !foldEqualASCII(s[i:i+len(word)], word) {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if after := i + len(word); after < len(s) && isWordByte(s[after]) {
			continue
		}
		return i
	}
	return -1
}

// hasWordPrefixFold reports whether s starts with word (uppercase
// ASCII) at a word boundary, ignoring ASCII case.
func hasWordPrefixFold(s, word string) bool {
	if len(s) < len(word) || !foldEqualASCII(s[:len(word)], word) {
		return false
	}
	return len(s) == len(word) || !isWordByte(s[len(word)])
}

// foldEqualASCII compares s against upper (uppercase ASCII) byte by
// byte, folding a-z. len(s) must be >= len(upper).
func foldEqualASCII(s, upper string) bool {
	for i := 0; i < len(upper); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != upper[i] {
			return false
		}
	}
	return true
}

// Explainer produces explanations, preferring a remote augmenter when
// one is configured and falling back to the rule-based steps on any
// failure. The zero augmenter (nil) is equivalent to augment.Noop.
type Explainer struct {
	aug     augment.Augmenter
	timeout time.Duration
	logger  *slog.Logger
}

// NewExplainer creates an Explainer. aug may be nil.
func NewExplainer(aug augment.Augmenter, timeout time.Duration, logger *slog.Logger) *Explainer {
	if aug == nil {
		aug = augment.Noop{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Explainer{aug: aug, timeout: timeout, logger: logger}
}

// Explain returns the steps for sql plus the method that produced
// them. Remote failure of any kind falls back silently to the canned
// steps; the canned path cannot fail.
func (e *Explainer) Explain(ctx context.Context, sql string) ([]string, string) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	steps, err := e.aug.ExplainQuery(ctx, sql)
	if err == nil && len(steps) > 0 {
		return steps, MethodRemote
	}
	if err != nil && !errors.Is(err, augment.ErrNotConfigured) {
		e.logger.Debug("remote explanation unavailable, using rules", "error", err)
	}
	return Steps(sql), MethodRules
}
