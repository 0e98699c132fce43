package executor

import (
	"fmt"
	"strings"
)

// blockedVerbs are statement verbs the playground refuses to run.
// Learners get read-mostly access; CREATE and INSERT stay allowed so
// practice material can build scratch tables.
var blockedVerbs = []string{
	"DROP",
	"DELETE",
	"UPDATE",
	"ALTER",
	"ATTACH",
	"DETACH",
	"PRAGMA",
	"VACUUM",
	"REINDEX",
}

// BlockedError reports a query refused by the statement guard. It is
// not an engine error and is never routed through the translator.
type BlockedError struct {
	Verb string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("dangerous query blocked: %s is not allowed here", e.Verb)
}

// CheckGuard rejects statements containing a blocked verb. The check
// is a word-boundary keyword scan, deliberately conservative: a
// column literally named "dropout" passes, but "DROP TABLE" anywhere
// in the text is refused, including behind semicolons.
func CheckGuard(query string) error {
	upper := strings.ToUpper(query)
	for _, verb := range blockedVerbs {
		if containsWord(upper, verb) {
			return &BlockedError{Verb: verb}
		}
	}
	return nil
}

// containsWord reports whether word occurs in s at word boundaries.
func containsWord(s, word string) bool {
	from := 0
	for {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		i += from
		beforeOK := i == 0 || !isWordChar(s[i-1])
		after := i + len(word)
		afterOK := after >= len(s) || !isWordChar(s[after])
		if beforeOK && afterOK {
			return true
		}
		from = i + len(word)
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
