package explain

import (
	"strings"
)

// Clauses holds the top-level clause text of a single SELECT
// statement, as found by the scanner. Slices keep source order;
// everything else is the raw text between one clause keyword and the
// next.
type Clauses struct {
	Select  string
	From    string
	Joins   []string
	Where   string
	GroupBy string
	Having  string
	OrderBy string
	Limit   string
}

// scanner walks SQL text byte by byte, tracking just enough state to
// find clause keywords at the top level: paren depth, string
// literals, quoted identifiers and comments. It does not build an
// AST; unparseable input simply yields fewer clauses.
type scanner struct {
	input   string
	pos     int
	readPos int
	ch      byte
	depth   int
}

func newScanner(input string) *scanner {
	s := &scanner{input: input}
	s.readChar()
	return s
}

func (s *scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.ch = 0
	} else {
		s.ch = s.input[s.readPos]
	}
	s.pos = s.readPos
	s.readPos++
}

func (s *scanner) peekChar() byte {
	if s.readPos >= len(s.input) {
		return 0
	}
	return s.input[s.readPos]
}

// clauseMark records where a top-level clause keyword starts and
// where its argument text begins.
type clauseMark struct {
	keyword  string // normalized, e.g. "GROUP BY", "LEFT JOIN"
	start    int    // offset of the keyword itself
	argStart int    // offset just past the keyword
}

// joinWords may prefix JOIN and are folded into the join keyword.
var joinWords = map[string]bool{
	"LEFT": true, "RIGHT": true, "INNER": true,
	"OUTER": true, "FULL": true, "CROSS": true, "NATURAL": true,
}

// scan returns the top-level clause marks in source order.
func (s *scanner) scan() []clauseMark {
	var marks []clauseMark
	var pendingJoin []string // join qualifiers seen, e.g. LEFT OUTER
	var pendingStart int

	for s.ch != 0 {
		switch {
		case s.ch == '\'' || s.ch == '"' || s.ch == '`':
			s.skipQuoted(s.ch)
		case s.ch == '-' && s.peekChar() == '-':
			s.skipLineComment()
		case s.ch == '/' && s.peekChar() == '*':
			s.skipBlockComment()
		case s.ch == '(':
			s.depth++
			s.readChar()
		case s.ch == ')':
			if s.depth > 0 {
				s.depth--
			}
			s.readChar()
		case isWordByte(s.ch):
			start := s.pos
			word := strings.ToUpper(s.readWord())
			if s.depth != 0 {
				pendingJoin = nil
				continue
			}
			switch {
			case joinWords[word]:
				if len(pendingJoin) == 0 {
					pendingStart = start
				}
				pendingJoin = append(pendingJoin, word)
				continue
			case word == "JOIN":
				kw := "JOIN"
				kwStart := start
				if len(pendingJoin) > 0 {
					kw = strings.Join(pendingJoin, " ") + " JOIN"
					kwStart = pendingStart
				}
				marks = append(marks, clauseMark{keyword: kw, start: kwStart, argStart: s.pos})
			case word == "GROUP" || word == "ORDER":
				if by, end := s.peekWordUpper(); by == "BY" {
					marks = append(marks, clauseMark{keyword: word + " BY", start: start, argStart: end})
					s.skipToOffset(end)
				}
			case word == "SELECT" || word == "FROM" || word == "WHERE" ||
				word == "HAVING" || word == "LIMIT":
				marks = append(marks, clauseMark{keyword: word, start: start, argStart: s.pos})
			}
			pendingJoin = nil
		default:
			s.readChar()
		}
	}
	return marks
}

// readWord consumes and returns the identifier-like word at the
// current position.
func (s *scanner) readWord() string {
	start := s.pos
	for isWordByte(s.ch) {
		s.readChar()
	}
	return s.input[start:s.pos]
}

// peekWordUpper returns the next word after whitespace/comments,
// uppercased, plus the offset just past it, without committing the
// scanner. Used for the two-word keywords GROUP BY and ORDER BY.
func (s *scanner) peekWordUpper() (string, int) {
	i := s.pos
skip:
	for i < len(s.input) {
		switch c := s.input[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '-' && i+1 < len(s.input) && s.input[i+1] == '-':
			for i < len(s.input) && s.input[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s.input) && s.input[i+1] == '*':
			i += 2
			for i < len(s.input) {
				if s.input[i] == '*' && i+1 < len(s.input) && s.input[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
		default:
			break skip
		}
	}
	start := i
	for i < len(s.input) && isWordByte(s.input[i]) {
		i++
	}
	return strings.ToUpper(s.input[start:i]), i
}

// skipToOffset advances the scanner to the given input offset.
func (s *scanner) skipToOffset(off int) {
	for s.pos < off && s.ch != 0 {
		s.readChar()
	}
}

func (s *scanner) skipQuoted(quote byte) {
	s.readChar()
	for s.ch != 0 {
		if s.ch == quote {
			// Doubled quote is an escape.
			if s.peekChar() == quote {
				s.readChar()
				s.readChar()
				continue
			}
			s.readChar()
			return
		}
		s.readChar()
	}
}

func (s *scanner) skipLineComment() {
	for s.ch != 0 && s.ch != '\n' {
		s.readChar()
	}
}

func (s *scanner) skipBlockComment() {
	s.readChar()
	s.readChar()
	for s.ch != 0 {
		if s.ch == '*' && s.peekChar() == '/' {
			s.readChar()
			s.readChar()
			return
		}
		s.readChar()
	}
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// scanClauses splits sql into its top-level clauses. The boolean is
// false when no SELECT was found at the top level, which callers
// treat as unexplainable input.
func scanClauses(sql string) (Clauses, bool) {
	marks := newScanner(sql).scan()

	var c Clauses
	sawSelect := false
	for i, m := range marks {
		end := len(sql)
		if i+1 < len(marks) {
			end = marks[i+1].start
		}
		arg := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql[m.argStart:end]), ";"))

		switch m.keyword {
		case "SELECT":
			// Only the first SELECT is explained; a trailing UNION
			// SELECT would land here again and is ignored.
			if !sawSelect {
				c.Select = arg
				sawSelect = true
			}
		case "FROM":
			if c.From == "" {
				c.From = arg
			}
		case "WHERE":
			c.Where = arg
		case "GROUP BY":
			c.GroupBy = arg
		case "HAVING":
			c.Having = arg
		case "ORDER BY":
			c.OrderBy = arg
		case "LIMIT":
			c.Limit = arg
		default: // joins
			c.Joins = append(c.Joins, strings.TrimSpace(m.keyword+" "+arg))
		}
	}
	return c, sawSelect
}
