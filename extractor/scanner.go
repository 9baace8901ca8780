package extractor

import "strings"

// byte classes
const (
	inCode uint8 = iota
	inComment
	inString
)

// scanner indexes a source blob so that searches only ever match code:
// bytes inside comments and string literals are classified and skipped.
type scanner struct {
	src   string
	class []uint8
}

func newScanner(src string) *scanner {
	s := &scanner{src: src, class: make([]uint8, len(src))}
	s.classify()
	return s
}

func (s *scanner) classify() {
	src := s.src
	mark := func(from, to int, c uint8) {
		for k := from; k < to && k < len(src); k++ {
			s.class[k] = c
		}
	}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/',
			c == '#' && !(i+1 < len(src) && src[i+1] == '['):
			end := len(src)
			if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
				end = i + j
			}
			mark(i, end, inComment)
			i = end
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := len(src)
			if j := strings.Index(src[i+2:], "*/"); j >= 0 {
				end = i + j + 4
			}
			mark(i, end, inComment)
			i = end
			continue
		case c == '\'' || c == '"':
			end := skipString(src, i)
			mark(i, end, inString)
			i = end
			continue
		}
		i++
	}
}

// skipString returns the index just past the literal opening at i.
func skipString(src string, i int) int {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(src)
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// isCode reports whether position i lies outside comments and strings.
func (s *scanner) isCode(i int) bool {
	return i >= 0 && i < len(s.class) && s.class[i] == inCode
}

// word finds the next code occurrence of w at or after from that is not
// glued to surrounding identifier characters.
func (s *scanner) word(w string, from int) int {
	for from <= len(s.src) {
		j := strings.Index(s.src[from:], w)
		if j < 0 {
			return -1
		}
		i := from + j
		end := i + len(w)
		before := i == 0 || !isIdent(s.src[i-1])
		if w[0] == '$' {
			before = true
		}
		after := end >= len(s.src) || !isIdent(s.src[end])
		if s.isCode(i) && before && after {
			return i
		}
		from = i + 1
	}
	return -1
}

// skipSpace moves past whitespace and masked (comment) bytes.
func (s *scanner) skipSpace(i int) int {
	for i < len(s.src) && (isSpace(s.src[i]) || s.class[i] == inComment) {
		i++
	}
	return i
}

// expect skips whitespace and consumes tok, returning the index after it or -1.
func (s *scanner) expect(i int, tok string) int {
	i = s.skipSpace(i)
	if strings.HasPrefix(s.src[i:], tok) && s.isCode(i) {
		return i + len(tok)
	}
	return -1
}

// ident reads an identifier (letters, digits, underscore, ?, \) at i.
func (s *scanner) ident(i int) (string, int) {
	i = s.skipSpace(i)
	j := i
	for j < len(s.src) && (isIdent(s.src[j]) || s.src[j] == '?' || s.src[j] == '\\') {
		j++
	}
	return s.src[i:j], j
}

// matching returns the index of the bracket closing the one at open, or -1
// when the brackets are unbalanced or mismatched.
func (s *scanner) matching(open int) int {
	var stack []byte
	for i := open; i < len(s.src); i++ {
		if !s.isCode(i) {
			continue
		}
		switch c := s.src[i]; c {
		case '[':
			stack = append(stack, ']')
		case '(':
			stack = append(stack, ')')
		case '{':
			stack = append(stack, '}')
		case ']', ')', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// segments cuts src[from:to] on depth-zero code commas.
func (s *scanner) segments(from, to int) [][2]int {
	var out [][2]int
	depth, start := 0, from
	for i := from; i < to; i++ {
		if !s.isCode(i) {
			continue
		}
		switch s.src[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, [2]int{start, i})
				start = i + 1
			}
		}
	}
	return append(out, [2]int{start, to})
}

// entry is one comma-separated piece of a bracketed literal, with the
// comments written around it.
type entry struct {
	text string
	note Note
}

// entries splits src[from:to] into trimmed entries. A comment on the same
// line as an entry trails it, a comment on a line of its own leads the next
// entry. Comments after the last entry are returned separately.
func (s *scanner) entries(from, to int) ([]entry, []string) {
	var out []entry
	var pending []string
	for _, seg := range s.segments(from, to) {
		e := entry{text: strings.TrimSpace(s.stripComments(seg[0], seg[1]))}
		var after []string
		for _, c := range s.comments(seg[0], seg[1]) {
			text := strings.TrimSpace(s.src[c[0]:c[1]])
			code := s.lastCode(seg[0], c[0])
			switch {
			case code < 0 && len(out) > 0 && !strings.Contains(s.src[seg[0]:c[0]], "\n"):
				prev := &out[len(out)-1].note
				prev.Trailing = joinNote(prev.Trailing, text)
			case code < 0:
				pending = append(pending, text)
			case !strings.Contains(s.src[code:c[0]], "\n"):
				e.note.Trailing = joinNote(e.note.Trailing, text)
			default:
				after = append(after, text)
			}
		}
		if e.text == "" {
			continue
		}
		e.note.Leading, pending = pending, after
		out = append(out, e)
	}
	return out, pending
}

// comments returns the comment runs within src[from:to].
func (s *scanner) comments(from, to int) [][2]int {
	var out [][2]int
	for i := from; i < to; i++ {
		if s.class[i] != inComment {
			continue
		}
		j := i
		for j < to && s.class[j] == inComment {
			j++
		}
		out = append(out, [2]int{i, j})
		i = j
	}
	return out
}

// lastCode returns the last non-blank code byte in src[from:to], or -1.
func (s *scanner) lastCode(from, to int) int {
	for i := to - 1; i >= from; i-- {
		if s.class[i] != inComment && !isSpace(s.src[i]) {
			return i
		}
	}
	return -1
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

// stripComments returns src[from:to] with comment bytes removed. String
// literal bytes are kept.
func (s *scanner) stripComments(from, to int) string {
	var b strings.Builder
	for i := from; i < to; i++ {
		if s.class[i] != inComment {
			b.WriteByte(s.src[i])
		}
	}
	return b.String()
}

// depth returns the bracket nesting at position at, counted from from.
func (s *scanner) depth(from, at int) int {
	d := 0
	for i := from; i < at; i++ {
		if !s.isCode(i) {
			continue
		}
		switch s.src[i] {
		case '[', '(', '{':
			d++
		case ']', ')', '}':
			d--
		}
	}
	return d
}

// topLevel finds the first depth-zero code occurrence of tok within src[from:to].
func (s *scanner) topLevel(tok string, from, to int) int {
	depth := 0
	for i := from; i < to; i++ {
		if !s.isCode(i) {
			continue
		}
		switch s.src[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s.src[i:to], tok) {
			return i
		}
	}
	return -1
}

var modifiers = map[string]bool{
	"public": true, "protected": true, "private": true, "static": true,
	"var": true, "readonly": true, "final": true, "array": true, "?array": true,
}

// declStart widens a match back over any modifiers sharing its line, so a
// replacement covers "protected $casts = [...]" and not just "$casts = [...]".
func (s *scanner) declStart(i int) int {
	lineStart := strings.LastIndexByte(s.src[:i], '\n') + 1
	prefix := s.src[lineStart:i]
	for _, w := range strings.Fields(prefix) {
		if !modifiers[strings.ToLower(w)] {
			return i
		}
	}
	return lineStart + len(prefix) - len(strings.TrimLeft(prefix, " \t"))
}
