package extractor

import "strings"

// HasFunction reports whether src declares a function or method called name.
// Method names compare case-insensitively, as the host language does.
func HasFunction(src, name string) bool {
	sc := newScanner(src)
	for from := 0; ; {
		fn := sc.word("function", from)
		if fn < 0 {
			return false
		}
		from = fn + 1

		p := sc.skipSpace(fn + len("function"))
		if p < len(src) && src[p] == '&' {
			p++
		}
		got, next := sc.ident(p)
		if strings.EqualFold(got, name) && sc.expect(next, "(") >= 0 {
			return true
		}
	}
}

// ClassBody returns the offsets of the opening and closing braces of the
// first class declared in src.
func ClassBody(src string) (open, end int, ok bool) {
	sc := newScanner(src)
	open = sc.classOpen()
	if open < 0 {
		return 0, 0, false
	}
	if end = sc.matching(open); end < 0 {
		return 0, 0, false
	}
	return open, end, true
}

// classOpen returns the opening brace of the first class, or -1.
func (s *scanner) classOpen() int {
	src := s.src
	for from := 0; ; {
		at := s.word("class", from)
		if at < 0 {
			return -1
		}
		from = at + 1
		if at >= 1 && src[at-1] == '$' || at >= 2 && (src[at-2:at] == "::" || src[at-2:at] == "->") {
			continue
		}

		for i := at; i < len(src); i++ {
			if !s.isCode(i) {
				continue
			}
			if src[i] == ';' {
				break
			}
			if src[i] == '{' {
				return i
			}
		}
	}
}

// Namespace returns the file's declared namespace, or "".
func Namespace(src string) string {
	sc := newScanner(src)
	at := sc.word("namespace", 0)
	if at < 0 {
		return ""
	}
	name, next := sc.ident(at + len("namespace"))
	if sc.expect(next, ";") < 0 && sc.expect(next, "{") < 0 {
		return ""
	}
	return strings.Trim(name, `\`)
}

// Imports maps each imported short name to its fully-qualified class, for
// the top-level "use" statements that precede the first class.
func Imports(src string) map[string]string {
	out := map[string]string{}
	sc := newScanner(src)
	limit := len(src)
	if open, _, ok := ClassBody(src); ok {
		limit = open
	}

	for from := 0; ; {
		at := sc.word("use", from)
		if at < 0 || at >= limit {
			return out
		}
		from = at + 1

		semi := strings.IndexByte(src[at:limit], ';')
		if semi < 0 {
			return out
		}
		stmt := strings.TrimSpace(src[at+len("use") : at+semi])
		if strings.ContainsAny(stmt, "{(") || strings.HasPrefix(stmt, "function ") || strings.HasPrefix(stmt, "const ") {
			continue
		}
		for _, clause := range strings.Split(stmt, ",") {
			fields := strings.Fields(clause)
			if len(fields) == 0 {
				continue
			}
			class := strings.Trim(fields[0], `\`)
			alias := class[strings.LastIndex(class, `\`)+1:]
			if len(fields) == 3 && strings.EqualFold(fields[1], "as") {
				alias = fields[2]
			}
			out[alias] = class
		}
	}
}
