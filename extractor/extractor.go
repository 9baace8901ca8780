// Package extractor recovers the declared visibility and cast slots of an
// existing model source file.
//
// It is deliberately not a parser for the host language. It recognises a
// single assignment of a bracketed literal to a slot property
// (protected $fillable = [...];) and, for casts only, a zero-argument
// accessor whose body is exactly "return [ ... ];". Both must sit directly in
// the class body. Anything else reads as an empty slot.
package extractor

import (
	"strings"

	"github.com/ridoystarlord/modelforge/schema"
)

// Slot names one declaration category of a model.
type Slot string

const (
	Fillable Slot = "fillable"
	Hidden   Slot = "hidden"
	Appends  Slot = "appends"
	Casts    Slot = "casts"
)

// Slots lists every slot in canonical render order.
var Slots = []Slot{Fillable, Hidden, Appends, Casts}

// IsMap reports whether the slot holds key => value pairs.
func (s Slot) IsMap() bool {
	return s == Casts
}

// Status tells a missing slot apart from one that was found but could not be read.
type Status int

const (
	Absent Status = iota
	Parsed
	Malformed
)

func (s Status) String() string {
	switch s {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	default:
		return "absent"
	}
}

// Dialect is the textual form a slot is declared in.
type Dialect int

const (
	// LegacyProperty is protected $casts = [...];
	LegacyProperty Dialect = iota
	// AccessorMethod is protected function casts(): array { return [...]; }
	AccessorMethod
)

func (d Dialect) String() string {
	if d == AccessorMethod {
		return "accessor"
	}
	return "property"
}

// Declaration is one located slot.
type Declaration struct {
	Slot    Slot
	Status  Status
	Dialect Dialect

	// Start and End delimit the whole declaration, modifiers through the
	// terminating ';' or '}'. Only meaningful when Status is Parsed.
	Start, End int

	Items []string
	Map   *schema.OrderedMap

	// Verbatim marks list items, or map keys, whose value was an
	// expression rather than a quoted string. They are re-emitted unquoted.
	Verbatim map[string]bool

	// Notes holds the comments written around entries, keyed like
	// Verbatim. Tail holds the comments after the last entry.
	Notes map[string]Note
	Tail  []string

	// EntryIndent is the leading whitespace of the first entry line, or ""
	// when the literal opens with an entry on the same line.
	EntryIndent string
}

// Note holds the comments written around one entry.
type Note struct {
	Leading  []string
	Trailing string
}

// Lookup locates slot in src. For casts the accessor form wins when both
// forms are present.
func Lookup(src string, slot Slot) Declaration {
	sc := newScanner(src)
	if slot == Casts {
		if d := accessor(sc, slot); d.Status != Absent {
			return d
		}
	}
	return property(sc, slot)
}

// LookupDialect locates slot in one specific dialect only.
func LookupDialect(src string, slot Slot, dialect Dialect) Declaration {
	sc := newScanner(src)
	if dialect == AccessorMethod {
		if slot != Casts {
			return Declaration{Slot: slot, Dialect: dialect}
		}
		return accessor(sc, slot)
	}
	return property(sc, slot)
}

// ExtractList returns the ordered entries of a list slot. Absent, empty and
// unreadable slots all return nil.
func ExtractList(src string, slot Slot) []string {
	d := Lookup(src, slot)
	if d.Status != Parsed {
		return nil
	}
	return d.Items
}

// ExtractMap returns the ordered entries of a map slot. Entries from both
// dialects are combined, accessor first.
func ExtractMap(src string, slot Slot) *schema.OrderedMap {
	out := schema.NewOrderedMap()
	if !slot.IsMap() {
		return out
	}
	for _, dialect := range []Dialect{AccessorMethod, LegacyProperty} {
		d := LookupDialect(src, slot, dialect)
		if d.Status != Parsed {
			continue
		}
		for _, k := range d.Map.Keys() {
			v, _ := d.Map.Get(k)
			out.SetIfAbsent(k, v)
		}
	}
	return out
}

// Extract recovers all four slots.
func Extract(src string) schema.DeclaredState {
	return schema.DeclaredState{
		Fillable: ExtractList(src, Fillable),
		Hidden:   ExtractList(src, Hidden),
		Appends:  ExtractList(src, Appends),
		Casts:    ExtractMap(src, Casts),
	}
}

// members returns the span holding member declarations: the body of the
// first class, or the whole source when it declares none. An unbalanced
// class body runs to the end of the source.
func members(sc *scanner) (from, to int) {
	open := sc.classOpen()
	if open < 0 {
		return 0, len(sc.src)
	}
	if end := sc.matching(open); end > 0 {
		return open + 1, end
	}
	return open + 1, len(sc.src)
}

// member finds the next occurrence of w at or after from that sits directly
// in the member span, skipping anything nested in a method body.
func member(sc *scanner, w string, from int) int {
	lo, hi := members(sc)
	for from = max(from, lo); ; {
		at := sc.word(w, from)
		if at < 0 || at >= hi {
			return -1
		}
		if sc.depth(lo, at) == 0 {
			return at
		}
		from = at + 1
	}
}

func property(sc *scanner, slot Slot) Declaration {
	d := Declaration{Slot: slot, Dialect: LegacyProperty}
	tok := "$" + string(slot)

	for from := 0; ; {
		at := member(sc, tok, from)
		if at < 0 {
			return d
		}
		from = at + 1

		eq := sc.expect(at+len(tok), "=")
		if eq < 0 || strings.HasPrefix(sc.src[eq:], "=") || strings.HasPrefix(sc.src[eq:], ">") {
			continue
		}

		d.Start = sc.declStart(at)
		d.Status = Malformed

		open := sc.expect(eq, "[")
		if open < 0 {
			return d
		}
		open--
		end := sc.matching(open)
		if end < 0 {
			return d
		}
		semi := sc.expect(end+1, ";")
		if semi < 0 {
			return d
		}

		d.End = semi
		d.Status = Parsed
		fill(sc, &d, open, end)
		return d
	}
}

func accessor(sc *scanner, slot Slot) Declaration {
	d := Declaration{Slot: slot, Dialect: AccessorMethod}

	for from := 0; ; {
		fn := member(sc, "function", from)
		if fn < 0 {
			return d
		}
		from = fn + 1

		name, p := sc.ident(fn + len("function"))
		if !strings.EqualFold(name, string(slot)) {
			continue
		}

		d.Start = sc.declStart(fn)
		d.Status = Malformed

		if p = sc.expect(p, "("); p < 0 {
			return d
		}
		if p = sc.expect(p, ")"); p < 0 {
			return d
		}
		if q := sc.expect(p, ":"); q >= 0 {
			_, p = sc.ident(q)
		}
		if p = sc.expect(p, "{"); p < 0 {
			return d
		}
		body := p - 1

		p = sc.skipSpace(p)
		if !strings.HasPrefix(sc.src[p:], "return") || !sc.isCode(p) ||
			p+len("return") < len(sc.src) && isIdent(sc.src[p+len("return")]) {
			return d
		}
		open := sc.expect(p+len("return"), "[")
		if open < 0 {
			return d
		}
		open--
		end := sc.matching(open)
		if end < 0 {
			return d
		}
		if p = sc.expect(end+1, ";"); p < 0 {
			return d
		}
		if p = sc.expect(p, "}"); p < 0 || sc.matching(body) != p-1 {
			return d
		}

		d.End = p
		d.Status = Parsed
		fill(sc, &d, open, end)
		return d
	}
}

// fill reads the entries between the brackets at open and end.
func fill(sc *scanner, d *Declaration, open, end int) {
	d.Verbatim = map[string]bool{}
	d.Notes = map[string]Note{}
	d.EntryIndent = entryIndent(sc.src, open, end)
	if d.Slot.IsMap() {
		d.Map = schema.NewOrderedMap()
	}

	entries, tail := sc.entries(open+1, end)
	d.Tail = tail
	seen := map[string]bool{}
	for _, e := range entries {
		key, ok := d.add(e.text, seen)
		if !ok {
			continue
		}
		if len(e.note.Leading) > 0 || e.note.Trailing != "" {
			d.Notes[key] = e.note
		}
	}
}

// add records one entry and returns its key. It reports false for
// duplicates and for map entries that are not key => value pairs.
func (d *Declaration) add(text string, seen map[string]bool) (string, bool) {
	if !d.Slot.IsMap() {
		v, ok := Unquote(text)
		if !ok {
			v = text
			d.Verbatim[v] = true
		}
		if seen[v] {
			return "", false
		}
		seen[v] = true
		d.Items = append(d.Items, v)
		return v, true
	}

	es := newScanner(text)
	arrow := es.topLevel("=>", 0, len(text))
	if arrow < 0 {
		return "", false
	}
	key, ok := Unquote(strings.TrimSpace(text[:arrow]))
	if !ok || key == "" {
		return "", false
	}
	raw := strings.TrimSpace(text[arrow+2:])
	if raw == "" {
		return "", false
	}
	value, ok := Unquote(raw)
	if !ok {
		value = raw
	}
	if !d.Map.SetIfAbsent(key, value) {
		return "", false
	}
	if !ok {
		d.Verbatim[key] = true
	}
	return key, true
}

// entryIndent returns the whitespace ahead of the first entry when it
// starts on a line of its own.
func entryIndent(src string, open, end int) string {
	i := open + 1
	for i < end && isSpace(src[i]) {
		i++
	}
	if i >= end {
		return ""
	}
	nl := strings.LastIndexByte(src[open+1:i], '\n')
	if nl < 0 {
		return ""
	}
	return strings.Trim(src[open+1+nl+1:i], "\r")
}

// Unquote strips one pair of matching quotes from a complete string literal.
// It reports false when s is not a single quoted literal.
func Unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if q != '\'' && q != '"' || s[len(s)-1] != q || skipString(s, 0) != len(s) {
		return "", false
	}

	inner := s[1 : len(s)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) && (inner[i+1] == q || inner[i+1] == '\\') {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String(), true
}

// Quote renders s as a single-quoted literal. Backslashes are only doubled
// where a single one would be read as an escape.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			b.WriteString(`\'`)
		case c == '\\' && (i+1 == len(s) || s[i+1] == '\'' || s[i+1] == '\\'):
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
