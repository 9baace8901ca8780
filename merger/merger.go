// Package merger folds a new batch of field and relation definitions into an
// existing model source, re-emitting the touched declarations in canonical
// form. Running it twice with the same input is a no-op.
package merger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
)

// Options carries the external facts rendering depends on.
type Options struct {
	// ModernCasts selects the casts() accessor dialect for files that do
	// not already declare one.
	ModernCasts bool
	// RootNamespace qualifies relative relation targets (User -> App\Models\User).
	RootNamespace string
	// Record is the owning record ref, e.g. Blog/Post.
	Record string
}

// Result is the outcome of one merge.
type Result struct {
	Source   string
	Changed  bool
	Added    []schema.RelationDefinition
	Skipped  []schema.RelationDefinition
	Warnings []string
}

// ChooseDialect picks the casts dialect for a file once: the accessor when
// the host is modern or the file already declares one, the property otherwise.
func ChooseDialect(modern bool, src string) extractor.Dialect {
	if modern {
		return extractor.AccessorMethod
	}
	if d := extractor.LookupDialect(src, extractor.Casts, extractor.AccessorMethod); d.Status != extractor.Absent {
		return extractor.AccessorMethod
	}
	return extractor.LegacyProperty
}

type edit struct {
	start, end int
	text       string
}

// MergeAndRender merges fields and relations into src.
func MergeAndRender(src string, fields []schema.FieldDefinition, relations []schema.RelationDefinition, opts Options) Result {
	res := Result{}
	open, end, ok := extractor.ClassBody(src)
	if !ok && strings.TrimSpace(src) == "" {
		// a blank source is treated as a bare class body
		open, end, ok = -1, len(src), true
	}
	if !ok {
		res.Source = src
		res.Skipped = append(res.Skipped, relations...)
		res.Warnings = append(res.Warnings, "no class declaration found; model left unchanged")
		return res
	}

	var edits []edit
	var inserts []string

	for _, slot := range []extractor.Slot{extractor.Fillable, extractor.Hidden, extractor.Appends} {
		d := extractor.Lookup(src, slot)
		if d.Status == extractor.Malformed {
			res.Warnings = append(res.Warnings, malformed(slot))
			continue
		}
		items := union(d.Items, contributions(fields, slot))
		switch {
		case d.Status == extractor.Parsed:
			edits = append(edits, edit{d.Start, d.End, RenderList(slot, items, layoutOf(src, d))})
		case len(items) > 0:
			inserts = append(inserts, RenderList(slot, items, MemberLayout()))
		}
	}

	castEdits, castInsert, warn := mergeCasts(src, fields, opts)
	if warn != "" {
		res.Warnings = append(res.Warnings, warn)
	}
	edits = append(edits, castEdits...)
	if castInsert != "" {
		inserts = append(inserts, castInsert)
	}

	if len(inserts) > 0 {
		edits = append(edits, insertion(src, open, inserts))
	}

	methods := relationMethods(src, relations, opts, &res)
	if len(methods) > 0 {
		edits = append(edits, appendBeforeClose(src, end, methods))
	}

	res.Source = apply(src, edits)
	res.Changed = res.Source != src
	return res
}

func malformed(slot extractor.Slot) string {
	return fmt.Sprintf("%s: existing declaration could not be read; left unchanged", slot)
}

// contributions returns the names the batch adds to a list slot.
func contributions(fields []schema.FieldDefinition, slot extractor.Slot) []string {
	var out []string
	for _, f := range fields {
		switch {
		case slot == extractor.Fillable && f.Fillable,
			slot == extractor.Hidden && f.Hidden,
			slot == extractor.Appends && f.Appended:
			out = append(out, f.Name)
		}
	}
	return out
}

// union appends the members of add missing from base, keeping base's order.
func union(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	seen := map[string]bool{}
	for _, list := range [][]string{base, add} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func mergeCasts(src string, fields []schema.FieldDefinition, opts Options) ([]edit, string, string) {
	acc := extractor.LookupDialect(src, extractor.Casts, extractor.AccessorMethod)
	leg := extractor.LookupDialect(src, extractor.Casts, extractor.LegacyProperty)
	if acc.Status == extractor.Malformed || leg.Status == extractor.Malformed {
		return nil, "", malformed(extractor.Casts)
	}

	merged := schema.NewOrderedMap()
	kept := Layout{Verbatim: map[string]bool{}, Notes: map[string]extractor.Note{}}
	for _, d := range []extractor.Declaration{acc, leg} {
		if d.Status != extractor.Parsed {
			continue
		}
		for _, k := range d.Map.Keys() {
			v, _ := d.Map.Get(k)
			if !merged.SetIfAbsent(k, v) {
				continue
			}
			if d.Verbatim[k] {
				kept.Verbatim[k] = true
			}
			if n, ok := d.Notes[k]; ok {
				kept.Notes[k] = n
			}
		}
		kept.Tail = append(kept.Tail, d.Tail...)
	}
	for _, f := range fields {
		if f.Cast != nil {
			merged.SetIfAbsent(f.Name, string(*f.Cast))
		}
	}

	// replace re-renders over d, keeping its indentation.
	replace := func(d extractor.Declaration, dialect extractor.Dialect) edit {
		l := layoutOf(src, d)
		l.Verbatim, l.Notes, l.Tail = kept.Verbatim, kept.Notes, kept.Tail
		return edit{d.Start, d.End, RenderCasts(merged, dialect, l)}
	}

	dialect := ChooseDialect(opts.ModernCasts, src)
	var edits []edit

	if dialect == extractor.LegacyProperty {
		if leg.Status == extractor.Parsed {
			return append(edits, replace(leg, dialect)), "", ""
		}
		if merged.Len() > 0 {
			return nil, CastsBlock(merged, dialect, MemberLayout()), ""
		}
		return nil, "", ""
	}

	switch {
	case acc.Status == extractor.Parsed:
		edits = append(edits, replace(acc, dialect))
		if leg.Status == extractor.Parsed {
			from, to := lineSpan(src, leg.Start, leg.End)
			edits = append(edits, edit{from, to, ""})
		}
	case leg.Status == extractor.Parsed:
		// the property is rewritten in place as an accessor
		edits = append(edits, replace(leg, dialect))
	case merged.Len() > 0:
		return nil, CastsBlock(merged, dialect, MemberLayout()), ""
	}
	return edits, "", ""
}

func relationMethods(src string, relations []schema.RelationDefinition, opts Options, res *Result) []string {
	ns := extractor.Namespace(src)
	imports := extractor.Imports(src)
	seen := map[string]bool{}

	var methods []string
	for _, rel := range relations {
		key := strings.ToLower(rel.Method)
		if seen[key] || extractor.HasFunction(src, rel.Method) {
			res.Skipped = append(res.Skipped, rel)
			continue
		}
		seen[key] = true

		class := naming.QualifiedClass(opts.RootNamespace, rel.Target)
		methods = append(methods, RenderRelation(rel, opts.Record, ClassRef(class, ns, imports), DefaultIndent))
		res.Added = append(res.Added, rel)
	}
	return methods
}

// insertion places new slot blocks at the top of the class body, after any
// leading trait imports.
func insertion(src string, open int, blocks []string) edit {
	body := strings.Join(blocks, "\n\n"+DefaultIndent)

	at := afterTraits(src, open+1)
	if at > open+1 {
		return edit{at, at, "\n\n" + DefaultIndent + body}
	}
	text := "\n" + DefaultIndent + body + "\n"
	if strings.HasPrefix(strings.TrimLeft(src[at:], " \t\r\n"), "}") {
		text = strings.TrimSuffix(text, "\n")
	}
	return edit{at, at, text}
}

// afterTraits skips "use Trait;" statements opening a class body.
func afterTraits(src string, pos int) int {
	for {
		q := pos
		for q < len(src) && strings.ContainsRune(" \t\r\n", rune(src[q])) {
			q++
		}
		if !strings.HasPrefix(src[q:], "use ") {
			return pos
		}
		semi := strings.IndexByte(src[q:], ';')
		if semi < 0 {
			return pos
		}
		pos = q + semi + 1
	}
}

// appendBeforeClose places methods on their own lines ahead of the class's closing brace.
func appendBeforeClose(src string, end int, methods []string) edit {
	lineStart := strings.LastIndexByte(src[:end], '\n') + 1
	text := "\n" + strings.Join(methods, "\n")
	if strings.TrimSpace(src[lineStart:end]) != "" {
		return edit{end, end, text}
	}
	return edit{lineStart, lineStart, text}
}

// layoutOf carries the formatting of an existing declaration into its
// re-render.
func layoutOf(src string, d extractor.Declaration) Layout {
	indent := indentAt(src, d.Start)
	levels := 1
	if d.Dialect == extractor.AccessorMethod {
		levels = 2
	}
	return Layout{
		Indent:   indent,
		Step:     stepOf(indent, d.EntryIndent, levels),
		Verbatim: d.Verbatim,
		Notes:    d.Notes,
		Tail:     d.Tail,
	}
}

// stepOf derives one nesting level from an entry line sitting levels below
// indent. Without one, a tab-indented class nests by a tab.
func stepOf(indent, entry string, levels int) string {
	if rest, ok := strings.CutPrefix(entry, indent); ok && rest != "" && len(rest)%levels == 0 {
		unit := rest[:len(rest)/levels]
		if strings.Repeat(unit, levels) == rest {
			return unit
		}
	}
	if strings.Contains(indent, "\t") {
		return "\t"
	}
	return DefaultIndent
}

// indentAt returns the whitespace between the start of pos's line and pos,
// or the default indent when something else precedes pos on that line.
func indentAt(src string, pos int) string {
	lineStart := strings.LastIndexByte(src[:pos], '\n') + 1
	prefix := src[lineStart:pos]
	if strings.TrimLeft(prefix, " \t") != "" {
		return DefaultIndent
	}
	return prefix
}

// lineSpan widens [start,end) to whole lines, swallowing one blank line after it.
func lineSpan(src string, start, end int) (int, int) {
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	if strings.TrimLeft(src[lineStart:start], " \t") == "" {
		start = lineStart
	}
	if nl := strings.IndexByte(src[end:], '\n'); nl >= 0 && strings.TrimSpace(src[end:end+nl]) == "" {
		end += nl + 1
		if nl2 := strings.IndexByte(src[end:], '\n'); nl2 >= 0 && strings.TrimSpace(src[end:end+nl2]) == "" {
			end += nl2 + 1
		}
	}
	return start, end
}

// apply performs non-overlapping edits from the back so offsets stay valid.
// Insertions at the same offset keep their listed order.
func apply(src string, edits []edit) string {
	for i, j := 0, len(edits)-1; i < j; i, j = i+1, j-1 {
		edits[i], edits[j] = edits[j], edits[i]
	}
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		src = src[:e.start] + e.text + src[e.end:]
	}
	return src
}
