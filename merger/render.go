package merger

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/naming"
	"github.com/ridoystarlord/modelforge/schema"
)

// DefaultIndent is one level of member indentation.
const DefaultIndent = "    "

// castsDoc precedes a newly inserted casts() accessor.
const castsDoc = `/**
%[1]s * Get the attributes that should be cast.
%[1]s *
%[1]s * @return array<string, string>
%[1]s */
%[1]s`

// Layout is the formatting a rendered slot follows. Nil maps are fine and an
// empty Step means DefaultIndent.
type Layout struct {
	// Indent is the member indentation of the enclosing class.
	Indent string
	// Step is one nesting level inside the declaration.
	Step string

	Verbatim map[string]bool
	Notes    map[string]extractor.Note
	Tail     []string
}

// MemberLayout is the layout of a freshly written member.
func MemberLayout() Layout {
	return Layout{Indent: DefaultIndent}
}

func (l Layout) step() string {
	if l.Step == "" {
		return DefaultIndent
	}
	return l.Step
}

func (l Layout) literal(v string) string {
	if l.Verbatim[v] {
		return v
	}
	return extractor.Quote(v)
}

// entry writes one entry line at pad, with the comments kept for key.
func (l Layout) entry(b *strings.Builder, pad, key, text string) {
	note := l.Notes[key]
	for _, c := range note.Leading {
		fmt.Fprintf(b, "%s%s\n", pad, c)
	}
	fmt.Fprintf(b, "%s%s,", pad, text)
	if note.Trailing != "" {
		fmt.Fprintf(b, " %s", note.Trailing)
	}
	b.WriteByte('\n')
}

func (l Layout) tail(b *strings.Builder, pad string) {
	for _, c := range l.Tail {
		fmt.Fprintf(b, "%s%s\n", pad, c)
	}
}

// RenderList renders a list slot property. The first line carries no
// indentation; closing lines align with l.Indent.
func RenderList(slot extractor.Slot, items []string, l Layout) string {
	if len(items) == 0 && len(l.Tail) == 0 {
		return fmt.Sprintf("protected $%s = [];", slot)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "protected $%s = [\n", slot)
	pad := l.Indent + l.step()
	for _, it := range items {
		l.entry(&b, pad, it, l.literal(it))
	}
	l.tail(&b, pad)
	fmt.Fprintf(&b, "%s];", l.Indent)
	return b.String()
}

func (l Layout) pairs(b *strings.Builder, m *schema.OrderedMap, pad string) {
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		text := extractor.Quote(k) + " => "
		if l.Verbatim[k] {
			text += v
		} else {
			text += extractor.Quote(v)
		}
		l.entry(b, pad, k, text)
	}
	l.tail(b, pad)
}

// RenderCasts renders the casts slot in the given dialect.
func RenderCasts(m *schema.OrderedMap, dialect extractor.Dialect, l Layout) string {
	var b strings.Builder
	indent, step := l.Indent, l.step()
	empty := m.Len() == 0 && len(l.Tail) == 0
	if dialect == extractor.AccessorMethod {
		fmt.Fprintf(&b, "protected function casts(): array\n%s{\n", indent)
		if empty {
			fmt.Fprintf(&b, "%s%sreturn [];\n", indent, step)
		} else {
			fmt.Fprintf(&b, "%s%sreturn [\n", indent, step)
			l.pairs(&b, m, indent+step+step)
			fmt.Fprintf(&b, "%s%s];\n", indent, step)
		}
		fmt.Fprintf(&b, "%s}", indent)
		return b.String()
	}

	if empty {
		return "protected $casts = [];"
	}
	b.WriteString("protected $casts = [\n")
	l.pairs(&b, m, indent+step)
	fmt.Fprintf(&b, "%s];", indent)
	return b.String()
}

// CastsBlock is RenderCasts plus, for the accessor dialect, its docblock.
// Used when the slot is written for the first time.
func CastsBlock(m *schema.OrderedMap, dialect extractor.Dialect, l Layout) string {
	body := RenderCasts(m, dialect, l)
	if dialect == extractor.AccessorMethod {
		return fmt.Sprintf(castsDoc, l.Indent) + body
	}
	return body
}

// ClassRef renders a class constant reference for class (fully qualified,
// no leading backslash) as seen from a file in namespace ns with imports.
func ClassRef(class, ns string, imports map[string]string) string {
	short := naming.Base(class)
	if imported, ok := imports[short]; ok {
		if strings.EqualFold(imported, class) {
			return short + "::class"
		}
		return `\` + class + "::class"
	}
	if strings.EqualFold(naming.ClassNamespace(class), ns) {
		return short + "::class"
	}
	return `\` + class + "::class"
}

// RelationCall renders the body expression of a relation accessor.
// record is the owning record ref, used for junction and morph names.
func RelationCall(rel schema.RelationDefinition, record, target string) string {
	switch rel.Kind {
	case schema.MorphTo:
		return "$this->morphTo()"
	case schema.MorphOne, schema.MorphMany:
		return fmt.Sprintf("$this->%s(%s, %s)", rel.Kind, target, extractor.Quote(naming.MorphName(rel.Method)))
	case schema.MorphToMany:
		morph := naming.Singular(naming.Snake(naming.Base(rel.Target))) + "able"
		return fmt.Sprintf("$this->morphToMany(%s, %s, %s)", target,
			extractor.Quote(morph), extractor.Quote(naming.JunctionTable(record, rel.Target)))
	default:
		return fmt.Sprintf("$this->%s(%s)", rel.Kind, target)
	}
}

// RenderRelation renders a complete accessor method, indented as a member,
// with a trailing newline.
func RenderRelation(rel schema.RelationDefinition, record, target, indent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%spublic function %s()\n", indent, rel.Method)
	fmt.Fprintf(&b, "%s{\n", indent)
	fmt.Fprintf(&b, "%s%sreturn %s;\n", indent, DefaultIndent, RelationCall(rel, record, target))
	fmt.Fprintf(&b, "%s}\n", indent)
	return b.String()
}
