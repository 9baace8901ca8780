// Package naming holds the string conventions shared by the model and
// migration generators, so table, column and file names agree everywhere.
package naming

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/jinzhu/inflection"
)

// TimestampLayout is the migration filename prefix layout (Y_m_d_His).
const TimestampLayout = "2006_01_02_150405"

// -----------------------------------------------------------------------------
// Case conversion
// -----------------------------------------------------------------------------

// Snake converts a string to snake_case.
// Examples: userName -> user_name, BlogPost -> blog_post, HTTPServer -> http_server
func Snake(s string) string {
	if s == "" {
		return ""
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == ' ':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Studly converts a string to StudlyCase (PascalCase).
// Examples: blog_post -> BlogPost, author -> Author
func Studly(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Inflection
// -----------------------------------------------------------------------------

func Plural(s string) string {
	return inflection.Plural(s)
}

func Singular(s string) string {
	return inflection.Singular(s)
}

// -----------------------------------------------------------------------------
// Type references
// -----------------------------------------------------------------------------

// splitRef splits Blog/Post, Blog\Post or \App\Models\Post into segments.
func splitRef(ref string) []string {
	ref = strings.ReplaceAll(ref, "/", `\`)
	ref = strings.Trim(ref, `\`)
	if ref == "" {
		return nil
	}
	return strings.Split(ref, `\`)
}

// Base returns the last segment of a possibly namespaced type reference.
// Examples: Blog/Post -> Post, App\Models\User -> User
func Base(ref string) string {
	parts := splitRef(ref)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// SubNamespace returns the directory part of a relative record ref.
// Example: Blog/Post -> Blog, Post -> ""
func SubNamespace(ref string) string {
	parts := splitRef(ref)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], `\`)
}

// IsQualified reports whether ref is already a full class name (uses backslashes).
func IsQualified(ref string) bool {
	return strings.Contains(ref, `\`)
}

// ModelNamespace joins the root namespace with a record's sub-namespace.
// Example: ModelNamespace(`App\Models`, "Blog/Post") -> App\Models\Blog
func ModelNamespace(root, record string) string {
	root = strings.Trim(root, `\`)
	sub := SubNamespace(record)
	if sub == "" {
		return root
	}
	if root == "" {
		return sub
	}
	return root + `\` + sub
}

// QualifiedClass resolves a relation target to a full class name without a
// leading backslash. Relative refs (User, Blog/Author) hang off root.
func QualifiedClass(root, ref string) string {
	if IsQualified(ref) {
		return strings.Trim(ref, `\`)
	}
	parts := splitRef(ref)
	root = strings.Trim(root, `\`)
	if root == "" {
		return strings.Join(parts, `\`)
	}
	return root + `\` + strings.Join(parts, `\`)
}

// ClassNamespace returns everything before the last segment of a full class name.
func ClassNamespace(class string) string {
	class = strings.Trim(class, `\`)
	i := strings.LastIndex(class, `\`)
	if i < 0 {
		return ""
	}
	return class[:i]
}

// ModelPath is the model file path for record under modelsDir.
// Example: ModelPath("app/Models", "Blog/Post") -> app/Models/Blog/Post.php
func ModelPath(modelsDir, record string) string {
	parts := splitRef(record)
	return strings.TrimRight(modelsDir, "/") + "/" + strings.Join(parts, "/") + ".php"
}

// -----------------------------------------------------------------------------
// Storage naming
// -----------------------------------------------------------------------------

// TableName is the plural snake_case table of a record type.
// Example: Blog/Post -> posts, BlogPost -> blog_posts
func TableName(record string) string {
	return Plural(Snake(Base(record)))
}

// ForeignKey is the column holding a belongsTo reference for method.
// Example: author -> author_id
func ForeignKey(method string) string {
	return Snake(method) + "_id"
}

// MorphName is the polymorphic column base a morphOne/morphMany method owns.
// Example: comments -> commentable, image -> imageable
func MorphName(method string) string {
	return Singular(Snake(method)) + "able"
}

// MorphColumns expands a polymorphic base into its id/type pair.
func MorphColumns(base string) (string, string) {
	return base + "_id", base + "_type"
}

// IndexName derives the default index name for table and columns.
// Example: IndexName("posts", "status") -> posts_status_index
func IndexName(table string, cols ...string) string {
	parts := append([]string{table}, cols...)
	return strings.ToLower(strings.Join(parts, "_")) + "_index"
}

// JunctionTable joins the singular snake names of two record types in lexical order.
// Example: JunctionTable("Post", "Tag") -> post_tag
func JunctionTable(a, b string) string {
	names := []string{Singular(Snake(Base(a))), Singular(Snake(Base(b)))}
	sort.Strings(names)
	return names[0] + "_" + names[1]
}

// -----------------------------------------------------------------------------
// Migration files
// -----------------------------------------------------------------------------

// Action is the verb embedded in a migration filename.
type Action string

const (
	Create Action = "create"
	Update Action = "update"
)

// Timestamp formats t as a migration filename prefix.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// MigrationFile builds <timestamp>_<action>_<table>_table.php.
func MigrationFile(t time.Time, action Action, table string) string {
	return fmt.Sprintf("%s_%s_%s_table.php", Timestamp(t), action, table)
}

// MigrationGlob matches every migration of action for table in dir.
func MigrationGlob(dir string, action Action, table string) string {
	return fmt.Sprintf("%s/*_%s_%s_table.php", strings.TrimRight(dir, "/"), action, table)
}
