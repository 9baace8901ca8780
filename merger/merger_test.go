package merger

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/schema"
)

func cast(c schema.Coercion) *schema.Coercion {
	return &c
}

const postModel = `<?php

namespace App\Models\Blog;

use Illuminate\Database\Eloquent\Factories\HasFactory;
use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
    use HasFactory;

    protected $fillable = [
        'title',
        'status',
    ];

    public function author()
    {
        return $this->belongsTo(\App\Models\User::class);
    }
}
`

var modernOpts = Options{ModernCasts: true, RootNamespace: `App\Models`, Record: "Blog/Post"}

// -----------------------------------------------------------------------------
// Slots
// -----------------------------------------------------------------------------

func TestMergeUpdateScenario(t *testing.T) {
	fields := []schema.FieldDefinition{
		{Name: "published_at", Kind: schema.DateTime, Nullable: true, Fillable: true, Cast: cast(schema.CastDateTime)},
	}
	res := MergeAndRender(postModel, fields, nil, modernOpts)

	want := `<?php

namespace App\Models\Blog;

use Illuminate\Database\Eloquent\Factories\HasFactory;
use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
    use HasFactory;

    /**
     * Get the attributes that should be cast.
     *
     * @return array<string, string>
     */
    protected function casts(): array
    {
        return [
            'published_at' => 'datetime',
        ];
    }

    protected $fillable = [
        'title',
        'status',
        'published_at',
    ];

    public function author()
    {
        return $this->belongsTo(\App\Models\User::class);
    }
}
`
	if res.Source != want {
		t.Errorf("unexpected output:\n%s", res.Source)
	}
	if !res.Changed {
		t.Error("Changed should be true")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestSlotRoundTripFromEmptySource(t *testing.T) {
	fields := []schema.FieldDefinition{
		{Name: "a", Kind: schema.Text, Fillable: true},
		{Name: "b", Kind: schema.Text, Hidden: true},
		{Name: "c", Kind: schema.Text, Appended: true},
		{Name: "d", Kind: schema.Integer, Cast: cast(schema.CastInt)},
	}
	res := MergeAndRender("", fields, nil, Options{})

	state := extractor.Extract(res.Source)
	if !reflect.DeepEqual(state.Fillable, []string{"a"}) {
		t.Errorf("fillable = %v", state.Fillable)
	}
	if !reflect.DeepEqual(state.Hidden, []string{"b"}) {
		t.Errorf("hidden = %v", state.Hidden)
	}
	if !reflect.DeepEqual(state.Appends, []string{"c"}) {
		t.Errorf("appends = %v", state.Appends)
	}
	if got := state.Casts.Keys(); !reflect.DeepEqual(got, []string{"d"}) {
		t.Fatalf("casts = %v", got)
	}
	if v, _ := state.Casts.Get("d"); v != "int" {
		t.Errorf("casts[d] = %q, want int", v)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	fields := []schema.FieldDefinition{
		{Name: "title", Kind: schema.Text, Fillable: true},
		{Name: "secret", Kind: schema.Text, Hidden: true, Cast: cast(schema.CastString)},
		{Name: "excerpt", Kind: schema.Text, Appended: true},
		{Name: "options", Kind: schema.JSON, Fillable: true, Cast: cast(schema.CastArray)},
	}
	relations := []schema.RelationDefinition{
		{Method: "tags", Target: "Tag", Kind: schema.BelongsToMany},
	}

	sources := map[string]string{
		"empty":   "",
		"post":    postModel,
		"bare":    "<?php\n\nclass Note extends Model\n{\n}\n",
		"oneline": "<?php class Note extends Model {}",
	}

	for name, src := range sources {
		for _, modern := range []bool{true, false} {
			opts := Options{ModernCasts: modern, RootNamespace: `App\Models`, Record: "Post"}
			once := MergeAndRender(src, fields, relations, opts)
			twice := MergeAndRender(once.Source, fields, relations, opts)
			if twice.Source != once.Source {
				t.Errorf("%s (modern=%v): second merge changed output:\n--- first\n%s\n--- second\n%s", name, modern, once.Source, twice.Source)
			}
			if twice.Changed {
				t.Errorf("%s (modern=%v): second merge reported a change", name, modern)
			}
			if name != "empty" && len(twice.Skipped) != len(relations) {
				t.Errorf("%s (modern=%v): second merge should skip every relation, skipped %d", name, modern, len(twice.Skipped))
			}
		}
	}
}

func TestExistingCastIsNeverReplaced(t *testing.T) {
	src := "<?php\nclass A extends Model\n{\n    protected $casts = [\n        'flag' => 'bool',\n    ];\n}\n"
	fields := []schema.FieldDefinition{{Name: "flag", Kind: schema.Integer, Cast: cast(schema.CastInt)}}

	res := MergeAndRender(src, fields, nil, Options{})
	if res.Source != src {
		t.Errorf("existing cast was modified:\n%s", res.Source)
	}
}

func TestVerbatimEntriesSurvive(t *testing.T) {
	src := "<?php\nclass A extends Model\n{\n    protected $casts = ['meta' => AsCollection::class];\n}\n"
	fields := []schema.FieldDefinition{{Name: "n", Kind: schema.Integer, Cast: cast(schema.CastInt)}}

	res := MergeAndRender(src, fields, nil, Options{})
	want := "<?php\nclass A extends Model\n{\n    protected $casts = [\n        'meta' => AsCollection::class,\n        'n' => 'int',\n    ];\n}\n"
	if res.Source != want {
		t.Errorf("got:\n%s\nwant:\n%s", res.Source, want)
	}
}

func TestMethodLocalAssignmentIsNotTheSlot(t *testing.T) {
	src := `<?php

namespace App\Models;

use Illuminate\Database\Eloquent\Model;

class Post extends Model
{
    public static function seed()
    {
        $fillable = ['tmp'];

        return static::create(['title' => 'x']);
    }

    protected $fillable = ['title', 'body'];
}
`
	fields := []schema.FieldDefinition{{Name: "published_at", Kind: schema.DateTime, Fillable: true}}

	res := MergeAndRender(src, fields, nil, Options{})
	if !strings.Contains(res.Source, "    {\n        $fillable = ['tmp'];\n") {
		t.Errorf("method body was rewritten:\n%s", res.Source)
	}
	want := "    protected $fillable = [\n        'title',\n        'body',\n        'published_at',\n    ];\n}\n"
	if !strings.HasSuffix(res.Source, want) {
		t.Errorf("property not updated:\n%s", res.Source)
	}
	if n := strings.Count(res.Source, "protected $fillable"); n != 1 {
		t.Errorf("found %d fillable declarations", n)
	}
}

func TestSlotCommentsSurvive(t *testing.T) {
	src := `<?php
class User extends Model
{
    protected $hidden = [
        'password', // never serialised, ever
        // issued by the api
        'api_token',
        /* legacy */
    ];
}
`
	fields := []schema.FieldDefinition{{Name: "secret", Kind: schema.Text, Hidden: true}}

	res := MergeAndRender(src, fields, nil, Options{})
	want := `<?php
class User extends Model
{
    protected $hidden = [
        'password', // never serialised, ever
        // issued by the api
        'api_token',
        'secret',
        /* legacy */
    ];
}
`
	if res.Source != want {
		t.Fatalf("got:\n%s\nwant:\n%s", res.Source, want)
	}
	if again := MergeAndRender(res.Source, fields, nil, Options{}); again.Changed {
		t.Errorf("second merge changed the file:\n%s", again.Source)
	}
}

func TestTabIndentedClass(t *testing.T) {
	src := "<?php\nclass Post extends Model\n{\n" +
		"\tprotected $fillable = [\n\t\t'title',\n\t];\n\n" +
		"\tprotected $hidden = ['token'];\n\n" +
		"\tprotected function casts(): array\n\t{\n\t\treturn [\n\t\t\t'flag' => 'bool',\n\t\t];\n\t}\n}\n"
	fields := []schema.FieldDefinition{{Name: "body", Kind: schema.Text, Fillable: true, Hidden: true, Cast: cast(schema.CastArray)}}

	res := MergeAndRender(src, fields, nil, Options{})
	want := "<?php\nclass Post extends Model\n{\n" +
		"\tprotected $fillable = [\n\t\t'title',\n\t\t'body',\n\t];\n\n" +
		"\tprotected $hidden = [\n\t\t'token',\n\t\t'body',\n\t];\n\n" +
		"\tprotected function casts(): array\n\t{\n\t\treturn [\n\t\t\t'flag' => 'bool',\n\t\t\t'body' => 'array',\n\t\t];\n\t}\n}\n"
	if res.Source != want {
		t.Errorf("got:\n%q\nwant:\n%q", res.Source, want)
	}
	if strings.Contains(res.Source, "\t    ") {
		t.Error("tabs and spaces mixed on one line")
	}
}

// -----------------------------------------------------------------------------
// Dialects
// -----------------------------------------------------------------------------

func TestChooseDialect(t *testing.T) {
	accessor := "<?php class A { protected function casts(): array { return []; } }"
	legacy := "<?php class A { protected $casts = []; }"

	tests := []struct {
		name   string
		modern bool
		src    string
		want   extractor.Dialect
	}{
		{"modern host", true, legacy, extractor.AccessorMethod},
		{"legacy host, legacy file", false, legacy, extractor.LegacyProperty},
		{"legacy host, accessor file", false, accessor, extractor.AccessorMethod},
		{"legacy host, new file", false, "", extractor.LegacyProperty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseDialect(tt.modern, tt.src); got != tt.want {
				t.Errorf("ChooseDialect = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestModernHostConvertsLegacyCasts(t *testing.T) {
	src := `<?php
class A extends Model
{
    protected $casts = [
        'options' => 'array',
    ];
}
`
	fields := []schema.FieldDefinition{{Name: "born_on", Kind: schema.Date, Cast: cast(schema.CastDate)}}
	res := MergeAndRender(src, fields, nil, Options{ModernCasts: true})

	want := `<?php
class A extends Model
{
    protected function casts(): array
    {
        return [
            'options' => 'array',
            'born_on' => 'date',
        ];
    }
}
`
	if res.Source != want {
		t.Errorf("got:\n%s", res.Source)
	}
}

func TestAccessorAbsorbsStrayLegacyProperty(t *testing.T) {
	src := `<?php
class A extends Model
{
    protected $casts = ['old' => 'int'];

    protected function casts(): array
    {
        return ['new' => 'bool'];
    }
}
`
	res := MergeAndRender(src, nil, nil, Options{})
	if strings.Contains(res.Source, "$casts") {
		t.Errorf("legacy property should be removed:\n%s", res.Source)
	}
	m := extractor.ExtractMap(res.Source, extractor.Casts)
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"new", "old"}) {
		t.Errorf("casts keys = %v", got)
	}
}

// -----------------------------------------------------------------------------
// Malformed slots
// -----------------------------------------------------------------------------

func TestMalformedSlotIsLeftUntouched(t *testing.T) {
	src := `<?php
class A extends Model
{
    protected $fillable = ['a', 'b';

    protected function casts(): array
    {
        return array_merge(parent::casts(), ['x' => 'int']);
    }
}
`
	fields := []schema.FieldDefinition{
		{Name: "c", Kind: schema.Text, Fillable: true, Cast: cast(schema.CastInt)},
	}
	res := MergeAndRender(src, fields, nil, Options{ModernCasts: true})

	if res.Source != src {
		t.Errorf("malformed declarations must not be rewritten:\n%s", res.Source)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("want 2 warnings, got %v", res.Warnings)
	}
}

// -----------------------------------------------------------------------------
// Relations
// -----------------------------------------------------------------------------

func TestRelationNoClobber(t *testing.T) {
	src := `<?php

namespace App\Models;

class User extends Model
{
    public function posts()
    {
        // hand-tuned
        return $this->hasMany(Post::class)->latest();
    }
}
`
	rel := schema.RelationDefinition{Method: "posts", Target: "Post", Kind: schema.HasMany}
	res := MergeAndRender(src, nil, []schema.RelationDefinition{rel}, Options{RootNamespace: `App\Models`, Record: "User"})

	if res.Source != src {
		t.Errorf("existing accessor was modified:\n%s", res.Source)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Method != "posts" {
		t.Errorf("Skipped = %v", res.Skipped)
	}
	if len(res.Added) != 0 {
		t.Errorf("Added = %v", res.Added)
	}
}

func TestRelationsAppendedBeforeClosingBrace(t *testing.T) {
	src := `<?php

namespace App\Models;

use App\Models\Media\Image;

class Post extends Model
{
    public function author()
    {
        return $this->belongsTo(User::class);
    }
}
`
	relations := []schema.RelationDefinition{
		{Method: "comments", Target: "Comment", Kind: schema.MorphMany},
		{Method: "cover", Target: "Media/Image", Kind: schema.MorphOne},
		{Method: "editor", Target: `Acme\Staff\Editor`, Kind: schema.BelongsTo},
		{Method: "Comments", Target: "Comment", Kind: schema.HasMany},
	}
	res := MergeAndRender(src, nil, relations, Options{RootNamespace: `App\Models`, Record: "Post"})

	want := `<?php

namespace App\Models;

use App\Models\Media\Image;

class Post extends Model
{
    public function author()
    {
        return $this->belongsTo(User::class);
    }

    public function comments()
    {
        return $this->morphMany(Comment::class, 'commentable');
    }

    public function cover()
    {
        return $this->morphOne(Image::class, 'coverable');
    }

    public function editor()
    {
        return $this->belongsTo(\Acme\Staff\Editor::class);
    }
}
`
	if res.Source != want {
		t.Errorf("got:\n%s", res.Source)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Method != "Comments" {
		t.Errorf("duplicate method in the batch should be skipped, got %v", res.Skipped)
	}
}

func TestNoClassDeclaration(t *testing.T) {
	src := "<?php\n\nreturn ['a' => 1];\n"
	rel := schema.RelationDefinition{Method: "owner", Target: "User", Kind: schema.BelongsTo}
	res := MergeAndRender(src, []schema.FieldDefinition{{Name: "x", Fillable: true}}, []schema.RelationDefinition{rel}, Options{})
	if res.Source != src || res.Changed {
		t.Error("source without a class must be left alone")
	}
	if len(res.Warnings) != 1 || len(res.Skipped) != 1 {
		t.Errorf("warnings=%v skipped=%v", res.Warnings, res.Skipped)
	}
}
