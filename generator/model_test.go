package generator

import (
	"strings"
	"testing"

	"github.com/ridoystarlord/modelforge/extractor"
	"github.com/ridoystarlord/modelforge/merger"
	"github.com/ridoystarlord/modelforge/schema"
)

func TestBuildModelScenario(t *testing.T) {
	src, err := BuildModel(ModelOptions{RootNamespace: `App\Models`, ModernCasts: true}, blogPost())
	if err != nil {
		t.Fatal(err)
	}

	want := `<?php

namespace App\Models\Blog;

use App\Models\User;
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
        return $this->belongsTo(User::class);
    }
}
`
	if src != want {
		t.Errorf("unexpected model:\n%s", src)
	}
}

func TestBuildModelGuardsWhenNothingFillable(t *testing.T) {
	cast := schema.CastBool
	batch := schema.Batch{
		Record: "Setting",
		Fields: []schema.FieldDefinition{
			{Name: "token", Kind: schema.Text, Hidden: true},
			{Name: "enabled", Kind: schema.Boolean, Cast: &cast},
		},
	}

	src, err := BuildModel(ModelOptions{RootNamespace: `App\Models`}, batch)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src, "protected $guarded = ['*'];") {
		t.Errorf("missing guard:\n%s", src)
	}
	if !strings.Contains(src, "namespace App\\Models;") {
		t.Errorf("wrong namespace:\n%s", src)
	}
	if !strings.Contains(src, "protected $casts = [\n        'enabled' => 'bool',\n    ];") {
		t.Errorf("legacy host should render the casts property:\n%s", src)
	}

	state := extractor.Extract(src)
	if len(state.Fillable) != 0 || len(state.Hidden) != 1 || state.Casts.Len() != 1 {
		t.Errorf("state = %+v", state)
	}
}

func TestBuildModelImports(t *testing.T) {
	batch := schema.Batch{
		Record: "Blog/Post",
		Relations: []schema.RelationDefinition{
			{Method: "comments", Target: "Blog/Comment", Kind: schema.HasMany},
			{Method: "editor", Target: "Staff/User", Kind: schema.BelongsTo},
			{Method: "owner", Target: "User", Kind: schema.BelongsTo},
			{Method: "photos", Target: `Spatie\MediaLibrary\Media`, Kind: schema.MorphMany},
		},
	}
	src, err := BuildModel(ModelOptions{RootNamespace: `App\Models`}, batch)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"use Spatie\\MediaLibrary\\Media;",
		"return $this->hasMany(Comment::class);",
		"return $this->belongsTo(\\App\\Models\\Staff\\User::class);",
		"return $this->belongsTo(\\App\\Models\\User::class);",
		"return $this->morphMany(Media::class, 'photoable');",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("missing %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "use App\\Models\\User;") || strings.Contains(src, "use App\\Models\\Blog\\Comment;") {
		t.Errorf("unexpected import:\n%s", src)
	}
}

func TestBuildThenMergeIsStable(t *testing.T) {
	cast := schema.CastDateTime
	batch := blogPost()
	batch.Fields = append(batch.Fields,
		schema.FieldDefinition{Name: "published_at", Kind: schema.DateTime, Fillable: true, Cast: &cast},
		schema.FieldDefinition{Name: "secret", Kind: schema.Text, Hidden: true},
	)

	for _, modern := range []bool{true, false} {
		src, err := BuildModel(ModelOptions{RootNamespace: `App\Models`, ModernCasts: modern}, batch)
		if err != nil {
			t.Fatal(err)
		}
		res := merger.MergeAndRender(src, batch.Fields, batch.Relations, merger.Options{
			ModernCasts:   modern,
			RootNamespace: `App\Models`,
			Record:        batch.Record,
		})
		if res.Changed {
			t.Errorf("modern=%v: merging the same batch changed a fresh model:\n%s", modern, res.Source)
		}
		if len(res.Skipped) != len(batch.Relations) {
			t.Errorf("modern=%v: skipped = %v", modern, res.Skipped)
		}
	}
}
