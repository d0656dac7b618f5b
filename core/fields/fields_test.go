package fields

import (
	"testing"

	"github.com/shelf-cms/shelf/core/schema"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field schema.Field
		kind  schema.Kind
	}{
		{"text", Text("title", TextOptions{}), schema.KindText},
		{"integer", Integer("views", IntegerOptions{}), schema.KindInteger},
		{"float", Float("rating", FloatOptions{}), schema.KindFloat},
		{"checkbox", Checkbox("done", CheckboxOptions{}), schema.KindCheckbox},
		{"timestamp", Timestamp("publishedAt", TimestampOptions{}), schema.KindTimestamp},
		{"select", Select("status", SelectOptions{}), schema.KindSelect},
		{"relationship", Relationship("author", RelationshipOptions{Ref: "User"}), schema.KindRelationship},
		{"password", Password("password", PasswordOptions{}), schema.KindPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Kind != tt.kind {
				t.Errorf("kind = %q, want %q", tt.field.Kind, tt.kind)
			}
			if tt.field.Name == "" {
				t.Error("name not set")
			}
		})
	}
}

func TestText_Options(t *testing.T) {
	max := 80
	f := Text("title", TextOptions{
		Validation:   schema.Validation{IsRequired: true, Length: &schema.LengthRange{Max: &max}},
		IsIndexed:    schema.Unique,
		DefaultValue: "untitled",
	})

	if !f.Validation.IsRequired {
		t.Error("should be required")
	}
	if f.Index != schema.Unique {
		t.Errorf("index = %q, want unique", f.Index)
	}
	if f.Default != "untitled" {
		t.Errorf("default = %v, want untitled", f.Default)
	}
}

func TestTimestamp_DefaultToNow(t *testing.T) {
	f := Timestamp("publishedAt", TimestampOptions{DefaultToNow: true})
	if f.Default != "now" {
		t.Errorf("default = %v, want now", f.Default)
	}

	plain := Timestamp("publishedAt", TimestampOptions{})
	if plain.Default != nil {
		t.Errorf("default = %v, want nil", plain.Default)
	}
}

func TestSelect_Options(t *testing.T) {
	f := Select("status", SelectOptions{
		Options: []schema.Option{
			{Label: "Draft", Value: "draft"},
			{Label: "Published", Value: "published"},
		},
		DefaultValue: "draft",
	})

	if len(f.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(f.Options))
	}
	if f.Default != "draft" {
		t.Errorf("default = %v, want draft", f.Default)
	}
}

func TestRelationship_TwoSided(t *testing.T) {
	f := Relationship("posts", RelationshipOptions{Ref: "Post.author", Many: true})
	if f.Ref != "Post.author" {
		t.Errorf("ref = %q", f.Ref)
	}
	if !f.Many {
		t.Error("many should be set")
	}
}

func TestDeclaredListValidates(t *testing.T) {
	lists := schema.Lists{
		schema.NewList("User",
			Text("name", TextOptions{Validation: schema.Validation{IsRequired: true}}),
			Text("email", TextOptions{IsIndexed: schema.Unique}),
			Password("password", PasswordOptions{}),
			Relationship("posts", RelationshipOptions{Ref: "Post.author", Many: true}),
		),
		schema.NewList("Post",
			Text("title", TextOptions{Validation: schema.Validation{IsRequired: true}}),
			Timestamp("publishedAt", TimestampOptions{DefaultToNow: true}),
			Relationship("author", RelationshipOptions{Ref: "User.posts"}),
		),
	}

	if err := schema.Validate(lists); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
