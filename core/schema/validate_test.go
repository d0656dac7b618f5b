package schema

import (
	"strings"
	"testing"
)

func intPtr(i int) *int { return &i }

func validLists() Lists {
	return Lists{
		NewList("User",
			Field{Name: "name", Kind: KindText, Validation: Validation{IsRequired: true}},
			Field{Name: "email", Kind: KindText, Index: Unique},
			Field{Name: "password", Kind: KindPassword},
			Field{Name: "posts", Kind: KindRelationship, Ref: "Post.author", Many: true},
		),
		NewList("Post",
			Field{Name: "title", Kind: KindText, Validation: Validation{IsRequired: true}},
			Field{Name: "status", Kind: KindSelect, Options: []Option{
				{Label: "Draft", Value: "draft"},
				{Label: "Published", Value: "published"},
			}, Default: "draft"},
			Field{Name: "author", Kind: KindRelationship, Ref: "User.posts"},
		),
	}
}

func TestValidate_ValidConfiguration(t *testing.T) {
	if err := Validate(validLists()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		lists   Lists
		wantMsg string
	}{
		{
			name:    "empty list key",
			lists:   Lists{NewList("", Field{Name: "a", Kind: KindText})},
			wantMsg: "list key is required",
		},
		{
			name:    "invalid list key",
			lists:   Lists{NewList("Bad Key", Field{Name: "a", Kind: KindText})},
			wantMsg: "not a valid identifier",
		},
		{
			name: "duplicate list key",
			lists: Lists{
				NewList("User", Field{Name: "a", Kind: KindText}),
				NewList("User", Field{Name: "b", Kind: KindText}),
			},
			wantMsg: `duplicate list key "User"`,
		},
		{
			name:    "list without fields",
			lists:   Lists{NewList("User")},
			wantMsg: "at least one field",
		},
		{
			name: "duplicate field name",
			lists: Lists{NewList("User",
				Field{Name: "a", Kind: KindText},
				Field{Name: "a", Kind: KindText},
			)},
			wantMsg: "duplicate field User.a",
		},
		{
			name:    "reserved field name",
			lists:   Lists{NewList("User", Field{Name: "id", Kind: KindText})},
			wantMsg: "redeclares an implicit field",
		},
		{
			name:    "unknown kind",
			lists:   Lists{NewList("User", Field{Name: "a", Kind: "blob"})},
			wantMsg: `unknown kind "blob"`,
		},
		{
			name:    "select without options",
			lists:   Lists{NewList("User", Field{Name: "role", Kind: KindSelect})},
			wantMsg: "select requires options",
		},
		{
			name: "select default not in options",
			lists: Lists{NewList("User", Field{Name: "role", Kind: KindSelect,
				Options: []Option{{Label: "Admin", Value: "admin"}},
				Default: "owner",
			})},
			wantMsg: "not one of the options",
		},
		{
			name: "duplicate option value",
			lists: Lists{NewList("User", Field{Name: "role", Kind: KindSelect,
				Options: []Option{
					{Label: "A", Value: "admin"},
					{Label: "B", Value: "admin"},
				},
			})},
			wantMsg: `duplicate option value "admin"`,
		},
		{
			name:    "relationship without ref",
			lists:   Lists{NewList("User", Field{Name: "posts", Kind: KindRelationship})},
			wantMsg: "relationship requires ref",
		},
		{
			name: "dangling ref",
			lists: Lists{NewList("User",
				Field{Name: "posts", Kind: KindRelationship, Ref: "Post"},
			)},
			wantMsg: `unknown list "Post"`,
		},
		{
			name: "two-sided ref target missing",
			lists: Lists{
				NewList("User", Field{Name: "posts", Kind: KindRelationship, Ref: "Post.author", Many: true}),
				NewList("Post", Field{Name: "title", Kind: KindText}),
			},
			wantMsg: `unknown field "author"`,
		},
		{
			name: "two-sided ref not pointing back",
			lists: Lists{
				NewList("User", Field{Name: "posts", Kind: KindRelationship, Ref: "Post.author", Many: true}),
				NewList("Post",
					Field{Name: "title", Kind: KindText},
					Field{Name: "author", Kind: KindRelationship, Ref: "Team"},
				),
				NewList("Team", Field{Name: "name", Kind: KindText}),
			},
			wantMsg: "does not point back",
		},
		{
			name:    "ref on non-relationship field",
			lists:   Lists{NewList("User", Field{Name: "a", Kind: KindText, Ref: "Post"})},
			wantMsg: "only valid on relationship fields",
		},
		{
			name:    "password with index",
			lists:   Lists{NewList("User", Field{Name: "password", Kind: KindPassword, Index: Unique})},
			wantMsg: "cannot be indexed",
		},
		{
			name:    "password with default",
			lists:   Lists{NewList("User", Field{Name: "password", Kind: KindPassword, Default: "hunter2"})},
			wantMsg: "cannot have a default",
		},
		{
			name: "invalid match regex",
			lists: Lists{NewList("User", Field{Name: "a", Kind: KindText,
				Validation: Validation{Match: &Match{Regex: "("}},
			})},
			wantMsg: "invalid match regex",
		},
		{
			name: "length min above max",
			lists: Lists{NewList("User", Field{Name: "a", Kind: KindText,
				Validation: Validation{Length: &LengthRange{Min: intPtr(10), Max: intPtr(2)}},
			})},
			wantMsg: "min 10 exceeds max 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.lists)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	lists := Lists{
		NewList("User",
			Field{Name: "id", Kind: KindText},
			Field{Name: "role", Kind: KindSelect},
			Field{Name: "boss", Kind: KindRelationship},
		),
	}

	err := Validate(lists)
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"redeclares", "select requires options", "relationship requires ref"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() missing %q in %q", want, err)
		}
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref       string
		wantList  string
		wantField string
	}{
		{"Post", "Post", ""},
		{"Post.author", "Post", "author"},
		{"User.team.lead", "User", "team.lead"},
	}

	for _, tt := range tests {
		list, field := ParseRef(tt.ref)
		if list != tt.wantList || field != tt.wantField {
			t.Errorf("ParseRef(%q) = (%q, %q), want (%q, %q)",
				tt.ref, list, field, tt.wantList, tt.wantField)
		}
	}
}
