package schema

// Field defines a single attribute of a list.
type Field struct {
	// Name is the field name, unique within its list.
	Name string `yaml:"-"`

	// Kind is the field kind. See Kind constants.
	Kind Kind `yaml:"kind"`

	// Validation holds the validation rules applied on writes.
	Validation Validation `yaml:"validation,omitempty"`

	// Index controls database indexing for this field.
	Index Index `yaml:"index,omitempty"`

	// Default value applied on create when the field is absent.
	Default any `yaml:"default,omitempty"`

	// Options lists the permitted values for select fields.
	Options []Option `yaml:"options,omitempty"`

	// Ref names the target of a relationship field, either "List"
	// or "List.field" for a two-sided relationship.
	Ref string `yaml:"ref,omitempty"`

	// Many indicates a to-many relationship.
	Many bool `yaml:"many,omitempty"`

	// UI carries display hints for the admin surface.
	UI UIHints `yaml:"ui,omitempty"`
}

// Kind identifies a field kind.
type Kind string

const (
	KindText         Kind = "text"
	KindInteger      Kind = "integer"
	KindFloat        Kind = "float"
	KindCheckbox     Kind = "checkbox"
	KindTimestamp    Kind = "timestamp"
	KindSelect       Kind = "select"
	KindRelationship Kind = "relationship"
	KindPassword     Kind = "password"
)

// Index controls how a field is indexed.
type Index string

const (
	// IndexNone means no index.
	IndexNone Index = ""

	// Indexed creates a non-unique database index.
	Indexed Index = "indexed"

	// Unique creates a unique index. Unique fields can be used to
	// look up single items, e.g. a user's email.
	Unique Index = "unique"
)

// Validation holds the declarative validation rules for a field.
type Validation struct {
	// IsRequired rejects create operations that omit the field.
	IsRequired bool `yaml:"isRequired,omitempty"`

	// Length bounds the length of text values.
	Length *LengthRange `yaml:"length,omitempty"`

	// Match requires text values to match a regular expression.
	Match *Match `yaml:"match,omitempty"`
}

// LengthRange bounds the length of a text value. Nil bounds are open.
type LengthRange struct {
	Min *int `yaml:"min,omitempty"`
	Max *int `yaml:"max,omitempty"`
}

// Match is a regular-expression validation rule.
type Match struct {
	// Regex is the pattern, compiled at boot.
	Regex string `yaml:"regex"`

	// Explanation replaces the default error message.
	Explanation string `yaml:"explanation,omitempty"`
}

// Option is one permitted value of a select field.
type Option struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// UIHints carries display hints consumed by the admin surface.
type UIHints struct {
	// DisplayMode selects an alternate widget (e.g. "textarea",
	// "segmented-control").
	DisplayMode string `yaml:"displayMode,omitempty"`

	// Description is shown next to the field in forms.
	Description string `yaml:"description,omitempty"`
}

// IsSecret returns whether values of this field are write-only.
// Secret values are hashed at rest and never returned by reads.
func (f Field) IsSecret() bool {
	return f.Kind == KindPassword
}

// SQLType returns the SQLite column type for this field.
func (f Field) SQLType() string {
	switch f.Kind {
	case KindInteger, KindCheckbox:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindPassword:
		return "BLOB"
	default:
		return "TEXT"
	}
}
