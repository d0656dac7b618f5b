// Package fields provides the constructors used to declare list fields
// in Go code. Each constructor returns a plain schema.Field descriptor;
// no validation happens here — a bad declaration is reported when the
// whole configuration is validated at boot.
package fields

import "github.com/shelf-cms/shelf/core/schema"

// TextOptions configures a text field.
type TextOptions struct {
	Validation   schema.Validation
	IsIndexed    schema.Index
	DefaultValue string
	UI           schema.UIHints
}

// Text declares a free-form text field.
func Text(name string, opts TextOptions) schema.Field {
	f := schema.Field{
		Name:       name,
		Kind:       schema.KindText,
		Validation: opts.Validation,
		Index:      opts.IsIndexed,
		UI:         opts.UI,
	}
	if opts.DefaultValue != "" {
		f.Default = opts.DefaultValue
	}
	return f
}

// IntegerOptions configures an integer field.
type IntegerOptions struct {
	Validation   schema.Validation
	IsIndexed    schema.Index
	DefaultValue *int64
	UI           schema.UIHints
}

// Integer declares a whole-number field.
func Integer(name string, opts IntegerOptions) schema.Field {
	f := schema.Field{
		Name:       name,
		Kind:       schema.KindInteger,
		Validation: opts.Validation,
		Index:      opts.IsIndexed,
		UI:         opts.UI,
	}
	if opts.DefaultValue != nil {
		f.Default = *opts.DefaultValue
	}
	return f
}

// FloatOptions configures a float field.
type FloatOptions struct {
	Validation   schema.Validation
	DefaultValue *float64
	UI           schema.UIHints
}

// Float declares a floating-point field.
func Float(name string, opts FloatOptions) schema.Field {
	f := schema.Field{
		Name:       name,
		Kind:       schema.KindFloat,
		Validation: opts.Validation,
		UI:         opts.UI,
	}
	if opts.DefaultValue != nil {
		f.Default = *opts.DefaultValue
	}
	return f
}

// CheckboxOptions configures a checkbox field.
type CheckboxOptions struct {
	DefaultValue *bool
	UI           schema.UIHints
}

// Checkbox declares a boolean field.
func Checkbox(name string, opts CheckboxOptions) schema.Field {
	f := schema.Field{
		Name: name,
		Kind: schema.KindCheckbox,
		UI:   opts.UI,
	}
	if opts.DefaultValue != nil {
		f.Default = *opts.DefaultValue
	}
	return f
}

// TimestampOptions configures a timestamp field.
type TimestampOptions struct {
	Validation schema.Validation
	IsIndexed  schema.Index
	// DefaultToNow stamps the current time on create when no value
	// is provided.
	DefaultToNow bool
	UI           schema.UIHints
}

// Timestamp declares a point-in-time field, stored as RFC 3339 text.
func Timestamp(name string, opts TimestampOptions) schema.Field {
	f := schema.Field{
		Name:       name,
		Kind:       schema.KindTimestamp,
		Validation: opts.Validation,
		Index:      opts.IsIndexed,
		UI:         opts.UI,
	}
	if opts.DefaultToNow {
		f.Default = "now"
	}
	return f
}

// SelectOptions configures a select field.
type SelectOptions struct {
	Options      []schema.Option
	Validation   schema.Validation
	IsIndexed    schema.Index
	DefaultValue string
	UI           schema.UIHints
}

// Select declares a field restricted to a fixed set of values.
func Select(name string, opts SelectOptions) schema.Field {
	f := schema.Field{
		Name:       name,
		Kind:       schema.KindSelect,
		Validation: opts.Validation,
		Index:      opts.IsIndexed,
		Options:    opts.Options,
		UI:         opts.UI,
	}
	if opts.DefaultValue != "" {
		f.Default = opts.DefaultValue
	}
	return f
}

// RelationshipOptions configures a relationship field.
type RelationshipOptions struct {
	// Ref names the target: "List" for one-sided, "List.field" for
	// two-sided relationships.
	Ref  string
	Many bool
	UI   schema.UIHints
}

// Relationship declares a link to items of another list.
func Relationship(name string, opts RelationshipOptions) schema.Field {
	return schema.Field{
		Name: name,
		Kind: schema.KindRelationship,
		Ref:  opts.Ref,
		Many: opts.Many,
		UI:   opts.UI,
	}
}

// PasswordOptions configures a password field.
type PasswordOptions struct {
	Validation schema.Validation
	UI         schema.UIHints
}

// Password declares a credential field. Values are hashed at rest and
// never returned by reads.
func Password(name string, opts PasswordOptions) schema.Field {
	return schema.Field{
		Name:       name,
		Kind:       schema.KindPassword,
		Validation: opts.Validation,
		UI:         opts.UI,
	}
}
