// Package schema defines the declarative descriptors an application is
// configured from: lists of fields, plus the boot-time validation that
// keeps a configuration internally consistent before anything runs.
package schema

// List is a named entity type: a key plus an ordered set of fields.
// Field order is declaration order and is preserved for display.
type List struct {
	// Key is the list name, unique across the configuration
	// (e.g. "User", "Post").
	Key string

	// Fields are the attributes of this list, in declaration order.
	Fields []Field
}

// Field returns the named field and whether it exists.
func (l List) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// NewList builds a list from name/field pairs. It is the Go-side
// declaration surface; validation happens at boot via Validate.
func NewList(key string, fields ...Field) List {
	return List{Key: key, Fields: fields}
}

// Lists is an ordered collection of list descriptors.
type Lists []List

// Get returns the list with the given key and whether it exists.
func (ls Lists) Get(key string) (List, bool) {
	for _, l := range ls {
		if l.Key == key {
			return l, true
		}
	}
	return List{}, false
}
