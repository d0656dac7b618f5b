package schema

import "strings"

// Derived is the fully-expanded form of a list used by storage and the
// engine: implicit fields added, table name resolved, lookups computed.
type Derived struct {
	// Source is the original list descriptor.
	Source List

	// Table is the database table name (pluralized, lowercased key).
	Table string

	// Fields contains all fields including implicit ones
	// (id first, createdAt/updatedAt last).
	Fields []Field

	// Lookups are field names usable to find a single item:
	// id plus every unique-indexed field.
	Lookups []string
}

// Field returns the named derived field and whether it exists.
func (d Derived) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Derive expands a list descriptor into its derived form.
func Derive(l List) Derived {
	d := Derived{
		Source: l,
		Table:  Pluralize(strings.ToLower(l.Key)),
	}

	fields := make([]Field, 0, len(l.Fields)+3)
	fields = append(fields, Field{
		Name:  "id",
		Kind:  KindText,
		Index: Unique,
	})
	fields = append(fields, l.Fields...)
	fields = append(fields,
		Field{Name: "createdAt", Kind: KindTimestamp},
		Field{Name: "updatedAt", Kind: KindTimestamp},
	)
	d.Fields = fields

	for _, f := range d.Fields {
		if f.Index == Unique && !f.IsSecret() {
			d.Lookups = append(d.Lookups, f.Name)
		}
	}

	return d
}

// DeriveAll derives every list in a configuration.
func DeriveAll(lists Lists) []Derived {
	out := make([]Derived, len(lists))
	for i, l := range lists {
		out[i] = Derive(l)
	}
	return out
}

// Pluralize returns the plural form of a word using simple English
// rules. List keys are short nouns, so irregulars are a lookup table.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}

	if plural, ok := irregularPlurals[strings.ToLower(word)]; ok {
		if word[0] >= 'A' && word[0] <= 'Z' {
			return strings.ToUpper(plural[:1]) + plural[1:]
		}
		return plural
	}

	lower := strings.ToLower(word)

	if strings.HasSuffix(lower, "s") ||
		strings.HasSuffix(lower, "x") ||
		strings.HasSuffix(lower, "z") ||
		strings.HasSuffix(lower, "ch") ||
		strings.HasSuffix(lower, "sh") {
		return word + "es"
	}

	if strings.HasSuffix(lower, "y") && len(word) > 1 {
		if !isVowel(rune(lower[len(lower)-2])) {
			return word[:len(word)-1] + "ies"
		}
	}

	if strings.HasSuffix(lower, "fe") {
		return word[:len(word)-2] + "ves"
	}
	if strings.HasSuffix(lower, "f") {
		return word[:len(word)-1] + "ves"
	}

	return word + "s"
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	default:
		return false
	}
}

var irregularPlurals = map[string]string{
	"person": "people",
	"child":  "children",
	"man":    "men",
	"woman":  "women",
	"medium": "media",
	"status": "statuses",
	"schema": "schemas",
}
