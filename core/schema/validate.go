package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Reserved field names added implicitly by Derive. Declaring them is a
// configuration error.
var reservedFieldNames = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
}

// Validate checks a full set of list descriptors for internal
// consistency. All errors are collected so a misconfiguration surfaces
// as one boot failure instead of a fix-one-find-another loop.
func Validate(lists Lists) error {
	var errs []string

	seen := make(map[string]bool, len(lists))
	for _, l := range lists {
		if l.Key == "" {
			errs = append(errs, "list key is required")
			continue
		}
		if !isValidIdentifier(l.Key) {
			errs = append(errs, fmt.Sprintf("list key %q is not a valid identifier", l.Key))
		}
		if seen[l.Key] {
			errs = append(errs, fmt.Sprintf("duplicate list key %q", l.Key))
		}
		seen[l.Key] = true

		errs = append(errs, validateList(l, lists)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validateList checks a single list's fields.
func validateList(l List, all Lists) []string {
	var errs []string

	if len(l.Fields) == 0 {
		errs = append(errs, fmt.Sprintf("list %q must declare at least one field", l.Key))
	}

	names := make(map[string]bool, len(l.Fields))
	for _, f := range l.Fields {
		where := fmt.Sprintf("%s.%s", l.Key, f.Name)

		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("list %q has a field without a name", l.Key))
			continue
		}
		if !isValidIdentifier(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", where))
		}
		if reservedFieldNames[f.Name] {
			errs = append(errs, fmt.Sprintf("field %s redeclares an implicit field", where))
		}
		if names[f.Name] {
			errs = append(errs, fmt.Sprintf("duplicate field %s", where))
		}
		names[f.Name] = true

		if !isValidKind(f.Kind) {
			errs = append(errs, fmt.Sprintf("field %s: unknown kind %q", where, f.Kind))
			continue
		}

		errs = append(errs, validateField(where, l, f, all)...)
	}

	return errs
}

// validateField checks kind-specific rules for one field.
func validateField(where string, l List, f Field, all Lists) []string {
	var errs []string

	switch f.Kind {
	case KindSelect:
		if len(f.Options) == 0 {
			errs = append(errs, fmt.Sprintf("field %s: select requires options", where))
			break
		}
		vals := make(map[string]bool, len(f.Options))
		for _, o := range f.Options {
			if o.Value == "" {
				errs = append(errs, fmt.Sprintf("field %s: option with empty value", where))
			}
			if vals[o.Value] {
				errs = append(errs, fmt.Sprintf("field %s: duplicate option value %q", where, o.Value))
			}
			vals[o.Value] = true
		}
		if f.Default != nil {
			s, ok := f.Default.(string)
			if !ok || !vals[s] {
				errs = append(errs, fmt.Sprintf("field %s: default %v is not one of the options", where, f.Default))
			}
		}

	case KindRelationship:
		errs = append(errs, validateRef(where, l, f, all)...)

	case KindPassword:
		if f.Index != IndexNone {
			errs = append(errs, fmt.Sprintf("field %s: password fields cannot be indexed", where))
		}
		if f.Default != nil {
			errs = append(errs, fmt.Sprintf("field %s: password fields cannot have a default", where))
		}
	}

	if f.Kind != KindRelationship && f.Ref != "" {
		errs = append(errs, fmt.Sprintf("field %s: ref is only valid on relationship fields", where))
	}

	if f.Validation.Match != nil {
		if _, err := regexp.Compile(f.Validation.Match.Regex); err != nil {
			errs = append(errs, fmt.Sprintf("field %s: invalid match regex: %v", where, err))
		}
	}
	if lr := f.Validation.Length; lr != nil && lr.Min != nil && lr.Max != nil && *lr.Min > *lr.Max {
		errs = append(errs, fmt.Sprintf("field %s: length min %d exceeds max %d", where, *lr.Min, *lr.Max))
	}

	return errs
}

// validateRef checks that a relationship's ref resolves to an existing
// list, and for two-sided refs, to a relationship field pointing back.
func validateRef(where string, l List, f Field, all Lists) []string {
	if f.Ref == "" {
		return []string{fmt.Sprintf("field %s: relationship requires ref", where)}
	}

	targetList, targetField := ParseRef(f.Ref)

	target, ok := all.Get(targetList)
	if !ok {
		return []string{fmt.Sprintf("field %s: ref %q names unknown list %q", where, f.Ref, targetList)}
	}

	if targetField == "" {
		return nil
	}

	back, ok := target.Field(targetField)
	if !ok {
		return []string{fmt.Sprintf("field %s: ref %q names unknown field %q on list %q", where, f.Ref, targetField, targetList)}
	}
	if back.Kind != KindRelationship {
		return []string{fmt.Sprintf("field %s: ref %q target is not a relationship field", where, f.Ref)}
	}
	backList, backField := ParseRef(back.Ref)
	if backList != l.Key || (backField != "" && backField != f.Name) {
		return []string{fmt.Sprintf("field %s: ref %q target does not point back (its ref is %q)", where, f.Ref, back.Ref)}
	}
	return nil
}

// ParseRef splits a relationship ref into its list and optional field
// part: "Post.author" -> ("Post", "author"), "Post" -> ("Post", "").
func ParseRef(ref string) (list, field string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}

// isValidKind reports whether k is a known field kind.
func isValidKind(k Kind) bool {
	switch k {
	case KindText, KindInteger, KindFloat, KindCheckbox,
		KindTimestamp, KindSelect, KindRelationship, KindPassword:
		return true
	default:
		return false
	}
}

// isValidIdentifier checks list keys and field names.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
