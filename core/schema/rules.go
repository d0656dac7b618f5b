package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldError is a single validation failure on a field value.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CheckResult collects validation failures for one write.
type CheckResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// AddError records a failure.
func (r *CheckResult) AddError(field, rule, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Field: field, Rule: rule, Message: message})
}

// Error returns the combined message.
func (r CheckResult) Error() string {
	if r.Valid {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// CheckValue validates a single value against a field's declared rules.
// A nil value passes; required-ness is a create-time concern handled by
// CheckCreate. Pure function.
func CheckValue(f Field, value any) *FieldError {
	if value == nil {
		return nil
	}

	switch f.Kind {
	case KindText, KindPassword:
		s, ok := value.(string)
		if !ok {
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be a string"}
		}
		if lr := f.Validation.Length; lr != nil {
			if lr.Min != nil && len(s) < *lr.Min {
				return &FieldError{Field: f.Name, Rule: "length",
					Message: fmt.Sprintf("must be at least %d characters", *lr.Min)}
			}
			if lr.Max != nil && len(s) > *lr.Max {
				return &FieldError{Field: f.Name, Rule: "length",
					Message: fmt.Sprintf("must be at most %d characters", *lr.Max)}
			}
		}
		if m := f.Validation.Match; m != nil {
			re, err := regexp.Compile(m.Regex)
			if err != nil {
				return nil // rejected at boot, unreachable in practice
			}
			if !re.MatchString(s) {
				msg := m.Explanation
				if msg == "" {
					msg = "does not match required pattern"
				}
				return &FieldError{Field: f.Name, Rule: "match", Message: msg}
			}
		}

	case KindSelect:
		s, ok := value.(string)
		if !ok {
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be a string"}
		}
		for _, o := range f.Options {
			if o.Value == s {
				return nil
			}
		}
		vals := make([]string, len(f.Options))
		for i, o := range f.Options {
			vals[i] = o.Value
		}
		return &FieldError{Field: f.Name, Rule: "option",
			Message: "must be one of: " + strings.Join(vals, ", ")}

	case KindInteger:
		switch value.(type) {
		case int, int32, int64:
		case float64: // JSON numbers decode as float64
			if value.(float64) != float64(int64(value.(float64))) {
				return &FieldError{Field: f.Name, Rule: "type", Message: "must be an integer"}
			}
		default:
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be an integer"}
		}

	case KindFloat:
		switch value.(type) {
		case float32, float64, int, int64:
		default:
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be a number"}
		}

	case KindCheckbox:
		if _, ok := value.(bool); !ok {
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be a boolean"}
		}

	case KindRelationship:
		if _, ok := value.(string); !ok {
			return &FieldError{Field: f.Name, Rule: "type", Message: "must be an item id"}
		}
	}

	return nil
}

// CheckCreate validates a full create payload against a list: required
// fields present, no unknown fields, each value valid.
func CheckCreate(l List, data map[string]any) CheckResult {
	result := CheckResult{Valid: true}

	for _, f := range l.Fields {
		v, present := data[f.Name]
		if !present || v == nil {
			if f.Validation.IsRequired && f.Default == nil {
				result.AddError(f.Name, "required", "is required")
			}
			continue
		}
		if err := CheckValue(f, v); err != nil {
			result.Errors = append(result.Errors, *err)
			result.Valid = false
		}
	}

	for name := range data {
		if _, ok := l.Field(name); !ok {
			result.AddError(name, "unknown", "unknown field")
		}
	}

	return result
}

// CheckUpdate validates a partial update payload: only fields that are
// present are checked, but a required field cannot be nulled out.
func CheckUpdate(l List, data map[string]any) CheckResult {
	result := CheckResult{Valid: true}

	for name, v := range data {
		f, ok := l.Field(name)
		if !ok {
			result.AddError(name, "unknown", "unknown field")
			continue
		}
		if v == nil {
			if f.Validation.IsRequired {
				result.AddError(name, "required", "is required")
			}
			continue
		}
		if err := CheckValue(f, v); err != nil {
			result.Errors = append(result.Errors, *err)
			result.Valid = false
		}
	}

	return result
}
