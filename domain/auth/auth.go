// Package auth defines the authentication descriptor: which list acts
// as the account store, which of its fields are the login identity and
// credential, and the optional first-run bootstrap. Pure value types
// and validation only; credential checking lives in the engine.
package auth

import (
	"fmt"
	"strings"

	"github.com/shelf-cms/shelf/core/schema"
)

// Auth configures authentication against one list.
type Auth struct {
	// ListKey names the list holding accounts (e.g. "User").
	ListKey string `yaml:"list_key"`

	// IdentityField is the unique-indexed field looked up at sign-in
	// (e.g. "email").
	IdentityField string `yaml:"identity_field"`

	// SecretField is the password field compared at sign-in.
	SecretField string `yaml:"secret_field"`

	// SessionData lists the fields projected into the session token
	// at sign-in. The item id is always included.
	SessionData []string `yaml:"session_data,omitempty"`

	// InitFirstItem, when set, allows creating the first account
	// through the admin surface while the list is empty.
	InitFirstItem *InitFirstItem `yaml:"init_first_item,omitempty"`
}

// InitFirstItem configures the first-run bootstrap. The bootstrap is
// offered only while the target list has zero items and is permanently
// withdrawn once any item exists.
type InitFirstItem struct {
	// Fields are the field names the bootstrap form accepts.
	Fields []string `yaml:"fields"`

	// ItemData holds fixed values merged into the first item
	// (e.g. an admin role), overriding submitted values.
	ItemData map[string]any `yaml:"item_data,omitempty"`
}

// Validate checks the descriptor against the configured lists.
func (a Auth) Validate(lists schema.Lists) error {
	var errs []string

	l, ok := lists.Get(a.ListKey)
	if !ok {
		return fmt.Errorf("auth: list %q does not exist", a.ListKey)
	}

	identity, ok := l.Field(a.IdentityField)
	switch {
	case !ok:
		errs = append(errs, fmt.Sprintf("identity field %s.%s does not exist", a.ListKey, a.IdentityField))
	case identity.IsSecret():
		errs = append(errs, fmt.Sprintf("identity field %s.%s cannot be a password field", a.ListKey, a.IdentityField))
	case identity.Index != schema.Unique:
		errs = append(errs, fmt.Sprintf("identity field %s.%s must be unique-indexed", a.ListKey, a.IdentityField))
	}

	secret, ok := l.Field(a.SecretField)
	switch {
	case !ok:
		errs = append(errs, fmt.Sprintf("secret field %s.%s does not exist", a.ListKey, a.SecretField))
	case secret.Kind != schema.KindPassword:
		errs = append(errs, fmt.Sprintf("secret field %s.%s must be a password field", a.ListKey, a.SecretField))
	}

	for _, name := range a.SessionData {
		f, ok := l.Field(name)
		if !ok && name != "id" {
			errs = append(errs, fmt.Sprintf("session data field %s.%s does not exist", a.ListKey, name))
			continue
		}
		if ok && f.IsSecret() {
			errs = append(errs, fmt.Sprintf("session data field %s.%s cannot be a password field", a.ListKey, name))
		}
	}

	if init := a.InitFirstItem; init != nil {
		if len(init.Fields) == 0 {
			errs = append(errs, "init_first_item requires at least one field")
		}
		for _, name := range init.Fields {
			if _, ok := l.Field(name); !ok {
				errs = append(errs, fmt.Sprintf("init_first_item field %s.%s does not exist", a.ListKey, name))
			}
		}
		for name := range init.ItemData {
			if _, ok := l.Field(name); !ok {
				errs = append(errs, fmt.Sprintf("init_first_item item_data field %s.%s does not exist", a.ListKey, name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("auth: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SignInRequest is a sign-in attempt (value type).
type SignInRequest struct {
	Identity string
	Secret   string
}

// ValidateSignIn validates a sign-in request shape (pure function).
// Credential verification happens in the engine.
func ValidateSignIn(req SignInRequest) error {
	if req.Identity == "" {
		return fmt.Errorf("identity is required")
	}
	if req.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	return nil
}
