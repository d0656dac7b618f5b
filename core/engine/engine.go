// Package engine is the execution core: it boots a validated
// configuration, owns the storage tables derived from it, and performs
// item operations with write-time validation, secret hashing, and
// session issuance.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shelf-cms/shelf/adapters/metrics"
	"github.com/shelf-cms/shelf/config"
	"github.com/shelf-cms/shelf/core/schema"
	"github.com/shelf-cms/shelf/core/storage"
	"github.com/shelf-cms/shelf/domain/session"
	"github.com/shelf-cms/shelf/ports"
)

// ErrAuthFailed is returned for every failed sign-in, regardless of
// whether the identity exists. Callers must not distinguish.
var ErrAuthFailed = errors.New("authentication failed")

// ErrInitClosed is returned when the first-run bootstrap is requested
// after the auth list already has items.
var ErrInitClosed = errors.New("initialization is closed")

// ErrNotFound is returned when an item does not exist.
var ErrNotFound = errors.New("item not found")

// ValidationError wraps write-time validation failures.
type ValidationError struct {
	Result schema.CheckResult
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Result.Error()
}

// Engine executes item operations against a booted configuration.
type Engine struct {
	cfg     config.App
	store   storage.Store
	hasher  ports.Hasher
	ids     ports.IDGenerator
	clock   ports.Clock
	metrics *metrics.Collector
	logger  zerolog.Logger

	// sessions is swapped on reconfigure; sessionCfg tracks what it
	// was built from.
	sessionsMu sync.RWMutex
	sessions   *session.Manager
	sessionCfg session.Config

	derived map[string]schema.Derived

	// dummyHash is compared against on sign-in when the identity does
	// not exist, to keep failure timing uniform.
	dummyHash []byte
}

// Deps are the engine's injected dependencies.
type Deps struct {
	Store   storage.Store
	Hasher  ports.Hasher
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// New validates the configuration, derives all lists, and ensures
// their tables exist. Configuration problems are reported together.
func New(ctx context.Context, cfg config.App, deps Deps) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		store:   deps.Store,
		hasher:  deps.Hasher,
		ids:     deps.IDs,
		clock:   deps.Clock,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		derived: make(map[string]schema.Derived),
	}

	for _, d := range schema.DeriveAll(cfg.Lists) {
		e.derived[d.Source.Key] = d
		if err := e.store.EnsureTable(ctx, d); err != nil {
			return nil, fmt.Errorf("ensure table for %q: %w", d.Source.Key, err)
		}
	}

	if cfg.Auth != nil {
		mgr, err := session.New(cfg.Session, deps.Clock)
		if err != nil {
			return nil, err
		}
		e.sessions = mgr
		e.sessionCfg = cfg.Session

		dummy, err := deps.Hasher.Hash("shelf-timing-equalizer")
		if err != nil {
			return nil, fmt.Errorf("prepare dummy hash: %w", err)
		}
		e.dummyHash = dummy
	}

	e.logger.Info().
		Int("lists", len(cfg.Lists)).
		Bool("auth", cfg.Auth != nil).
		Msg("engine booted")

	return e, nil
}

// Config returns the booted configuration.
func (e *Engine) Config() config.App {
	return e.cfg
}

// Sessions returns the session manager, or nil when auth is not
// configured.
func (e *Engine) Sessions() *session.Manager {
	e.sessionsMu.RLock()
	defer e.sessionsMu.RUnlock()
	return e.sessions
}

// Reconfigure applies the reloadable parts of a changed configuration
// to a running engine. A new session secret or lifetime takes effect
// immediately; rotating the secret invalidates every outstanding
// session. List, storage, and server changes require a restart.
func (e *Engine) Reconfigure(cfg config.App) error {
	if e.cfg.Auth == nil {
		return nil
	}

	e.sessionsMu.Lock()
	defer e.sessionsMu.Unlock()

	if cfg.Session == e.sessionCfg {
		return nil
	}
	mgr, err := session.New(cfg.Session, e.clock)
	if err != nil {
		return fmt.Errorf("reconfigure sessions: %w", err)
	}
	e.sessions = mgr
	e.sessionCfg = cfg.Session

	e.logger.Info().Msg("session configuration reloaded")
	return nil
}

// Lists returns the derived form of every configured list in
// declaration order.
func (e *Engine) Lists() []schema.Derived {
	out := make([]schema.Derived, 0, len(e.cfg.Lists))
	for _, l := range e.cfg.Lists {
		out = append(out, e.derived[l.Key])
	}
	return out
}

func (e *Engine) list(key string) (schema.Derived, error) {
	d, ok := e.derived[key]
	if !ok {
		return schema.Derived{}, fmt.Errorf("list %q not found", key)
	}
	return d, nil
}

func (e *Engine) record(list, operation string, err error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.OperationsTotal.WithLabelValues(list, operation, outcome).Inc()
}

// CreateItem validates and inserts an item. Defaults are applied,
// secret values are hashed, and the stored item is returned with
// secret fields withheld.
func (e *Engine) CreateItem(ctx context.Context, listKey string, data map[string]any) (item map[string]any, err error) {
	defer func() { e.record(listKey, "create", err) }()

	d, err := e.list(listKey)
	if err != nil {
		return nil, err
	}

	if result := schema.CheckCreate(d.Source, data); !result.Valid {
		return nil, &ValidationError{Result: result}
	}

	prepared := make(map[string]any, len(data)+1)
	for k, v := range data {
		prepared[k] = v
	}
	prepared["id"] = e.ids.New()

	if err := e.applyDefaults(d, prepared); err != nil {
		return nil, err
	}
	if err := e.hashSecrets(d, prepared); err != nil {
		return nil, err
	}

	id, err := e.store.Create(ctx, listKey, prepared)
	if err != nil {
		return nil, err
	}

	stored, err := e.store.Get(ctx, listKey, "id", id)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("list", listKey).Str("id", id).Msg("item created")
	return e.withholdSecrets(d, stored), nil
}

// GetItem retrieves an item by id or any unique lookup field.
// Secret fields are withheld.
func (e *Engine) GetItem(ctx context.Context, listKey string, lookupValue string) (item map[string]any, err error) {
	defer func() { e.record(listKey, "get", err) }()

	d, err := e.list(listKey)
	if err != nil {
		return nil, err
	}

	for _, lookup := range d.Lookups {
		stored, err := e.store.Get(ctx, listKey, lookup, lookupValue)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			return e.withholdSecrets(d, stored), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, lookupValue)
}

// ListItems retrieves items with pagination. Secret fields are
// withheld from every item.
func (e *Engine) ListItems(ctx context.Context, listKey string, opts storage.ListOptions) (items []map[string]any, total int64, err error) {
	defer func() { e.record(listKey, "list", err) }()

	d, err := e.list(listKey)
	if err != nil {
		return nil, 0, err
	}

	stored, count, err := e.store.List(ctx, listKey, opts)
	if err != nil {
		return nil, 0, err
	}

	items = make([]map[string]any, len(stored))
	for i, it := range stored {
		items[i] = e.withholdSecrets(d, it)
	}
	return items, count, nil
}

// UpdateItem validates and applies a partial update, returning the
// updated item with secret fields withheld.
func (e *Engine) UpdateItem(ctx context.Context, listKey string, id string, data map[string]any) (item map[string]any, err error) {
	defer func() { e.record(listKey, "update", err) }()

	d, err := e.list(listKey)
	if err != nil {
		return nil, err
	}

	if result := schema.CheckUpdate(d.Source, data); !result.Valid {
		return nil, &ValidationError{Result: result}
	}

	prepared := make(map[string]any, len(data))
	for k, v := range data {
		prepared[k] = v
	}
	if err := e.hashSecrets(d, prepared); err != nil {
		return nil, err
	}

	if err := e.store.Update(ctx, listKey, id, prepared); err != nil {
		return nil, err
	}

	stored, err := e.store.Get(ctx, listKey, "id", id)
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("list", listKey).Str("id", id).Msg("item updated")
	return e.withholdSecrets(d, stored), nil
}

// DeleteItem removes an item by id.
func (e *Engine) DeleteItem(ctx context.Context, listKey string, id string) (err error) {
	defer func() { e.record(listKey, "delete", err) }()

	if _, err := e.list(listKey); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, listKey, id); err != nil {
		return err
	}

	e.logger.Debug().Str("list", listKey).Str("id", id).Msg("item deleted")
	return nil
}

// Authenticate verifies credentials against the auth list and returns
// session data for the matched item. Every failure is ErrAuthFailed;
// the caller cannot tell a missing identity from a wrong secret.
func (e *Engine) Authenticate(ctx context.Context, identity, secret string) (*session.Data, error) {
	a := e.cfg.Auth
	if a == nil {
		return nil, errors.New("auth is not configured")
	}

	stored, err := e.store.Get(ctx, a.ListKey, a.IdentityField, identity)
	if err != nil || stored == nil {
		// Burn a compare anyway so timing does not reveal whether the
		// identity exists.
		e.hasher.Compare(e.dummyHash, secret)
		e.authFailure("unknown_identity")
		return nil, ErrAuthFailed
	}

	hash, ok := stored[a.SecretField].([]byte)
	if !ok || len(hash) == 0 {
		e.hasher.Compare(e.dummyHash, secret)
		e.authFailure("no_secret_set")
		return nil, ErrAuthFailed
	}

	if !e.hasher.Compare(hash, secret) {
		e.authFailure("wrong_secret")
		return nil, ErrAuthFailed
	}

	if e.metrics != nil {
		e.metrics.SignInsTotal.WithLabelValues("ok").Inc()
	}
	return e.sessionData(stored), nil
}

func (e *Engine) authFailure(reason string) {
	if e.metrics == nil {
		return
	}
	e.metrics.SignInsTotal.WithLabelValues("failed").Inc()
	e.metrics.AuthFailures.WithLabelValues(reason).Inc()
}

// sessionData projects a stored item into session data per the auth
// descriptor.
func (e *Engine) sessionData(stored map[string]any) *session.Data {
	a := e.cfg.Auth

	data := &session.Data{
		ListKey: a.ListKey,
		Data:    make(map[string]any),
	}
	if id, ok := stored["id"].(string); ok {
		data.ItemID = id
	}
	for _, name := range a.SessionData {
		if name == "id" {
			continue
		}
		if v, ok := stored[name]; ok {
			data.Data[name] = v
		}
	}
	return data
}

// InitRequired reports whether the first-run bootstrap should be
// offered: auth configured with init_first_item and the auth list
// still empty.
func (e *Engine) InitRequired(ctx context.Context) (bool, error) {
	a := e.cfg.Auth
	if a == nil || a.InitFirstItem == nil {
		return false, nil
	}

	count, err := e.store.Count(ctx, a.ListKey)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// InitFirstItem creates the first item in the auth list and returns a
// session for it. Only the configured bootstrap fields are accepted;
// fixed item data overrides submitted values. Returns ErrInitClosed
// once the list has any item.
func (e *Engine) InitFirstItem(ctx context.Context, data map[string]any) (*session.Data, error) {
	a := e.cfg.Auth
	if a == nil || a.InitFirstItem == nil {
		return nil, ErrInitClosed
	}

	required, err := e.InitRequired(ctx)
	if err != nil {
		return nil, err
	}
	if !required {
		return nil, ErrInitClosed
	}

	allowed := make(map[string]bool, len(a.InitFirstItem.Fields))
	for _, name := range a.InitFirstItem.Fields {
		allowed[name] = true
	}

	item := make(map[string]any)
	for k, v := range data {
		if !allowed[k] {
			return nil, &ValidationError{Result: schema.CheckResult{
				Errors: []schema.FieldError{{Field: k, Rule: "unknown", Message: "not an initialization field"}},
			}}
		}
		item[k] = v
	}
	for k, v := range a.InitFirstItem.ItemData {
		item[k] = v
	}

	created, err := e.CreateItem(ctx, a.ListKey, item)
	if err != nil {
		return nil, err
	}

	// Re-read unredacted for session projection.
	stored, err := e.store.Get(ctx, a.ListKey, "id", created["id"].(string))
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("list", a.ListKey).Msg("first item created, initialization closed")
	return e.sessionData(stored), nil
}

// IsAccessAllowed evaluates the configured access predicate. Without a
// predicate, access requires a session when auth is configured and is
// open otherwise.
func (e *Engine) IsAccessAllowed(rc config.RequestContext) bool {
	if e.cfg.UI.IsAccessAllowed != nil {
		return e.cfg.UI.IsAccessAllowed(rc)
	}
	if e.cfg.Auth != nil {
		return rc.Session != nil
	}
	return true
}

// applyDefaults fills absent fields that declare defaults. The "now"
// timestamp default resolves against the engine clock.
func (e *Engine) applyDefaults(d schema.Derived, data map[string]any) error {
	for _, f := range d.Source.Fields {
		if _, present := data[f.Name]; present {
			continue
		}
		if f.Default == nil {
			continue
		}
		if f.Kind == schema.KindTimestamp && f.Default == "now" {
			data[f.Name] = e.clock.Now().UTC().Format(time.RFC3339)
			continue
		}
		data[f.Name] = f.Default
	}
	return nil
}

// hashSecrets replaces plaintext secret values with their hashes.
func (e *Engine) hashSecrets(d schema.Derived, data map[string]any) error {
	for _, f := range d.Source.Fields {
		if !f.IsSecret() {
			continue
		}
		v, ok := data[f.Name]
		if !ok || v == nil {
			continue
		}
		plaintext, ok := v.(string)
		if !ok {
			return &ValidationError{Result: schema.CheckResult{
				Errors: []schema.FieldError{{Field: f.Name, Rule: "type", Message: "must be a string"}},
			}}
		}
		hash, err := e.hasher.Hash(plaintext)
		if err != nil {
			return fmt.Errorf("hash %s: %w", f.Name, err)
		}
		data[f.Name] = hash
	}
	return nil
}

// withholdSecrets returns a copy of an item without secret field
// values. A boolean marker reports whether a secret is set.
func (e *Engine) withholdSecrets(d schema.Derived, item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		f, ok := d.Field(k)
		if ok && f.IsSecret() {
			out[k+"IsSet"] = v != nil
			continue
		}
		out[k] = v
	}
	return out
}
