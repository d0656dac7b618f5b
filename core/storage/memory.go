package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelf-cms/shelf/core/schema"
)

// MemoryStore implements Store in memory. It enforces the same
// uniqueness and reference semantics as the SQLite store and exists
// for tests and throwaway environments.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string]schema.Derived
	items map[string]map[string]map[string]any // list -> id -> item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists: make(map[string]schema.Derived),
		items: make(map[string]map[string]map[string]any),
	}
}

// EnsureTable registers a derived list.
func (s *MemoryStore) EnsureTable(ctx context.Context, d schema.Derived) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[d.Source.Key] = d
	if s.items[d.Source.Key] == nil {
		s.items[d.Source.Key] = make(map[string]map[string]any)
	}
	return nil
}

func (s *MemoryStore) derived(list string) (schema.Derived, error) {
	d, ok := s.lists[list]
	if !ok {
		return schema.Derived{}, fmt.Errorf("list %q not registered", list)
	}
	return d, nil
}

// Create inserts a new item.
func (s *MemoryStore) Create(ctx context.Context, list string, data map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.derived(list)
	if err != nil {
		return "", err
	}

	if err := s.checkReferences(d, data); err != nil {
		return "", err
	}

	id, ok := data["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
	}

	item := map[string]any{"id": id}
	for _, f := range d.Fields {
		if f.Many || f.Name == "id" {
			continue
		}
		if v, exists := data[f.Name]; exists {
			item[f.Name] = convertValue(v, f)
		} else {
			item[f.Name] = nil
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	item["createdAt"] = now
	item["updatedAt"] = now

	if err := s.checkUnique(d, item, ""); err != nil {
		return "", err
	}

	s.items[list][id] = item
	return id, nil
}

// Get retrieves an item by lookup field. Returns nil, nil when no
// item matches.
func (s *MemoryStore) Get(ctx context.Context, list string, lookup string, value string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.derived(list)
	if err != nil {
		return nil, err
	}

	for _, item := range s.items[list] {
		if v, ok := item[lookup].(string); ok && v == value {
			return itemFromStore(d, item), nil
		}
	}
	return nil, nil
}

// List retrieves items with filtering, ordering, and pagination.
func (s *MemoryStore) List(ctx context.Context, list string, opts ListOptions) ([]map[string]any, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.derived(list)
	if err != nil {
		return nil, 0, err
	}

	// Filter values arrive in API representation; items are stored in
	// database representation.
	filters := opts.Filters
	if len(filters) > 0 {
		conv := make(map[string]any, len(filters))
		for k, v := range filters {
			if f, ok := d.Field(k); ok {
				v = convertValue(v, f)
			}
			conv[k] = v
		}
		filters = conv
	}

	var matched []map[string]any
	for _, item := range s.items[list] {
		if matchesFilters(item, filters) {
			matched = append(matched, itemFromStore(d, item))
		}
	}

	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "createdAt"
	} else if _, ok := d.Field(orderBy); !ok {
		orderBy = "createdAt"
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a := fmt.Sprint(matched[i][orderBy])
		b := fmt.Sprint(matched[j][orderBy])
		if opts.OrderDesc {
			return a > b
		}
		return a < b
	})

	total := int64(len(matched))

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, total, nil
}

// Update modifies an existing item.
func (s *MemoryStore) Update(ctx context.Context, list string, id string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.derived(list)
	if err != nil {
		return err
	}

	item, ok := s.items[list][id]
	if !ok {
		return fmt.Errorf("item not found: %s", id)
	}

	if err := s.checkReferences(d, data); err != nil {
		return err
	}

	updated := copyItem(item)
	for k, v := range data {
		if k == "id" || k == "createdAt" {
			continue
		}
		f, ok := d.Field(k)
		if !ok || f.Many {
			continue
		}
		updated[k] = convertValue(v, f)
	}
	updated["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.checkUnique(d, updated, id); err != nil {
		return err
	}

	s.items[list][id] = updated
	return nil
}

// Delete removes an item.
func (s *MemoryStore) Delete(ctx context.Context, list string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.derived(list); err != nil {
		return err
	}
	if _, ok := s.items[list][id]; !ok {
		return fmt.Errorf("item not found: %s", id)
	}
	delete(s.items[list], id)
	return nil
}

// Count returns the number of items in a list.
func (s *MemoryStore) Count(ctx context.Context, list string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.derived(list); err != nil {
		return 0, err
	}
	return int64(len(s.items[list])), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) checkUnique(d schema.Derived, candidate map[string]any, excludeID string) error {
	for _, f := range d.Fields {
		if f.Index != schema.Unique || f.Name == "id" {
			continue
		}
		v := candidate[f.Name]
		if v == nil {
			continue
		}
		for id, other := range s.items[d.Source.Key] {
			if id == excludeID {
				continue
			}
			if fmt.Sprint(other[f.Name]) == fmt.Sprint(v) && other[f.Name] != nil {
				return fmt.Errorf("UNIQUE constraint failed: %s.%s", d.Table, f.Name)
			}
		}
	}
	return nil
}

func (s *MemoryStore) checkReferences(d schema.Derived, data map[string]any) error {
	for _, f := range d.Fields {
		if f.Kind != schema.KindRelationship || f.Ref == "" || f.Many {
			continue
		}
		refID, ok := data[f.Name].(string)
		if !ok || refID == "" {
			continue
		}
		refList, _ := schema.ParseRef(f.Ref)
		if _, ok := s.lists[refList]; !ok {
			return fmt.Errorf("referenced list %q not registered for field %q", refList, f.Name)
		}
		if _, ok := s.items[refList][refID]; !ok {
			return fmt.Errorf("referenced %s with id %q does not exist (field: %s)", refList, refID, f.Name)
		}
	}
	return nil
}

func matchesFilters(item map[string]any, filters map[string]any) bool {
	for k, v := range filters {
		if fmt.Sprint(item[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// itemFromStore copies a stored item, converting values back to their
// API representation the way the SQLite store does on scan.
func itemFromStore(d schema.Derived, item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		if f, ok := d.Field(k); ok {
			out[k] = convertFromDB(v, f)
			continue
		}
		out[k] = v
	}
	return out
}

func copyItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

// interface guards
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
