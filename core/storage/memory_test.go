package storage

import (
	"context"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()

	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.EnsureTable(ctx, userDerived()); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureTable(ctx, postDerived()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMemoryStore_CreateGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty id")
	}

	item, err := s.Get(ctx, "User", "id", id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item["email"] != "ada@example.com" {
		t.Errorf("email = %v", item["email"])
	}
	if item["createdAt"] == nil || item["updatedAt"] == nil {
		t.Error("timestamps not set on create")
	}

	// Lookup by unique field works the same way.
	byEmail, err := s.Get(ctx, "User", "email", "ada@example.com")
	if err != nil {
		t.Fatalf("Get() by email error = %v", err)
	}
	if byEmail["id"] != id {
		t.Errorf("Get() by email id = %v, want %v", byEmail["id"], id)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	item, err := s.Get(context.Background(), "User", "id", "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item != nil {
		t.Errorf("Get() = %v, want nil for missing item", item)
	}
}

func TestMemoryStore_UniqueConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"}); err != nil {
		t.Fatal(err)
	}

	_, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err == nil || !strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		t.Errorf("Create() duplicate = %v, want unique constraint error", err)
	}
}

func TestMemoryStore_ReferenceCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "Post", map[string]any{
		"title":  "Hello",
		"author": "no-such-user",
	})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Create() with dangling ref = %v, want reference error", err)
	}

	userID, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(ctx, "Post", map[string]any{
		"title":  "Hello",
		"author": userID,
	}); err != nil {
		t.Errorf("Create() with valid ref = %v, want nil", err)
	}
}

func TestMemoryStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "Post", map[string]any{"title": "Draft", "status": "draft"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Update(ctx, "Post", id, map[string]any{"status": "published"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	item, err := s.Get(ctx, "Post", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	if item["status"] != "published" {
		t.Errorf("status = %v, want published", item["status"])
	}
	if item["title"] != "Draft" {
		t.Errorf("title = %v, partial update should keep other fields", item["title"])
	}

	if err := s.Update(ctx, "Post", "absent", map[string]any{"status": "draft"}); err == nil {
		t.Error("Update() missing item = nil, want error")
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "User", id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if item, _ := s.Get(ctx, "User", "id", id); item != nil {
		t.Error("item still present after delete")
	}
	if err := s.Delete(ctx, "User", id); err == nil {
		t.Error("Delete() missing item = nil, want error")
	}
}

func TestMemoryStore_Count(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, email := range []string{"a@b.c", "d@e.f", "g@h.i"} {
		if _, err := s.Create(ctx, "User", map[string]any{"email": email}); err != nil {
			t.Fatal(err)
		}
	}

	count, err := s.Count(ctx, "User")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestMemoryStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, title := range []string{"alpha", "bravo", "charlie", "delta"} {
		status := "draft"
		if i%2 == 0 {
			status = "published"
		}
		if _, err := s.Create(ctx, "Post", map[string]any{
			"title":  title,
			"status": status,
		}); err != nil {
			t.Fatal(err)
		}
	}

	// Filter
	items, total, err := s.List(ctx, "Post", ListOptions{Filters: map[string]any{"status": "published"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("List() filtered = %d items, total %d, want 2/2", len(items), total)
	}

	// Order by title descending
	items, _, err = s.List(ctx, "Post", ListOptions{OrderBy: "title", OrderDesc: true})
	if err != nil {
		t.Fatal(err)
	}
	if items[0]["title"] != "delta" {
		t.Errorf("List() desc first = %v, want delta", items[0]["title"])
	}

	// Pagination: total reflects all matches, not the page
	items, total, err = s.List(ctx, "Post", ListOptions{OrderBy: "title", Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("List() paginated total = %d, want 4", total)
	}
	if len(items) != 2 || items[0]["title"] != "bravo" {
		t.Errorf("List() page = %v, want [bravo charlie]", items)
	}

	// Unknown filter fields are rejected by the SQLite store but the
	// memory store just matches nothing for them; unknown order fields
	// fall back to createdAt in both.
	items, _, err = s.List(ctx, "Post", ListOptions{OrderBy: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Errorf("List() with unknown order field = %d items, want 4", len(items))
	}

	// Negative offsets behave as zero.
	items, _, err = s.List(ctx, "Post", ListOptions{Offset: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Errorf("List() with negative offset = %d items, want 4", len(items))
	}
}

func TestMemoryStore_CheckboxRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "Post", map[string]any{
		"title":    "Hello",
		"featured": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	item, err := s.Get(ctx, "Post", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := item["featured"].(bool); !ok || !v {
		t.Errorf("featured = %v (%T), want bool true", item["featured"], item["featured"])
	}

	// The same conversion applies on list reads, and bool filter
	// values match items stored in database representation.
	items, _, err := s.List(ctx, "Post", ListOptions{Filters: map[string]any{"featured": true}})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("List() filtered on checkbox = %d items, want 1", len(items))
	}
	if v, ok := items[0]["featured"].(bool); !ok || !v {
		t.Errorf("listed featured = %v (%T), want bool true", items[0]["featured"], items[0]["featured"])
	}
}

func TestMemoryStore_CopyIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	item, err := s.Get(ctx, "User", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	item["email"] = "mallory@example.com"

	again, err := s.Get(ctx, "User", "id", id)
	if err != nil {
		t.Fatal(err)
	}
	if again["email"] != "ada@example.com" {
		t.Error("mutating a returned item leaked into the store")
	}
}
