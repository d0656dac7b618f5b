package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	if err := s.EnsureTable(ctx, userDerived()); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureTable(ctx, postDerived()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	userID, err := s.Create(ctx, "User", map[string]any{
		"email":    "ada@example.com",
		"password": "a-bcrypt-hash",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	user, err := s.Get(ctx, "User", "email", "ada@example.com")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if user["id"] != userID {
		t.Errorf("id = %v, want %v", user["id"], userID)
	}
	if hash, ok := user["password"].([]byte); !ok || !bytes.Equal(hash, []byte("a-bcrypt-hash")) {
		t.Errorf("password = %v (%T), want the stored hash as []byte", user["password"], user["password"])
	}
	if user["createdAt"] == nil || user["updatedAt"] == nil {
		t.Error("timestamps not set on create")
	}

	postID, err := s.Create(ctx, "Post", map[string]any{
		"title":    "Hello",
		"featured": true,
		"author":   userID,
	})
	if err != nil {
		t.Fatalf("Create() post error = %v", err)
	}
	post, err := s.Get(ctx, "Post", "id", postID)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := post["featured"].(bool); !ok || !v {
		t.Errorf("featured = %v (%T), want bool true", post["featured"], post["featured"])
	}

	if err := s.Update(ctx, "Post", postID, map[string]any{"status": "published"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	post, err = s.Get(ctx, "Post", "id", postID)
	if err != nil {
		t.Fatal(err)
	}
	if post["status"] != "published" {
		t.Errorf("status = %v, want published", post["status"])
	}
	if post["title"] != "Hello" {
		t.Error("partial update touched unrelated fields")
	}

	if err := s.Delete(ctx, "Post", postID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if item, err := s.Get(ctx, "Post", "id", postID); err != nil || item != nil {
		t.Errorf("Get() after delete = %v, %v, want nil, nil", item, err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	s := newSQLiteTestStore(t)
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

	items, total, err := s.List(ctx, "Post", ListOptions{Filters: map[string]any{"status": "published"}})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("List() filtered = %d items, total %d, want 2/2", len(items), total)
	}

	items, total, err = s.List(ctx, "Post", ListOptions{OrderBy: "title", OrderDesc: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("List() total = %d, want 4 regardless of the page", total)
	}
	if len(items) != 2 || items[0]["title"] != "delta" {
		t.Errorf("List() desc page = %v, want [delta charlie]", items)
	}

	if _, _, err := s.List(ctx, "Post", ListOptions{Filters: map[string]any{"nope": 1}}); err == nil {
		t.Error("List() with an unknown filter field = nil, want error")
	}
}

func TestSQLiteStore_Constraints(t *testing.T) {
	s := newSQLiteTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"}); err != nil {
		t.Fatal(err)
	}

	_, err := s.Create(ctx, "User", map[string]any{"email": "ada@example.com"})
	if err == nil || !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		t.Errorf("Create() duplicate = %v, want unique constraint error", err)
	}

	_, err = s.Create(ctx, "Post", map[string]any{
		"title":  "Hello",
		"author": "no-such-user",
	})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Create() with dangling ref = %v, want reference error", err)
	}
}
