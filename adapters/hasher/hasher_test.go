package hasher

import (
	"bytes"
	"testing"
)

func TestBcrypt_RoundTrip(t *testing.T) {
	h := NewBcrypt(4) // minimum cost, tests only

	hash, err := h.Hash("hunter2!")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if bytes.Equal(hash, []byte("hunter2!")) {
		t.Fatal("Hash() returned the plaintext")
	}

	if !h.Compare(hash, "hunter2!") {
		t.Error("Compare() = false for correct plaintext")
	}
	if h.Compare(hash, "wrong") {
		t.Error("Compare() = true for wrong plaintext")
	}
}

func TestBcrypt_HashesDiffer(t *testing.T) {
	h := NewBcrypt(4)

	a, err := h.Hash("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	b, err := h.Hash("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("two hashes of the same plaintext should differ (random salt)")
	}
}

func TestFake(t *testing.T) {
	h := Fake{}

	hash, err := h.Hash("secret")
	if err != nil {
		t.Fatal(err)
	}
	if !h.Compare(hash, "secret") || h.Compare(hash, "other") {
		t.Error("Fake compare should be plain equality")
	}
}
