package vecdb

import "testing"

func TestNameIndexAddSearch(t *testing.T) {
	idx := NewNameIndex()
	if err := idx.Add("Test", "a", 0); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	pos, err := idx.Search("Test", "a")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if pos != 0 {
		t.Errorf("Search() = %d, want 0", pos)
	}
}

func TestNameIndexAddDuplicate(t *testing.T) {
	idx := NewNameIndex()
	_ = idx.Add("Test", "a", 0)
	err := idx.Add("Test", "a", 1)
	if err == nil {
		t.Fatal("expected duplicate error, got nil")
	}
}

func TestNameIndexSearchNotFound(t *testing.T) {
	idx := NewNameIndex()
	if _, err := idx.Search("Test", "missing"); err == nil {
		t.Fatal("expected not-found error, got nil")
	}
}

func TestNameIndexRemoveRebuilds(t *testing.T) {
	idx := NewNameIndex()
	seq := []string{"a", "b", "c"}
	for i, v := range seq {
		_ = idx.Add("Test", v, i)
	}

	// Simulate removing "b" from the sequence.
	seq = append(seq[:1], seq[2:]...)
	idx.Remove("b", len(seq), func(i int) string { return seq[i] })

	if idx.Has("b") {
		t.Error("expected \"b\" to be removed")
	}
	pos, err := idx.Search("Test", "c")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if pos != 1 {
		t.Errorf("Search(\"c\") = %d, want 1 after rebuild", pos)
	}
}
