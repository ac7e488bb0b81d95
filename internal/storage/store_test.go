package storage

import (
	"context"
	"testing"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSetGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set(ctx, "userName", "alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get(ctx, "userName")
	if err != nil || !ok || got != "alice" {
		t.Fatalf("Get = %q ok=%v err=%v, want alice", got, ok, err)
	}

	// Set overwrites in place.
	if err := s.Set(ctx, "userName", "bob"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _, _ = s.Get(ctx, "userName")
	if got != "bob" {
		t.Fatalf("Get after overwrite = %q, want bob", got)
	}
}

func TestSQLiteDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "userPhoto", "data:image/jpeg;base64,xx"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Delete(ctx, "userPhoto"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "userPhoto"); ok {
		t.Fatal("key still present after Delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "userPhoto"); err != nil {
		t.Fatalf("Delete(absent): %v", err)
	}
}

func TestSQLiteKeysPrefix(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		RoomMessagesKey("general"),
		RoomMessagesKey("random"),
		KeyUserName,
	} {
		if err := s.Set(ctx, key, "{}"); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	keys, err := s.Keys(ctx, RoomMessagesPrefix)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys returned %v, want the two room histories", keys)
	}
	for _, k := range keys {
		if k == KeyUserName {
			t.Fatalf("prefix scan leaked unrelated key %q", k)
		}
	}
}

func TestGetJSONRoundtrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	type profile struct {
		Name string `json:"name"`
	}
	if err := SetJSON(ctx, s, "p", profile{Name: "alice"}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var got profile
	ok, err := GetJSON(ctx, s, "p", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON = ok=%v err=%v", ok, err)
	}
	if got.Name != "alice" {
		t.Fatalf("got %+v, want alice", got)
	}
}

func TestGetJSONCorruptValue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "broken", "{not json"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got := []string{"untouched"}
	ok, err := GetJSON(ctx, s, "broken", &got)
	if err != nil {
		t.Fatalf("GetJSON on corrupt value must not error, got %v", err)
	}
	if ok {
		t.Fatal("corrupt value reported as found")
	}
	if len(got) != 1 || got[0] != "untouched" {
		t.Fatalf("dest mutated by corrupt value: %v", got)
	}
}

func TestGetJSONMissingKey(t *testing.T) {
	s := setupTestStore(t)

	var got map[string]bool
	ok, err := GetJSON(context.Background(), s, "nope", &got)
	if err != nil || ok {
		t.Fatalf("GetJSON(missing) = ok=%v err=%v, want absent", ok, err)
	}
}
