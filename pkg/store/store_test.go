package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func exercisePreferenceStore(t *testing.T, s PreferenceStore) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "visitor-1", KeyTheme); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "visitor-1", KeyTheme, "theme-2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "visitor-1", KeyTheme, "theme-3"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.Get(ctx, "visitor-1", KeyTheme)
	if err != nil || !ok || got != "theme-3" {
		t.Fatalf("get = %q ok=%v err=%v, want theme-3", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "visitor-2", KeyTheme); ok {
		t.Fatalf("preferences must be isolated per visitor")
	}
	if err := s.Set(ctx, " ", KeyTheme, "theme-1"); !errors.Is(err, ErrEmptyVisitor) {
		t.Fatalf("expected ErrEmptyVisitor, got %v", err)
	}
}

func TestMemoryPreferenceStore(t *testing.T) {
	exercisePreferenceStore(t, NewMemoryPreferenceStore())
}

func TestRedisPreferenceStore(t *testing.T) {
	redis := miniredis.RunT(t)
	s, err := NewRedisPreferenceStore(redis.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	defer s.Close()
	exercisePreferenceStore(t, s)

	if got, err := redis.Get("storefront:pref:visitor-1:theme"); err != nil || got != "theme-3" {
		t.Fatalf("unexpected redis value %q err=%v", got, err)
	}
}

func TestRedisPreferenceStoreReportsOutage(t *testing.T) {
	redis := miniredis.RunT(t)
	s, err := NewRedisPreferenceStore(redis.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	defer s.Close()
	redis.Close()

	if err := s.Set(context.Background(), "visitor-1", KeyTheme, "theme-2"); err == nil {
		t.Fatalf("expected set error when redis is down")
	}
	if _, _, err := s.Get(context.Background(), "visitor-1", KeyTheme); err == nil {
		t.Fatalf("expected get error when redis is down")
	}
}

func TestRedisPreferenceStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisPreferenceStore("", "", 0); err == nil {
		t.Fatalf("expected error for empty redis addr")
	}
}

func TestFilePreferenceStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "preferences.yaml")
	s, err := NewFilePreferenceStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	exercisePreferenceStore(t, s)

	reopened, err := NewFilePreferenceStore(path)
	if err != nil {
		t.Fatalf("reopen file store: %v", err)
	}
	got, ok, err := reopened.Get(context.Background(), "visitor-1", KeyTheme)
	if err != nil || !ok || got != "theme-3" {
		t.Fatalf("reopened get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestFilePreferenceStoreMovesCorruptFileAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "preferences.yaml")
	if err := os.WriteFile(path, []byte("visitor: [unclosed"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s, err := NewFilePreferenceStore(path)
	if err != nil {
		t.Fatalf("corrupt file must not prevent startup: %v", err)
	}
	if _, ok, err := s.Get(ctx, "visitor", KeyTheme); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}
	kept, err := os.ReadFile(path + ".corrupt")
	if err != nil {
		t.Fatalf("corrupt file must be kept aside: %v", err)
	}
	if string(kept) != "visitor: [unclosed" {
		t.Fatalf("corrupt file content changed: %q", kept)
	}

	if err := s.Set(ctx, "visitor", KeyTheme, "theme-2"); err != nil {
		t.Fatalf("set after recovery: %v", err)
	}
	reopened, err := NewFilePreferenceStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok, _ := reopened.Get(ctx, "visitor", KeyTheme); !ok || v != "theme-2" {
		t.Fatalf("expected theme-2 after reopen, got %q ok=%v", v, ok)
	}
}
