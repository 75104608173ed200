package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/resume"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(30*time.Minute, zerolog.Nop())
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_CreateAndLookup(t *testing.T) {
	r := newTestRegistry(t)

	record := r.Create("Ana", "Engineer", &resume.Summary{Skills: []string{"Go"}}, "")
	if record.ID == "" {
		t.Fatal("Expected a session ID")
	}

	found, err := r.Lookup(record.ID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found.CandidateName != "Ana" || found.Role != "Engineer" {
		t.Errorf("Unexpected record: %+v", found)
	}
	if len(found.Resume.Skills) != 1 {
		t.Error("Expected resume summary to be stored")
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Lookup("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_DeleteRemovesFile(t *testing.T) {
	r := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	record := r.Create("Ana", "Engineer", nil, path)
	r.Delete(record.ID)

	if _, err := r.Lookup(record.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected record gone after Delete")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected uploaded file removed on Delete")
	}

	// deleting again is a no-op
	r.Delete(record.ID)
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	r := newTestRegistry(t)

	first := r.Create("First", "Engineer", nil, "")
	first.CreatedAt = time.Now().Add(-time.Hour)
	second := r.Create("Second", "Engineer", nil, "")

	records := r.List()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != second.ID {
		t.Error("Expected newest record first")
	}
}

func TestRegistry_EvictExpired(t *testing.T) {
	r := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	stale := r.Create("Old", "Engineer", nil, path)
	stale.CreatedAt = time.Now().Add(-time.Hour)
	fresh := r.Create("New", "Engineer", nil, "")

	r.evictExpired()

	if _, err := r.Lookup(stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected stale record evicted")
	}
	if _, err := r.Lookup(fresh.ID); err != nil {
		t.Errorf("Expected fresh record kept, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected stale record's file removed")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 record, got %d", r.Len())
	}
}

func TestRegistry_AttachedRecordsOutliveTTL(t *testing.T) {
	r := newTestRegistry(t)

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	record := r.Create("Ana", "Engineer", nil, path)
	record.CreatedAt = time.Now().Add(-time.Hour)

	attached, err := r.Attach(record.ID)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if attached.CandidateName != "Ana" {
		t.Errorf("Unexpected record: %+v", attached)
	}

	// a long-running interview must not have its session reaped
	r.evictExpired()

	if _, err := r.Lookup(record.ID); err != nil {
		t.Errorf("Expected attached record kept past TTL, got %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected attached record's file kept, got %v", err)
	}
}

func TestRegistry_AttachUnknown(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Attach("no-such-id"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistry_CloseIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute, zerolog.Nop())
	r.Close()
	r.Close()
}
