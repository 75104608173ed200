package session

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/interviewlab/voice-interviewer/internal/resume"
)

// ErrSessionNotFound indicates an unknown or expired session ID.
var ErrSessionNotFound = errors.New("session not found")

// Record holds the resume-derived state registered before the interview
// websocket connects.
type Record struct {
	ID            string          `json:"session_id"`
	CandidateName string          `json:"candidate_name"`
	Role          string          `json:"role"`
	Resume        *resume.Summary `json:"-"`
	FilePath      string          `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`

	// attached marks a record bound to a live interview connection;
	// guarded by the registry mutex
	attached bool
}

// Registry stores pending and active interview sessions. A janitor
// goroutine evicts records older than the TTL and removes their uploaded
// files.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	ttl     time.Duration
	logger  zerolog.Logger
	done    chan struct{}
	closed  sync.Once
}

// NewRegistry creates a registry and starts its eviction janitor.
func NewRegistry(ttl time.Duration, logger zerolog.Logger) *Registry {
	r := &Registry{
		records: make(map[string]*Record),
		ttl:     ttl,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create registers a new session and returns its record.
func (r *Registry) Create(candidateName, role string, summary *resume.Summary, filePath string) *Record {
	record := &Record{
		ID:            uuid.NewString(),
		CandidateName: candidateName,
		Role:          role,
		Resume:        summary,
		FilePath:      filePath,
		CreatedAt:     time.Now(),
	}

	r.mu.Lock()
	r.records[record.ID] = record
	r.mu.Unlock()

	r.logger.Info().
		Str("session_id", record.ID).
		Str("candidate", candidateName).
		Str("role", role).
		Msg("Session registered")
	return record
}

// Lookup returns the record for the given session ID.
func (r *Registry) Lookup(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return record, nil
}

// Attach looks a session up and marks it bound to a live interview
// connection. Attached records are exempt from TTL eviction; the TTL
// only reaps sessions that were never connected to.
func (r *Registry) Attach(id string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	record.attached = true
	return record, nil
}

// Delete removes a session and its uploaded file. Unknown IDs are a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	record, ok := r.records[id]
	if ok {
		delete(r.records, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	r.removeFile(record)
	r.logger.Info().Str("session_id", id).Msg("Session deleted")
}

// List returns all registered records, newest first.
func (r *Registry) List() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*Record, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[j].CreatedAt.After(records[i].CreatedAt) {
				records[i], records[j] = records[j], records[i]
			}
		}
	}
	return records
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Close stops the janitor. Idempotent.
func (r *Registry) Close() {
	r.closed.Do(func() {
		close(r.done)
	})
}

// janitor periodically evicts records older than the TTL.
func (r *Registry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.evictExpired()
		}
	}
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Record
	for id, record := range r.records {
		if record.attached {
			continue
		}
		if record.CreatedAt.Before(cutoff) {
			expired = append(expired, record)
			delete(r.records, id)
		}
	}
	r.mu.Unlock()

	for _, record := range expired {
		r.removeFile(record)
		r.logger.Info().Str("session_id", record.ID).Msg("Expired session evicted")
	}
}

func (r *Registry) removeFile(record *Record) {
	if record.FilePath == "" {
		return
	}
	if err := os.Remove(record.FilePath); err != nil && !os.IsNotExist(err) {
		r.logger.Warn().Err(err).Str("path", record.FilePath).Msg("Failed to remove uploaded resume")
	}
}
