// Package memory implements ports.Recorder in process memory. It backs
// tests and short-lived runs where nothing needs to survive the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

func now() time.Time { return time.Now().UTC() }

// Store implements ports.Recorder in memory.
// Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	sessions map[string]*domain.Session
	order    []string // session IDs in creation order

	entries []ports.LogEntry
	nextRef ports.PromptRef

	errors  map[string][]errorRecord
	actions map[string][]actionRecord

	scores     map[string][]domain.QualityScore
	iterations map[string][]domain.IterationRecord

	improvements map[int64]*domain.Improvement
	nextImpID    int64
}

type errorRecord struct {
	Kind    string
	Message string
}

type actionRecord struct {
	Type    string
	Details map[string]any
	Success bool
}

// NewStore creates an empty in-memory recorder.
func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]*domain.Session),
		errors:       make(map[string][]errorRecord),
		actions:      make(map[string][]actionRecord),
		scores:       make(map[string][]domain.QualityScore),
		iterations:   make(map[string][]domain.IterationRecord),
		improvements: make(map[int64]*domain.Improvement),
	}
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	s.order = append(s.order, session.ID)
	return nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.ApplyStatus(status, now())
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *Store) ActiveSession(ctx context.Context) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.order) - 1; i >= 0; i-- {
		session := s.sessions[s.order[i]]
		if session == nil {
			continue
		}
		if session.Status == domain.StatusRunning || session.Status == domain.StatusPaused {
			copied := *session
			return &copied, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if _, ok := s.sessions[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.errors, sessionID)
	delete(s.actions, sessionID)
	delete(s.scores, sessionID)
	delete(s.iterations, sessionID)

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.SessionID != sessionID {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return nil
}

func (s *Store) LogPrompt(ctx context.Context, sessionID, text, stepID string, stepNumber int) (ports.PromptRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRef++
	s.entries = append(s.entries, ports.LogEntry{
		Ref:        s.nextRef,
		SessionID:  sessionID,
		StepID:     stepID,
		StepNumber: stepNumber,
		Prompt:     text,
		PromptAt:   now(),
	})
	return s.nextRef, nil
}

func (s *Store) LogResponse(ctx context.Context, sessionID string, ref ports.PromptRef, text, model string, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].Ref == ref {
			s.entries[i].Response = text
			s.entries[i].Model = model
			s.entries[i].Tokens = tokens
			s.entries[i].ResponseAt = now()
			return nil
		}
	}
	return fmt.Errorf("unknown prompt ref %d", ref)
}

func (s *Store) LogError(ctx context.Context, sessionID, kind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors[sessionID] = append(s.errors[sessionID], errorRecord{Kind: kind, Message: message})
	return nil
}

func (s *Store) LogAction(ctx context.Context, sessionID, actionType string, details map[string]any, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions[sessionID] = append(s.actions[sessionID], actionRecord{Type: actionType, Details: details, Success: success})
	return nil
}

func (s *Store) SessionLogs(ctx context.Context, sessionID string) ([]ports.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var logs []ports.LogEntry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			logs = append(logs, e)
		}
	}
	return logs, nil
}

func (s *Store) RecentLogs(ctx context.Context, limit int) ([]ports.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.entries) > limit {
		start = len(s.entries) - limit
	}
	logs := make([]ports.LogEntry, len(s.entries)-start)
	copy(logs, s.entries[start:])
	return logs, nil
}

func (s *Store) SaveQualityScore(ctx context.Context, sessionID string, score domain.QualityScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[sessionID] = append(s.scores[sessionID], score)
	return nil
}

func (s *Store) SaveIteration(ctx context.Context, sessionID string, record domain.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.iterations[sessionID] = append(s.iterations[sessionID], record)
	return nil
}

func (s *Store) CreateImprovement(ctx context.Context, improvement *domain.Improvement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextImpID++
	copied := *improvement
	copied.ID = s.nextImpID
	if copied.Status == "" {
		copied.Status = domain.ImprovementPending
	}
	s.improvements[copied.ID] = &copied
	improvement.ID = copied.ID
	return copied.ID, nil
}

func (s *Store) PendingImprovements(ctx context.Context) ([]domain.Improvement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []domain.Improvement
	for id := int64(1); id <= s.nextImpID; id++ {
		imp, ok := s.improvements[id]
		if ok && imp.Status == domain.ImprovementPending {
			pending = append(pending, *imp)
		}
	}
	return pending, nil
}

func (s *Store) GetImprovement(ctx context.Context, id int64) (*domain.Improvement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	imp, ok := s.improvements[id]
	if !ok {
		return nil, domain.ErrImprovementNotFound
	}
	copied := *imp
	return &copied, nil
}

func (s *Store) SetImprovementStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	imp, ok := s.improvements[id]
	if !ok {
		return domain.ErrImprovementNotFound
	}
	imp.Status = status
	return nil
}

// Errors returns the error log for a session. Test helper.
func (s *Store) Errors(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kinds []string
	for _, e := range s.errors[sessionID] {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Actions returns the action log for a session. Test helper.
func (s *Store) Actions(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var types []string
	for _, a := range s.actions[sessionID] {
		types = append(types, a.Type)
	}
	return types
}

// Scores returns the saved quality scores for a session. Test helper.
func (s *Store) Scores(sessionID string) []domain.QualityScore {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QualityScore, len(s.scores[sessionID]))
	copy(out, s.scores[sessionID])
	return out
}

// Iterations returns the saved iteration records for a session. Test helper.
func (s *Store) Iterations(sessionID string) []domain.IterationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.IterationRecord, len(s.iterations[sessionID]))
	copy(out, s.iterations[sessionID])
	return out
}
