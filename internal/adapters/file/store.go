// Package file implements ports.Recorder as JSON documents on disk: one
// journal per session plus a shared improvements file. Writes go through a
// temp file and rename so a crash never leaves a torn document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

const improvementsFile = "improvements.json"

// Store implements ports.Recorder on a base directory.
type Store struct {
	base string
	mu   sync.Mutex
}

// New creates a file store rooted at base.
func New(base string) *Store {
	return &Store{base: base}
}

type errorEntry struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type actionEntry struct {
	Type    string         `json:"type"`
	Details map[string]any `json:"details,omitempty"`
	Success bool           `json:"success"`
	At      time.Time      `json:"at"`
}

// sessionDoc is one session's full journal.
type sessionDoc struct {
	Session    *domain.Session          `json:"session"`
	NextRef    ports.PromptRef          `json:"next_ref"`
	Entries    []ports.LogEntry         `json:"entries,omitempty"`
	Errors     []errorEntry             `json:"errors,omitempty"`
	Actions    []actionEntry            `json:"actions,omitempty"`
	Scores     []domain.QualityScore    `json:"scores,omitempty"`
	Iterations []domain.IterationRecord `json:"iterations,omitempty"`
}

type improvementsDoc struct {
	NextID int64                `json:"next_id"`
	Items  []domain.Improvement `json:"items,omitempty"`
}

func (s *Store) sessionPath(sessionID string) string {
	return filepath.Join(s.base, sessionID+".json")
}

func (s *Store) loadSession(sessionID string) (*sessionDoc, error) {
	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session journal: %w", err)
	}
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt session journal %s: %w", sessionID, err)
	}
	return &doc, nil
}

// writeDoc marshals v and swaps it into place atomically. The temp file
// lives in the same directory so the rename stays on one filesystem.
func (s *Store) writeDoc(path string, v any) error {
	if err := os.MkdirAll(s.base, 0755); err != nil {
		return fmt.Errorf("failed to ensure store directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.base, "tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	tmpPath = ""
	return nil
}

func (s *Store) saveSession(doc *sessionDoc) error {
	return s.writeDoc(s.sessionPath(doc.Session.ID), doc)
}

// mutateSession loads, mutates, and re-writes one session journal under the
// store lock.
func (s *Store) mutateSession(sessionID string, fn func(*sessionDoc) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.saveSession(doc)
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	return s.saveSession(&sessionDoc{Session: &copied})
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.Status) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		return doc.Session.ApplyStatus(status, time.Now().UTC())
	})
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	return doc.Session, nil
}

func (s *Store) ActiveSession(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.listIDs()
	if err != nil {
		return nil, err
	}

	var active *domain.Session
	for _, id := range ids {
		doc, err := s.loadSession(id)
		if err != nil {
			continue
		}
		sess := doc.Session
		if sess.Status != domain.StatusRunning && sess.Status != domain.StatusPaused {
			continue
		}
		if active == nil || sess.StartedAt.After(active.StartedAt) {
			active = sess
		}
	}
	if active == nil {
		return nil, domain.ErrSessionNotFound
	}
	return active, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listIDs()
}

func (s *Store) listIDs() ([]string, error) {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || name == improvementsFile {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.sessionPath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrSessionNotFound
	}
	return err
}

func (s *Store) LogPrompt(ctx context.Context, sessionID, text, stepID string, stepNumber int) (ports.PromptRef, error) {
	var ref ports.PromptRef
	err := s.mutateSession(sessionID, func(doc *sessionDoc) error {
		doc.NextRef++
		ref = doc.NextRef
		doc.Entries = append(doc.Entries, ports.LogEntry{
			Ref:        ref,
			SessionID:  sessionID,
			StepID:     stepID,
			StepNumber: stepNumber,
			Prompt:     text,
			PromptAt:   time.Now().UTC(),
		})
		return nil
	})
	return ref, err
}

func (s *Store) LogResponse(ctx context.Context, sessionID string, ref ports.PromptRef, text, model string, tokens int) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		for i := range doc.Entries {
			if doc.Entries[i].Ref == ref {
				doc.Entries[i].Response = text
				doc.Entries[i].Model = model
				doc.Entries[i].Tokens = tokens
				doc.Entries[i].ResponseAt = time.Now().UTC()
				return nil
			}
		}
		return fmt.Errorf("unknown prompt ref %d", ref)
	})
}

func (s *Store) LogError(ctx context.Context, sessionID, kind, message string) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		doc.Errors = append(doc.Errors, errorEntry{Kind: kind, Message: message, At: time.Now().UTC()})
		return nil
	})
}

func (s *Store) LogAction(ctx context.Context, sessionID, actionType string, details map[string]any, success bool) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		doc.Actions = append(doc.Actions, actionEntry{
			Type: actionType, Details: details, Success: success, At: time.Now().UTC(),
		})
		return nil
	})
}

func (s *Store) SessionLogs(ctx context.Context, sessionID string) ([]ports.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (s *Store) RecentLogs(ctx context.Context, limit int) ([]ports.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.listIDs()
	if err != nil {
		return nil, err
	}

	var all []ports.LogEntry
	for _, id := range ids {
		doc, err := s.loadSession(id)
		if err != nil {
			continue
		}
		all = append(all, doc.Entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PromptAt.Before(all[j].PromptAt) })

	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) SaveQualityScore(ctx context.Context, sessionID string, score domain.QualityScore) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		doc.Scores = append(doc.Scores, score)
		return nil
	})
}

func (s *Store) SaveIteration(ctx context.Context, sessionID string, record domain.IterationRecord) error {
	return s.mutateSession(sessionID, func(doc *sessionDoc) error {
		doc.Iterations = append(doc.Iterations, record)
		return nil
	})
}

func (s *Store) improvementsPath() string {
	return filepath.Join(s.base, improvementsFile)
}

func (s *Store) loadImprovements() (*improvementsDoc, error) {
	data, err := os.ReadFile(s.improvementsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &improvementsDoc{}, nil
		}
		return nil, fmt.Errorf("failed to read improvements: %w", err)
	}
	var doc improvementsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt improvements file: %w", err)
	}
	return &doc, nil
}

func (s *Store) CreateImprovement(ctx context.Context, improvement *domain.Improvement) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadImprovements()
	if err != nil {
		return 0, err
	}
	doc.NextID++
	copied := *improvement
	copied.ID = doc.NextID
	if copied.Status == "" {
		copied.Status = domain.ImprovementPending
	}
	doc.Items = append(doc.Items, copied)
	if err := s.writeDoc(s.improvementsPath(), doc); err != nil {
		return 0, err
	}
	improvement.ID = copied.ID
	return copied.ID, nil
}

func (s *Store) PendingImprovements(ctx context.Context) ([]domain.Improvement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadImprovements()
	if err != nil {
		return nil, err
	}
	var pending []domain.Improvement
	for _, item := range doc.Items {
		if item.Status == domain.ImprovementPending {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

func (s *Store) GetImprovement(ctx context.Context, id int64) (*domain.Improvement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadImprovements()
	if err != nil {
		return nil, err
	}
	for i := range doc.Items {
		if doc.Items[i].ID == id {
			item := doc.Items[i]
			return &item, nil
		}
	}
	return nil, domain.ErrImprovementNotFound
}

func (s *Store) SetImprovementStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadImprovements()
	if err != nil {
		return err
	}
	for i := range doc.Items {
		if doc.Items[i].ID == id {
			doc.Items[i].Status = status
			return s.writeDoc(s.improvementsPath(), doc)
		}
	}
	return domain.ErrImprovementNotFound
}
