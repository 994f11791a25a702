// Package redis implements ports.Recorder on Redis. Each session journal is
// one JSON value under a prefixed key, with a ZSET index for listing;
// improvements live under a shared key with an INCR-backed ID counter.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

// Store implements ports.Recorder using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration for session journals.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis recorder with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis recorder from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "loopwise:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
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

type sessionDoc struct {
	Session    *domain.Session          `json:"session"`
	NextRef    ports.PromptRef          `json:"next_ref"`
	Entries    []ports.LogEntry         `json:"entries,omitempty"`
	Errors     []errorEntry             `json:"errors,omitempty"`
	Actions    []actionEntry            `json:"actions,omitempty"`
	Scores     []domain.QualityScore    `json:"scores,omitempty"`
	Iterations []domain.IterationRecord `json:"iterations,omitempty"`
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }
func (s *Store) indexKey() string            { return s.prefix + "index" }
func (s *Store) improvementsKey() string     { return s.prefix + "improvements" }
func (s *Store) improvementIDKey() string    { return s.prefix + "improvement_id" }

func (s *Store) loadSession(ctx context.Context, sessionID string) (*sessionDoc, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	var doc sessionDoc
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("corrupt session journal %s: %w", sessionID, err)
	}
	return &doc, nil
}

func (s *Store) saveSession(ctx context.Context, doc *sessionDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session journal: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(doc.Session.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(doc.Session.StartedAt.Unix()),
		Member: doc.Session.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

func (s *Store) mutateSession(ctx context.Context, sessionID string, fn func(*sessionDoc) error) error {
	doc, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.saveSession(ctx, doc)
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	copied := *session
	return s.saveSession(ctx, &sessionDoc{Session: &copied})
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.Status) error {
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
		return doc.Session.ApplyStatus(status, time.Now().UTC())
	})
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	doc, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return doc.Session, nil
}

func (s *Store) ActiveSession(ctx context.Context) (*domain.Session, error) {
	ids, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	// Index order is start time ascending; walk backwards for the most
	// recent live session.
	for i := len(ids) - 1; i >= 0; i-- {
		doc, err := s.loadSession(ctx, ids[i])
		if err != nil {
			continue
		}
		if doc.Session.Status == domain.StatusRunning || doc.Session.Status == domain.StatusPaused {
			return doc.Session, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) LogPrompt(ctx context.Context, sessionID, text, stepID string, stepNumber int) (ports.PromptRef, error) {
	var ref ports.PromptRef
	err := s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
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
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
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
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
		doc.Errors = append(doc.Errors, errorEntry{Kind: kind, Message: message, At: time.Now().UTC()})
		return nil
	})
}

func (s *Store) LogAction(ctx context.Context, sessionID, actionType string, details map[string]any, success bool) error {
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
		doc.Actions = append(doc.Actions, actionEntry{
			Type: actionType, Details: details, Success: success, At: time.Now().UTC(),
		})
		return nil
	})
}

func (s *Store) SessionLogs(ctx context.Context, sessionID string) ([]ports.LogEntry, error) {
	doc, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func (s *Store) RecentLogs(ctx context.Context, limit int) ([]ports.LogEntry, error) {
	ids, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	var all []ports.LogEntry
	for _, id := range ids {
		doc, err := s.loadSession(ctx, id)
		if err != nil {
			continue
		}
		all = append(all, doc.Entries...)
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *Store) SaveQualityScore(ctx context.Context, sessionID string, score domain.QualityScore) error {
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
		doc.Scores = append(doc.Scores, score)
		return nil
	})
}

func (s *Store) SaveIteration(ctx context.Context, sessionID string, record domain.IterationRecord) error {
	return s.mutateSession(ctx, sessionID, func(doc *sessionDoc) error {
		doc.Iterations = append(doc.Iterations, record)
		return nil
	})
}

func (s *Store) CreateImprovement(ctx context.Context, improvement *domain.Improvement) (int64, error) {
	id, err := s.client.Incr(ctx, s.improvementIDKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate improvement id: %w", err)
	}

	copied := *improvement
	copied.ID = id
	if copied.Status == "" {
		copied.Status = domain.ImprovementPending
	}
	data, err := json.Marshal(copied)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal improvement: %w", err)
	}
	if err := s.client.HSet(ctx, s.improvementsKey(), fmt.Sprintf("%d", id), data).Err(); err != nil {
		return 0, fmt.Errorf("failed to store improvement: %w", err)
	}
	improvement.ID = id
	return id, nil
}

func (s *Store) PendingImprovements(ctx context.Context) ([]domain.Improvement, error) {
	items, err := s.client.HGetAll(ctx, s.improvementsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list improvements: %w", err)
	}

	var pending []domain.Improvement
	for _, raw := range items {
		var imp domain.Improvement
		if err := json.Unmarshal([]byte(raw), &imp); err != nil {
			continue
		}
		if imp.Status == domain.ImprovementPending {
			pending = append(pending, imp)
		}
	}
	sortImprovements(pending)
	return pending, nil
}

func (s *Store) GetImprovement(ctx context.Context, id int64) (*domain.Improvement, error) {
	raw, err := s.client.HGet(ctx, s.improvementsKey(), fmt.Sprintf("%d", id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrImprovementNotFound
		}
		return nil, fmt.Errorf("failed to get improvement: %w", err)
	}
	var imp domain.Improvement
	if err := json.Unmarshal([]byte(raw), &imp); err != nil {
		return nil, fmt.Errorf("corrupt improvement %d: %w", id, err)
	}
	return &imp, nil
}

func (s *Store) SetImprovementStatus(ctx context.Context, id int64, status string) error {
	imp, err := s.GetImprovement(ctx, id)
	if err != nil {
		return err
	}
	imp.Status = status
	data, err := json.Marshal(imp)
	if err != nil {
		return fmt.Errorf("failed to marshal improvement: %w", err)
	}
	return s.client.HSet(ctx, s.improvementsKey(), fmt.Sprintf("%d", id), data).Err()
}

// Close closes the underlying redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func sortImprovements(items []domain.Improvement) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
