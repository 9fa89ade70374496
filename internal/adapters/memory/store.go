// Package memory holds mutex-guarded, in-process implementations of every
// port. The server falls back to it when no database is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"millaudit/internal/domain"
)

// Store implements TemplateRepository, TemplateWriter, SubmissionRepository
// and SessionStore. Values are deep-copied on the way in and out.
type Store struct {
	mu          sync.RWMutex
	templates   map[string][]domain.ChecklistTemplate // id -> versions in publish order
	submissions map[string]domain.Submission
	sessions    map[string]domain.Session
}

func New() *Store {
	return &Store{
		templates:   map[string][]domain.ChecklistTemplate{},
		submissions: map[string]domain.Submission{},
		sessions:    map[string]domain.Session{},
	}
}

func (s *Store) GetTemplate(ctx context.Context, id string) (domain.ChecklistTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.templates[id]
	if len(versions) == 0 {
		return domain.ChecklistTemplate{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return copyOf(versions[len(versions)-1])
}

func (s *Store) GetTemplateVersion(ctx context.Context, id, version string) (domain.ChecklistTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.templates[id] {
		if t.Version == version {
			return copyOf(t)
		}
	}
	return domain.ChecklistTemplate{}, fmt.Errorf("template %s@%s: %w", id, version, domain.ErrNotFound)
}

// ListTemplates returns the latest version of every template, sorted by id.
func (s *Store) ListTemplates(ctx context.Context) ([]domain.ChecklistTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChecklistTemplate, 0, len(s.templates))
	for _, versions := range s.templates {
		t, err := copyOf(versions[len(versions)-1])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveTemplate(ctx context.Context, t domain.ChecklistTemplate) error {
	c, err := copyOf(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.templates[t.ID] {
		if existing.Version == t.Version {
			return fmt.Errorf("template %s@%s: %w", t.ID, t.Version, domain.ErrConflict)
		}
	}
	s.templates[t.ID] = append(s.templates[t.ID], c)
	return nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	c, err := copyOf(sub)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[sub.ID]; exists {
		return fmt.Errorf("submission %s: %w", sub.ID, domain.ErrConflict)
	}
	s.submissions[sub.ID] = c
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, fmt.Errorf("submission %s: %w", id, domain.ErrNotFound)
	}
	return copyOf(sub)
}

func (s *Store) ListSubmissions(ctx context.Context, templateID string, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for _, sub := range s.submissions {
		if templateID != "" && sub.TemplateID != templateID {
			continue
		}
		c, err := copyOf(sub)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Tamper overwrites a stored submission without any checks. Tests use it to
// simulate edits made behind the service's back.
func (s *Store) Tamper(id string, edit func(*domain.Submission)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.submissions[id]
	edit(&sub)
	s.submissions[id] = sub
}

func (s *Store) PutSession(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return sess.Clone(), nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// copyOf deep-copies through JSON, the same encoding the Postgres adapter
// stores, so memory and database round-trips behave alike.
func copyOf[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("copy %T: %w", v, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("copy %T: %w", v, err)
	}
	return out, nil
}
