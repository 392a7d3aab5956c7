package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/grantdesk/applicants/backend/model"
)

// SubjectRepository resolves applicants by id
type SubjectRepository interface {
	GetSubject(ctx context.Context, id string) (*model.Subject, error)
}

// SubjectStore is a SubjectRepository that can also create and list applicants
type SubjectStore interface {
	SubjectRepository
	SaveSubject(ctx context.Context, subject *model.Subject) error
	ListSubjects(ctx context.Context) ([]*model.Subject, error)
}

// StateTracker persists the DocumentState of every (subject, kind) pair.
// Reading a pair that was never written yields the zero state.
type StateTracker interface {
	Read(ctx context.Context, subjectID string, kind model.DocumentKind) (model.DocumentState, error)
	Write(ctx context.Context, subjectID string, kind model.DocumentKind, patch model.StatePatch) (model.DocumentState, error)
	Reset(ctx context.Context, subjectID string, kind model.DocumentKind) error
	States(ctx context.Context, subjectID string) (map[model.DocumentKind]model.DocumentState, error)
}

type stateKey struct {
	subjectID string
	kind      model.DocumentKind
}

// MemoryStore keeps subjects and document states in process memory.
// It backs the "memory" database driver and the tests.
type MemoryStore struct {
	subjects    map[string]*model.Subject
	states      map[stateKey]model.DocumentState
	mu          sync.RWMutex
	maxSubjects int // Maximum subjects to keep, 0 = unlimited
}

func NewMemoryStore(maxSubjects int) *MemoryStore {
	if maxSubjects < 0 {
		maxSubjects = 0
	}
	return &MemoryStore{
		subjects:    make(map[string]*model.Subject),
		states:      make(map[stateKey]model.DocumentState),
		maxSubjects: maxSubjects,
	}
}

func (s *MemoryStore) SaveSubject(_ context.Context, subject *model.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *subject
	if existing, ok := s.subjects[subject.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.subjects[subject.ID] = &stored

	subject.CreatedAt = stored.CreatedAt
	subject.UpdatedAt = stored.UpdatedAt

	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) GetSubject(_ context.Context, id string) (*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject, ok := s.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, id)
	}
	cp := *subject
	return &cp, nil
}

// ListSubjects returns every subject, newest first
func (s *MemoryStore) ListSubjects(_ context.Context) ([]*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		cp := *subject
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Read(_ context.Context, subjectID string, kind model.DocumentKind) (model.DocumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[stateKey{subjectID, kind}], nil
}

func (s *MemoryStore) Write(_ context.Context, subjectID string, kind model.DocumentKind, patch model.StatePatch) (model.DocumentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stateKey{subjectID, kind}
	state := s.states[key].Apply(patch)
	state.UpdatedAt = time.Now()
	s.states[key] = state
	return state, nil
}

func (s *MemoryStore) Reset(_ context.Context, subjectID string, kind model.DocumentKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey{subjectID, kind})
	return nil
}

func (s *MemoryStore) States(_ context.Context, subjectID string) (map[model.DocumentKind]model.DocumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[model.DocumentKind]model.DocumentState, len(model.AllKinds))
	for _, kind := range model.AllKinds {
		result[kind] = s.states[stateKey{subjectID, kind}]
	}
	return result, nil
}

// Count returns the number of subjects in the store
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subjects)
}

// cleanupIfNeeded removes the oldest subjects and their states when the store exceeds maxSubjects.
// Must be called with lock held
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxSubjects <= 0 || len(s.subjects) <= s.maxSubjects {
		return
	}

	subjects := make([]*model.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		subjects = append(subjects, subject)
	}
	sort.Slice(subjects, func(i, j int) bool {
		return subjects[i].CreatedAt.Before(subjects[j].CreatedAt)
	})

	removeCount := len(subjects) - s.maxSubjects
	for i := 0; i < removeCount; i++ {
		slog.Info("evicting old subject",
			"subject_id", subjects[i].ID,
			"created_at", subjects[i].CreatedAt,
		)
		delete(s.subjects, subjects[i].ID)
		for _, kind := range model.AllKinds {
			delete(s.states, stateKey{subjects[i].ID, kind})
		}
	}
}
