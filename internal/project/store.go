package project

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/models"
	"github.com/giorgiojulius/cryptojulius/internal/reconcile"
)

// Store holds the tracked projects. Readers get immutable snapshots; every mutation
// builds a new collection, persists it and then swaps it in, one mutation at a time.
type Store struct {
	mu       sync.Mutex
	repo     Repository
	now      func() time.Time
	projects atomic.Pointer[[]models.Project]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store. A nil repo keeps projects in memory only.
func NewStore(repo Repository, opts ...StoreOption) *Store {
	s := &Store{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.projects.Store(&[]models.Project{})
	return s
}

// Load replaces the in-memory collection with the persisted one.
func (s *Store) Load() error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.repo.List()
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	s.swap(projects)
	return nil
}

// Snapshot returns a copy of every project in insertion order.
func (s *Store) Snapshot() []models.Project {
	current := *s.projects.Load()
	out := make([]models.Project, len(current))
	for i, p := range current {
		out[i] = p.Clone()
	}
	return out
}

// Len returns the number of tracked projects.
func (s *Store) Len() int {
	return len(*s.projects.Load())
}

// Get returns the project with the given key.
func (s *Store) Get(key models.ProjectKey) (models.Project, bool) {
	current := *s.projects.Load()
	if i := indexOf(current, key); i >= 0 {
		return current[i].Clone(), true
	}
	return models.Project{}, false
}

// Add inserts project unless its key is already tracked, in which case the existing
// project is returned and added is false.
func (s *Store) Add(project models.Project) (stored models.Project, added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.projects.Load()
	project.ChainID = project.Key().ChainID
	if i := indexOf(current, project.Key()); i >= 0 {
		return current[i].Clone(), false, nil
	}

	project = project.Clone()
	project.ID = 0
	if project.Timestamp.IsZero() {
		project.Timestamp = s.now()
	}
	if s.repo != nil {
		if err := s.repo.Create(&project); err != nil {
			return models.Project{}, false, fmt.Errorf("add project %s: %w", project.Key(), err)
		}
	}

	next := make([]models.Project, len(current), len(current)+1)
	copy(next, current)
	s.swap(append(next, project))
	return project.Clone(), true, nil
}

// Remove deletes the project with the given key. Unknown keys report false.
func (s *Store) Remove(key models.ProjectKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.projects.Load()
	i := indexOf(current, key)
	if i < 0 {
		return false, nil
	}
	if s.repo != nil {
		if err := s.repo.Delete(key); err != nil {
			return false, fmt.Errorf("remove project %s: %w", key, err)
		}
	}

	next := make([]models.Project, 0, len(current)-1)
	next = append(next, current[:i]...)
	s.swap(append(next, current[i+1:]...))
	return true, nil
}

// UpdateFields merges patch into the project with the given key. Unknown keys are left
// alone and report false.
func (s *Store) UpdateFields(key models.ProjectKey, patch models.ProjectPatch) (models.Project, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.projects.Load()
	i := indexOf(current, key)
	if i < 0 {
		return models.Project{}, false, nil
	}

	updated := patch.Apply(current[i].Clone())
	if s.repo != nil {
		if err := s.repo.Update(&updated); err != nil {
			return models.Project{}, false, fmt.Errorf("update project %s: %w", key, err)
		}
	}

	next := make([]models.Project, len(current))
	copy(next, current)
	next[i] = updated
	s.swap(next)
	return updated.Clone(), true, nil
}

// BatchUpdate replaces the token data of every tracked project matched by an incoming
// record and stamps it with a fresh timestamp. Moat factors stay as stored and the ATH
// never moves backwards. Incoming records for unknown keys are ignored. The whole batch
// is persisted before it becomes visible.
func (s *Store) BatchUpdate(updated []models.Project) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := *s.projects.Load()
	next := make([]models.Project, len(current))
	copy(next, current)

	now := s.now()
	var changed []int
	for _, incoming := range updated {
		i := indexOf(next, incoming.Key())
		if i < 0 {
			continue
		}
		existing := next[i]

		p := existing.Clone()
		p.TokenData = incoming.TokenData
		p.Address = existing.Address
		p.ChainID = existing.ChainID
		p.ATH = reconcile.AdvanceATH(existing.ATH, incoming.ATH)
		p.Timestamp = now
		next[i] = p.Clone()
		changed = append(changed, i)
	}

	if len(changed) == 0 {
		return s.Snapshot(), nil
	}

	if s.repo != nil {
		batch := make([]models.Project, len(changed))
		for j, i := range changed {
			batch[j] = next[i]
		}
		if err := s.repo.SaveAll(batch); err != nil {
			return nil, fmt.Errorf("batch update: %w", err)
		}
		for j, i := range changed {
			next[i] = batch[j]
		}
	}

	s.swap(next)
	return s.Snapshot(), nil
}

func (s *Store) swap(next []models.Project) {
	s.projects.Store(&next)
}

func indexOf(projects []models.Project, key models.ProjectKey) int {
	key = models.NewProjectKey(key.ChainID, key.Address)
	for i := range projects {
		if projects[i].Key() == key {
			return i
		}
	}
	return -1
}
