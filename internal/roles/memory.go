package roles

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryTagger keeps tags in process memory. It backs the offline admin
// mode and tests.
type MemoryTagger struct {
	mu     sync.Mutex
	tags   map[string]memoryTag
	holds  map[string]map[string]bool // user -> tag ids
	calls  []string
	failFn func(op, arg string) error
}

type memoryTag struct {
	name  string
	color int
}

// NewMemoryTagger creates an empty MemoryTagger.
func NewMemoryTagger() *MemoryTagger {
	return &MemoryTagger{
		tags:  make(map[string]memoryTag),
		holds: make(map[string]map[string]bool),
	}
}

// FailWith installs a hook consulted before every operation. A non-nil
// return fails that operation. op is one of create, delete, grant, revoke.
func (m *MemoryTagger) FailWith(fn func(op, arg string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

func (m *MemoryTagger) check(op, arg string) error {
	m.calls = append(m.calls, op+" "+arg)
	if m.failFn != nil {
		return m.failFn(op, arg)
	}
	return nil
}

func (m *MemoryTagger) CreateTag(_ context.Context, name string, color int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create", name); err != nil {
		return "", err
	}
	id := uuid.NewString()
	m.tags[id] = memoryTag{name: name, color: color}
	return id, nil
}

func (m *MemoryTagger) DeleteTag(_ context.Context, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("delete", tagID); err != nil {
		return err
	}
	if _, ok := m.tags[tagID]; !ok {
		return fmt.Errorf("tag %s: %w", tagID, ErrUnknownTag)
	}
	delete(m.tags, tagID)
	for _, held := range m.holds {
		delete(held, tagID)
	}
	return nil
}

func (m *MemoryTagger) Grant(_ context.Context, userID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("grant", userID+" "+tagID); err != nil {
		return err
	}
	if _, ok := m.tags[tagID]; !ok {
		return fmt.Errorf("tag %s: %w", tagID, ErrUnknownTag)
	}
	if m.holds[userID] == nil {
		m.holds[userID] = make(map[string]bool)
	}
	m.holds[userID][tagID] = true
	return nil
}

func (m *MemoryTagger) Revoke(_ context.Context, userID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("revoke", userID+" "+tagID); err != nil {
		return err
	}
	if _, ok := m.tags[tagID]; !ok {
		return fmt.Errorf("tag %s: %w", tagID, ErrUnknownTag)
	}
	delete(m.holds[userID], tagID)
	return nil
}

// Holds reports whether userID currently holds tagID.
func (m *MemoryTagger) Holds(userID, tagID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holds[userID][tagID]
}

// TagName returns the name of a live tag.
func (m *MemoryTagger) TagName(tagID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[tagID]
	return t.name, ok
}

// TagCount returns the number of live tags.
func (m *MemoryTagger) TagCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tags)
}

// Calls returns every operation seen so far, as "op arg".
func (m *MemoryTagger) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
