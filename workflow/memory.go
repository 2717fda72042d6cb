package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"tenderpricing/pricing"
)

// MemorySessions is a SessionStore that keeps JSON snapshots in memory.
// Loads always decode a fresh copy, so callers never share state.
type MemorySessions struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemorySessions returns an empty store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{data: make(map[string][]byte)}
}

func (m *MemorySessions) Load(_ context.Context, projectID string) (*Session, error) {
	m.mu.Lock()
	raw, ok := m.data[projectID]
	m.mu.Unlock()
	if !ok {
		return nil, pricing.MissingProject(projectID)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", projectID, err)
	}
	return &s, nil
}

func (m *MemorySessions) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Project.ID, err)
	}
	m.mu.Lock()
	m.data[s.Project.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemorySessions) Delete(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[projectID]; !ok {
		return pricing.MissingProject(projectID)
	}
	delete(m.data, projectID)
	return nil
}

// Snapshot returns the stored bytes of projectID.
func (m *MemorySessions) Snapshot(projectID string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data[projectID]...)
}

func (m *MemorySessions) List(ctx context.Context) ([]Summary, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, err := m.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, SummaryOf(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out, nil
}

// SummaryOf builds the listing entry of s.
func SummaryOf(s *Session) Summary {
	return Summary{
		ProjectID: s.Project.ID,
		Name:      s.Project.Name,
		Code:      s.Project.Code,
		Stage:     s.Stage,
		Items:     s.Project.ItemCount(),
		UpdatedAt: s.UpdatedAt,
	}
}

// MemoryHistory is an in-memory HistoryStore.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []*pricing.Result
}

// NewMemoryHistory returns an empty history.
func NewMemoryHistory() *MemoryHistory { return &MemoryHistory{} }

func (m *MemoryHistory) Append(_ context.Context, r *pricing.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if IsDuplicate(e, r) {
			return pricing.DuplicateHistoryEntry(r.ProjectID, r.Summary.FinalPrice, r.EndTime.String())
		}
	}
	cp := *r
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryHistory) List(_ context.Context, projectID string) ([]*pricing.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*pricing.Result{}
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}
