package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whitewolf2000ani/sdx/internal/artifact"
)

// Mem is an in-memory Store used by tests and by ephemeral runs where
// no database is configured. It enforces the same append-only rules as
// the database-backed store.
type Mem struct {
	mu        sync.RWMutex
	artifacts map[string]*artifact.Raw
	replies   map[string]*Reply
	byRequest map[string][]string
	records   map[string]map[int]*Record
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{
		artifacts: make(map[string]*artifact.Raw),
		replies:   make(map[string]*Reply),
		byRequest: make(map[string][]string),
		records:   make(map[string]map[int]*Record),
	}
}

func (m *Mem) SaveArtifact(ctx context.Context, raw *artifact.Raw) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.artifacts[raw.ID]; ok {
		return ErrDuplicate
	}
	cp := *raw
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.artifacts[raw.ID] = &cp
	return nil
}

func (m *Mem) GetArtifact(ctx context.Context, id string) (*artifact.Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.artifacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *raw
	return &cp, nil
}

func (m *Mem) ListArtifacts(ctx context.Context) ([]*artifact.Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*artifact.Raw, 0, len(m.artifacts))
	for _, raw := range m.artifacts {
		cp := *raw
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Mem) SaveReply(ctx context.Context, reply *Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	if _, ok := m.replies[reply.ID]; ok {
		return ErrDuplicate
	}
	cp := *reply
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	m.replies[cp.ID] = &cp
	m.byRequest[cp.RequestID] = append(m.byRequest[cp.RequestID], cp.ID)
	return nil
}

func (m *Mem) GetReply(ctx context.Context, id string) (*Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reply, ok := m.replies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *reply
	return &cp, nil
}

func (m *Mem) RepliesByRequest(ctx context.Context, requestID string) ([]*Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byRequest[requestID]
	out := make([]*Reply, 0, len(ids))
	for _, id := range ids {
		cp := *m.replies[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Mem) SaveRecord(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	versions, ok := m.records[rec.Session]
	if !ok {
		versions = make(map[int]*Record)
		m.records[rec.Session] = versions
	}
	if _, exists := versions[rec.Version]; exists {
		return ErrDuplicate
	}
	cp := *rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	versions[rec.Version] = &cp
	return nil
}

func (m *Mem) GetRecord(ctx context.Context, session string, version int) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[session][version]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *Mem) LatestRecord(ctx context.Context, session string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.records[session]
	if len(versions) == 0 {
		return nil, ErrNotFound
	}
	max := 0
	for v := range versions {
		if v > max {
			max = v
		}
	}
	cp := *versions[max]
	return &cp, nil
}

func (m *Mem) NextVersion(ctx context.Context, session string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for v := range m.records[session] {
		if v > max {
			max = v
		}
	}
	return max + 1, nil
}

func (m *Mem) ListSessions(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]string, 0, len(m.records))
	for s := range m.records {
		sessions = append(sessions, s)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (m *Mem) Ping(ctx context.Context) error {
	return nil
}

var _ Store = (*Mem)(nil)
