// Package mock provides in-memory implementations of the storage interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

// MockRosterPersister is an in-memory roster.Persister
type MockRosterPersister struct {
	mu      sync.Mutex
	members []roster.Member
	saves   int

	// Error injection
	LoadError error
	SaveError error
}

// NewMockRosterPersister creates a persister preloaded with members
func NewMockRosterPersister(members ...roster.Member) *MockRosterPersister {
	return &MockRosterPersister{members: cloneMembers(members)}
}

// Load returns the stored members
func (m *MockRosterPersister) Load(ctx context.Context) ([]roster.Member, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMembers(m.members), nil
}

// Save replaces the stored members
func (m *MockRosterPersister) Save(ctx context.Context, members []roster.Member) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = cloneMembers(members)
	m.saves++
	return nil
}

// Members returns a copy of the last saved roster
func (m *MockRosterPersister) Members() []roster.Member {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMembers(m.members)
}

// SaveCount returns how many times Save succeeded
func (m *MockRosterPersister) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneMembers(members []roster.Member) []roster.Member {
	if members == nil {
		return nil
	}
	out := make([]roster.Member, len(members))
	for i, member := range members {
		out[i] = member.Clone()
	}
	return out
}

// MockLedgerBackend is an in-memory ledger.Backend. It enforces the
// (roll number, date) uniqueness the SQL backends provide.
type MockLedgerBackend struct {
	mu        sync.Mutex
	records   []ledger.Record
	initCalls int

	// Error injection
	InitError   error
	LoadError   error
	AppendError error
}

// NewMockLedgerBackend creates a backend preloaded with records
func NewMockLedgerBackend(records ...ledger.Record) *MockLedgerBackend {
	return &MockLedgerBackend{records: append([]ledger.Record(nil), records...)}
}

// Init counts initializations
func (m *MockLedgerBackend) Init(ctx context.Context) error {
	if m.InitError != nil {
		return m.InitError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return nil
}

// Load returns the stored records
func (m *MockLedgerBackend) Load(ctx context.Context) ([]ledger.Record, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.Record(nil), m.records...), nil
}

// Append stores a record or reports ledger.ErrDuplicate
func (m *MockLedgerBackend) Append(ctx context.Context, r ledger.Record) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.records {
		if existing.RollNo == r.RollNo && existing.Date == r.Date {
			return ledger.ErrDuplicate
		}
	}
	m.records = append(m.records, r)
	return nil
}

// Records returns a copy of the stored records
func (m *MockLedgerBackend) Records() []ledger.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ledger.Record(nil), m.records...)
}

// InitCount returns how many times Init succeeded
func (m *MockLedgerBackend) InitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}
