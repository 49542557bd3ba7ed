package roster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Store is the in-memory roster backed by a Persister.
//
// Every successful mutation is persisted before it returns. If persisting
// fails the in-memory change is undone, so memory and storage never diverge.
type Store struct {
	mu        sync.RWMutex
	members   []Member
	byName    map[string]int
	persister Persister
	version   uint64
	// persisted is the version last written to storage.
	persisted uint64
}

// Open loads the roster from p. Missing, empty or corrupt storage yields an
// empty roster; any other load error is returned.
func Open(ctx context.Context, p Persister) (*Store, error) {
	s := &Store{
		byName:    make(map[string]int),
		persister: p,
	}

	members, err := p.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrStorageMissing):
		log.Printf("roster: no existing roster, starting empty")
		members = nil
	case errors.Is(err, ErrEmptyStorage):
		log.Printf("roster: WARNING storage is empty, starting with an empty roster")
		members = nil
	case errors.Is(err, ErrCorruptStorage):
		log.Printf("roster: ERROR %v, starting with an empty roster", err)
		members = nil
	default:
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	for _, m := range members {
		if _, dup := s.byName[m.Name]; dup {
			log.Printf("roster: WARNING duplicate member %q in storage, keeping the first", m.Name)
			continue
		}
		s.byName[m.Name] = len(s.members)
		s.members = append(s.members, m)
	}
	log.Printf("roster: loaded %d members", len(s.members))
	return s, nil
}

// Enroll adds a new active member. It returns false, leaving the roster
// unchanged, when a member with the same normalized name already exists.
// Roll numbers are not required to be unique.
func (s *Store) Enroll(ctx context.Context, name, rollNo string, descriptors []facematch.Descriptor) (bool, error) {
	name = NormalizeName(name)
	if name == "" {
		return false, ErrEmptyName
	}
	rollNo = strings.TrimSpace(rollNo)
	if rollNo == "" {
		return false, ErrEmptyRollNo
	}
	if err := validateDescriptors(descriptors); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; exists {
		return false, nil
	}

	m := Member{
		Name:      name,
		RollNo:    rollNo,
		Encodings: make([]facematch.Descriptor, len(descriptors)),
		Active:    true,
	}
	for i, d := range descriptors {
		m.Encodings[i] = d.Clone()
	}

	s.members = append(s.members, m)
	s.byName[name] = len(s.members) - 1

	if err := s.persister.Save(ctx, s.members); err != nil {
		s.members = s.members[:len(s.members)-1]
		delete(s.byName, name)
		return false, fmt.Errorf("failed to persist roster: %w", err)
	}

	s.version++
	s.persisted = s.version
	log.Printf("roster: enrolled %s (%s) with %d descriptors", name, rollNo, len(descriptors))
	return true, nil
}

// Remove deletes a member. It returns false when no member has that name.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	name = NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byName[name]
	if !ok {
		return false, nil
	}

	previous := s.members
	next := make([]Member, 0, len(previous)-1)
	next = append(next, previous[:idx]...)
	next = append(next, previous[idx+1:]...)

	if err := s.persister.Save(ctx, next); err != nil {
		return false, fmt.Errorf("failed to persist roster: %w", err)
	}

	s.members = next
	s.reindex()
	s.version++
	s.persisted = s.version
	log.Printf("roster: removed %s", name)
	return true, nil
}

func (s *Store) reindex() {
	s.byName = make(map[string]int, len(s.members))
	for i, m := range s.members {
		s.byName[m.Name] = i
	}
}

// ActiveStatus returns the active flag of every member keyed by name.
func (s *Store) ActiveStatus() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.members))
	for _, m := range s.members {
		out[m.Name] = m.Active
	}
	return out
}

// Names returns member names in roster order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.Name
	}
	return out
}

// Snapshot returns a deep copy of all members in roster order.
func (s *Store) Snapshot() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, len(s.members))
	for i, m := range s.members {
		out[i] = m.Clone()
	}
	return out
}

// Lookup returns a copy of the named member.
func (s *Store) Lookup(name string) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byName[NormalizeName(name)]
	if !ok {
		return Member{}, false
	}
	return s.members[idx].Clone(), true
}

// Len returns the number of enrolled members.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// Identities returns the active members in roster order. Descriptor slices
// are shared with the store; they are never mutated after enrollment.
func (s *Store) Identities() []facematch.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]facematch.Identity, 0, len(s.members))
	for _, m := range s.members {
		if !m.Active {
			continue
		}
		out = append(out, facematch.Identity{
			Name:        m.Name,
			RollNo:      m.RollNo,
			Descriptors: m.Encodings,
		})
	}
	return out
}

// Version changes after every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Close writes the roster to storage if it holds changes that were never
// persisted. An unmodified roster leaves storage untouched, including storage
// that was unreadable at Open.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version == s.persisted {
		return nil
	}
	if err := s.persister.Save(ctx, s.members); err != nil {
		return fmt.Errorf("failed to flush roster: %w", err)
	}
	s.persisted = s.version
	return nil
}

func validateDescriptors(descriptors []facematch.Descriptor) error {
	if len(descriptors) == 0 {
		return ErrNoDescriptors
	}
	dim := len(descriptors[0])
	for _, d := range descriptors {
		if len(d) == 0 || len(d) != dim {
			return ErrDescriptorDimension
		}
	}
	return nil
}
