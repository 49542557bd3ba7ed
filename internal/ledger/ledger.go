// Package ledger records daily attendance, at most once per member per day.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// Date and time layouts of ledger rows.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	// ErrUnknownMember is returned by Mark for names not in the roster.
	ErrUnknownMember = errors.New("member is not enrolled")
	// ErrDuplicate is returned by a Backend when the (roll number, date)
	// pair is already stored.
	ErrDuplicate = errors.New("attendance already recorded")
	// ErrMalformed is returned when stored rows cannot be parsed.
	ErrMalformed = errors.New("malformed attendance ledger")
)

// Record is one attendance row.
type Record struct {
	RollNo string `json:"roll_no"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Status is the outcome of Mark.
type Status int

const (
	Recorded Status = iota + 1
	AlreadyRecorded
)

func (s Status) String() string {
	switch s {
	case Recorded:
		return "recorded"
	case AlreadyRecorded:
		return "already_recorded"
	default:
		return ""
	}
}

// MarshalText encodes the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Backend stores ledger rows.
type Backend interface {
	// Init prepares the storage. It must be safe to call on every start.
	Init(ctx context.Context) error
	// Load returns all rows in insertion order.
	Load(ctx context.Context) ([]Record, error)
	// Append stores one row. Backends able to enforce uniqueness return
	// ErrDuplicate for an existing (roll number, date) pair.
	Append(ctx context.Context, r Record) error
}

// MemberLookup resolves a member name to its current roster entry.
type MemberLookup interface {
	Lookup(name string) (roster.Member, bool)
}

type key struct {
	rollNo string
	date   string
}

// Ledger is the in-memory view of a Backend with a (roll number, date) index.
type Ledger struct {
	mu      sync.RWMutex
	backend Backend
	members MemberLookup
	now     func() time.Time
	records []Record
	index   map[key]struct{}
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now. Dates and times use the clock's location.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Open initializes backend and loads its rows.
func Open(ctx context.Context, backend Backend, members MemberLookup, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		backend: backend,
		members: members,
		now:     time.Now,
		index:   make(map[key]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := backend.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}
	records, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	for _, r := range records {
		l.add(r)
	}
	log.Printf("ledger: loaded %d attendance records", len(l.records))
	return l, nil
}

func (l *Ledger) add(r Record) {
	l.records = append(l.records, r)
	l.index[key{rollNo: r.RollNo, date: r.Date}] = struct{}{}
}

// Mark records attendance for the named member today. It reports
// AlreadyRecorded when the member's roll number already has a row for the date.
func (l *Ledger) Mark(ctx context.Context, name string) (Status, Record, error) {
	m, ok := l.members.Lookup(name)
	if !ok {
		return 0, Record{}, fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}

	now := l.now()
	r := Record{
		RollNo: m.RollNo,
		Name:   m.Name,
		Date:   now.Format(DateLayout),
		Time:   now.Format(TimeLayout),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.index[key{rollNo: r.RollNo, date: r.Date}]; exists {
		return AlreadyRecorded, r, nil
	}

	if err := l.backend.Append(ctx, r); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Another process recorded it first.
			l.index[key{rollNo: r.RollNo, date: r.Date}] = struct{}{}
			return AlreadyRecorded, r, nil
		}
		return 0, Record{}, fmt.Errorf("failed to append attendance: %w", err)
	}

	l.add(r)
	log.Printf("ledger: attendance marked for %s (Roll No: %s) at %s on %s", r.Name, r.RollNo, r.Time, r.Date)
	return Recorded, r, nil
}

// Records returns all rows in insertion order.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// RecordsOn returns the rows for date (YYYY-MM-DD).
func (l *Ledger) RecordsOn(date string) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Record
	for _, r := range l.records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether rollNo has a row for date.
func (l *Ledger) Has(rollNo, date string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[key{rollNo: rollNo, date: date}]
	return ok
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Today returns the current date in ledger format.
func (l *Ledger) Today() string {
	return l.now().Format(DateLayout)
}
