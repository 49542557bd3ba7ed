package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/roster"
)

// staticMembers is a MemberLookup over a fixed map.
type staticMembers map[string]roster.Member

func (m staticMembers) Lookup(name string) (roster.Member, bool) {
	member, ok := m[roster.NormalizeName(name)]
	return member, ok
}

var members = staticMembers{
	"ALICE": {Name: "ALICE", RollNo: "R1", Active: true},
	"BOB":   {Name: "BOB", RollNo: "R2", Active: true},
}

// clock returns a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newClock(value string) *clock {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local)
	if err != nil {
		panic(err)
	}
	return &clock{t: t}
}

// memBackend keeps rows in memory and optionally enforces uniqueness.
type memBackend struct {
	rows      []Record
	unique    bool
	initCalls int
	appendErr error
}

func (b *memBackend) Init(_ context.Context) error {
	b.initCalls++
	return nil
}

func (b *memBackend) Load(_ context.Context) ([]Record, error) {
	return b.rows, nil
}

func (b *memBackend) Append(_ context.Context, r Record) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	if b.unique {
		for _, row := range b.rows {
			if row.RollNo == r.RollNo && row.Date == r.Date {
				return ErrDuplicate
			}
		}
	}
	b.rows = append(b.rows, r)
	return nil
}

func TestLedger_MarkOncePerDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")
	c := newClock("2024-03-01 08:15:00")
	ctx := context.Background()

	l, err := Open(ctx, NewCSVBackend(path), members, WithClock(c.now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	status, rec, err := l.Mark(ctx, "ALICE")
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if status != Recorded {
		t.Errorf("first Mark() = %v, want recorded", status)
	}
	want := Record{RollNo: "R1", Name: "ALICE", Date: "2024-03-01", Time: "08:15:00"}
	if rec != want {
		t.Errorf("Mark() record = %+v, want %+v", rec, want)
	}

	c.t = c.t.Add(3 * time.Hour)
	status, _, err = l.Mark(ctx, "alice")
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if status != AlreadyRecorded {
		t.Errorf("second Mark() = %v, want already_recorded", status)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}

	// The file holds exactly one row after reopening.
	reopened, err := Open(ctx, NewCSVBackend(path), members)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if got := reopened.Records(); len(got) != 1 || got[0] != want {
		t.Errorf("reopened Records() = %+v", got)
	}
}

func TestLedger_MarkOnTwoDates(t *testing.T) {
	c := newClock("2024-03-01 08:15:00")
	ctx := context.Background()
	backend := &memBackend{}

	l, err := Open(ctx, backend, members, WithClock(c.now))
	if err != nil {
		t.Fatal(err)
	}

	if status, _, _ := l.Mark(ctx, "ALICE"); status != Recorded {
		t.Fatalf("day one Mark() = %v", status)
	}
	c.t = c.t.AddDate(0, 0, 1)
	if status, _, _ := l.Mark(ctx, "ALICE"); status != Recorded {
		t.Fatalf("day two Mark() = %v", status)
	}

	if len(backend.rows) != 2 {
		t.Errorf("backend has %d rows, want 2", len(backend.rows))
	}
	if !l.Has("R1", "2024-03-01") || !l.Has("R1", "2024-03-02") {
		t.Error("Has() missing one of the two dates")
	}
	if got := l.RecordsOn("2024-03-02"); len(got) != 1 {
		t.Errorf("RecordsOn() = %+v", got)
	}
}

func TestLedger_DedupIsByRollNo(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{rows: []Record{{RollNo: "R1", Name: "OLD NAME", Date: "2024-03-01", Time: "07:00:00"}}}

	l, err := Open(ctx, backend, members, WithClock(newClock("2024-03-01 09:00:00").now))
	if err != nil {
		t.Fatal(err)
	}
	if status, _, _ := l.Mark(ctx, "ALICE"); status != AlreadyRecorded {
		t.Errorf("Mark() = %v, want already_recorded for existing roll number", status)
	}
	if status, _, _ := l.Mark(ctx, "BOB"); status != Recorded {
		t.Errorf("Mark(BOB) = %v, want recorded", status)
	}
}

func TestLedger_MarkUnknownMember(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	l, err := Open(ctx, backend, members)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = l.Mark(ctx, "MALLORY")
	if !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Mark() error = %v, want ErrUnknownMember", err)
	}
	if len(backend.rows) != 0 {
		t.Error("unknown member produced a row")
	}
}

func TestLedger_BackendDuplicate(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{unique: true}
	l, err := Open(ctx, backend, members, WithClock(newClock("2024-03-01 08:00:00").now))
	if err != nil {
		t.Fatal(err)
	}

	// Simulate another process writing the row after this ledger loaded.
	backend.rows = append(backend.rows, Record{RollNo: "R1", Name: "ALICE", Date: "2024-03-01", Time: "07:59:00"})

	status, _, err := l.Mark(ctx, "ALICE")
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if status != AlreadyRecorded {
		t.Errorf("Mark() = %v, want already_recorded", status)
	}
	if !l.Has("R1", "2024-03-01") {
		t.Error("index not updated after backend duplicate")
	}
}

func TestLedger_AppendFailure(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{appendErr: errors.New("disk full")}
	l, err := Open(ctx, backend, members)
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := l.Mark(ctx, "ALICE"); err == nil {
		t.Fatal("Mark() should fail when the backend fails")
	}
	if l.Len() != 0 || l.Has("R1", l.Today()) {
		t.Error("failed append left a record in memory")
	}
}

func TestStatus_String(t *testing.T) {
	if Recorded.String() != "recorded" {
		t.Errorf("Recorded = %q", Recorded.String())
	}
	if AlreadyRecorded.String() != "already_recorded" {
		t.Errorf("AlreadyRecorded = %q", AlreadyRecorded.String())
	}
}
