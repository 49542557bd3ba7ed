// Package attendance ties the roster, matcher, ledger and face encoder
// together into the operations exposed by the CLI and the web API.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/auth"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var (
	ErrNoFace        = errors.New("no face detected")
	ErrMultipleFaces = errors.New("more than one face detected")
	ErrNoCaptures    = errors.New("no captures provided")
	ErrUnknownAngle  = errors.New("unknown capture angle")
	ErrNoProvider    = errors.New("face encoder is not configured")
)

// Options tunes the service.
type Options struct {
	Tolerance float64
	UseIndex  bool
	// Angles lists the accepted capture angles. Empty accepts any angle.
	Angles []string
}

// Service is the application context. It is created once at startup and
// closed at shutdown.
type Service struct {
	// mu serializes mutations and attendance marking.
	mu sync.Mutex

	store    *roster.Store
	matcher  *facematch.Matcher
	ledger   *ledger.Ledger
	provider encoder.Provider
	auth     auth.Authenticator
	angles   []string
}

// New creates the service. provider may be nil when only descriptor based
// operations are used.
func New(store *roster.Store, l *ledger.Ledger, provider encoder.Provider, a auth.Authenticator, opts Options) *Service {
	matcherOpts := []facematch.Option{facematch.WithTolerance(opts.Tolerance)}
	if opts.UseIndex {
		matcherOpts = append(matcherOpts, facematch.WithIndex())
	}
	return &Service{
		store:    store,
		matcher:  facematch.NewMatcher(store, matcherOpts...),
		ledger:   l,
		provider: provider,
		auth:     a,
		angles:   opts.Angles,
	}
}

// Recognition is the outcome for one face.
type Recognition struct {
	Location   facematch.Location `json:"location"`
	Name       string             `json:"name"`
	RollNo     string             `json:"roll_no,omitempty"`
	Distance   float64            `json:"distance"`
	Known      bool               `json:"known"`
	Attendance ledger.Status      `json:"attendance,omitempty"`
	Date       string             `json:"date,omitempty"`
	Time       string             `json:"time,omitempty"`
}

// Recognize detects every face in image, matches each one independently
// and marks attendance for the known members.
func (s *Service) Recognize(ctx context.Context, image []byte) ([]Recognition, error) {
	faces, err := s.detect(ctx, image)
	if err != nil {
		return nil, err
	}

	descriptors := make([]facematch.Descriptor, len(faces))
	for i, f := range faces {
		descriptors[i] = f.Descriptor
	}
	out, err := s.RecognizeDescriptors(ctx, descriptors)
	for i := range out {
		out[i].Location = faces[i].Location
	}
	return out, err
}

// RecognizeDescriptors matches already encoded faces and marks attendance.
// On a ledger failure the results gathered so far are returned with the error.
func (s *Service) RecognizeDescriptors(ctx context.Context, descriptors []facematch.Descriptor) ([]Recognition, error) {
	results := s.matcher.MatchAll(descriptors)
	out := make([]Recognition, len(results))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range results {
		out[i] = Recognition{
			Name:     r.Name,
			RollNo:   r.RollNo,
			Distance: r.Distance,
			Known:    r.Known,
		}
		if !r.Known {
			continue
		}
		status, rec, err := s.ledger.Mark(ctx, r.Name)
		if err != nil {
			if errors.Is(err, ledger.ErrUnknownMember) {
				// Removed between matching and marking.
				out[i] = Recognition{Name: facematch.UnknownName, Distance: r.Distance}
				continue
			}
			return out[:i+1], fmt.Errorf("failed to mark attendance for %s: %w", r.Name, err)
		}
		out[i].Attendance = status
		out[i].Date = rec.Date
		out[i].Time = rec.Time
	}
	return out, nil
}

// Mark records attendance for a member by name.
func (s *Service) Mark(ctx context.Context, name string) (ledger.Status, ledger.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Mark(ctx, name)
}

// EnrollImage enrolls a member from a single image that must contain
// exactly one face. It returns false when the name is already enrolled.
func (s *Service) EnrollImage(ctx context.Context, name, rollNo string, image []byte) (bool, error) {
	return s.EnrollCaptures(ctx, name, rollNo, []Capture{{Image: image}})
}

// Capture is one enrollment photo taken from a given angle.
type Capture struct {
	Angle string
	Image []byte
}

// EnrollCaptures enrolls a member from several photos, one descriptor per
// photo. Every photo must contain exactly one face.
func (s *Service) EnrollCaptures(ctx context.Context, name, rollNo string, captures []Capture) (bool, error) {
	if len(captures) == 0 {
		return false, ErrNoCaptures
	}
	if roster.NormalizeName(name) == "" {
		return false, roster.ErrEmptyName
	}
	if strings.TrimSpace(rollNo) == "" {
		return false, roster.ErrEmptyRollNo
	}
	if _, exists := s.store.Lookup(name); exists {
		return false, nil
	}

	descriptors := make([]facematch.Descriptor, 0, len(captures))
	for i, c := range captures {
		if c.Angle != "" && len(s.angles) > 0 && !slices.Contains(s.angles, c.Angle) {
			return false, fmt.Errorf("%w: %q", ErrUnknownAngle, c.Angle)
		}
		label := fmt.Sprintf("capture %d", i+1)
		if c.Angle != "" {
			label += " (" + c.Angle + ")"
		}
		faces, err := s.detect(ctx, c.Image)
		if err != nil {
			return false, fmt.Errorf("%s: %w", label, err)
		}
		switch len(faces) {
		case 0:
			return false, fmt.Errorf("%s: %w", label, ErrNoFace)
		case 1:
			descriptors = append(descriptors, faces[0].Descriptor)
		default:
			return false, fmt.Errorf("%s: %w", label, ErrMultipleFaces)
		}
	}

	return s.Enroll(ctx, name, rollNo, descriptors)
}

// Enroll adds a member with precomputed descriptors.
func (s *Service) Enroll(ctx context.Context, name, rollNo string, descriptors []facematch.Descriptor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Enroll(ctx, name, rollNo, descriptors)
}

// Remove deletes a member. It returns false when the name is not enrolled.
func (s *Service) Remove(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Remove(ctx, name)
}

// MemberStatus is the public view of a member.
type MemberStatus struct {
	Name        string `json:"name"`
	RollNo      string `json:"roll_no"`
	Active      bool   `json:"active"`
	Descriptors int    `json:"descriptors"`
}

// Members lists every member, active or not, in roster order.
func (s *Service) Members() []MemberStatus {
	members := s.store.Snapshot()
	out := make([]MemberStatus, len(members))
	for i, m := range members {
		out[i] = MemberStatus{
			Name:        m.Name,
			RollNo:      m.RollNo,
			Active:      m.Active,
			Descriptors: len(m.Encodings),
		}
	}
	return out
}

// ActiveStatus maps every member name to its active flag.
func (s *Service) ActiveStatus() map[string]bool {
	return s.store.ActiveStatus()
}

// Attendance returns the rows for date, or all rows when date is empty.
func (s *Service) Attendance(date string) []ledger.Record {
	if date == "" {
		return s.ledger.Records()
	}
	return s.ledger.RecordsOn(date)
}

// Absentees lists the active members without a row for date, in roster
// order. Inactive members are never reported.
func (s *Service) Absentees(date string) []string {
	active := s.store.ActiveStatus()
	var out []string
	for _, name := range s.store.Names() {
		if !active[name] {
			continue
		}
		m, ok := s.store.Lookup(name)
		if !ok || s.ledger.Has(m.RollNo, date) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Summary aggregates attendance per member.
func (s *Service) Summary() []ledger.MemberSummary {
	return ledger.Summarize(s.ledger.Records())
}

// Today returns the ledger's current date.
func (s *Service) Today() string {
	return s.ledger.Today()
}

// Angles returns the accepted capture angles.
func (s *Service) Angles() []string {
	return slices.Clone(s.angles)
}

// Tolerance returns the matching threshold.
func (s *Service) Tolerance() float64 {
	return s.matcher.Tolerance()
}

// Authenticate checks an administrative credential.
func (s *Service) Authenticate(credential string) bool {
	if s.auth == nil {
		return false
	}
	return s.auth.Authenticate(credential)
}

// Close writes any roster changes that were not persisted yet.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Close(ctx); err != nil {
		return err
	}
	log.Printf("attendance: closed")
	return nil
}

func (s *Service) detect(ctx context.Context, image []byte) ([]encoder.Face, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	faces, err := s.provider.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return faces, nil
}
