// Package roster holds the enrolled members and their face descriptors.
package roster

import (
	"strings"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Member is one enrolled person.
type Member struct {
	Name      string                 `json:"name"`
	RollNo    string                 `json:"roll_no"`
	Encodings []facematch.Descriptor `json:"-"`
	Active    bool                   `json:"active"`
}

// Clone returns a deep copy of m.
func (m Member) Clone() Member {
	out := m
	if m.Encodings != nil {
		out.Encodings = make([]facematch.Descriptor, len(m.Encodings))
		for i, d := range m.Encodings {
			out.Encodings[i] = d.Clone()
		}
	}
	return out
}

var upper = cases.Upper(language.Und)

// NormalizeName trims surrounding whitespace and upper-cases name.
// Names are keys, so two spellings differing only in case or Unicode
// composition resolve to the same member.
func NormalizeName(name string) string {
	return upper.String(norm.NFC.String(strings.TrimSpace(name)))
}
