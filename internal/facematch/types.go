package facematch

// UnknownName is reported for faces that match no active member.
const UnknownName = "Unknown"

// DefaultTolerance is the maximum Euclidean distance at which two descriptors
// are considered the same person.
const DefaultTolerance = 0.6

// Descriptor is a fixed-length face encoding produced by the face encoder.
type Descriptor []float32

// Clone returns a copy that does not share memory with d.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Identity is an active member as seen by the matcher.
type Identity struct {
	Name        string
	RollNo      string
	Descriptors []Descriptor
}

// IdentitySource supplies the active members to match against, in roster order.
// Version must change whenever the set of identities changes.
type IdentitySource interface {
	Identities() []Identity
	Version() uint64
}

// Result is the outcome of matching one descriptor.
type Result struct {
	Name     string  `json:"name"`
	RollNo   string  `json:"roll_no,omitempty"`
	Distance float64 `json:"distance"`
	Known    bool    `json:"known"`
}
