package roster

import "errors"

// Validation errors returned by Enroll.
var (
	ErrEmptyName           = errors.New("member name is empty")
	ErrEmptyRollNo         = errors.New("roll number is empty")
	ErrNoDescriptors       = errors.New("at least one face descriptor is required")
	ErrDescriptorDimension = errors.New("face descriptors must be non-empty and of equal length")
)

// Storage conditions reported by a Persister. Open treats all three as an
// empty roster.
var (
	ErrStorageMissing = errors.New("roster storage does not exist")
	ErrEmptyStorage   = errors.New("roster storage is empty")
	ErrCorruptStorage = errors.New("roster storage is corrupt")
)
