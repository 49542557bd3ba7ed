package roster

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/google/renameio"
)

// Persister loads and saves the whole roster.
type Persister interface {
	// Load returns the stored members in roster order. Missing, empty and
	// undecodable storage are reported with ErrStorageMissing,
	// ErrEmptyStorage and ErrCorruptStorage.
	Load(ctx context.Context) ([]Member, error)
	// Save replaces the stored roster with members.
	Save(ctx context.Context, members []Member) error
}

const rosterFileVersion = 1

// rosterFile is the on-disk envelope. Payload holds the gob-encoded
// members and Checksum its xxhash.
type rosterFile struct {
	Version  int
	Checksum uint64
	Payload  []byte
}

// FilePersister stores the roster in a single gob file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the roster file location.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the roster file.
func (p *FilePersister) Load(_ context.Context) ([]Member, error) {
	data, err := os.ReadFile(p.path) //nolint:gosec // path is from trusted config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStorageMissing
		}
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyStorage
	}

	var file rosterFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStorage, err)
	}
	if file.Version != rosterFileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptStorage, file.Version)
	}
	if xxhash.Sum64(file.Payload) != file.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptStorage)
	}

	var members []Member
	if err := gob.NewDecoder(bytes.NewReader(file.Payload)).Decode(&members); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStorage, err)
	}
	return members, nil
}

// Save writes the roster to a temporary file and atomically replaces the
// previous one, so a crash never leaves a truncated roster behind.
func (p *FilePersister) Save(_ context.Context, members []Member) error {
	if members == nil {
		members = []Member{}
	}
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(members); err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}

	var buf bytes.Buffer
	file := rosterFile{
		Version:  rosterFileVersion,
		Checksum: xxhash.Sum64(payload.Bytes()),
		Payload:  payload.Bytes(),
	}
	if err := gob.NewEncoder(&buf).Encode(file); err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	if err := renameio.WriteFile(p.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write roster file: %w", err)
	}
	return nil
}
