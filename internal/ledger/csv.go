package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
)

// Header is the first row of every CSV ledger.
var Header = []string{"Roll No", "Name", "Date", "Time"}

// CSVBackend stores the ledger in a CSV file.
type CSVBackend struct {
	path string
}

// NewCSVBackend creates a backend for the file at path.
func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{path: path}
}

// Init writes the header when the file is missing or empty.
func (b *CSVBackend) Init(_ context.Context) error {
	info, err := os.Stat(b.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat ledger: %w", err)
	}

	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, nil); err != nil {
		return err
	}
	return f.Close()
}

// Load reads every row after the header.
func (b *CSVBackend) Load(_ context.Context) ([]Record, error) {
	f, err := os.Open(b.path) //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// Append adds one row to the end of the file.
func (b *CSVBackend) Append(_ context.Context, r Record) error {
	f, err := os.OpenFile(b.path, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(r.row()); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	return f.Close()
}

func (r Record) row() []string {
	return []string{r.RollNo, r.Name, r.Date, r.Time}
}

// ReadCSV parses a ledger with header. An empty input has no rows.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformed, header)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		records = append(records, Record{RollNo: row[0], Name: row[1], Date: row[2], Time: row[3]})
	}
	return records, nil
}

// WriteCSV writes the header followed by records.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.row()); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
