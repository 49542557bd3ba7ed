package scheduler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

type staticSource struct {
	today   string
	records []ledger.Record
}

func (s staticSource) Attendance(date string) []ledger.Record {
	var out []ledger.Record
	for _, r := range s.records {
		if date == "" || r.Date == date {
			out = append(out, r)
		}
	}
	return out
}

func (s staticSource) Today() string {
	return s.today
}

func TestNewDailyExport_Validation(t *testing.T) {
	src := staticSource{}

	tests := []struct {
		name    string
		dir     string
		at      string
		wantErr bool
	}{
		{"valid", t.TempDir(), "23:55", false},
		{"missing dir", "", "23:55", true},
		{"bad time", t.TempDir(), "25:00", true},
		{"not a time", t.TempDir(), "tonight", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewDailyExport(tt.dir, tt.at, src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDailyExport() error = %v, wantErr %v", err, tt.wantErr)
			}
			if e != nil {
				e.Stop()
			}
		})
	}
}

func TestDailyExport_Export(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	src := staticSource{
		today: "2024-03-01",
		records: []ledger.Record{
			{RollNo: "R1", Name: "ALICE", Date: "2024-02-29", Time: "08:00:00"},
			{RollNo: "R1", Name: "ALICE", Date: "2024-03-01", Time: "08:05:00"},
			{RollNo: "R2", Name: "BOB", Date: "2024-03-01", Time: "08:45:10"},
		},
	}

	e, err := NewDailyExport(dir, "23:55", src)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	path, err := e.Export(src.Today())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if filepath.Base(path) != "attendance-2024-03-01.csv" {
		t.Errorf("path = %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := ledger.ReadCSV(f)
	if err != nil {
		t.Fatalf("exported file is not a valid ledger: %v", err)
	}
	if len(records) != 2 || records[1].Name != "BOB" {
		t.Errorf("exported records = %+v", records)
	}
}

func TestDailyExport_ExportEmptyDay(t *testing.T) {
	dir := t.TempDir()
	e, err := NewDailyExport(dir, "07:00", staticSource{today: "2024-03-02"})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	path, err := e.Export("2024-03-02")
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Roll No,Name,Date,Time\n" {
		t.Errorf("empty export = %q", data)
	}
}
