// Package scheduler runs the daily attendance export.
package scheduler

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// Source provides the rows to export.
type Source interface {
	Attendance(date string) []ledger.Record
	Today() string
}

// DailyExport writes the day's ledger rows to dir/attendance-YYYY-MM-DD.csv
// once a day.
type DailyExport struct {
	dir       string
	at        string
	source    Source
	scheduler *gocron.Scheduler
}

// NewDailyExport validates the export time (HH:MM) and prepares the job.
func NewDailyExport(dir, at string, source Source) (*DailyExport, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("invalid export time %q, expected HH:MM: %w", at, err)
	}

	e := &DailyExport{
		dir:       dir,
		at:        at,
		source:    source,
		scheduler: gocron.NewScheduler(time.Local),
	}
	e.scheduler.SingletonModeAll()

	if _, err := e.scheduler.Every(1).Day().At(at).Do(e.run); err != nil {
		return nil, fmt.Errorf("failed to schedule export: %w", err)
	}
	return e, nil
}

// Start runs the scheduler in the background.
func (e *DailyExport) Start() {
	log.Printf("scheduler: daily export to %s at %s", e.dir, e.at)
	e.scheduler.StartAsync()
}

// Stop halts the scheduler.
func (e *DailyExport) Stop() {
	e.scheduler.Stop()
}

func (e *DailyExport) run() {
	path, err := e.Export(e.source.Today())
	if err != nil {
		log.Printf("scheduler: export failed: %v", err)
		return
	}
	log.Printf("scheduler: exported attendance to %s", path)
}

// Export writes the rows of date and returns the file path. An existing
// file for the same date is replaced.
func (e *DailyExport) Export(date string) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, e.source.Attendance(date)); err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, fmt.Sprintf("attendance-%s.csv", date))
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
