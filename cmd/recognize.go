package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <file|dir>...",
	Short: "Recognize members in photos and mark their attendance",
	Long: `Detect faces in the given photos, match them against the roster and
mark attendance for every recognized member. Directories are scanned
recursively for images.

Examples:
  # One photo
  face-attendance recognize classroom.jpg

  # A folder of snapshots, 8 encoder requests at a time
  face-attendance recognize ./snapshots --concurrency 8

  # JSON output for scripting
  face-attendance recognize ./snapshots --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of parallel workers")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// RecognizeFileResult is the outcome for one photo
type RecognizeFileResult struct {
	Path  string                   `json:"path"`
	Faces []attendance.Recognition `json:"faces"`
	Error string                   `json:"error,omitempty"`
}

// RecognizeResult summarizes a batch run
type RecognizeResult struct {
	Files      []RecognizeFileResult `json:"files"`
	Recognized int                   `json:"recognized"`
	Recorded   int                   `json:"recorded"`
	Unknown    int                   `json:"unknown"`
	Errors     int                   `json:"errors"`
	DurationMs int64                 `json:"duration_ms"`
}

// collectImages expands directories into the image files they contain.
func collectImages(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isImageFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", p, err)
		}
	}
	return files, nil
}

func isImageFile(path string) bool {
	return slices.Contains(constants.ImageExtensions, strings.ToLower(filepath.Ext(path)))
}

func runRecognize(cmd *cobra.Command, args []string) (err error) {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	jsonOutput := mustGetBool(cmd, "json")
	startTime := time.Now()

	files, err := collectImages(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Recognizing"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	results := make([]RecognizeFileResult, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, path := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = recognizeFile(ctx, a.service, path)
			if bar != nil {
				bar.Add(1)
			}
		}()
	}
	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	summary := RecognizeResult{Files: results, DurationMs: time.Since(startTime).Milliseconds()}
	for _, r := range results {
		if r.Error != "" {
			summary.Errors++
		}
		for _, f := range r.Faces {
			switch {
			case !f.Known:
				summary.Unknown++
			case f.Attendance == ledger.Recorded:
				summary.Recognized++
				summary.Recorded++
			default:
				summary.Recognized++
			}
		}
	}

	if jsonOutput {
		return outputJSON(summary)
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("%s: error: %s\n", r.Path, r.Error)
			continue
		}
		if len(r.Faces) == 0 {
			fmt.Printf("%s: no faces\n", r.Path)
			continue
		}
		for _, f := range r.Faces {
			if !f.Known {
				fmt.Printf("%s: %s\n", r.Path, f.Name)
				continue
			}
			fmt.Printf("%s: %s (Roll No: %s) %s, distance %.3f\n", r.Path, f.Name, f.RollNo, f.Attendance, f.Distance)
		}
	}

	fmt.Println("\nRecognition complete!")
	fmt.Printf("  Photos:     %d\n", len(results))
	fmt.Printf("  Recognized: %d (%d newly recorded)\n", summary.Recognized, summary.Recorded)
	fmt.Printf("  Unknown:    %d\n", summary.Unknown)
	if summary.Errors > 0 {
		fmt.Printf("  Errors:     %d\n", summary.Errors)
	}
	fmt.Printf("  Duration:   %s\n", formatDuration(time.Since(startTime)))
	return nil
}

func recognizeFile(ctx context.Context, svc *attendance.Service, path string) RecognizeFileResult {
	result := RecognizeFileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	faces, err := svc.Recognize(ctx, data)
	result.Faces = faces
	if err != nil {
		result.Error = err.Error()
	}
	return result
}
