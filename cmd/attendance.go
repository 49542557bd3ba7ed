package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Inspect and export the attendance ledger",
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance rows",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceList,
}

var attendanceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance rows as CSV",
	Long: `Export attendance rows in the ledger CSV format
("Roll No","Name","Date","Time"). Writes to stdout unless --output is set.`,
	Args: cobra.NoArgs,
	RunE: runAttendanceExport,
}

var attendanceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-member attendance statistics",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceStats,
}

var attendanceMarkCmd = &cobra.Command{
	Use:   "mark <name>",
	Short: "Mark a member present today without a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceMark,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceListCmd, attendanceExportCmd, attendanceStatsCmd, attendanceMarkCmd)

	for _, c := range []*cobra.Command{attendanceListCmd, attendanceExportCmd} {
		c.Flags().String("date", "", "Only rows of this day (YYYY-MM-DD or \"today\")")
	}
	attendanceListCmd.Flags().Bool("json", false, "Output as JSON")
	attendanceExportCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	attendanceStatsCmd.Flags().Bool("json", false, "Output as JSON")
	addPasswordFlag(attendanceMarkCmd)
}

// resolveDate validates the --date flag. "today" uses the ledger clock.
func resolveDate(date string, today func() string) (string, error) {
	switch date {
	case "":
		return "", nil
	case "today":
		return today(), nil
	}
	if _, err := time.Parse(ledger.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

func runAttendanceList(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	date, err := resolveDate(mustGetString(cmd, "date"), a.service.Today)
	if err != nil {
		return err
	}

	records := a.service.Attendance(date)
	if mustGetBool(cmd, "json") {
		return outputJSON(records)
	}

	if len(records) == 0 {
		fmt.Println("No attendance recorded.")
	} else {
		fmt.Printf("%-12s %-30s %-10s %s\n", "ROLL NO", "NAME", "DATE", "TIME")
		for _, r := range records {
			fmt.Printf("%-12s %-30s %-10s %s\n", r.RollNo, r.Name, r.Date, r.Time)
		}
		fmt.Printf("\n%d row(s)\n", len(records))
	}

	if date != "" {
		if absent := a.service.Absentees(date); len(absent) > 0 {
			fmt.Printf("Absent (%d): %s\n", len(absent), strings.Join(absent, ", "))
		}
	}
	return nil
}

func runAttendanceExport(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	date, err := resolveDate(mustGetString(cmd, "date"), a.service.Today)
	if err != nil {
		return err
	}
	records := a.service.Attendance(date)

	output := mustGetString(cmd, "output")
	if output == "" {
		return ledger.WriteCSV(os.Stdout, records)
	}

	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, records); err != nil {
		return err
	}
	if err := renameio.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d row(s) to %s\n", len(records), output)
	return nil
}

func runAttendanceStats(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	summary := a.service.Summary()
	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}

	if len(summary) == 0 {
		fmt.Println("No attendance recorded.")
		return nil
	}

	fmt.Printf("%-12s %-30s %5s  %-10s  %-10s  %-8s  %s\n", "ROLL NO", "NAME", "DAYS", "FIRST", "LAST", "ARRIVAL", "STDDEV")
	for _, s := range summary {
		fmt.Printf("%-12s %-30s %5d  %-10s  %-10s  %-8s  %.1fm\n",
			s.RollNo, s.Name, s.DaysPresent, s.FirstDate, s.LastDate, s.MeanArrival, s.ArrivalStdDev)
	}
	return nil
}

func runAttendanceMark(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp(ctx, a, &err)

	if err := requireAdmin(cmd, a.service); err != nil {
		return err
	}

	status, rec, err := a.service.Mark(ctx, args[0])
	if errors.Is(err, ledger.ErrUnknownMember) {
		return fmt.Errorf("member %s is not enrolled", args[0])
	}
	if err != nil {
		return err
	}

	switch status {
	case ledger.AlreadyRecorded:
		fmt.Printf("%s (Roll No: %s) already marked on %s\n", rec.Name, rec.RollNo, rec.Date)
	default:
		fmt.Printf("Marked %s (Roll No: %s) at %s on %s\n", rec.Name, rec.RollNo, rec.Time, rec.Date)
	}
	return nil
}
