package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/scheduler"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance HTTP API.
Kiosks post photos to /api/v1/recognize; administrators log in to enroll
and remove members. With EXPORT_DIR set, the day's attendance is written
to a CSV file every day at EXPORT_AT.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}

	if port := mustGetInt(cmd, "port"); port != 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}
	if a.backends.Sessions != nil {
		fmt.Println("Session persistence enabled (PostgreSQL)")
	}

	var export *scheduler.DailyExport
	if a.cfg.Export.Dir != "" {
		export, err = scheduler.NewDailyExport(a.cfg.Export.Dir, a.cfg.Export.At, a.service)
		if err != nil {
			return errors.Join(err, a.Close(ctx))
		}
		export.Start()
	}

	server := web.NewServer(a.cfg, a.service, a.backends.Sessions)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	serveErr := server.Start()

	if export != nil {
		export.Stop()
	}
	if err := a.Close(ctx); err != nil {
		fmt.Printf("Error closing storage: %v\n", err)
	}
	if serveErr != nil {
		return fmt.Errorf("starting server: %w", serveErr)
	}
	return nil
}
