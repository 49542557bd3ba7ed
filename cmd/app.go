package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/auth"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/encoder"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/spf13/cobra"
)

// app holds everything a command needs. It is opened once per command and
// closed before exit.
type app struct {
	cfg      *config.Config
	backends *database.Backends
	service  *attendance.Service
}

func openApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	backends, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store, err := roster.Open(ctx, backends.Roster)
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	l, err := ledger.Open(ctx, backends.Ledger, store)
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("failed to open attendance ledger: %w", err)
	}

	authenticator, err := auth.New(cfg.Admin.Password, cfg.Admin.PasswordHash)
	if err != nil {
		backends.Close()
		return nil, fmt.Errorf("invalid admin credentials: %w", err)
	}

	var provider encoder.Provider
	if cfg.Embedding.URL != "" {
		provider = encoder.NewClient(cfg.Embedding.URL, cfg.Embedding.Dim)
	}

	svc := attendance.New(store, l, provider, authenticator, attendance.Options{
		Tolerance: cfg.Match.Tolerance,
		UseIndex:  cfg.Match.UseIndex(),
		Angles:    cfg.Angles,
	})

	return &app{cfg: cfg, backends: backends, service: svc}, nil
}

func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.service.Close(ctx), a.backends.Close())
}

type contextCloser interface {
	Close(ctx context.Context) error
}

// closeApp is deferred by commands with a named error result so a failed
// close is reported instead of dropped.
func closeApp(ctx context.Context, c contextCloser, err *error) {
	if cerr := c.Close(ctx); cerr != nil {
		*err = errors.Join(*err, fmt.Errorf("closing storage: %w", cerr))
	}
}

var errNotAuthorized = errors.New("admin password rejected")

// addPasswordFlag registers --password on an administrative command.
func addPasswordFlag(cmd *cobra.Command) {
	cmd.Flags().String("password", "", "Admin password (defaults to $ADMIN_PASSWORD)")
}

// requireAdmin checks --password, falling back to ADMIN_PASSWORD for scripted use.
func requireAdmin(cmd *cobra.Command, svc *attendance.Service) error {
	password := mustGetString(cmd, "password")
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}
	if password == "" || !svc.Authenticate(password) {
		return errNotAuthorized
	}
	return nil
}
