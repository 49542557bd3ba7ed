// Package database selects and opens the storage backends for the roster,
// the attendance ledger and web sessions.
package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Backend names accepted in configuration.
const (
	BackendFile     = "file"
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
	BackendMariaDB  = "mariadb"
)

// ErrUnknownBackend is returned for unsupported backend names.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backends holds the opened storage for one process.
type Backends struct {
	Roster   roster.Persister
	Ledger   ledger.Backend
	// Sessions is nil unless PostgreSQL is configured; sessions then live in memory only.
	Sessions middleware.SessionRepository

	closers []io.Closer
}

// Open creates the backends named in cfg. Connection pools are shared
// between backends using the same database.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{}
	var pg *postgres.Pool

	postgresPool := func() (*postgres.Pool, error) {
		if pg != nil {
			return pg, nil
		}
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		pg = pool
		b.closers = append(b.closers, pool)
		return pg, nil
	}

	switch cfg.Roster.Backend {
	case BackendFile, "":
		fp := roster.NewFilePersister(cfg.Roster.Path)
		log.Printf("database: roster file %s", fp.Path())
		b.Roster = fp
	case BackendPostgres:
		pool, err := postgresPool()
		if err != nil {
			return nil, err
		}
		b.Roster = postgres.NewRosterRepository(pool)
	default:
		return nil, fmt.Errorf("%w for roster: %q", ErrUnknownBackend, cfg.Roster.Backend)
	}

	switch cfg.Ledger.Backend {
	case BackendCSV, "":
		b.Ledger = ledger.NewCSVBackend(cfg.Ledger.Path)
	case BackendPostgres:
		pool, err := postgresPool()
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Ledger = postgres.NewLedgerRepository(pool)
	case BackendMariaDB:
		pool, err := mariadb.NewPool(ctx, cfg.MariaDB.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool)
		b.Ledger = mariadb.NewLedgerRepository(pool)
	default:
		b.Close()
		return nil, fmt.Errorf("%w for ledger: %q", ErrUnknownBackend, cfg.Ledger.Backend)
	}

	if pg != nil {
		b.Sessions = postgres.NewSessionRepository(pg)
	}

	log.Printf("database: roster=%s ledger=%s", backendName(cfg.Roster.Backend, BackendFile), backendName(cfg.Ledger.Backend, BackendCSV))
	return b, nil
}

func backendName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// Close releases every connection pool.
func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
