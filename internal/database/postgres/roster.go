package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/roster"
	"github.com/pgvector/pgvector-go"
)

// RosterRepository persists the roster in the members and member_descriptors tables.
type RosterRepository struct {
	pool *Pool
}

// NewRosterRepository creates a new PostgreSQL roster repository.
func NewRosterRepository(pool *Pool) *RosterRepository {
	return &RosterRepository{pool: pool}
}

// Load returns all members in roster order with their descriptors.
func (r *RosterRepository) Load(ctx context.Context) ([]roster.Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, roll_no, active FROM members ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []roster.Member
	byName := make(map[string]int)
	for rows.Next() {
		var m roster.Member
		if err := rows.Scan(&m.Name, &m.RollNo, &m.Active); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		byName[m.Name] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	descRows, err := r.pool.Query(ctx, `SELECT member_name, descriptor FROM member_descriptors ORDER BY member_name, idx`)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer descRows.Close()

	for descRows.Next() {
		var name string
		var vec pgvector.Vector
		if err := descRows.Scan(&name, &vec); err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		idx, ok := byName[name]
		if !ok {
			continue
		}
		members[idx].Encodings = append(members[idx].Encodings, facematch.Descriptor(vec.Slice()))
	}
	if err := descRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}

	return members, nil
}

// Save replaces the stored roster in a single transaction.
func (r *RosterRepository) Save(ctx context.Context, members []roster.Member) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Descriptors go with their member through ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}

	memberStmt, err := tx.PrepareContext(ctx, `INSERT INTO members (name, roll_no, active, position) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer memberStmt.Close()

	descStmt, err := tx.PrepareContext(ctx, `INSERT INTO member_descriptors (member_name, idx, descriptor) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("prepare descriptor insert: %w", err)
	}
	defer descStmt.Close()

	for i, m := range members {
		if _, err := memberStmt.ExecContext(ctx, m.Name, m.RollNo, m.Active, i); err != nil {
			return fmt.Errorf("insert member %s: %w", m.Name, err)
		}
		for j, d := range m.Encodings {
			if _, err := descStmt.ExecContext(ctx, m.Name, j, pgvector.NewVector([]float32(d))); err != nil {
				return fmt.Errorf("insert descriptor %d of %s: %w", j, m.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster: %w", err)
	}
	return nil
}
