package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerRepository stores attendance rows in the attendance table.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Init is a no-op; the table is created by migrations.
func (r *LedgerRepository) Init(_ context.Context) error {
	return nil
}

// Load returns all rows in insertion order.
func (r *LedgerRepository) Load(ctx context.Context) ([]ledger.Record, error) {
	query := `
		SELECT roll_no, name, to_char(date, 'YYYY-MM-DD'), to_char(time, 'HH24:MI:SS')
		FROM attendance
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		if err := rows.Scan(&rec.RollNo, &rec.Name, &rec.Date, &rec.Time); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// Append inserts a row. The unique (roll_no, date) constraint turns a
// concurrent second insert into ledger.ErrDuplicate.
func (r *LedgerRepository) Append(ctx context.Context, rec ledger.Record) error {
	query := `
		INSERT INTO attendance (roll_no, name, date, time)
		VALUES ($1, $2, $3::date, $4::time)
		ON CONFLICT (roll_no, date) DO NOTHING
	`
	result, err := r.pool.Exec(ctx, query, rec.RollNo, rec.Name, rec.Date, rec.Time)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrDuplicate
	}
	return nil
}
