package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// LedgerRepository stores attendance rows in the attendance table.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new MariaDB ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Init creates the attendance table if it does not exist.
func (r *LedgerRepository) Init(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS attendance (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			roll_no     VARCHAR(255) NOT NULL,
			name        VARCHAR(255) NOT NULL,
			date        DATE NOT NULL,
			time        TIME NOT NULL,
			recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_attendance_roll_date (roll_no, date),
			KEY idx_attendance_date (date)
		) CHARACTER SET utf8mb4
	`
	if _, err := r.pool.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// Load returns all rows in insertion order.
func (r *LedgerRepository) Load(ctx context.Context) ([]ledger.Record, error) {
	query := `
		SELECT roll_no, name, DATE_FORMAT(date, '%Y-%m-%d'), TIME_FORMAT(time, '%H:%i:%s')
		FROM attendance
		ORDER BY id
	`
	rows, err := r.pool.db.QueryContext(ctx, query)
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

// Append inserts a row. An existing (roll_no, date) pair is reported as
// ledger.ErrDuplicate.
func (r *LedgerRepository) Append(ctx context.Context, rec ledger.Record) error {
	query := `INSERT IGNORE INTO attendance (roll_no, name, date, time) VALUES (?, ?, ?, ?)`
	result, err := r.pool.db.ExecContext(ctx, query, rec.RollNo, rec.Name, rec.Date, rec.Time)
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
