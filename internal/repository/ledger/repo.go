package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/dbpg"
)

// Ledger states. A (state, contest, start) triple is written at most
// once; a rescheduled contest has a different start string and is
// therefore a fresh target.
const (
	StateScheduled = "scheduled"
	StateNotified  = "notified"
)

// Repository persists notification bookkeeping in the
// notification_ledger table.
type Repository struct {
	db *dbpg.DB
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Mark records that a contest reached the given state. Writes are
// idempotent: the first call inserts and returns true, repeats hit the
// conflict clause and return false.
func (r *Repository) Mark(ctx context.Context, state string, contestID int, startRaw string) (bool, error) {
	query := `
		INSERT INTO notification_ledger (state, contest_id, start_raw)
		VALUES ($1, $2, $3)
		ON CONFLICT (state, contest_id, start_raw) DO NOTHING;
    `

	res, err := r.db.ExecContext(ctx, query, state, contestID, startRaw)
	if err != nil {
		return false, fmt.Errorf("failed to mark ledger entry: %w", err)
	}

	rows, _ := res.RowsAffected()

	return rows > 0, nil
}

// Exists reports whether a ledger entry was already written.
func (r *Repository) Exists(ctx context.Context, state string, contestID int, startRaw string) (bool, error) {
	query := `
		SELECT 1
		FROM notification_ledger
		WHERE state = $1 AND contest_id = $2 AND start_raw = $3;
    `

	var one int
	err := r.db.Master.QueryRowContext(ctx, query, state, contestID, startRaw).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check ledger entry: %w", err)
	}

	return true, nil
}

// PurgeBefore deletes entries created before cutoff. Contests are
// one-shot events, so entries older than the retention window can never
// be needed for deduplication again.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notification_ledger
		WHERE created_at < $1;
    `

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge ledger: %w", err)
	}

	rows, _ := res.RowsAffected()

	return rows, nil
}
