package persist

import (
	"context"
	"fmt"
)

// WALEntry represents one granted match reward, written before the match
// roster is discarded so payouts stay auditable.
type WALEntry struct {
	CharID   int32
	CharName string
	Outcome  string // "winner", "loser", "tie", "mvp"
	Kills    int32
	ItemID   int32
	Count    int32
}

type WALRepo struct {
	db *DB
}

func NewWALRepo(db *DB) *WALRepo {
	return &WALRepo{db: db}
}

// WriteWAL atomically writes a batch of WAL entries in a single transaction.
// Returns nil on success. If it fails, the caller logs and moves on; the
// reward itself was already granted in memory.
func (r *WALRepo) WriteWAL(ctx context.Context, entries []WALEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO match_reward_wal (char_id, char_name, outcome, kills, item_id, count)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.CharID, e.CharName, e.Outcome, e.Kills, e.ItemID, e.Count,
		); err != nil {
			return fmt.Errorf("wal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkProcessed marks all WAL entries as processed (called during batch flush).
func (r *WALRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE match_reward_wal SET processed = TRUE WHERE processed = FALSE`,
	)
	return err
}
