package persist

import (
	"context"
)

// CharacterRow is the persisted slice of a character the arena touches:
// position and visuals, so a crash between match end and cleanup cannot
// strand a player with event colors in the arena map.
type CharacterRow struct {
	ID        int32
	Name      string
	Level     int16
	Lawful    int32
	Title     string
	NameColor int32
	X         int32
	Y         int32
	MapID     int16
	Heading   int16
}

type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// LoadByName returns a character row by name, or nil when absent.
func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	var c CharacterRow
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, level, lawful, title, name_color, x, y, map_id, heading
		 FROM characters WHERE name = $1`, name,
	).Scan(&c.ID, &c.Name, &c.Level, &c.Lawful, &c.Title, &c.NameColor,
		&c.X, &c.Y, &c.MapID, &c.Heading)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveRestoredState persists the post-match position and visuals of one
// character.
func (r *CharacterRepo) SaveRestoredState(ctx context.Context, c *CharacterRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters
		 SET x = $2, y = $3, map_id = $4, heading = $5, title = $6, name_color = $7
		 WHERE id = $1`,
		c.ID, c.X, c.Y, c.MapID, c.Heading, c.Title, c.NameColor,
	)
	return err
}
