package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// SlotRepository stores the profile collection as one row of plant_slots.
// A single-row upsert is atomic, so readers see the old or the new blob.
type SlotRepository struct {
	db   *sql.DB
	name string
}

func NewSlotRepository(db *sql.DB, name string) *SlotRepository {
	return &SlotRepository{db: db, name: slotOrDefault(name)}
}

// Migrate creates the slot table when it does not exist yet.
func (r *SlotRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS plant_slots (
  name       VARCHAR(191) NOT NULL PRIMARY KEY,
  payload    LONGTEXT     NOT NULL,
  updated_at DATETIME(6)  NOT NULL
) DEFAULT CHARSET=utf8mb4;
`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SlotRepository) Read(ctx context.Context) ([]byte, error) {
	const q = `SELECT payload FROM plant_slots WHERE name=?`
	var payload string
	if err := r.db.QueryRowContext(ctx, q, r.name).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSlotEmpty
		}
		return nil, err
	}
	return []byte(payload), nil
}

func (r *SlotRepository) Write(ctx context.Context, data []byte) error {
	const q = `
INSERT INTO plant_slots (name, payload, updated_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE payload=VALUES(payload), updated_at=VALUES(updated_at);
`
	_, err := r.db.ExecContext(ctx, q, r.name, string(data), time.Now().UTC())
	return err
}
