package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

const defaultSlot = "plant-disease-app-profiles"

// SlotRepository stores the profile collection as one row of plant_slots.
type SlotRepository struct {
	db   *sql.DB
	name string
}

func NewSlotRepository(db *sql.DB, name string) *SlotRepository {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultSlot
	}
	return &SlotRepository{db: db, name: name}
}

func (r *SlotRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS plant_slots (
  name       TEXT        PRIMARY KEY,
  payload    TEXT        NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);`
	_, err := r.db.ExecContext(ctx, q)
	return err
}

func (r *SlotRepository) Read(ctx context.Context) ([]byte, error) {
	const q = `SELECT payload FROM plant_slots WHERE name=$1`
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
VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET
  payload=EXCLUDED.payload,
  updated_at=EXCLUDED.updated_at;
`
	_, err := r.db.ExecContext(ctx, q, r.name, string(data), time.Now().UTC())
	return err
}
