package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

func TestSlotRepository_Read(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		want    string
		wantErr error
	}{
		{name: "stored blob", rows: sqlmock.NewRows([]string{"payload"}).AddRow(`[{"id":"p1"}]`), want: `[{"id":"p1"}]`},
		{name: "no row", err: sql.ErrNoRows, wantErr: domain.ErrSlotEmpty},
		{name: "driver error", err: errors.New("bad connection"), wantErr: errors.New("bad connection")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			exp := mock.ExpectQuery("SELECT payload FROM plant_slots WHERE name=\\?").WithArgs(DefaultSlot)
			if tt.rows != nil {
				exp.WillReturnRows(tt.rows)
			} else {
				exp.WillReturnError(tt.err)
			}

			got, err := NewSlotRepository(db, "").Read(context.Background())
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, domain.ErrSlotEmpty) {
					assert.ErrorIs(t, err, domain.ErrSlotEmpty)
				} else {
					assert.EqualError(t, err, tt.wantErr.Error())
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(got))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlotRepository_Write(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO plant_slots \\(name, payload, updated_at\\) VALUES \\(\\?,\\?,\\?\\) ON DUPLICATE KEY UPDATE").
		WithArgs("garden", `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, NewSlotRepository(db, " garden ").Write(context.Background(), []byte(`[]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
