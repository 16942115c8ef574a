package rooms

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+rooms\s*\(name,\s*creator_id,\s*is_encrypted\).*RETURNING\s+id,\s*created_at`).
		WithArgs("general", "u1", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r1", now))

	got, err := repo.Create(context.Background(), &models.Room{Name: "general", CreatorID: "u1", IsEncrypted: true})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.True(t, got.CreatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+rooms`).WillReturnError(errors.New("down"))

	_, err := repo.Create(context.Background(), &models.Room{Name: "x", CreatorID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM\s+rooms\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT.*FROM\s+rooms\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "creator_id", "is_encrypted", "created_at"}).
			AddRow("r1", "general", "u1", true, now))

	got, err := repo.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, &models.Room{ID: "r1", Name: "general", CreatorID: "u1", IsEncrypted: true, CreatedAt: now}, got)
}

func TestListForUser_OnlyActiveMemberships(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+rooms\s+r\s+JOIN\s+room_members\s+m.*m\.is_active.*ORDER\s+BY`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "creator_id", "is_encrypted", "created_at"}).
			AddRow("r2", "b", "u2", true, now).
			AddRow("r1", "a", "u1", true, now.Add(-time.Hour)))

	got, err := repo.ListForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Equal(t, "r1", got[1].ID)
}

func TestListForUser_ScanError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+rooms`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))

	_, err := repo.ListForUser(context.Background(), "u1")
	require.Error(t, err)
}

func TestNextSequence(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)UPDATE\s+rooms\s+SET\s+last_seq\s*=\s*last_seq\s*\+\s*1.*GREATEST\(clock_timestamp\(\),\s*last_message_at\).*RETURNING\s+last_seq,\s*last_message_at`).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"last_seq", "last_message_at"}).AddRow(int64(7), now))

	seq, at, err := repo.NextSequence(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
	assert.True(t, at.Equal(now))
}

func TestNextSequence_UnknownRoom(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE\s+rooms`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, _, err := repo.NextSequence(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMalformedRoomIDIsAbsent(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "general"`}

	t.Run("GetByID", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`FROM\s+rooms`).WithArgs("general").WillReturnError(badUUID)

		_, err := repo.GetByID(context.Background(), "general")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("NextSequence", func(t *testing.T) {
		repo, mock, _ := newRepoWithMock(t)
		mock.ExpectQuery(`UPDATE\s+rooms`).WithArgs("general").WillReturnError(badUUID)

		_, _, err := repo.NextSequence(context.Background(), "general")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}
