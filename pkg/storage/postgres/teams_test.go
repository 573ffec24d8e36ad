package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/pkg/observability"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/team"
)

func TestTeamStoreFindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, org_id, name, owner_id, created_at, updated_at").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "name", "owner_id", "created_at", "updated_at"}).
			AddRow("t1", "org1", "backend", "u1", now, now))
	mock.ExpectQuery("SELECT user_id, role, joined_at").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "joined_at"}).
			AddRow("u1", "owner", now).
			AddRow("u2", "member", now))
	mock.ExpectQuery("SELECT id, email, role, token").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "token", "invited_by", "invited_at", "expires_at", "accepted_at"}).
			AddRow("inv1", "dev@example.com", "member", "tok", "u1", now, now.Add(time.Hour), nil))

	store := NewTeamStore(db, nil)
	got, err := store.FindByID(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, "backend", got.Name)
	assert.Len(t, got.Members(), 2)
	invs := got.Invitations()
	require.Len(t, invs, 1)
	assert.Nil(t, invs[0].AcceptedAt)
	assert.Equal(t, "t1", invs[0].TeamID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamStoreFindByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, org_id, name, owner_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "name", "owner_id", "created_at", "updated_at"}))

	store := NewTeamStore(db, nil)
	_, err = store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTeamStoreFindByIDRejectsUnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, org_id, name, owner_id").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "org_id", "name", "owner_id", "created_at", "updated_at"}).
			AddRow("t1", "org1", "backend", "u1", now, now))
	mock.ExpectQuery("SELECT user_id, role, joined_at").
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "joined_at"}).
			AddRow("u1", "superuser", now))

	store := NewTeamStore(db, nil)
	_, err = store.FindByID(context.Background(), "t1")
	assert.Error(t, err, "corrupt role tokens surface instead of being coerced")
}

func TestTeamStoreSaveReplacesCollections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tm, err := team.New("org1", "backend", "u1")
	require.NoError(t, err)
	_, err = tm.Invite("dev@example.com", "member", "u1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teams").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM team_members").
		WithArgs(tm.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO team_members").
		WithArgs(tm.ID, "u1", "owner", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM team_invitations").
		WithArgs(tm.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO team_invitations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewTeamStore(db, nil)
	require.NoError(t, store.Save(context.Background(), tm))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamStoreSaveRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tm, err := team.New("org1", "backend", "u1")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO teams").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	store := NewTeamStore(db, nil)
	assert.Error(t, store.Save(context.Background(), tm))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamStoreDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM teams").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM teams").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewTeamStore(db, nil)
	assert.NoError(t, store.Delete(context.Background(), "t1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "missing"), storage.ErrNotFound)
}

func TestTeamStoreRecordsOperationMetrics(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM teams").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM teams").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	metrics := observability.NewMetrics()
	store := NewTeamStore(db, metrics)
	require.NoError(t, store.Delete(context.Background(), "t1"))
	require.Error(t, store.Delete(context.Background(), "missing"))

	ok := metrics.StorageOperationsTotal.WithLabelValues("teams", "delete", "ok")
	failed := metrics.StorageOperationsTotal.WithLabelValues("teams", "delete", "error")
	assert.Equal(t, 1.0, testutil.ToFloat64(ok))
	assert.Equal(t, 1.0, testutil.ToFloat64(failed))
}

func TestTeamStorePurgeExpiredInvitations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM team_invitations").
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewTeamStore(db, nil)
	purged, err := store.PurgeExpiredInvitations(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, purged)
}
