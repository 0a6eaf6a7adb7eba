package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/models"
)

var alertRowColumns = []string{"id", "alert_type", "title", "message", "severity", "related_disease", "related_student_id",
	"related_record_id", "recipient_user_id", "is_read", "read_at", "is_resolved", "resolved_by_id", "resolution_notes",
	"resolved_at", "created_at"}

func TestAlertRepositoryListScopesToViewer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAlertRepository(db)
	rows := sqlmock.NewRows(alertRowColumns).
		AddRow("a-1", "OUTBREAK_SUSPECTED", "Possible flu outbreak", "12 cases", "CRITICAL", "flu", nil, nil, nil,
			false, nil, false, nil, nil, nil, time.Now()).
		AddRow("a-2", "SYSTEM", "Approved", "done", "LOW", nil, nil, "pa-1", "nurse-1",
			false, nil, false, nil, nil, nil, time.Now())
	mock.ExpectQuery(`SELECT .* FROM alerts WHERE \(recipient_user_id IS NULL OR recipient_user_id = \$1\) AND is_read = FALSE AND alert_type = \$2\s+ORDER BY CASE severity`).
		WithArgs("nurse-1", "SYSTEM").
		WillReturnRows(rows)

	alerts, err := repo.List(context.Background(), models.AlertFilter{ViewerID: "nurse-1", UnreadOnly: true, Type: models.AlertSystem})
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.True(t, alerts[0].Recipient().IsBroadcast())
	require.Equal(t, "nurse-1", *alerts[1].Recipient().UserID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryResolveKeepsReadFlag(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAlertRepository(db)
	notes := "handled"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET is_resolved = TRUE, resolved_by_id = $2, resolution_notes = $3, resolved_at = $4 WHERE id = $1")).
		WithArgs("a-1", "admin-1", &notes, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := repo.Resolve(context.Background(), "a-1", "admin-1", &notes, time.Now())
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryExistsRecentMatchesDiseaseCaseInsensitively(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAlertRepository(db)
	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM alerts WHERE alert_type = $1 AND created_at >= $2 AND LOWER(related_disease) = LOWER($3))")).
		WithArgs("OUTBREAK_SUSPECTED", since, "Flu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsRecent(context.Background(), models.AlertOutbreakSuspected, models.AlertCorrelation{Disease: "Flu"}, since)
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepositoryCountAndMarkAllRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAlertRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alerts")).
		WithArgs("nurse-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE alerts SET is_read = TRUE, read_at = $2")).
		WithArgs("nurse-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.CountUnread(context.Background(), "nurse-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	updated, err := repo.MarkAllRead(context.Background(), "nurse-1", time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}
