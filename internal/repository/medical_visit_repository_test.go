package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMedicalVisitRepositoryCountByDisease(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMedicalVisitRepository(db)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(disease_category) = LOWER($1) AND visit_date >= $2 AND visit_date < $3")).
		WithArgs("Flu", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByDisease(context.Background(), "Flu", from, to)
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
