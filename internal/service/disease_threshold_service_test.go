package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/clinic-records-api/internal/dto"
	"github.com/noah-isme/clinic-records-api/internal/models"
	appErrors "github.com/noah-isme/clinic-records-api/pkg/errors"
)

type thresholdRepoStub struct {
	rows      []*models.DiseaseThreshold
	insertErr error
	inserts   int
	updates   int
}

func (r *thresholdRepoStub) List(ctx context.Context) ([]models.DiseaseThreshold, error) {
	out := make([]models.DiseaseThreshold, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (r *thresholdRepoStub) FindByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	for _, row := range r.rows {
		if strings.EqualFold(row.DiseaseName, disease) {
			copy := *row
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *thresholdRepoStub) FindActiveByDisease(ctx context.Context, disease string) (*models.DiseaseThreshold, error) {
	row, err := r.FindByDisease(ctx, disease)
	if err != nil {
		return nil, err
	}
	if !row.IsActive {
		return nil, sql.ErrNoRows
	}
	return row, nil
}

func (r *thresholdRepoStub) Insert(ctx context.Context, threshold *models.DiseaseThreshold) error {
	r.inserts++
	if r.insertErr != nil {
		return r.insertErr
	}
	threshold.ID = fmt.Sprintf("t-%d", r.inserts)
	copy := *threshold
	r.rows = append(r.rows, &copy)
	return nil
}

func (r *thresholdRepoStub) Update(ctx context.Context, threshold *models.DiseaseThreshold) error {
	r.updates++
	for i, row := range r.rows {
		if row.ID == threshold.ID {
			copy := *threshold
			r.rows[i] = &copy
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *thresholdRepoStub) SetActive(ctx context.Context, id string, active bool, updatedBy string, at time.Time) (bool, error) {
	for _, row := range r.rows {
		if row.ID == id {
			row.IsActive = active
			return true, nil
		}
	}
	return false, nil
}

func (r *thresholdRepoStub) Delete(ctx context.Context, id string) (bool, error) {
	for i, row := range r.rows {
		if row.ID == id {
			r.rows = append(r.rows[:i], r.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func uniqueViolation() error {
	return fmt.Errorf("insert disease threshold: %w", &pq.Error{Code: "23505"})
}

func TestEnsureDefaultCreatesOnFirstSight(t *testing.T) {
	repo := &thresholdRepoStub{}
	svc := NewDiseaseThresholdService(repo, nil, nil, 12)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefault(ctx, " Influenza "))
	require.NoError(t, svc.EnsureDefault(ctx, "influenza"))
	require.Len(t, repo.rows, 1)
	assert.Equal(t, "Influenza", repo.rows[0].DiseaseName)
	assert.Equal(t, 12, repo.rows[0].CasesPerWeek)
	assert.True(t, repo.rows[0].IsActive)
	assert.True(t, repo.rows[0].AutoCreated)
	assert.Equal(t, 1, repo.inserts)

	active, err := svc.ActiveFor(ctx, "INFLUENZA")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 12, active.CasesPerWeek)
}

func TestEnsureDefaultTreatsUniqueViolationAsSuccess(t *testing.T) {
	repo := &thresholdRepoStub{insertErr: uniqueViolation()}
	svc := NewDiseaseThresholdService(repo, nil, nil, 0)
	assert.NoError(t, svc.EnsureDefault(context.Background(), "Measles"))

	repo.insertErr = errors.New("connection reset")
	err := svc.EnsureDefault(context.Background(), "Measles")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestUpsertThresholdIsCaseInsensitive(t *testing.T) {
	repo := &thresholdRepoStub{}
	svc := NewDiseaseThresholdService(repo, nil, nil, 10)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx, "dengue"))

	inactive := false
	updated, err := svc.Upsert(ctx, dto.UpsertThresholdRequest{DiseaseName: "Dengue", CasesPerWeek: 3, IsActive: &inactive}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "t-1", updated.ID)
	assert.Equal(t, 3, updated.CasesPerWeek)
	assert.False(t, updated.AutoCreated)
	assert.Equal(t, 1, repo.updates)
	require.Len(t, repo.rows, 1)

	active, err := svc.ActiveFor(ctx, "dengue")
	require.NoError(t, err)
	assert.Nil(t, active)

	created, err := svc.Upsert(ctx, dto.UpsertThresholdRequest{DiseaseName: "Chickenpox", CasesPerWeek: 5}, "admin-1")
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, "admin-1", *created.CreatedByID)

	_, err = svc.Upsert(ctx, dto.UpsertThresholdRequest{DiseaseName: " ", CasesPerWeek: 5}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Upsert(ctx, dto.UpsertThresholdRequest{DiseaseName: "Flu", CasesPerWeek: 0}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUpsertThresholdConflict(t *testing.T) {
	repo := &thresholdRepoStub{insertErr: uniqueViolation()}
	svc := NewDiseaseThresholdService(repo, nil, nil, 10)
	_, err := svc.Upsert(context.Background(), dto.UpsertThresholdRequest{DiseaseName: "Flu", CasesPerWeek: 4}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestThresholdSetActiveAndDelete(t *testing.T) {
	repo := &thresholdRepoStub{}
	svc := NewDiseaseThresholdService(repo, nil, nil, 10)
	ctx := context.Background()
	require.NoError(t, svc.EnsureDefault(ctx, "Flu"))

	require.NoError(t, svc.SetActive(ctx, "t-1", false, "admin-1"))
	assert.False(t, repo.rows[0].IsActive)
	assert.True(t, errors.Is(svc.SetActive(ctx, "t-9", true, "admin-1"), appErrors.ErrNotFound))

	require.NoError(t, svc.Delete(ctx, "t-1"))
	assert.True(t, errors.Is(svc.Delete(ctx, "t-1"), appErrors.ErrNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
