package saga

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/learning-journey/internal/application/apptest"
	"github.com/alem-hub/learning-journey/internal/domain/journey"
	"github.com/alem-hub/learning-journey/internal/domain/shared"
)

// countingRepo counts saves made through a journey repository.
type countingRepo struct {
	journey.Repository
	saves int32
}

func (r *countingRepo) Save(ctx context.Context, s *journey.State) error {
	atomic.AddInt32(&r.saves, 1)
	return r.Repository.Save(ctx, s)
}

func TestEnsure_CreatesOnFirstAccess(t *testing.T) {
	fx := apptest.New(t)
	s := NewEnrollmentSaga(fx.Catalog, fx.Catalog, fx.Journeys, fx.Clock, fx.Log)
	ctx := context.Background()

	state, activities, err := s.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, apptest.PlanID, state.PlanID)
	assert.Equal(t, journey.TypeLinear, state.Type)
	assert.Equal(t, []string{apptest.Lesson}, state.Unlocked)
	assert.Equal(t, apptest.Lesson, state.CurrentActivityID)
	assert.Len(t, activities, 3)

	stored, err := fx.Journeys.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, apptest.Start.Unix(), stored.CreatedAt.Unix())

	// Возвращается копия: изменения вызывающего не видны в хранилище.
	state.TotalXP = 999
	again, _, err := s.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalXP)
}

func TestEnsure_ConcurrentCallersCreateOnce(t *testing.T) {
	fx := apptest.New(t)
	repo := &countingRepo{Repository: fx.Journeys}
	s := NewEnrollmentSaga(fx.Catalog, fx.Catalog, repo, fx.Clock, fx.Log)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Ensure(context.Background(), "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&repo.saves))
}

func TestEnsure_NoActivePlan(t *testing.T) {
	fx := apptest.New(t)
	require.NoError(t, fx.Catalog.Set())
	s := NewEnrollmentSaga(fx.Catalog, fx.Catalog, fx.Journeys, fx.Clock, fx.Log)

	_, _, err := s.Ensure(context.Background(), "u1")
	assert.ErrorIs(t, err, shared.ErrNoActivePlan)
	assert.True(t, shared.IsNotFound(err))

	_, _, err = s.Ensure(context.Background(), "")
	assert.True(t, shared.IsValidation(err))
}
