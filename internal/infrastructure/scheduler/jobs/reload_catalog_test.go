package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	err     error
	reloads int
}

func (f *fakeCatalog) Reload(context.Context) error {
	f.reloads++
	return f.err
}

func (f *fakeCatalog) Stats() (int, int) { return 2, 14 }

func TestReloadCatalogJob_Run(t *testing.T) {
	cat := &fakeCatalog{}
	job := NewReloadCatalogJob(cat, nil)

	_, ok := job.LastStats()
	assert.False(t, ok)

	require.NoError(t, job.Run(context.Background()))
	stats, ok := job.LastStats()
	require.True(t, ok)
	assert.Equal(t, 2, stats.Plans)
	assert.Equal(t, 14, stats.Activities)
	assert.Equal(t, "reload_catalog", job.Name())
}

func TestReloadCatalogJob_RunError(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("bad yaml")}
	job := NewReloadCatalogJob(cat, nil)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad yaml")
	_, ok := job.LastStats()
	assert.False(t, ok)
}
