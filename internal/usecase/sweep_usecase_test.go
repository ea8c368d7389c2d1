package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DRSN-tech/imgshrink/internal/cfg"
	"github.com/DRSN-tech/imgshrink/internal/domain"
	"github.com/DRSN-tech/imgshrink/internal/usecase"
	"github.com/DRSN-tech/imgshrink/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	keys      []domain.ArtifactKey
	err       error
	olderThan time.Time
}

func (f *fakeLister) ListExpired(_ context.Context, olderThan time.Time) ([]domain.ArtifactKey, error) {
	f.olderThan = olderThan
	return f.keys, f.err
}

type fakeCleaner struct {
	keys []domain.ArtifactKey
}

func (f *fakeCleaner) CleanupArtifacts(keys []domain.ArtifactKey) {
	f.keys = append(f.keys, keys...)
}

func (f *fakeCleaner) WaitForCleanup(context.Context) error { return nil }

func TestSweep_SchedulesExpired(t *testing.T) {
	keys := []domain.ArtifactKey{
		domain.NewArtifactKey("a", domain.FormatJPEG),
		domain.NewArtifactKey("b", domain.FormatPNG),
	}
	lister := &fakeLister{keys: keys}
	cleaner := &fakeCleaner{}
	metrics := newFakeMetrics()
	ttl := time.Hour

	uc := usecase.NewSweepUC(lister, cleaner, metrics, &cfg.SweepCfg{TTL: ttl}, logger.NewNopLogger())

	before := time.Now()
	res, err := uc.Sweep(context.Background())
	after := time.Now()
	require.NoError(t, err)

	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, keys, cleaner.keys)
	assert.Equal(t, 2, metrics.swept)
	assert.False(t, lister.olderThan.Before(before.Add(-ttl)))
	assert.False(t, lister.olderThan.After(after.Add(-ttl)))
}

func TestSweep_NothingExpired(t *testing.T) {
	cleaner := &fakeCleaner{}
	metrics := newFakeMetrics()
	uc := usecase.NewSweepUC(&fakeLister{}, cleaner, metrics, &cfg.SweepCfg{TTL: time.Minute}, logger.NewNopLogger())

	res, err := uc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Empty(t, cleaner.keys)
	assert.Zero(t, metrics.swept)
}

func TestSweep_ListError(t *testing.T) {
	boom := errors.New("list failed")
	uc := usecase.NewSweepUC(&fakeLister{err: boom}, &fakeCleaner{}, newFakeMetrics(), &cfg.SweepCfg{TTL: time.Minute}, logger.NewNopLogger())

	_, err := uc.Sweep(context.Background())
	assert.ErrorIs(t, err, boom)
}
