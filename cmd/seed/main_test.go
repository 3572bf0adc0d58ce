package main

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-intake/internal/appointment"
	"github.com/hackgods/appointment-intake/internal/normalize"
)

func TestSeedRecords(t *testing.T) {
	repo := appointment.NewMemoryRepository()
	p, err := normalize.NewPipeline("Europe/Berlin", func() time.Time {
		return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	committed, skipped, err := seedRecords(context.Background(), repo, p, gofakeit.New(11), 200, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 200, committed+skipped)
	assert.NotZero(t, committed)
	assert.NotZero(t, skipped, "confidence below the gate must be skipped")

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, committed, n)

	records, err := repo.List(context.Background(), 5, 0)
	require.NoError(t, err)
	for _, r := range records {
		require.NotNil(t, r.NormalizedData.DateTime)
		assert.Equal(t, "Europe/Berlin", r.NormalizedData.Timezone)
		assert.Contains(t, specialties, r.Department)
	}
}
