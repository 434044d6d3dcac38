package store

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunn-e/carrot/carrot"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPopulation(t *testing.T, size int) []*carrot.Network {
	t.Helper()
	population := make([]*carrot.Network, size)
	for i := range population {
		n, err := carrot.NewNetworkRand(2, 1, rand.New(rand.NewSource(int64(i+1))))
		require.NoError(t, err)
		population[i] = n
	}
	return population
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestPopulationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	population := testPopulation(t, 3)

	require.NoError(t, s.SavePopulation(ctx, "run-1", 0, population))

	restored, ok, err := s.LoadPopulation(ctx, "run-1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, restored, 3)
	for i, genome := range restored {
		assert.Equal(t, population[i].Input, genome.Input)
		assert.Equal(t, population[i].Output, genome.Output)
		assert.Len(t, genome.Nodes, len(population[i].Nodes))
		assert.Len(t, genome.Connections, len(population[i].Connections))
	}
}

func TestLoadPopulationMissing(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.LoadPopulation(context.Background(), "run-1", 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSavePopulationReplacesSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePopulation(ctx, "run-1", 0, testPopulation(t, 2)))
	require.NoError(t, s.SavePopulation(ctx, "run-1", 0, testPopulation(t, 5)))

	restored, ok, err := s.LoadPopulation(ctx, "run-1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, restored, 5)
}

func TestSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for gen := 0; gen < 3; gen++ {
		err := s.SaveSummary(ctx, "run-1", &carrot.Summary{
			Generation: gen,
			Best:       float64(gen),
			Mean:       float64(gen) / 2,
			Stdev:      0.1,
		})
		require.NoError(t, err)
	}
	// A different run's summaries stay separate.
	require.NoError(t, s.SaveSummary(ctx, "run-2", &carrot.Summary{Generation: 0, Best: 9}))

	rows, err := s.Summaries(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, i, row.Generation)
		assert.Equal(t, float64(i), row.Best)
	}
}
