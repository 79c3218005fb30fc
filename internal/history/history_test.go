package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/errors"
	"atstailor/internal/inject"
	"atstailor/internal/keywords"
	"atstailor/internal/tailor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewRun(t *testing.T) {
	res := &tailor.Result{
		KeywordSet:    keywords.NewSet([]string{"python", "aws"}, []string{"docker"}, nil),
		MatchScore:    67,
		OriginalScore: 33,
		InjectionReport: tailor.Report{
			Insertions: []inject.Insertion{{Keyword: "aws"}},
			Passes:     1,
			Warnings:   []tailor.Warning{tailor.WarningNoExperienceSection},
		},
	}

	run := NewRun(SourceHTTP, "Senior  Python engineer", res)
	assert.Equal(t, SourceHTTP, run.Source)
	assert.Equal(t, 3, run.KeywordCount)
	assert.Equal(t, 67, run.MatchScore)
	assert.Equal(t, 33, run.OriginalScore)
	assert.Equal(t, 1, run.Insertions)
	assert.Equal(t, []string{"NoExperienceSection"}, run.Warnings)
	assert.Equal(t, JobHash("senior python engineer"), run.JobHash)
	assert.Len(t, run.JobHash, 16)
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	saved, err := store.Record(ctx, Run{
		Source:        SourceCLI,
		JobHash:       "abc",
		KeywordCount:  12,
		OriginalScore: 40,
		MatchScore:    90,
		Insertions:    7,
		Passes:        2,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, SourceCLI, got.Source)
	assert.Equal(t, 90, got.MatchScore)
	assert.Equal(t, []string{}, got.Warnings)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
}

func TestGetMissing(t *testing.T) {
	_, err := openTestStore(t).Get(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, score := range []int{10, 20, 30} {
		_, err := store.Record(ctx, Run{
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			Source:     SourceWorker,
			JobHash:    "h",
			MatchScore: score,
			Warnings:   []string{"NoKeywordsExtracted"},
		})
		require.NoError(t, err)
	}

	runs, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 30, runs[0].MatchScore)
	assert.Equal(t, 20, runs[1].MatchScore)
	assert.Equal(t, []string{"NoKeywordsExtracted"}, runs[0].Warnings)
}

func TestListEmpty(t *testing.T) {
	runs, err := openTestStore(t).List(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestSummary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sum, err := store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Runs)

	_, err = store.Record(ctx, Run{Source: SourceCLI, OriginalScore: 20, MatchScore: 80, Insertions: 5})
	require.NoError(t, err)
	_, err = store.Record(ctx, Run{Source: SourceCLI, OriginalScore: 40, MatchScore: 100, Insertions: 3,
		Warnings: []string{"NoExperienceSection"}})
	require.NoError(t, err)

	sum, err = store.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Runs)
	assert.InDelta(t, 30.0, sum.AverageOriginal, 0.001)
	assert.InDelta(t, 90.0, sum.AverageMatch, 0.001)
	assert.Equal(t, 8, sum.TotalInsertions)
	assert.Equal(t, 1, sum.RunsWithWarnings)
}
