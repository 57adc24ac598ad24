package progress

import (
	"context"
	"io"
	"testing"

	"github.com/mjuvonen/truthseeker/internal/sqlite"
	"github.com/mjuvonen/truthseeker/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return NewRepository(db, testhelpers.NewLogger(io.Discard))
}

func TestRepositoryLoadUnknownPlayer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	record, err := repo.Load(ctx, "nobody")
	require.NoError(t, err)

	assert.Equal(t, "nobody", record.PlayerID)
	assert.Empty(t, record.CompletedStories)
	assert.Equal(t, []int{0}, record.UnlockedStories)
	assert.Empty(t, record.StoryScores)
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	record := NewRecord("player-1")
	record.CompleteStory(0, 85, &StoryScore{Correct: 3, Total: 4})
	record.CompleteStory(1, 120, &StoryScore{Correct: 2, Total: 3})
	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)

	assert.Equal(t, record.CompletedStories, loaded.CompletedStories)
	assert.Equal(t, record.UnlockedStories, loaded.UnlockedStories)
	assert.Equal(t, record.LastStoryIndex, loaded.LastStoryIndex)
	assert.Equal(t, record.SavedActionPoints, loaded.SavedActionPoints)
	assert.Equal(t, record.SavedExcessPoints, loaded.SavedExcessPoints)
	assert.Equal(t, record.StoryScores, loaded.StoryScores)
}

func TestRepositoryRoundTripOutOfSequenceCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	// Completing a story never unlocks the story itself, only its
	// successor, so the completion must survive on its own row.
	record := NewRecord("player-1")
	record.CompleteStory(5, 80, &StoryScore{Correct: 3, Total: 4})
	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)

	assert.True(t, loaded.IsCompleted(5))
	assert.Equal(t, record.CompletedStories, loaded.CompletedStories)
	assert.Equal(t, record.UnlockedStories, loaded.UnlockedStories)
	score, ok := loaded.Score(5)
	require.True(t, ok)
	assert.Equal(t, 3, score.Correct)
	assert.Equal(t, 4, score.Total)
}

func TestRepositorySaveOverwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	record := NewRecord("player-1")
	record.CompleteStory(0, 85, &StoryScore{Correct: 3, Total: 4})
	require.NoError(t, repo.Save(ctx, record))

	record.Reset()
	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)
	assert.Empty(t, loaded.CompletedStories)
	assert.Equal(t, []int{0}, loaded.UnlockedStories)
	assert.Empty(t, loaded.StoryScores)
	assert.Zero(t, loaded.SavedActionPoints)
}

func TestRepositoryPlayersAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	first := NewRecord("player-1")
	first.CompleteStory(0, 85, nil)
	require.NoError(t, repo.Save(ctx, first))

	second, err := repo.Load(ctx, "player-2")
	require.NoError(t, err)
	assert.False(t, second.IsCompleted(0))
	assert.Equal(t, []int{0}, second.UnlockedStories)
}

func TestRepositoryDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newTestRepository(t)

	record := NewRecord("player-1")
	record.CompleteStory(0, 85, &StoryScore{Correct: 4, Total: 4})
	require.NoError(t, repo.Save(ctx, record))
	require.NoError(t, repo.Delete(ctx, "player-1"))

	loaded, err := repo.Load(ctx, "player-1")
	require.NoError(t, err)
	assert.False(t, loaded.IsCompleted(0))
	assert.Empty(t, loaded.StoryScores)
}
