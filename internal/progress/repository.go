package progress

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"

	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/sqlite"
)

// Repository persists progress records keyed by player id.
type Repository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewRepository(db *sqlite.Database, logger *slog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With("source", "ProgressRepository"),
	}
}

type playerRow struct {
	ID                string `db:"id"`
	LastStoryIndex    int    `db:"last_story_index"`
	SavedActionPoints int    `db:"saved_action_points"`
	SavedExcessPoints int    `db:"saved_excess_points"`
}

type storyProgressRow struct {
	StoryIndex int  `db:"story_index"`
	Unlocked   bool `db:"unlocked"`
	Completed  bool `db:"completed"`
}

type storyScoreRow struct {
	StoryIndex     int `db:"story_index"`
	CorrectAnswers int `db:"correct_answers"`
	TotalQuestions int `db:"total_questions"`
}

// Load reads a player's record. Unknown players get the zero-state record
// with the first story unlocked.
func (r *Repository) Load(ctx context.Context, playerID string) (*Record, error) {
	var (
		player       playerRow
		progressRows []storyProgressRow
		scoreRows    []storyScoreRow
		err          error
	)

	stmt := `SELECT id, last_story_index, saved_action_points, saved_excess_points FROM players WHERE id = ?`
	if err = r.db.ReadOnly.GetContext(ctx, &player, stmt, playerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewRecord(playerID), nil
		}
		return nil, errors.Wrap(err, "read player")
	}

	record := NewRecord(playerID)
	record.LastStoryIndex = player.LastStoryIndex
	record.SavedActionPoints = player.SavedActionPoints
	record.SavedExcessPoints = player.SavedExcessPoints

	stmt = `SELECT story_index, unlocked, completed FROM story_progress WHERE player_id = ? ORDER BY story_index`
	if err = r.db.ReadOnly.SelectContext(ctx, &progressRows, stmt, playerID); err != nil {
		return nil, errors.Wrap(err, "query story progress")
	}
	for _, row := range progressRows {
		if row.Unlocked {
			record.UnlockedStories = insertSorted(record.UnlockedStories, row.StoryIndex)
		}
		if row.Completed {
			record.CompletedStories = insertSorted(record.CompletedStories, row.StoryIndex)
		}
	}

	stmt = `SELECT story_index, correct_answers, total_questions FROM story_scores WHERE player_id = ? ORDER BY story_index`
	if err = r.db.ReadOnly.SelectContext(ctx, &scoreRows, stmt, playerID); err != nil {
		return nil, errors.Wrap(err, "query story scores")
	}
	for _, row := range scoreRows {
		record.StoryScores[row.StoryIndex] = NewStoryScore(row.CorrectAnswers, row.TotalQuestions)
	}

	return record, nil
}

// Save writes the record in a single transaction, replacing the player's
// unlock and score rows with the record's current state.
func (r *Repository) Save(ctx context.Context, record *Record) error {
	tx, err := r.db.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO players (id, last_story_index, saved_action_points, saved_excess_points)
VALUES (@id, @last_story_index, @saved_action_points, @saved_excess_points)
ON CONFLICT (id) DO UPDATE SET last_story_index    = @last_story_index,
                               saved_action_points = @saved_action_points,
                               saved_excess_points = @saved_excess_points,
                               updated             = CURRENT_TIMESTAMP`
	params := []any{
		sql.Named("id", record.PlayerID),
		sql.Named("last_story_index", record.LastStoryIndex),
		sql.Named("saved_action_points", record.SavedActionPoints),
		sql.Named("saved_excess_points", record.SavedExcessPoints),
	}
	if _, err = tx.ExecContext(ctx, stmt, params...); err != nil {
		return errors.Wrap(err, "upsert player")
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM story_progress WHERE player_id = ?`, record.PlayerID); err != nil {
		return errors.Wrap(err, "clear story progress")
	}
	// A story can be completed without being unlocked first, so the rows
	// cover the union of both sets.
	stmt = `INSERT INTO story_progress (player_id, story_index, unlocked, completed) VALUES (?, ?, ?, ?)`
	indices := slices.Clone(record.UnlockedStories)
	for _, storyIndex := range record.CompletedStories {
		if !slices.Contains(indices, storyIndex) {
			indices = append(indices, storyIndex)
		}
	}
	slices.Sort(indices)
	for _, storyIndex := range indices {
		unlocked := record.IsUnlocked(storyIndex)
		completed := record.IsCompleted(storyIndex)
		if _, err = tx.ExecContext(ctx, stmt, record.PlayerID, storyIndex, unlocked, completed); err != nil {
			return errors.Wrap(err, "insert story progress")
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM story_scores WHERE player_id = ?`, record.PlayerID); err != nil {
		return errors.Wrap(err, "clear story scores")
	}
	stmt = `INSERT INTO story_scores (player_id, story_index, correct_answers, total_questions) VALUES (?, ?, ?, ?)`
	for storyIndex, score := range record.StoryScores {
		if _, err = tx.ExecContext(ctx, stmt, record.PlayerID, storyIndex, score.Correct, score.Total); err != nil {
			return errors.Wrap(err, "insert story score")
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Delete removes a player's record. Loading the player afterwards yields the
// zero-state record again.
func (r *Repository) Delete(ctx context.Context, playerID string) error {
	if _, err := r.db.ReadWrite.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, playerID); err != nil {
		return errors.Wrap(err, "delete player")
	}
	return nil
}
