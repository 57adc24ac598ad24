// Package progress tracks a player's standing across cases: which stories
// they have completed and unlocked, their quiz scores, and the action points
// carried over from one story to the next.
package progress

import (
	"math"
	"slices"

	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/session"
)

// DefaultPlayerID identifies requests that carry no explicit player.
const DefaultPlayerID = "default"

// ErrStoryLocked signals an attempt to start a story that has not been
// unlocked yet.
var ErrStoryLocked = errors.NewSentinel("story is locked")

// StoryScore is the recorded quiz outcome of a completed story. Accuracy and
// ErrorRate are whole percentages.
type StoryScore struct {
	Correct   int `json:"correct"`
	Total     int `json:"total"`
	Accuracy  int `json:"accuracy"`
	ErrorRate int `json:"errorRate"`
}

// NewStoryScore derives the percentage fields from a raw quiz result.
func NewStoryScore(correct, total int) StoryScore {
	score := StoryScore{Correct: correct, Total: total}
	if total > 0 {
		score.Accuracy = roundPercentage(correct, total)
		score.ErrorRate = roundPercentage(total-correct, total)
	}
	return score
}

func roundPercentage(part, whole int) int {
	return int(math.Floor(float64(part)/float64(whole)*100 + 0.5)) //nolint:mnd // percentage scale.
}

// Stats aggregates quiz results over every scored story.
type Stats struct {
	TotalCorrect     int `json:"totalCorrect"`
	TotalQuestions   int `json:"totalQuestions"`
	OverallAccuracy  int `json:"overallAccuracy"`
	OverallErrorRate int `json:"overallErrorRate"`
	CompletedCount   int `json:"completedCount"`
}

// Record is a player's cross-session progress. The first story is always
// unlocked and unlocks are monotonic.
type Record struct {
	PlayerID          string             `json:"playerId"`
	CompletedStories  []int              `json:"completedStories"`
	UnlockedStories   []int              `json:"unlockedStories"`
	LastStoryIndex    int                `json:"lastStoryIndex"`
	SavedActionPoints int                `json:"savedActionPoints"`
	SavedExcessPoints int                `json:"savedExcessPoints"`
	StoryScores       map[int]StoryScore `json:"storyScores"`
}

// NewRecord returns the zero-state record for a player.
func NewRecord(playerID string) *Record {
	return &Record{
		PlayerID:         playerID,
		CompletedStories: []int{},
		UnlockedStories:  []int{0},
		StoryScores:      map[int]StoryScore{},
	}
}

// CompleteStory marks a story as completed, unlocks the next one and banks
// the player's remaining action points for the following case. Points above
// session.BaseActionPoints accumulate in the excess pool. Completing the same
// story again overwrites the banked points and the score but adds no
// duplicate entries.
func (r *Record) CompleteStory(storyIndex int, actionPoints int, score *StoryScore) {
	r.CompletedStories = insertSorted(r.CompletedStories, storyIndex)
	r.UnlockedStories = insertSorted(r.UnlockedStories, storyIndex+1)
	r.LastStoryIndex = storyIndex

	capped := min(session.BaseActionPoints, actionPoints)
	r.SavedActionPoints = capped
	if excess := actionPoints - capped; excess > 0 {
		r.SavedExcessPoints += excess
	}

	if score != nil && score.Total > 0 {
		if r.StoryScores == nil {
			r.StoryScores = map[int]StoryScore{}
		}
		r.StoryScores[storyIndex] = NewStoryScore(score.Correct, score.Total)
	}
}

// CarryOverActionPoints consumes the banked points and returns the allotment
// the next case starts with, capped at session.BaseActionPoints. A player
// with nothing banked starts with the full base allotment.
func (r *Record) CarryOverActionPoints() int {
	total := r.SavedActionPoints + r.SavedExcessPoints
	if total <= 0 {
		return session.BaseActionPoints
	}
	r.SavedActionPoints = 0
	r.SavedExcessPoints = 0
	return min(session.BaseActionPoints, total)
}

// IsUnlocked reports whether the player may start the given story.
func (r *Record) IsUnlocked(storyIndex int) bool {
	return slices.Contains(r.UnlockedStories, storyIndex)
}

// IsCompleted reports whether the player has finished the given story.
func (r *Record) IsCompleted(storyIndex int) bool {
	return slices.Contains(r.CompletedStories, storyIndex)
}

// Score returns the recorded quiz score for a story.
func (r *Record) Score(storyIndex int) (StoryScore, bool) {
	score, ok := r.StoryScores[storyIndex]
	return score, ok
}

// OverallStats aggregates the recorded story scores. All fields are zero when
// no story has been scored yet.
func (r *Record) OverallStats() Stats {
	var stats Stats
	for _, score := range r.StoryScores {
		stats.TotalCorrect += score.Correct
		stats.TotalQuestions += score.Total
		stats.CompletedCount++
	}
	if stats.TotalQuestions > 0 {
		stats.OverallAccuracy = roundPercentage(stats.TotalCorrect, stats.TotalQuestions)
		stats.OverallErrorRate = roundPercentage(stats.TotalQuestions-stats.TotalCorrect, stats.TotalQuestions)
	}
	return stats
}

// Reset wipes the record back to its zero state. The player keeps their
// identity, and story 0 stays unlocked.
func (r *Record) Reset() {
	r.CompletedStories = []int{}
	r.UnlockedStories = []int{0}
	r.LastStoryIndex = 0
	r.SavedActionPoints = 0
	r.SavedExcessPoints = 0
	r.StoryScores = map[int]StoryScore{}
}

func insertSorted(indices []int, index int) []int {
	at, found := slices.BinarySearch(indices, index)
	if found {
		return indices
	}
	return slices.Insert(indices, at, index)
}
