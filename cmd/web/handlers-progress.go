package main

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/mjuvonen/truthseeker/internal/progress"
)

// keyedScore serializes the score map as an array of key/value pairs, which
// is what the Unity client's JSON parser expects.
type keyedScore struct {
	Key   string              `json:"key"`
	Value progress.StoryScore `json:"value"`
}

type progressView struct {
	CompletedStories []int          `json:"completedStories"`
	UnlockedStories  []int          `json:"unlockedStories"`
	StoryScores      []keyedScore   `json:"storyScores"`
	OverallStats     progress.Stats `json:"overallStats"`
}

func storyScoreArray(scores map[int]progress.StoryScore) []keyedScore {
	indices := make([]int, 0, len(scores))
	for index := range scores {
		indices = append(indices, index)
	}
	slices.Sort(indices)

	keyed := make([]keyedScore, len(indices))
	for i, index := range indices {
		keyed[i] = keyedScore{Key: strconv.Itoa(index), Value: scores[index]}
	}
	return keyed
}

func (app *application) getProgress(w http.ResponseWriter, r *http.Request) {
	record, err := app.progress.Load(r.Context(), app.playerID(r, ""))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		CompletedStories []int          `json:"completedStories"`
		UnlockedStories  []int          `json:"unlockedStories"`
		LastStoryIndex   int            `json:"lastStoryIndex"`
		StoryScores      []keyedScore   `json:"storyScores"`
		OverallStats     progress.Stats `json:"overallStats"`
	}{
		CompletedStories: record.CompletedStories,
		UnlockedStories:  record.UnlockedStories,
		LastStoryIndex:   record.LastStoryIndex,
		StoryScores:      storyScoreArray(record.StoryScores),
		OverallStats:     record.OverallStats(),
	})
}

func (app *application) saveProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID     string               `json:"playerId"`
		StoryIndex   *int                 `json:"storyIndex"`
		ActionPoints *int                 `json:"actionPoints"`
		QuizScore    *progress.StoryScore `json:"quizScore"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}
	if req.StoryIndex == nil || *req.StoryIndex < 0 {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_STORY_INDEX", "Invalid story index")
		return
	}

	record, err := app.progress.Load(r.Context(), app.playerID(r, req.PlayerID))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	actionPoints := record.SavedActionPoints
	if req.ActionPoints != nil {
		actionPoints = *req.ActionPoints
	}
	record.CompleteStory(*req.StoryIndex, actionPoints, req.QuizScore)

	if err = app.progress.Save(r.Context(), record); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		Success  bool         `json:"success"`
		Progress progressView `json:"progress"`
	}{
		Success: true,
		Progress: progressView{
			CompletedStories: record.CompletedStories,
			UnlockedStories:  record.UnlockedStories,
			StoryScores:      storyScoreArray(record.StoryScores),
			OverallStats:     record.OverallStats(),
		},
	})
}

func (app *application) getStatistics(w http.ResponseWriter, r *http.Request) {
	record, err := app.progress.Load(r.Context(), app.playerID(r, ""))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		OverallStats progress.Stats `json:"overallStats"`
		StoryScores  struct {
			Scores []keyedScore `json:"scores"`
		} `json:"storyScores"`
	}{
		OverallStats: record.OverallStats(),
		StoryScores: struct {
			Scores []keyedScore `json:"scores"`
		}{Scores: storyScoreArray(record.StoryScores)},
	})
}

func (app *application) getStoryScore(w http.ResponseWriter, r *http.Request) {
	storyIndex, err := strconv.Atoi(r.PathValue("storyIndex"))
	if err != nil || storyIndex < 0 {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_STORY_INDEX", "Invalid story index")
		return
	}

	record, err := app.progress.Load(r.Context(), app.playerID(r, ""))
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	score, ok := record.Score(storyIndex)
	if !ok {
		app.errorResponse(w, r, http.StatusNotFound, "SCORE_NOT_FOUND", "Story score not found")
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		StoryIndex int                 `json:"storyIndex"`
		Score      progress.StoryScore `json:"score"`
	}{StoryIndex: storyIndex, Score: score})
}

func (app *application) resetProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}

	playerID := app.playerID(r, req.PlayerID)
	record, err := app.progress.Load(r.Context(), playerID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	record.Reset()
	if err = app.progress.Save(r.Context(), record); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: true, Message: "Progress reset successfully"})
}
