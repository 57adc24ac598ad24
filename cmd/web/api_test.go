package main

import (
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/mjuvonen/truthseeker/internal/casegen"
	"github.com/mjuvonen/truthseeker/internal/session"
	"github.com/mjuvonen/truthseeker/internal/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type caseResponse struct {
	SessionID string `json:"sessionId"`
	Case      struct {
		Seed       int64  `json:"seed"`
		StoryID    string `json:"storyId"`
		StoryTitle string `json:"storyTitle"`
		Difficulty string `json:"difficulty"`
		Narrative  string `json:"narrative"`
	} `json:"case"`
	Store []struct {
		Category string `json:"category"`
		Clue     struct {
			ID string `json:"id"`
		} `json:"clue"`
		Purchased bool `json:"purchased"`
	} `json:"store"`
	ActionPoints    int `json:"actionPoints"`
	NextAbilityCost int `json:"nextAbilityCost"`
}

type errorEnvelope struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Required int    `json:"required"`
	Current  int    `json:"current"`
}

func TestHealthyAndStories(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)

	var health struct {
		Status         string `json:"status"`
		StoriesLoaded  int    `json:"storiesLoaded"`
		ActiveSessions int    `json:"activeSessions"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/healthy", &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.StoriesLoaded)
	assert.Zero(t, health.ActiveSessions)

	var stories struct {
		Stories []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"stories"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/stories", &stories))
	require.Len(t, stories.Stories, 2)
	assert.Equal(t, "clockmaker", stories.Stories[0].ID)
	assert.Equal(t, "gallery", stories.Stories[1].ID)
}

func TestCaseLifecycle(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)
	seed := int64(42)

	var created caseResponse
	status := server.PostJSON(t, "/api/cases", map[string]any{
		"storyIndex": 0, "difficulty": "hard", "seed": seed,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, seed, created.Case.Seed)
	assert.Equal(t, "clockmaker", created.Case.StoryID)
	assert.Equal(t, session.BaseActionPoints, created.ActionPoints)
	assert.Equal(t, session.CostStep, created.NextAbilityCost)
	require.NotEmpty(t, created.Store)

	base := fmt.Sprintf("/api/cases/%s", created.SessionID)

	// First purchase costs one step.
	clueID := created.Store[0].Clue.ID
	var purchase struct {
		Success         bool `json:"success"`
		ActionPoints    int  `json:"actionPoints"`
		NextAbilityCost int  `json:"nextAbilityCost"`
		SpentCost       int  `json:"spentCost"`
	}
	status = server.PostJSON(t, base+"/clues/purchase", map[string]string{"clueId": clueID}, &purchase)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, purchase.Success)
	assert.Equal(t, 90, purchase.ActionPoints)
	assert.Equal(t, 20, purchase.NextAbilityCost)
	assert.Equal(t, 10, purchase.SpentCost)

	// Buying the same clue twice conflicts.
	var envelope errorEnvelope
	status = server.PostJSON(t, base+"/clues/purchase", map[string]string{"clueId": clueID}, &envelope)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CLUE_ALREADY_PURCHASED", envelope.Code)

	status = server.PostJSON(t, base+"/clues/purchase", map[string]string{"clueId": "no-such-clue"}, &envelope)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "CLUE_NOT_FOUND", envelope.Code)

	// Quiz questions never carry the answers.
	var quiz struct {
		Questions []map[string]any `json:"questions"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, base+"/quiz", &quiz))
	require.NotEmpty(t, quiz.Questions)
	for _, question := range quiz.Questions {
		assert.NotContains(t, question, "answer")
	}

	// The solution stays hidden until revealed.
	status = server.GetJSON(t, base+"/solution", &envelope)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "SOLUTION_NOT_REVEALED", envelope.Code)

	// Regenerate the same case locally to answer every question correctly.
	pool, err := story.Default()
	require.NoError(t, err)
	generated, err := casegen.Generate(pool, 0, casegen.DifficultyHard, &seed)
	require.NoError(t, err)
	answers := map[string]string{}
	for _, question := range generated.Quiz {
		answers[question.ID] = question.Answer
	}

	var result struct {
		Score struct {
			Correct int `json:"correct"`
			Total   int `json:"total"`
		} `json:"score"`
		Refund            int `json:"refund"`
		FinalActionPoints int `json:"finalActionPoints"`
		RoundSpentPoints  int `json:"roundSpentPoints"`
	}
	status = server.PostJSON(t, base+"/quiz/finalize", map[string]any{"answers": answers}, &result)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, result.Score.Total, result.Score.Correct)
	assert.Equal(t, 10, result.RoundSpentPoints)
	assert.Equal(t, 10, result.Refund)
	assert.Equal(t, session.BaseActionPoints, result.FinalActionPoints)

	status = server.PostJSON(t, base+"/quiz/finalize", map[string]any{"answers": answers}, &envelope)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "QUIZ_ALREADY_SUBMITTED", envelope.Code)

	var reveal struct {
		Success  bool `json:"success"`
		Solution struct {
			Summary string `json:"summary"`
		} `json:"solution"`
	}
	status = server.PostJSON(t, base+"/solution/reveal", nil, &reveal)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reveal.Success)
	assert.NotEmpty(t, reveal.Solution.Summary)

	var solution struct {
		Summary  string `json:"summary"`
		Revealed bool   `json:"revealed"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, base+"/solution", &solution))
	assert.True(t, solution.Revealed)
	assert.Equal(t, reveal.Solution.Summary, solution.Summary)
}

func TestCaseResetRestoresPoints(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)
	seed := int64(7)

	var created caseResponse
	status := server.PostJSON(t, "/api/cases", map[string]any{"seed": seed}, &created)
	require.Equal(t, http.StatusCreated, status)
	base := fmt.Sprintf("/api/cases/%s", created.SessionID)

	var purchase struct {
		ActionPoints int `json:"actionPoints"`
	}
	clueID := created.Store[0].Clue.ID
	status = server.PostJSON(t, base+"/clues/purchase", map[string]string{"clueId": clueID}, &purchase)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 90, purchase.ActionPoints)

	var reset caseResponse
	status = server.PostJSON(t, base+"/reset", map[string]any{"seed": seed}, &reset)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session.BaseActionPoints, reset.ActionPoints)
	assert.Equal(t, created.Case.Narrative, reset.Case.Narrative)
	for _, entry := range reset.Store {
		assert.False(t, entry.Purchased)
	}

	status = server.PostJSON(t, base+"/reset", map[string]any{"difficulty": "brutal"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdvanceStoryAndProgress(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)

	var created caseResponse
	status := server.PostJSON(t, "/api/cases", nil, &created)
	require.Equal(t, http.StatusCreated, status)
	base := fmt.Sprintf("/api/cases/%s", created.SessionID)

	var advanced caseResponse
	status = server.PostJSON(t, base+"/advance", nil, &advanced)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "gallery", advanced.Case.StoryID)
	assert.Equal(t, session.BaseActionPoints, advanced.ActionPoints)

	// The finished story is recorded for the cookie-identified player.
	var view struct {
		CompletedStories []int `json:"completedStories"`
		UnlockedStories  []int `json:"unlockedStories"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/progress", &view))
	assert.Equal(t, []int{0}, view.CompletedStories)
	assert.Equal(t, []int{0, 1}, view.UnlockedStories)

	// The pool ends after the second story, but the final story still
	// counts as completed before the advance is rejected.
	var envelope errorEnvelope
	status = server.PostJSON(t, base+"/advance", nil, &envelope)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NO_MORE_STORIES", envelope.Code)

	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/progress", &view))
	assert.Equal(t, []int{0, 1}, view.CompletedStories)
	assert.Equal(t, []int{0, 1, 2}, view.UnlockedStories)
}

func TestCreateCaseValidation(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)

	var envelope errorEnvelope
	status := server.PostJSON(t, "/api/cases", map[string]any{"storyIndex": 99}, &envelope)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STORY_INDEX", envelope.Code)

	status = server.PostJSON(t, "/api/cases", map[string]any{"difficulty": "brutal"}, &envelope)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_DIFFICULTY", envelope.Code)

	// The second story is locked until the first is completed.
	status = server.PostJSON(t, "/api/cases", map[string]any{"storyIndex": 1}, &envelope)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "STORY_LOCKED", envelope.Code)

	status = server.GetJSON(t, "/api/cases/unknown-session", &envelope)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SESSION_NOT_FOUND", envelope.Code)

	var created caseResponse
	status = server.PostJSON(t, "/api/cases", nil, &created)
	require.Equal(t, http.StatusCreated, status)
	status = server.PostJSON(t,
		fmt.Sprintf("/api/cases/%s/clues/purchase", created.SessionID), map[string]string{}, &envelope)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_CLUE_ID", envelope.Code)
}

func TestInsufficientPointsEnvelope(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)

	// Easy mode keeps the whole store on offer, enough to drain 100 points.
	var created caseResponse
	status := server.PostJSON(t, "/api/cases", map[string]any{"difficulty": "easy"}, &created)
	require.Equal(t, http.StatusCreated, status)
	base := fmt.Sprintf("/api/cases/%s/clues/purchase", created.SessionID)

	remaining := session.BaseActionPoints
	cost := session.CostStep
	for _, entry := range created.Store {
		var envelope errorEnvelope
		status = server.PostJSON(t, base, map[string]string{"clueId": entry.Clue.ID}, &envelope)
		if remaining >= cost {
			require.Equal(t, http.StatusOK, status)
			remaining -= cost
			cost += session.CostStep
			continue
		}
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "INSUFFICIENT_POINTS", envelope.Code)
		assert.Equal(t, cost, envelope.Required)
		assert.Equal(t, remaining, envelope.Current)
		return
	}
	t.Fatal("store sold out before draining the action points")
}

func TestProgressEndpoints(t *testing.T) {
	t.Parallel()
	server := startTestServer(t, os.Stderr, testLookupEnv)

	var saved struct {
		Success  bool `json:"success"`
		Progress struct {
			CompletedStories []int `json:"completedStories"`
			UnlockedStories  []int `json:"unlockedStories"`
		} `json:"progress"`
	}
	status := server.PostJSON(t, "/api/progress", map[string]any{
		"playerId":     "tester",
		"storyIndex":   0,
		"actionPoints": 85,
		"quizScore":    map[string]int{"correct": 3, "total": 4},
	}, &saved)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, saved.Success)
	assert.Equal(t, []int{0}, saved.Progress.CompletedStories)
	assert.Equal(t, []int{0, 1}, saved.Progress.UnlockedStories)

	var view struct {
		CompletedStories []int `json:"completedStories"`
		LastStoryIndex   int   `json:"lastStoryIndex"`
		StoryScores      []struct {
			Key   string `json:"key"`
			Value struct {
				Correct  int `json:"correct"`
				Total    int `json:"total"`
				Accuracy int `json:"accuracy"`
			} `json:"value"`
		} `json:"storyScores"`
		OverallStats struct {
			TotalCorrect    int `json:"totalCorrect"`
			OverallAccuracy int `json:"overallAccuracy"`
		} `json:"overallStats"`
	}
	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/progress?playerId=tester", &view))
	assert.Equal(t, []int{0}, view.CompletedStories)
	require.Len(t, view.StoryScores, 1)
	assert.Equal(t, "0", view.StoryScores[0].Key)
	assert.Equal(t, 75, view.StoryScores[0].Value.Accuracy)
	assert.Equal(t, 75, view.OverallStats.OverallAccuracy)

	var storyScore struct {
		StoryIndex int `json:"storyIndex"`
		Score      struct {
			Correct int `json:"correct"`
		} `json:"score"`
	}
	require.Equal(t, http.StatusOK,
		server.GetJSON(t, "/api/progress/story/0?playerId=tester", &storyScore))
	assert.Equal(t, 3, storyScore.Score.Correct)

	var envelope errorEnvelope
	status = server.GetJSON(t, "/api/progress/story/5?playerId=tester", &envelope)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "SCORE_NOT_FOUND", envelope.Code)

	status = server.GetJSON(t, "/api/progress/story/not-a-number?playerId=tester", &envelope)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STORY_INDEX", envelope.Code)

	status = server.PostJSON(t, "/api/progress", map[string]any{"playerId": "tester"}, &envelope)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_STORY_INDEX", envelope.Code)

	var reset struct {
		Success bool `json:"success"`
	}
	status = server.PostJSON(t, "/api/progress/reset", map[string]string{"playerId": "tester"}, &reset)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, reset.Success)

	require.Equal(t, http.StatusOK, server.GetJSON(t, "/api/progress?playerId=tester", &view))
	assert.Empty(t, view.CompletedStories)
	assert.Empty(t, view.StoryScores)
}
