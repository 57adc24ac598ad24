package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mjuvonen/truthseeker/internal/casegen"
	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/progress"
	"github.com/mjuvonen/truthseeker/internal/session"
)

// caseView is the case as the client sees it. Store, quiz answers and the
// solution are served by their own endpoints.
type caseView struct {
	Seed             int64                    `json:"seed"`
	StoryID          string                   `json:"storyId"`
	StoryTitle       string                   `json:"storyTitle"`
	Difficulty       string                   `json:"difficulty"`
	Narrative        string                   `json:"narrative"`
	Victim           map[string]any           `json:"victim"`
	Location         string                   `json:"location"`
	TimeWindow       string                   `json:"timeWindow"`
	Suspects         []casegen.Suspect        `json:"suspects"`
	InitialClues     []casegen.Clue           `json:"initialClues"`
	StatementEntries []casegen.StatementEntry `json:"statementEntries"`
}

func newCaseView(c *casegen.Case) caseView {
	return caseView{
		Seed:             c.Seed,
		StoryID:          c.StoryID,
		StoryTitle:       c.StoryTitle,
		Difficulty:       c.Difficulty,
		Narrative:        c.Narrative,
		Victim:           c.Victim,
		Location:         c.Location,
		TimeWindow:       c.TimeWindow,
		Suspects:         c.Suspects,
		InitialClues:     c.InitialClues,
		StatementEntries: c.StatementEntries,
	}
}

func (app *application) createCase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID   string `json:"playerId"`
		StoryIndex int    `json:"storyIndex"`
		Difficulty string `json:"difficulty"`
		Seed       *int64 `json:"seed"`
	}
	req.Difficulty = casegen.DifficultyMedium
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}

	if req.StoryIndex < 0 || req.StoryIndex >= app.pool.Len() {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_STORY_INDEX", "Invalid story index")
		return
	}
	if !casegen.ValidDifficulty(req.Difficulty) {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_DIFFICULTY", "Invalid difficulty")
		return
	}

	playerID := app.playerID(r, req.PlayerID)
	record, err := app.progress.Load(r.Context(), playerID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if !record.IsUnlocked(req.StoryIndex) {
		app.engineError(w, r, progress.ErrStoryLocked)
		return
	}

	startingPoints := record.CarryOverActionPoints()
	if err = app.progress.Save(r.Context(), record); err != nil {
		app.serverError(w, r, err)
		return
	}

	sess, err := session.New(app.pool, req.StoryIndex, req.Difficulty, req.Seed, startingPoints, time.Now())
	if err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to generate case", errors.SlogError(err))
		app.errorResponse(w, r, http.StatusInternalServerError, "GENERATION_ERROR", "Failed to generate case")
		return
	}
	app.sessions.Put(sess)

	snapshot := sess.Snapshot()
	app.writeJSON(w, r, http.StatusCreated, struct {
		SessionID       string               `json:"sessionId"`
		Case            caseView             `json:"case"`
		Store           []session.StoreEntry `json:"store"`
		ActionPoints    int                  `json:"actionPoints"`
		NextAbilityCost int                  `json:"nextAbilityCost"`
	}{
		SessionID:       snapshot.ID,
		Case:            newCaseView(snapshot.Case),
		Store:           snapshot.Store,
		ActionPoints:    snapshot.ActionPoints,
		NextAbilityCost: snapshot.NextAbilityCost,
	})
}

func (app *application) getCase(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	snapshot := sess.Snapshot()
	app.writeJSON(w, r, http.StatusOK, struct {
		Case            caseView             `json:"case"`
		Store           []session.StoreEntry `json:"store"`
		PurchasedClues  []casegen.Clue       `json:"purchasedClues"`
		ActionPoints    int                  `json:"actionPoints"`
		NextAbilityCost int                  `json:"nextAbilityCost"`
		Statement       session.Statement    `json:"statement"`
	}{
		Case:            newCaseView(snapshot.Case),
		Store:           snapshot.Store,
		PurchasedClues:  snapshot.PurchasedClues,
		ActionPoints:    snapshot.ActionPoints,
		NextAbilityCost: snapshot.NextAbilityCost,
		Statement:       snapshot.Statement,
	})
}

func (app *application) resetCase(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	var req struct {
		Difficulty string `json:"difficulty"`
		Seed       *int64 `json:"seed"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}
	if req.Difficulty != "" && !casegen.ValidDifficulty(req.Difficulty) {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_DIFFICULTY", "Invalid difficulty")
		return
	}

	if err := sess.ResetCase(req.Difficulty, req.Seed); err != nil {
		app.engineError(w, r, err)
		return
	}

	snapshot := sess.Snapshot()
	app.writeJSON(w, r, http.StatusOK, struct {
		SessionID       string               `json:"sessionId"`
		Case            caseView             `json:"case"`
		Store           []session.StoreEntry `json:"store"`
		ActionPoints    int                  `json:"actionPoints"`
		NextAbilityCost int                  `json:"nextAbilityCost"`
	}{
		SessionID:       snapshot.ID,
		Case:            newCaseView(snapshot.Case),
		Store:           snapshot.Store,
		ActionPoints:    snapshot.ActionPoints,
		NextAbilityCost: snapshot.NextAbilityCost,
	})
}

func (app *application) advanceStory(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}

	// Complete the story the player is leaving before moving on.
	playerID := app.playerID(r, req.PlayerID)
	record, err := app.progress.Load(r.Context(), playerID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	finished := sess.Snapshot()
	var score *progress.StoryScore
	if quizScore, finalized := sess.QuizScore(); finalized {
		score = &progress.StoryScore{Correct: quizScore.Correct, Total: quizScore.Total}
	}
	record.CompleteStory(finished.Case.StoryIndex, finished.ActionPoints, score)
	if err = app.progress.Save(r.Context(), record); err != nil {
		app.serverError(w, r, err)
		return
	}

	if err = sess.AdvanceStory(); err != nil {
		app.engineError(w, r, err)
		return
	}

	snapshot := sess.Snapshot()
	app.writeJSON(w, r, http.StatusOK, struct {
		SessionID       string               `json:"sessionId"`
		Case            caseView             `json:"case"`
		Store           []session.StoreEntry `json:"store"`
		ActionPoints    int                  `json:"actionPoints"`
		NextAbilityCost int                  `json:"nextAbilityCost"`
	}{
		SessionID:       snapshot.ID,
		Case:            newCaseView(snapshot.Case),
		Store:           snapshot.Store,
		ActionPoints:    snapshot.ActionPoints,
		NextAbilityCost: snapshot.NextAbilityCost,
	})
}

func (app *application) purchaseClue(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	var req struct {
		ClueID string `json:"clueId"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}
	if req.ClueID == "" {
		app.errorResponse(w, r, http.StatusBadRequest, "MISSING_CLUE_ID", "Clue ID required")
		return
	}

	result, err := sess.PurchaseClue(req.ClueID)
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		Success bool `json:"success"`
		*session.PurchaseResult
	}{Success: true, PurchaseResult: result})
}

func (app *application) getQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	// Answers stay on the server until the quiz is finalized.
	type question struct {
		ID         string   `json:"id"`
		Question   string   `json:"question"`
		Options    []string `json:"options"`
		Difficulty string   `json:"difficulty"`
	}
	snapshot := sess.Snapshot()
	questions := make([]question, len(snapshot.Case.Quiz))
	for i, q := range snapshot.Case.Quiz {
		questions[i] = question{ID: q.ID, Question: q.Question, Options: q.Options, Difficulty: q.Difficulty}
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		Questions []question `json:"questions"`
	}{Questions: questions})
}

func (app *application) finalizeQuiz(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := app.readJSON(w, r, &req); err != nil {
		app.errorResponse(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request body")
		return
	}

	result, err := sess.FinalizeQuiz(req.Answers)
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, result)
}

func (app *application) revealSolution(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	solution := sess.RevealSolution()
	app.writeJSON(w, r, http.StatusOK, struct {
		Success  bool             `json:"success"`
		Solution casegen.Solution `json:"solution"`
	}{Success: true, Solution: solution})
}

func (app *application) getSolution(w http.ResponseWriter, r *http.Request) {
	sess, ok := app.caseSession(w, r)
	if !ok {
		return
	}
	sess.Touch(time.Now())

	solution, err := sess.Solution()
	if err != nil {
		app.engineError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, struct {
		casegen.Solution
		Revealed bool `json:"revealed"`
	}{Solution: solution, Revealed: true})
}
