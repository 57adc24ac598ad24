package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/mjuvonen/truthseeker/internal/errors"
	"github.com/mjuvonen/truthseeker/internal/progress"
	"github.com/mjuvonen/truthseeker/internal/session"
)

const maxRequestBody = 1 << 20

// readJSON decodes the request body into dst. An empty body leaves dst
// untouched so POST endpoints without parameters accept bare requests.
func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "failed to encode response",
			slog.String("uri", r.URL.RequestURI()), errors.SlogError(err))
	}
}

// apiError is the envelope every error response uses.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, message, slog.String("code", code))
	app.writeJSON(w, r, status, apiError{Error: message, Code: code})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError,
		apiError{Error: "Internal server error", Code: "INTERNAL_ERROR"})
}

// engineError translates case engine errors into their HTTP shape. Unknown
// errors fall through to a 500.
func (app *application) engineError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *session.InsufficientPointsError
	switch {
	case errors.As(err, &insufficient):
		app.writeJSON(w, r, http.StatusBadRequest, struct {
			Error    string `json:"error"`
			Code     string `json:"code"`
			Required int    `json:"required"`
			Current  int    `json:"current"`
		}{
			Error:    "Insufficient action points",
			Code:     "INSUFFICIENT_POINTS",
			Required: insufficient.Required,
			Current:  insufficient.Current,
		})
	case errors.Is(err, session.ErrClueNotFound):
		app.errorResponse(w, r, http.StatusNotFound, "CLUE_NOT_FOUND", "Clue not found in store")
	case errors.Is(err, session.ErrClueAlreadyPurchased):
		app.errorResponse(w, r, http.StatusConflict, "CLUE_ALREADY_PURCHASED", "Clue already purchased")
	case errors.Is(err, session.ErrQuizAlreadyFinalized):
		app.errorResponse(w, r, http.StatusConflict, "QUIZ_ALREADY_SUBMITTED", "Quiz already finalized")
	case errors.Is(err, session.ErrMissingAnswers):
		app.errorResponse(w, r, http.StatusBadRequest, "MISSING_ANSWERS", "Answers required")
	case errors.Is(err, session.ErrSolutionNotRevealed):
		app.errorResponse(w, r, http.StatusForbidden, "SOLUTION_NOT_REVEALED", "Solution not revealed yet")
	case errors.Is(err, session.ErrNoMoreStories):
		app.errorResponse(w, r, http.StatusConflict, "NO_MORE_STORIES", "No more stories available")
	case errors.Is(err, progress.ErrStoryLocked):
		app.errorResponse(w, r, http.StatusForbidden, "STORY_LOCKED",
			"Story not unlocked yet. Complete the previous story first.")
	default:
		app.serverError(w, r, err)
	}
}

// caseSession resolves the path session and refreshes its idle timestamp.
// It writes the 404 envelope itself when the session is unknown.
func (app *application) caseSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := app.sessions.Get(r.PathValue("sessionID"))
	if !ok {
		app.errorResponse(w, r, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found")
		return nil, false
	}
	return sess, true
}
