package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave)

	mux.Handle("GET /api/healthy", session.ThenFunc(app.healthy))
	mux.Handle("GET /api/stories", session.ThenFunc(app.listStories))

	mux.Handle("POST /api/cases", session.ThenFunc(app.createCase))
	mux.Handle("GET /api/cases/{sessionID}", session.ThenFunc(app.getCase))
	mux.Handle("POST /api/cases/{sessionID}/reset", session.ThenFunc(app.resetCase))
	mux.Handle("POST /api/cases/{sessionID}/advance", session.ThenFunc(app.advanceStory))
	mux.Handle("POST /api/cases/{sessionID}/clues/purchase", session.ThenFunc(app.purchaseClue))
	mux.Handle("GET /api/cases/{sessionID}/quiz", session.ThenFunc(app.getQuiz))
	mux.Handle("POST /api/cases/{sessionID}/quiz/finalize", session.ThenFunc(app.finalizeQuiz))
	mux.Handle("POST /api/cases/{sessionID}/solution/reveal", session.ThenFunc(app.revealSolution))
	mux.Handle("GET /api/cases/{sessionID}/solution", session.ThenFunc(app.getSolution))

	mux.Handle("GET /api/progress", session.ThenFunc(app.getProgress))
	mux.Handle("POST /api/progress", session.ThenFunc(app.saveProgress))
	mux.Handle("GET /api/progress/statistics", session.ThenFunc(app.getStatistics))
	mux.Handle("GET /api/progress/story/{storyIndex}", session.ThenFunc(app.getStoryScore))
	mux.Handle("POST /api/progress/reset", session.ThenFunc(app.resetProgress))

	return app.recoverPanic(app.logRequest(secureHeaders(mux)))
}
