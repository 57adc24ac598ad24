package main

import "net/http"

// healthy reports liveness along with the loaded story count and how many
// case sessions are in play.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, struct {
		Status         string `json:"status"`
		StoriesLoaded  int    `json:"storiesLoaded"`
		ActiveSessions int    `json:"activeSessions"`
	}{
		Status:         "ok",
		StoriesLoaded:  app.pool.Len(),
		ActiveSessions: app.sessions.Len(),
	})
}
