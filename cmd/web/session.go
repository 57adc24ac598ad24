package main

import (
	"net/http"

	"github.com/mjuvonen/truthseeker/internal/progress"
	"github.com/mjuvonen/truthseeker/internal/random"
)

const playerIDSessionKey = "playerID"

const playerIDLength = 16

// playerID resolves which player a request acts for. An explicit playerId
// from the body or query string wins so non-browser clients work without
// cookies. Otherwise the cookie session identifies the player and a fresh id
// is minted on first contact.
func (app *application) playerID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id := r.URL.Query().Get("playerId"); id != "" {
		return id
	}
	if id := app.sessionManager.GetString(r.Context(), playerIDSessionKey); id != "" {
		return id
	}
	id, err := random.Letters(playerIDLength)
	if err != nil {
		return progress.DefaultPlayerID
	}
	app.sessionManager.Put(r.Context(), playerIDSessionKey, id)
	return id
}
