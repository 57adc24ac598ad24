package main

import (
	"net/http"

	"github.com/mjuvonen/truthseeker/internal/story"
)

func (app *application) listStories(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusOK, struct {
		Stories []story.Listing `json:"stories"`
	}{Stories: app.pool.Listings()})
}
