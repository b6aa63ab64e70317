package tests

import (
	"errors"
	"testing"

	"bandroom/server/services"

	"github.com/google/uuid"
)

func TestVenueLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("venueuser")
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.newClient().createVenue("No Auth")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("venues require auth: %v", err)
	}

	venue, err := user.createVenue("The Basement")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := user.createVenue("Annex Hall"); err != nil {
		t.Fatal(err)
	}

	var venues []services.VenueInfo
	err = user.Get("/venues").Do(&venues)
	if err != nil {
		t.Fatal(err)
	}
	if len(venues) != 2 || venues[0].Name != "Annex Hall" {
		t.Fatalf("venues should be listed by name: %v", venues)
	}

	var updated services.VenueInfo
	err = user.Put("/venues/"+venue.Id.String()).Json(map[string]string{"name": "The Basement", "city": "Austin"}).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}
	if updated.City != "Austin" {
		t.Fatalf("venue should be updated: %v", updated)
	}

	err = user.Get("/venues/" + uuid.NewString()).Do(nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing venue should 404: %v", err)
	}
}

func TestDeleteVenueDetachesRehearsals(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("venuedel")
	if err != nil {
		t.Fatal(err)
	}
	band, err := user.createBand("Displaced")
	if err != nil {
		t.Fatal(err)
	}
	venue, err := user.createVenue("Condemned Hall")
	if err != nil {
		t.Fatal(err)
	}

	body := futureRehearsalBody(band.Id, "Final Booking")
	body["venue_id"] = venue.Id
	rehearsal, err := user.createRehearsal(body)
	if err != nil {
		t.Fatal(err)
	}

	err = user.Delete("/venues/" + venue.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	// The rehearsal keeps its slot without the venue.
	loaded, err := user.getRehearsal(rehearsal.Id)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.VenueId != nil || loaded.Venue != nil {
		t.Fatalf("venue reference should be cleared: %v", loaded)
	}
}
