package cache

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func band(name, role string) Band {
	return Band{Id: uuid.New(), Name: name, Role: role}
}

func names(bands []Band) []string {
	out := make([]string, 0, len(bands))
	for _, b := range bands {
		out = append(out, b.Name)
	}
	return out
}

func TestBandFetchAndSort(t *testing.T) {
	state := BandState{}.FetchStarted()
	assert.True(t, state.Loading)

	state = state.FetchSucceeded([]Band{band("Zeppelin Cover", "member"), band("Acoustic Trio", "admin")})
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"Acoustic Trio", "Zeppelin Cover"}, names(state.Bands))
}

func TestBandCreateAndUpdate(t *testing.T) {
	state := BandState{}.FetchSucceeded(nil)

	created := band("Mid Band", "admin")
	state = state.BandCreated(created)
	state = state.BandCreated(band("Aardvarks", "member"))
	assert.Equal(t, []string{"Aardvarks", "Mid Band"}, names(state.Bands))

	renamed := created
	renamed.Name = "Zebras"
	state = state.BandUpdated(renamed)
	assert.Equal(t, []string{"Aardvarks", "Zebras"}, names(state.Bands))

	// Updates for unknown bands are inserted.
	state = state.BandUpdated(band("New Arrival", "crew"))
	assert.Equal(t, []string{"Aardvarks", "New Arrival", "Zebras"}, names(state.Bands))
}

func TestBandRemoved(t *testing.T) {
	a := band("First", "admin")
	b := band("Second", "member")

	state := BandState{}.FetchSucceeded([]Band{a, b})
	state = state.BandRemoved(a.Id)
	assert.Equal(t, []string{"Second"}, names(state.Bands))
}

func TestBandFetchFailed(t *testing.T) {
	state := BandState{}.FetchStarted()
	state = state.FetchFailed(errors.New("timeout"))
	assert.False(t, state.Loading)
	assert.Equal(t, "timeout", state.Err)
}
