package cache

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func rehearsalAt(start time.Time) Rehearsal {
	return Rehearsal{
		Id:        uuid.New(),
		BandId:    uuid.New(),
		Title:     "Practice",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	}
}

func ids(rehearsals []Rehearsal) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rehearsals))
	for _, r := range rehearsals {
		out = append(out, r.Id)
	}
	return out
}

func TestFetchReplacesView(t *testing.T) {
	a := rehearsalAt(now.Add(time.Hour))
	b := rehearsalAt(now.Add(2 * time.Hour))

	state := UpcomingState{}.FetchStarted()
	assert.True(t, state.Loading)

	state = state.FetchSucceeded([]Rehearsal{b, a})
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
	assert.Equal(t, []uuid.UUID{a.Id, b.Id}, ids(state.Rehearsals))

	c := rehearsalAt(now.Add(3 * time.Hour))
	state = state.FetchSucceeded([]Rehearsal{c})
	assert.Equal(t, []uuid.UUID{c.Id}, ids(state.Rehearsals))
}

func TestFetchErrorLastWriteWins(t *testing.T) {
	state := UpcomingState{}.FetchStarted()
	state = state.FetchFailed(errors.New("network down"))
	assert.False(t, state.Loading)
	assert.Equal(t, "network down", state.Err)

	// The next request to the slice overwrites the previous outcome.
	state = state.FetchStarted()
	assert.True(t, state.Loading)
	assert.Empty(t, state.Err)

	state = state.FetchSucceeded(nil)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
}

func TestCreateInsertsOnlyFuture(t *testing.T) {
	state := UpcomingState{}

	past := rehearsalAt(now.Add(-time.Hour))
	state = state.RehearsalCreated(past, now)
	assert.Empty(t, state.Rehearsals)

	later := rehearsalAt(now.Add(4 * time.Hour))
	sooner := rehearsalAt(now.Add(time.Hour))
	state = state.RehearsalCreated(later, now)
	state = state.RehearsalCreated(sooner, now)
	assert.Equal(t, []uuid.UUID{sooner.Id, later.Id}, ids(state.Rehearsals))

	exact := rehearsalAt(now)
	state = state.RehearsalCreated(exact, now)
	assert.Equal(t, []uuid.UUID{exact.Id, sooner.Id, later.Id}, ids(state.Rehearsals))
}

func TestUpdateRules(t *testing.T) {
	a := rehearsalAt(now.Add(time.Hour))
	b := rehearsalAt(now.Add(2 * time.Hour))

	state := UpcomingState{}.FetchSucceeded([]Rehearsal{a, b})

	// Found, still upcoming: replaced in place and resorted.
	moved := a
	moved.StartTime = now.Add(3 * time.Hour)
	state = state.RehearsalUpdated(moved, now)
	assert.Equal(t, []uuid.UUID{b.Id, a.Id}, ids(state.Rehearsals))

	// Found, now past: removed.
	gone := b
	gone.StartTime = now.Add(-time.Minute)
	state = state.RehearsalUpdated(gone, now)
	assert.Equal(t, []uuid.UUID{a.Id}, ids(state.Rehearsals))

	// Not found, upcoming: inserted.
	c := rehearsalAt(now.Add(time.Minute))
	state = state.RehearsalUpdated(c, now)
	assert.Equal(t, []uuid.UUID{c.Id, a.Id}, ids(state.Rehearsals))

	// Not found, past: no-op.
	d := rehearsalAt(now.Add(-48 * time.Hour))
	state = state.RehearsalUpdated(d, now)
	assert.Equal(t, []uuid.UUID{c.Id, a.Id}, ids(state.Rehearsals))
}

func TestPastUpdateNeverEntersView(t *testing.T) {
	yesterday := rehearsalAt(now.Add(-24 * time.Hour))

	state := UpcomingState{}.FetchSucceeded(nil)
	assert.Empty(t, state.Rehearsals)

	state = state.RehearsalUpdated(yesterday, now)
	assert.Empty(t, state.Rehearsals)
}

// The clock is sampled per transition, so an entry whose start time
// passes between transitions stays visible until the next mutation
// touches it.
func TestStalenessWindow(t *testing.T) {
	soon := rehearsalAt(now.Add(time.Minute))

	state := UpcomingState{}.RehearsalCreated(soon, now)
	require.Len(t, state.Rehearsals, 1)

	later := now.Add(time.Hour)

	// Unrelated mutations do not re-evaluate existing entries.
	other := rehearsalAt(later.Add(time.Hour))
	state = state.RehearsalCreated(other, later)
	assert.Equal(t, []uuid.UUID{soon.Id, other.Id}, ids(state.Rehearsals))

	// An update touching the stale entry evaluates it against the new
	// clock and drops it.
	state = state.RehearsalUpdated(soon, later)
	assert.Equal(t, []uuid.UUID{other.Id}, ids(state.Rehearsals))
}

func TestViewMatchesFilterSortAfterMutationSequence(t *testing.T) {
	state := UpcomingState{}

	all := map[uuid.UUID]Rehearsal{}
	apply := func(r Rehearsal, create bool) {
		all[r.Id] = r
		if create {
			state = state.RehearsalCreated(r, now)
		} else {
			state = state.RehearsalUpdated(r, now)
		}
	}

	initial := []Rehearsal{
		rehearsalAt(now.Add(5 * time.Hour)),
		rehearsalAt(now.Add(time.Hour)),
	}
	for _, r := range initial {
		all[r.Id] = r
	}
	state = state.FetchSucceeded(initial)

	apply(rehearsalAt(now.Add(-2*time.Hour)), true)
	apply(rehearsalAt(now.Add(3*time.Hour)), true)

	moved := initial[0]
	moved.StartTime = now.Add(30 * time.Minute)
	apply(moved, false)

	cancelled := initial[1]
	cancelled.StartTime = now.Add(-time.Minute)
	apply(cancelled, false)

	apply(rehearsalAt(now.Add(10*time.Hour)), false)

	expected := make([]Rehearsal, 0)
	for _, r := range all {
		if !r.StartTime.Before(now) {
			expected = append(expected, r)
		}
	}
	sort.Slice(expected, func(i, j int) bool {
		return expected[i].StartTime.Before(expected[j].StartTime)
	})

	require.Equal(t, ids(expected), ids(state.Rehearsals))
}

func TestRehearsalDeleted(t *testing.T) {
	a := rehearsalAt(now.Add(time.Hour))
	b := rehearsalAt(now.Add(2 * time.Hour))

	state := UpcomingState{}.FetchSucceeded([]Rehearsal{a, b})
	state = state.RehearsalDeleted(a.Id)
	assert.Equal(t, []uuid.UUID{b.Id}, ids(state.Rehearsals))

	state = state.RehearsalDeleted(uuid.New())
	assert.Equal(t, []uuid.UUID{b.Id}, ids(state.Rehearsals))
}

func TestTransitionsDoNotMutateInputs(t *testing.T) {
	a := rehearsalAt(now.Add(time.Hour))
	original := UpcomingState{}.FetchSucceeded([]Rehearsal{a})

	b := rehearsalAt(now.Add(30 * time.Minute))
	derived := original.RehearsalCreated(b, now)

	assert.Equal(t, []uuid.UUID{a.Id}, ids(original.Rehearsals))
	assert.Equal(t, []uuid.UUID{b.Id, a.Id}, ids(derived.Rehearsals))
}
