// Package cache maintains client-local derived views of server state.
// Every transition is a pure function from an old state to a new one,
// callers hold the current state and replace it with each result.
package cache

import (
	"sort"
	"time"

	"bandroom/server/services"

	"github.com/google/uuid"
)

type Rehearsal struct {
	Id     uuid.UUID
	BandId uuid.UUID

	Title     string
	StartTime time.Time
	EndTime   time.Time
}

func FromRehearsalInfo(info services.RehearsalInfo) Rehearsal {
	return Rehearsal{
		Id:        info.Id,
		BandId:    info.BandId,
		Title:     info.Title,
		StartTime: info.StartTime,
		EndTime:   info.EndTime,
	}
}

// UpcomingState is the "upcoming rehearsals" view: the rehearsals whose
// start time had not passed as of the last transition, ascending by
// start time. The clock is sampled only when a transition runs, so an
// entry whose start time passes between transitions stays in the view
// until the next mutation or refetch.
type UpcomingState struct {
	Rehearsals []Rehearsal

	// Loading and Err reflect the most recent request to this slice.
	// Overlapping requests overwrite each other, last write wins.
	Loading bool
	Err     string
}

func sortByStartTime(rehearsals []Rehearsal) {
	sort.Slice(rehearsals, func(i, j int) bool {
		return rehearsals[i].StartTime.Before(rehearsals[j].StartTime)
	})
}

func (s UpcomingState) FetchStarted() UpcomingState {
	s.Loading = true
	s.Err = ""
	return s
}

func (s UpcomingState) FetchFailed(err error) UpcomingState {
	s.Loading = false
	s.Err = err.Error()
	return s
}

// FetchSucceeded replaces the view wholesale with the server response.
func (s UpcomingState) FetchSucceeded(rehearsals []Rehearsal) UpcomingState {
	replaced := make([]Rehearsal, len(rehearsals))
	copy(replaced, rehearsals)
	sortByStartTime(replaced)

	s.Rehearsals = replaced
	s.Loading = false
	s.Err = ""
	return s
}

// RehearsalCreated inserts the rehearsal if it starts at or after now.
func (s UpcomingState) RehearsalCreated(rehearsal Rehearsal, now time.Time) UpcomingState {
	if rehearsal.StartTime.Before(now) {
		return s
	}

	updated := make([]Rehearsal, 0, len(s.Rehearsals)+1)
	updated = append(updated, s.Rehearsals...)
	updated = append(updated, rehearsal)
	sortByStartTime(updated)

	s.Rehearsals = updated
	return s
}

// RehearsalUpdated replaces, removes, or inserts the entry depending on
// whether it is present and whether its new start time is still in the
// future relative to now.
func (s UpcomingState) RehearsalUpdated(rehearsal Rehearsal, now time.Time) UpcomingState {
	upcoming := !rehearsal.StartTime.Before(now)

	updated := make([]Rehearsal, 0, len(s.Rehearsals)+1)
	found := false
	for _, existing := range s.Rehearsals {
		if existing.Id == rehearsal.Id {
			found = true
			if upcoming {
				updated = append(updated, rehearsal)
			}
			continue
		}
		updated = append(updated, existing)
	}

	if !found {
		if !upcoming {
			return s
		}
		updated = append(updated, rehearsal)
	}
	sortByStartTime(updated)

	s.Rehearsals = updated
	return s
}

func (s UpcomingState) RehearsalDeleted(rehearsalId uuid.UUID) UpcomingState {
	updated := make([]Rehearsal, 0, len(s.Rehearsals))
	for _, existing := range s.Rehearsals {
		if existing.Id != rehearsalId {
			updated = append(updated, existing)
		}
	}
	s.Rehearsals = updated
	return s
}
