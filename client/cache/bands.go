package cache

import (
	"sort"

	"bandroom/server/services"

	"github.com/google/uuid"
)

type Band struct {
	Id   uuid.UUID
	Name string

	// The caller's own role and instrument in the band.
	Role       string
	Instrument string
}

func FromBandInfo(info services.BandInfo) Band {
	return Band{
		Id:         info.Id,
		Name:       info.Name,
		Role:       info.Role,
		Instrument: info.Instrument,
	}
}

// BandState is the caller's band list, sorted by name.
type BandState struct {
	Bands []Band

	Loading bool
	Err     string
}

func sortByName(bands []Band) {
	sort.Slice(bands, func(i, j int) bool {
		return bands[i].Name < bands[j].Name
	})
}

func (s BandState) FetchStarted() BandState {
	s.Loading = true
	s.Err = ""
	return s
}

func (s BandState) FetchFailed(err error) BandState {
	s.Loading = false
	s.Err = err.Error()
	return s
}

func (s BandState) FetchSucceeded(bands []Band) BandState {
	replaced := make([]Band, len(bands))
	copy(replaced, bands)
	sortByName(replaced)

	s.Bands = replaced
	s.Loading = false
	s.Err = ""
	return s
}

func (s BandState) BandCreated(band Band) BandState {
	updated := make([]Band, 0, len(s.Bands)+1)
	updated = append(updated, s.Bands...)
	updated = append(updated, band)
	sortByName(updated)

	s.Bands = updated
	return s
}

func (s BandState) BandUpdated(band Band) BandState {
	updated := make([]Band, 0, len(s.Bands)+1)
	found := false
	for _, existing := range s.Bands {
		if existing.Id == band.Id {
			found = true
			updated = append(updated, band)
			continue
		}
		updated = append(updated, existing)
	}
	if !found {
		updated = append(updated, band)
	}
	sortByName(updated)

	s.Bands = updated
	return s
}

func (s BandState) BandRemoved(bandId uuid.UUID) BandState {
	updated := make([]Band, 0, len(s.Bands))
	for _, existing := range s.Bands {
		if existing.Id != bandId {
			updated = append(updated, existing)
		}
	}
	s.Bands = updated
	return s
}
