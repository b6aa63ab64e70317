package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrBandNotFound       = errors.New("band not found")
	ErrBandMemberNotFound = errors.New("user is not a member of band")
	ErrRehearsalNotFound  = errors.New("rehearsal not found")
	ErrVenueNotFound      = errors.New("venue not found")
	ErrSongNotFound       = errors.New("song not found")
	ErrSetlistNotFound    = errors.New("setlist not found")
	ErrDbAccessFailed     = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetBand(bandId uuid.UUID, db *gorm.DB, loadMembers bool) (Band, error) {
	var band Band

	var result *gorm.DB = db
	if loadMembers {
		result = result.Preload("Members").Preload("Members.User")
	}
	result = result.First(&band, "id = ?", bandId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return band, ErrBandNotFound
		}
		slog.Error("sql error in get band", "band_id", bandId, "error", result.Error)
		return band, ErrDbAccessFailed
	}

	return band, nil
}

func GetBandMember(bandId, userId uuid.UUID, db *gorm.DB) (BandMember, error) {
	var member BandMember

	result := db.First(&member, "band_id = ? and user_id = ?", bandId, userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return member, ErrBandMemberNotFound
		}
		slog.Error("sql error in get band member", "band_id", bandId, "user_id", userId, "error", result.Error)
		return member, ErrDbAccessFailed
	}

	return member, nil
}

func GetRehearsal(rehearsalId uuid.UUID, db *gorm.DB, loadDetails bool) (Rehearsal, error) {
	var rehearsal Rehearsal

	var result *gorm.DB = db
	if loadDetails {
		result = result.
			Preload("Band").Preload("Venue").Preload("Creator").
			Preload("Attendances").Preload("Attendances.User")
	}
	result = result.First(&rehearsal, "id = ?", rehearsalId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return rehearsal, ErrRehearsalNotFound
		}
		slog.Error("sql error in get rehearsal", "rehearsal_id", rehearsalId, "error", result.Error)
		return rehearsal, ErrDbAccessFailed
	}

	return rehearsal, nil
}

func GetVenue(venueId uuid.UUID, db *gorm.DB) (Venue, error) {
	var venue Venue

	result := db.First(&venue, "id = ?", venueId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return venue, ErrVenueNotFound
		}
		slog.Error("sql error in get venue", "venue_id", venueId, "error", result.Error)
		return venue, ErrDbAccessFailed
	}

	return venue, nil
}

func GetSong(songId uuid.UUID, db *gorm.DB, loadAttachments bool) (Song, error) {
	var song Song

	var result *gorm.DB = db
	if loadAttachments {
		result = result.Preload("Attachments")
	}
	result = result.First(&song, "id = ?", songId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return song, ErrSongNotFound
		}
		slog.Error("sql error in get song", "song_id", songId, "error", result.Error)
		return song, ErrDbAccessFailed
	}

	return song, nil
}

func GetSetlist(setlistId uuid.UUID, db *gorm.DB, loadItems bool) (Setlist, error) {
	var setlist Setlist

	var result *gorm.DB = db
	if loadItems {
		result = result.Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("setlist_items.position ASC")
		}).Preload("Items.Song")
	}
	result = result.First(&setlist, "id = ?", setlistId)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return setlist, ErrSetlistNotFound
		}
		slog.Error("sql error in get setlist", "setlist_id", setlistId, "error", result.Error)
		return setlist, ErrDbAccessFailed
	}

	return setlist, nil
}

func GetUserBandIds(userId uuid.UUID, db *gorm.DB) ([]uuid.UUID, error) {
	var memberships []BandMember
	result := db.Find(&memberships, "user_id = ?", userId)
	if result.Error != nil {
		slog.Error("sql error in get user band ids", "user_id", userId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, membership := range memberships {
		ids = append(ids, membership.BandId)
	}
	return ids, nil
}
