package services

import (
	"errors"
	"log/slog"
	"net/http"

	"bandroom/server/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkBandExists(txn *gorm.DB, bandId uuid.UUID) error {
	if _, err := schema.GetBand(bandId, txn, false); err != nil {
		if errors.Is(err, schema.ErrBandNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkVenueExists(txn *gorm.DB, venueId uuid.UUID) error {
	if _, err := schema.GetVenue(venueId, txn); err != nil {
		if errors.Is(err, schema.ErrVenueNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkSongExists(txn *gorm.DB, songId uuid.UUID) error {
	if _, err := schema.GetSong(songId, txn, false); err != nil {
		if errors.Is(err, schema.ErrSongNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}
