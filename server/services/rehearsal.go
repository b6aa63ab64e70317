package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"bandroom/server/auth"
	"bandroom/server/schema"
	"bandroom/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RehearsalService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *RehearsalService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)
	r.Get("/", s.ListUpcoming)

	r.With(auth.BandMemberOnly(s.db)).Get("/band/{band_id}", s.ListForBand)

	r.Route("/{rehearsal_id}", func(r chi.Router) {
		r.With(auth.RehearsalMemberOnly(s.db)).Get("/", s.Detail)
		r.With(auth.RehearsalAdminOnly(s.db)).Put("/", s.Update)
		r.With(auth.RehearsalAdminOnly(s.db)).Delete("/", s.Delete)

		r.With(auth.RehearsalMemberOnly(s.db)).Post("/attendance", s.UpdateAttendance)
	})

	return r
}

type AttendanceInfo struct {
	UserId uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Note   string    `json:"note"`
}

type RehearsalInfo struct {
	Id     uuid.UUID `json:"id"`
	BandId uuid.UUID `json:"band_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`

	CreatedBy uuid.UUID `json:"created_by"`

	VenueId *uuid.UUID `json:"venue_id,omitempty"`
	Venue   *VenueInfo `json:"venue,omitempty"`

	Attendances []AttendanceInfo `json:"attendances,omitempty"`
}

func convertToRehearsalInfo(rehearsal *schema.Rehearsal) RehearsalInfo {
	info := RehearsalInfo{
		Id:                rehearsal.Id,
		BandId:            rehearsal.BandId,
		Title:             rehearsal.Title,
		Description:       rehearsal.Description,
		StartTime:         rehearsal.StartTime,
		EndTime:           rehearsal.EndTime,
		IsRecurring:       rehearsal.IsRecurring,
		RecurrencePattern: rehearsal.RecurrencePattern,
		CreatedBy:         rehearsal.CreatedBy,
		VenueId:           rehearsal.VenueId,
	}
	if rehearsal.Venue != nil {
		venue := convertToVenueInfo(rehearsal.Venue)
		info.Venue = &venue
	}
	for _, attendance := range rehearsal.Attendances {
		entry := AttendanceInfo{
			UserId: attendance.UserId,
			Status: attendance.Status,
			Note:   attendance.Note,
		}
		if attendance.User != nil {
			entry.Name = attendance.User.FullName()
		}
		info.Attendances = append(info.Attendances, entry)
	}
	return info
}

type createRehearsalRequest struct {
	BandId  uuid.UUID  `json:"band_id"`
	VenueId *uuid.UUID `json:"venue_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern"`
}

func validateRehearsalTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return CodedError(errors.New("start_time and end_time must be specified"), http.StatusBadRequest)
	}
	if !start.Before(end) {
		return CodedError(errors.New("start_time must be before end_time"), http.StatusUnprocessableEntity)
	}
	return nil
}

func (s *RehearsalService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createRehearsalRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.BandId == uuid.Nil {
		http.Error(w, "band_id must be specified", http.StatusBadRequest)
		return
	}
	if params.Title == "" {
		http.Error(w, "title must be specified", http.StatusBadRequest)
		return
	}
	if err := validateRehearsalTimes(params.StartTime, params.EndTime); err != nil {
		http.Error(w, err.Error(), GetResponseCode(err))
		return
	}

	rehearsal := schema.Rehearsal{
		Id:                uuid.New(),
		BandId:            params.BandId,
		VenueId:           params.VenueId,
		Title:             params.Title,
		Description:       params.Description,
		StartTime:         params.StartTime,
		EndTime:           params.EndTime,
		IsRecurring:       params.IsRecurring,
		RecurrencePattern: params.RecurrencePattern,
		CreatedBy:         user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkBandExists(txn, params.BandId); err != nil {
			return err
		}

		isMember, err := auth.IsBandMember(params.BandId, user.Id, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if !isMember {
			return CodedError(errors.New("user must be a member of the band to schedule rehearsals"), http.StatusForbidden)
		}

		if params.VenueId != nil {
			if err := checkVenueExists(txn, *params.VenueId); err != nil {
				return err
			}
		}

		result := txn.Create(&rehearsal)
		if result.Error != nil {
			slog.Error("sql error creating rehearsal", "band_id", params.BandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		// Seed a no_response attendance row for every current member in
		// the same transaction, so a rehearsal is never visible without
		// its attendance records.
		var members []schema.BandMember
		result = txn.Find(&members, "band_id = ?", params.BandId)
		if result.Error != nil {
			slog.Error("sql error listing band members for attendance seed", "band_id", params.BandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		attendances := make([]schema.Attendance, 0, len(members))
		for _, member := range members {
			attendances = append(attendances, schema.Attendance{
				Id:          uuid.New(),
				RehearsalId: rehearsal.Id,
				UserId:      member.UserId,
				Status:      schema.AttendanceNoResponse,
			})
		}
		if len(attendances) > 0 {
			result = txn.Create(&attendances)
			if result.Error != nil {
				slog.Error("sql error seeding attendances", "rehearsal_id", rehearsal.Id, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating rehearsal: %v", err), GetResponseCode(err))
		return
	}

	created, err := schema.GetRehearsal(rehearsal.Id, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading new rehearsal: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRehearsalInfo(&created))
}

func (s *RehearsalService) ListForBand(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rehearsals []schema.Rehearsal
	result := s.db.
		Preload("Venue").Preload("Attendances").Preload("Attendances.User").
		Order("start_time ASC").
		Find(&rehearsals, "band_id = ?", bandId)
	if result.Error != nil {
		slog.Error("sql error listing band rehearsals", "band_id", bandId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing rehearsals: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]RehearsalInfo, 0, len(rehearsals))
	for _, rehearsal := range rehearsals {
		infos = append(infos, convertToRehearsalInfo(&rehearsal))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *RehearsalService) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	bandIds, err := schema.GetUserBandIds(user.Id, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("error listing rehearsals: %v", err), http.StatusInternalServerError)
		return
	}

	infos := make([]RehearsalInfo, 0)
	if len(bandIds) == 0 {
		utils.WriteJsonResponse(w, infos)
		return
	}

	query := s.db.
		Preload("Venue").Preload("Attendances").Preload("Attendances.User").
		Where("band_id IN ?", bandIds).
		Order("start_time ASC")

	if utils.QueryFlag(r, "upcoming") {
		query = query.Where("start_time >= ?", time.Now().UTC())
	}

	var rehearsals []schema.Rehearsal
	result := query.Find(&rehearsals)
	if result.Error != nil {
		slog.Error("sql error listing user rehearsals", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing rehearsals: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	for _, rehearsal := range rehearsals {
		infos = append(infos, convertToRehearsalInfo(&rehearsal))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *RehearsalService) Detail(w http.ResponseWriter, r *http.Request) {
	rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rehearsal, err := schema.GetRehearsal(rehearsalId, s.db, true)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, schema.ErrRehearsalNotFound) {
			responseCode = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("error getting rehearsal %v: %v", rehearsalId, err), responseCode)
		return
	}

	utils.WriteJsonResponse(w, convertToRehearsalInfo(&rehearsal))
}

type updateRehearsalRequest struct {
	VenueId *uuid.UUID `json:"venue_id"`

	Title       *string `json:"title"`
	Description *string `json:"description"`

	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	IsRecurring       *bool   `json:"is_recurring"`
	RecurrencePattern *string `json:"recurrence_pattern"`
}

func (s *RehearsalService) Update(w http.ResponseWriter, r *http.Request) {
	rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateRehearsalRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		rehearsal, err := schema.GetRehearsal(rehearsalId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrRehearsalNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.Title != nil {
			if *params.Title == "" {
				return CodedError(errors.New("title cannot be empty"), http.StatusUnprocessableEntity)
			}
			rehearsal.Title = *params.Title
		}
		if params.Description != nil {
			rehearsal.Description = *params.Description
		}
		if params.StartTime != nil {
			rehearsal.StartTime = *params.StartTime
		}
		if params.EndTime != nil {
			rehearsal.EndTime = *params.EndTime
		}
		if !rehearsal.StartTime.Before(rehearsal.EndTime) {
			return CodedError(errors.New("start_time must be before end_time"), http.StatusUnprocessableEntity)
		}
		if params.IsRecurring != nil {
			rehearsal.IsRecurring = *params.IsRecurring
		}
		if params.RecurrencePattern != nil {
			rehearsal.RecurrencePattern = *params.RecurrencePattern
		}
		if params.VenueId != nil {
			if *params.VenueId == uuid.Nil {
				rehearsal.VenueId = nil
			} else {
				if err := checkVenueExists(txn, *params.VenueId); err != nil {
					return err
				}
				rehearsal.VenueId = params.VenueId
			}
		}

		result := txn.Save(&rehearsal)
		if result.Error != nil {
			slog.Error("sql error updating rehearsal", "rehearsal_id", rehearsalId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating rehearsal %v: %v", rehearsalId, err), GetResponseCode(err))
		return
	}

	updated, err := schema.GetRehearsal(rehearsalId, s.db, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading updated rehearsal: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToRehearsalInfo(&updated))
}

func (s *RehearsalService) Delete(w http.ResponseWriter, r *http.Request) {
	rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := schema.GetRehearsal(rehearsalId, txn, false); err != nil {
			if errors.Is(err, schema.ErrRehearsalNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		var setlistIds []uuid.UUID
		result := txn.Model(&schema.Setlist{}).Where("rehearsal_id = ?", rehearsalId).Pluck("id", &setlistIds)
		if result.Error != nil {
			slog.Error("sql error listing setlists for delete", "rehearsal_id", rehearsalId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if len(setlistIds) > 0 {
			if result := txn.Where("setlist_id IN ?", setlistIds).Delete(&schema.SetlistItem{}); result.Error != nil {
				slog.Error("sql error deleting setlist items", "rehearsal_id", rehearsalId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if result := txn.Where("id IN ?", setlistIds).Delete(&schema.Setlist{}); result.Error != nil {
				slog.Error("sql error deleting setlists", "rehearsal_id", rehearsalId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		if result := txn.Where("rehearsal_id = ?", rehearsalId).Delete(&schema.Attendance{}); result.Error != nil {
			slog.Error("sql error deleting attendances", "rehearsal_id", rehearsalId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.Rehearsal{Id: rehearsalId}); result.Error != nil {
			slog.Error("sql error deleting rehearsal", "rehearsal_id", rehearsalId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting rehearsal %v: %v", rehearsalId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type updateAttendanceRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *RehearsalService) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateAttendanceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if err := schema.CheckValidAttendanceStatus(params.Status); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	// no_response is the seeded default, users respond with one of the
	// other three statuses.
	if params.Status == schema.AttendanceNoResponse {
		http.Error(w, "status must be one of confirmed, declined, or tentative", http.StatusUnprocessableEntity)
		return
	}

	var attendance schema.Attendance
	err = s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Limit(1).Find(&attendance, "rehearsal_id = ? and user_id = ?", rehearsalId, user.Id)
		if result.Error != nil {
			slog.Error("sql error loading attendance", "rehearsal_id", rehearsalId, "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result.RowsAffected == 0 {
			// Members added after the rehearsal was scheduled have no
			// seeded row, the upsert creates it.
			attendance = schema.Attendance{
				Id:          uuid.New(),
				RehearsalId: rehearsalId,
				UserId:      user.Id,
			}
		}
		attendance.Status = params.Status
		attendance.Note = params.Note

		result = txn.Save(&attendance)
		if result.Error != nil {
			slog.Error("sql error saving attendance", "rehearsal_id", rehearsalId, "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating attendance: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, AttendanceInfo{
		UserId: user.Id,
		Name:   user.FullName(),
		Status: attendance.Status,
		Note:   attendance.Note,
	})
}
