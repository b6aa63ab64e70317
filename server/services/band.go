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

type BandService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *BandService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)
	r.Get("/", s.List)

	r.Route("/{band_id}", func(r chi.Router) {
		r.With(auth.BandMemberOnly(s.db)).Get("/", s.Detail)
		r.With(auth.BandAdminOnly(s.db)).Put("/", s.Update)
		r.With(auth.BandAdminOnly(s.db)).Delete("/", s.Delete)

		r.With(auth.BandMemberOnly(s.db)).Get("/members", s.ListMembers)
		r.With(auth.BandAdminOnly(s.db)).Post("/members", s.AddMember)
		r.With(auth.BandAdminOnly(s.db)).Delete("/members/{user_id}", s.RemoveMember)
	})

	return r
}

type BandInfo struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	LogoUrl     string    `json:"logo_url"`
	CreatedBy   uuid.UUID `json:"created_by"`

	// Role and Instrument describe the calling user's own membership.
	// They are only populated on list responses.
	Role       string `json:"role,omitempty"`
	Instrument string `json:"instrument,omitempty"`

	Members []BandMemberInfo `json:"members,omitempty"`
}

type BandMemberInfo struct {
	UserId     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Instrument string    `json:"instrument"`
	JoinDate   time.Time `json:"join_date"`
}

func convertToBandInfo(band *schema.Band) BandInfo {
	info := BandInfo{
		Id:          band.Id,
		Name:        band.Name,
		Description: band.Description,
		LogoUrl:     band.LogoUrl,
		CreatedBy:   band.CreatedBy,
	}
	for _, member := range band.Members {
		info.Members = append(info.Members, convertToBandMemberInfo(&member))
	}
	return info
}

func convertToBandMemberInfo(member *schema.BandMember) BandMemberInfo {
	info := BandMemberInfo{
		UserId:     member.UserId,
		Role:       member.Role,
		Instrument: member.Instrument,
		JoinDate:   member.JoinDate,
	}
	if member.User != nil {
		info.Name = member.User.FullName()
		info.Email = member.User.Email
	}
	return info
}

type createBandRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoUrl     string `json:"logo_url"`
	Instrument  string `json:"instrument"`
}

func (s *BandService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createBandRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "band name must be specified", http.StatusBadRequest)
		return
	}

	band := schema.Band{
		Id:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		LogoUrl:     params.LogoUrl,
		CreatedBy:   user.Id,
	}

	// The creator always joins as an admin in the same transaction, so a
	// band is never observable without at least one admin.
	err = s.db.Transaction(func(txn *gorm.DB) error {
		result := txn.Create(&band)
		if result.Error != nil {
			slog.Error("sql error creating band", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		member := schema.BandMember{
			Id:         uuid.New(),
			BandId:     band.Id,
			UserId:     user.Id,
			Role:       schema.BandRoleAdmin,
			Instrument: params.Instrument,
			JoinDate:   time.Now().UTC(),
		}
		result = txn.Create(&member)
		if result.Error != nil {
			slog.Error("sql error creating band creator membership", "band_id", band.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating band: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToBandInfo(&band))
}

func (s *BandService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var memberships []schema.BandMember
	result := s.db.Preload("Band").Find(&memberships, "user_id = ?", user.Id)
	if result.Error != nil {
		slog.Error("sql error listing user bands", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing bands: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]BandInfo, 0, len(memberships))
	for _, membership := range memberships {
		if membership.Band == nil {
			continue
		}
		info := convertToBandInfo(membership.Band)
		info.Role = membership.Role
		info.Instrument = membership.Instrument
		infos = append(infos, info)
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *BandService) Detail(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	band, err := schema.GetBand(bandId, s.db, true)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, schema.ErrBandNotFound) {
			responseCode = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("error getting band %v: %v", bandId, err), responseCode)
		return
	}

	utils.WriteJsonResponse(w, convertToBandInfo(&band))
}

type updateBandRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LogoUrl     *string `json:"logo_url"`
}

func (s *BandService) Update(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateBandRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name != nil && *params.Name == "" {
		http.Error(w, "band name cannot be empty", http.StatusUnprocessableEntity)
		return
	}

	var band schema.Band
	err = s.db.Transaction(func(txn *gorm.DB) error {
		band, err = schema.GetBand(bandId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrBandNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if params.Name != nil {
			band.Name = *params.Name
		}
		if params.Description != nil {
			band.Description = *params.Description
		}
		if params.LogoUrl != nil {
			band.LogoUrl = *params.LogoUrl
		}

		result := txn.Save(&band)
		if result.Error != nil {
			slog.Error("sql error updating band", "band_id", bandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating band %v: %v", bandId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToBandInfo(&band))
}

func (s *BandService) Delete(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkBandExists(txn, bandId); err != nil {
			return err
		}

		var rehearsalIds []uuid.UUID
		result := txn.Model(&schema.Rehearsal{}).Where("band_id = ?", bandId).Pluck("id", &rehearsalIds)
		if result.Error != nil {
			slog.Error("sql error listing band rehearsals for delete", "band_id", bandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if len(rehearsalIds) > 0 {
			var setlistIds []uuid.UUID
			result = txn.Model(&schema.Setlist{}).Where("rehearsal_id IN ?", rehearsalIds).Pluck("id", &setlistIds)
			if result.Error != nil {
				slog.Error("sql error listing band setlists for delete", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}

			if len(setlistIds) > 0 {
				if result := txn.Where("setlist_id IN ?", setlistIds).Delete(&schema.SetlistItem{}); result.Error != nil {
					slog.Error("sql error deleting setlist items", "band_id", bandId, "error", result.Error)
					return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
				}
				if result := txn.Where("id IN ?", setlistIds).Delete(&schema.Setlist{}); result.Error != nil {
					slog.Error("sql error deleting setlists", "band_id", bandId, "error", result.Error)
					return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
				}
			}

			if result := txn.Where("rehearsal_id IN ?", rehearsalIds).Delete(&schema.Attendance{}); result.Error != nil {
				slog.Error("sql error deleting attendances", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if result := txn.Where("band_id = ?", bandId).Delete(&schema.Rehearsal{}); result.Error != nil {
				slog.Error("sql error deleting rehearsals", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		var songIds []uuid.UUID
		result = txn.Model(&schema.Song{}).Where("band_id = ?", bandId).Pluck("id", &songIds)
		if result.Error != nil {
			slog.Error("sql error listing band songs for delete", "band_id", bandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if len(songIds) > 0 {
			if result := txn.Where("song_id IN ?", songIds).Delete(&schema.SongAttachment{}); result.Error != nil {
				slog.Error("sql error deleting song attachments", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if result := txn.Where("band_id = ?", bandId).Delete(&schema.Song{}); result.Error != nil {
				slog.Error("sql error deleting songs", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		if result := txn.Where("band_id = ?", bandId).Delete(&schema.BandMember{}); result.Error != nil {
			slog.Error("sql error deleting band members", "band_id", bandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.Band{Id: bandId}); result.Error != nil {
			slog.Error("sql error deleting band", "band_id", bandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting band %v: %v", bandId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *BandService) ListMembers(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var members []schema.BandMember
	result := s.db.Preload("User").Order("join_date ASC").Find(&members, "band_id = ?", bandId)
	if result.Error != nil {
		slog.Error("sql error listing band members", "band_id", bandId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing members: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]BandMemberInfo, 0, len(members))
	for _, member := range members {
		infos = append(infos, convertToBandMemberInfo(&member))
	}

	utils.WriteJsonResponse(w, infos)
}

type addMemberRequest struct {
	UserId     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	Instrument string    `json:"instrument"`
}

func (s *BandService) AddMember(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params addMemberRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.UserId == uuid.Nil {
		http.Error(w, "user_id must be specified", http.StatusBadRequest)
		return
	}

	if params.Role == "" {
		params.Role = schema.BandRoleMember
	}
	if err := schema.CheckValidBandRole(params.Role); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	member := schema.BandMember{
		Id:         uuid.New(),
		BandId:     bandId,
		UserId:     params.UserId,
		Role:       params.Role,
		Instrument: params.Instrument,
		JoinDate:   time.Now().UTC(),
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.UserId); err != nil {
			return err
		}

		exists, err := auth.IsBandMember(bandId, params.UserId, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if exists {
			return CodedError(fmt.Errorf("user %v is already a member of band %v", params.UserId, bandId), http.StatusConflict)
		}

		result := txn.Create(&member)
		if result.Error != nil {
			// The unique index on (band_id, user_id) closes the race
			// between the check above and this insert.
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return CodedError(fmt.Errorf("user %v is already a member of band %v", params.UserId, bandId), http.StatusConflict)
			}
			slog.Error("sql error adding band member", "band_id", bandId, "user_id", params.UserId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error adding member to band %v: %v", bandId, err), GetResponseCode(err))
		return
	}

	user, err := schema.GetUser(params.UserId, s.db)
	if err == nil {
		member.User = &user
	}

	utils.WriteJsonResponse(w, convertToBandMemberInfo(&member))
}

func (s *BandService) RemoveMember(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		member, err := schema.GetBandMember(bandId, userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrBandMemberNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		// The admin count and the delete run in the same transaction so
		// concurrent removals cannot leave the band without an admin.
		if member.Role == schema.BandRoleAdmin {
			var admins int64
			result := txn.Model(&schema.BandMember{}).
				Where("band_id = ? and role = ?", bandId, schema.BandRoleAdmin).
				Count(&admins)
			if result.Error != nil {
				slog.Error("sql error counting band admins", "band_id", bandId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
			if admins <= 1 {
				return CodedError(errors.New("cannot remove the last admin of a band"), http.StatusForbidden)
			}
		}

		result := txn.Delete(&schema.BandMember{Id: member.Id})
		if result.Error != nil {
			slog.Error("sql error removing band member", "band_id", bandId, "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result = txn.Where(
			"user_id = ? and rehearsal_id in (?)",
			userId,
			txn.Model(&schema.Rehearsal{}).Select("id").Where("band_id = ?", bandId),
		).Delete(&schema.Attendance{})
		if result.Error != nil {
			slog.Error("sql error removing member attendances", "band_id", bandId, "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error removing member from band %v: %v", bandId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
