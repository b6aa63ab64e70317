package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"bandroom/server/auth"
	"bandroom/server/schema"
	"bandroom/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SongService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *SongService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)

	r.With(auth.BandMemberOnly(s.db)).Get("/band/{band_id}", s.ListForBand)

	r.Route("/{song_id}", func(r chi.Router) {
		r.Get("/", s.Detail)
		r.Put("/", s.Update)
		r.Delete("/", s.Delete)

		r.Post("/attachments", s.AddAttachment)
		r.Delete("/attachments/{attachment_id}", s.RemoveAttachment)
	})

	return r
}

type SongAttachmentInfo struct {
	Id       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FileUrl  string    `json:"file_url"`
	FileType string    `json:"file_type"`
}

type SongInfo struct {
	Id     uuid.UUID `json:"id"`
	BandId uuid.UUID `json:"band_id"`

	Title  string `json:"title"`
	Artist string `json:"artist"`
	Key    string `json:"key"`
	Tempo  int    `json:"tempo"`
	// Duration in seconds.
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`

	Attachments []SongAttachmentInfo `json:"attachments,omitempty"`
}

func convertToSongInfo(song *schema.Song) SongInfo {
	info := SongInfo{
		Id:       song.Id,
		BandId:   song.BandId,
		Title:    song.Title,
		Artist:   song.Artist,
		Key:      song.Key,
		Tempo:    song.Tempo,
		Duration: song.Duration,
		Notes:    song.Notes,
	}
	for _, attachment := range song.Attachments {
		info.Attachments = append(info.Attachments, SongAttachmentInfo{
			Id:       attachment.Id,
			Name:     attachment.Name,
			FileUrl:  attachment.FileUrl,
			FileType: attachment.FileType,
		})
	}
	return info
}

// songBandRole loads the song and checks the caller's membership of the
// owning band. Returns the song on success.
func (s *SongService) songBandRole(r *http.Request, songId uuid.UUID, adminOnly bool) (schema.Song, error) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		return schema.Song{}, CodedError(err, http.StatusInternalServerError)
	}

	song, err := schema.GetSong(songId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrSongNotFound) {
			return song, CodedError(err, http.StatusNotFound)
		}
		return song, CodedError(err, http.StatusInternalServerError)
	}

	var allowed bool
	if adminOnly {
		allowed, err = auth.IsBandAdmin(song.BandId, user.Id, s.db)
	} else {
		allowed, err = auth.IsBandMember(song.BandId, user.Id, s.db)
	}
	if err != nil {
		return song, CodedError(err, http.StatusInternalServerError)
	}
	if !allowed {
		if adminOnly {
			return song, CodedError(errors.New("only band admins can modify songs"), http.StatusForbidden)
		}
		return song, CodedError(errors.New("user must be a band member to access songs"), http.StatusForbidden)
	}

	return song, nil
}

type createSongRequest struct {
	BandId uuid.UUID `json:"band_id"`

	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Key      string `json:"key"`
	Tempo    int    `json:"tempo"`
	Duration int    `json:"duration"`
	Notes    string `json:"notes"`
}

func (s *SongService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createSongRequest
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

	song := schema.Song{
		Id:       uuid.New(),
		BandId:   params.BandId,
		Title:    params.Title,
		Artist:   params.Artist,
		Key:      params.Key,
		Tempo:    params.Tempo,
		Duration: params.Duration,
		Notes:    params.Notes,
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
			return CodedError(errors.New("user must be a member of the band to add songs"), http.StatusForbidden)
		}

		result := txn.Create(&song)
		if result.Error != nil {
			slog.Error("sql error creating song", "band_id", params.BandId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating song: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToSongInfo(&song))
}

func (s *SongService) ListForBand(w http.ResponseWriter, r *http.Request) {
	bandId, err := utils.URLParamUUID(r, "band_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var songs []schema.Song
	result := s.db.Preload("Attachments").Order("title ASC").Find(&songs, "band_id = ?", bandId)
	if result.Error != nil {
		slog.Error("sql error listing band songs", "band_id", bandId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing songs: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]SongInfo, 0, len(songs))
	for _, song := range songs {
		infos = append(infos, convertToSongInfo(&song))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *SongService) Detail(w http.ResponseWriter, r *http.Request) {
	songId, err := utils.URLParamUUID(r, "song_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	song, err := s.songBandRole(r, songId, false)
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToSongInfo(&song))
}

type updateSongRequest struct {
	Title    *string `json:"title"`
	Artist   *string `json:"artist"`
	Key      *string `json:"key"`
	Tempo    *int    `json:"tempo"`
	Duration *int    `json:"duration"`
	Notes    *string `json:"notes"`
}

func (s *SongService) Update(w http.ResponseWriter, r *http.Request) {
	songId, err := utils.URLParamUUID(r, "song_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	song, err := s.songBandRole(r, songId, true)
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	var params updateSongRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Title != nil {
		if *params.Title == "" {
			http.Error(w, "title cannot be empty", http.StatusUnprocessableEntity)
			return
		}
		song.Title = *params.Title
	}
	if params.Artist != nil {
		song.Artist = *params.Artist
	}
	if params.Key != nil {
		song.Key = *params.Key
	}
	if params.Tempo != nil {
		song.Tempo = *params.Tempo
	}
	if params.Duration != nil {
		song.Duration = *params.Duration
	}
	if params.Notes != nil {
		song.Notes = *params.Notes
	}

	result := s.db.Save(&song)
	if result.Error != nil {
		slog.Error("sql error updating song", "song_id", songId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error updating song: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToSongInfo(&song))
}

func (s *SongService) Delete(w http.ResponseWriter, r *http.Request) {
	songId, err := utils.URLParamUUID(r, "song_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.songBandRole(r, songId, true); err != nil {
		http.Error(w, fmt.Sprintf("error deleting song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if result := txn.Where("song_id = ?", songId).Delete(&schema.SongAttachment{}); result.Error != nil {
			slog.Error("sql error deleting song attachments", "song_id", songId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Where("song_id = ?", songId).Delete(&schema.SetlistItem{}); result.Error != nil {
			slog.Error("sql error deleting song setlist entries", "song_id", songId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.Song{Id: songId}); result.Error != nil {
			slog.Error("sql error deleting song", "song_id", songId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type addAttachmentRequest struct {
	Name     string `json:"name"`
	FileUrl  string `json:"file_url"`
	FileType string `json:"file_type"`
}

func (s *SongService) AddAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	songId, err := utils.URLParamUUID(r, "song_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.songBandRole(r, songId, false); err != nil {
		http.Error(w, fmt.Sprintf("error adding attachment to song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	var params addAttachmentRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" || params.FileUrl == "" {
		http.Error(w, "name and file_url must be specified", http.StatusBadRequest)
		return
	}

	attachment := schema.SongAttachment{
		Id:        uuid.New(),
		SongId:    songId,
		Name:      params.Name,
		FileUrl:   params.FileUrl,
		FileType:  params.FileType,
		CreatedBy: user.Id,
	}

	result := s.db.Create(&attachment)
	if result.Error != nil {
		slog.Error("sql error creating song attachment", "song_id", songId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error adding attachment: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, SongAttachmentInfo{
		Id:       attachment.Id,
		Name:     attachment.Name,
		FileUrl:  attachment.FileUrl,
		FileType: attachment.FileType,
	})
}

func (s *SongService) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	songId, err := utils.URLParamUUID(r, "song_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	attachmentId, err := utils.URLParamUUID(r, "attachment_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.songBandRole(r, songId, false); err != nil {
		http.Error(w, fmt.Sprintf("error removing attachment from song %v: %v", songId, err), GetResponseCode(err))
		return
	}

	result := s.db.Where("id = ? and song_id = ?", attachmentId, songId).Delete(&schema.SongAttachment{})
	if result.Error != nil {
		slog.Error("sql error deleting song attachment", "song_id", songId, "attachment_id", attachmentId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error removing attachment: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "attachment not found", http.StatusNotFound)
		return
	}

	utils.WriteSuccess(w)
}
