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

type SetlistService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *SetlistService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)

	r.With(auth.RehearsalMemberOnly(s.db)).Get("/rehearsal/{rehearsal_id}", s.ListForRehearsal)

	r.Route("/{setlist_id}", func(r chi.Router) {
		r.Get("/", s.Detail)
		r.Delete("/", s.Delete)

		r.Post("/items", s.AddItem)
		r.Delete("/items/{item_id}", s.RemoveItem)
	})

	return r
}

type SetlistItemInfo struct {
	Id       uuid.UUID `json:"id"`
	SongId   uuid.UUID `json:"song_id"`
	Position int       `json:"position"`
	Title    string    `json:"title,omitempty"`
	Artist   string    `json:"artist,omitempty"`
}

type SetlistInfo struct {
	Id          uuid.UUID `json:"id"`
	RehearsalId uuid.UUID `json:"rehearsal_id"`

	Name  string `json:"name"`
	Notes string `json:"notes"`

	CreatedBy uuid.UUID `json:"created_by"`

	Items []SetlistItemInfo `json:"items,omitempty"`
}

func convertToSetlistInfo(setlist *schema.Setlist) SetlistInfo {
	info := SetlistInfo{
		Id:          setlist.Id,
		RehearsalId: setlist.RehearsalId,
		Name:        setlist.Name,
		Notes:       setlist.Notes,
		CreatedBy:   setlist.CreatedBy,
	}
	for _, item := range setlist.Items {
		entry := SetlistItemInfo{
			Id:       item.Id,
			SongId:   item.SongId,
			Position: item.Position,
		}
		if item.Song != nil {
			entry.Title = item.Song.Title
			entry.Artist = item.Song.Artist
		}
		info.Items = append(info.Items, entry)
	}
	return info
}

// setlistBandRole loads the setlist and checks the caller's role in the
// band that owns its rehearsal.
func (s *SetlistService) setlistBandRole(r *http.Request, setlistId uuid.UUID, adminOnly bool) (schema.Setlist, error) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		return schema.Setlist{}, CodedError(err, http.StatusInternalServerError)
	}

	setlist, err := schema.GetSetlist(setlistId, s.db, true)
	if err != nil {
		if errors.Is(err, schema.ErrSetlistNotFound) {
			return setlist, CodedError(err, http.StatusNotFound)
		}
		return setlist, CodedError(err, http.StatusInternalServerError)
	}

	rehearsal, err := schema.GetRehearsal(setlist.RehearsalId, s.db, false)
	if err != nil {
		return setlist, CodedError(err, http.StatusInternalServerError)
	}

	var allowed bool
	if adminOnly {
		allowed, err = auth.IsBandAdmin(rehearsal.BandId, user.Id, s.db)
	} else {
		allowed, err = auth.IsBandMember(rehearsal.BandId, user.Id, s.db)
	}
	if err != nil {
		return setlist, CodedError(err, http.StatusInternalServerError)
	}
	if !allowed {
		if adminOnly {
			return setlist, CodedError(errors.New("only band admins can modify setlists"), http.StatusForbidden)
		}
		return setlist, CodedError(errors.New("user must be a band member to access setlists"), http.StatusForbidden)
	}

	return setlist, nil
}

type createSetlistRequest struct {
	RehearsalId uuid.UUID `json:"rehearsal_id"`
	Name        string    `json:"name"`
	Notes       string    `json:"notes"`
}

func (s *SetlistService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createSetlistRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.RehearsalId == uuid.Nil {
		http.Error(w, "rehearsal_id must be specified", http.StatusBadRequest)
		return
	}
	if params.Name == "" {
		http.Error(w, "name must be specified", http.StatusBadRequest)
		return
	}

	setlist := schema.Setlist{
		Id:          uuid.New(),
		RehearsalId: params.RehearsalId,
		Name:        params.Name,
		Notes:       params.Notes,
		CreatedBy:   user.Id,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		rehearsal, err := schema.GetRehearsal(params.RehearsalId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrRehearsalNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		isAdmin, err := auth.IsBandAdmin(rehearsal.BandId, user.Id, txn)
		if err != nil {
			return CodedError(err, http.StatusInternalServerError)
		}
		if !isAdmin {
			return CodedError(errors.New("only band admins can create setlists"), http.StatusForbidden)
		}

		result := txn.Create(&setlist)
		if result.Error != nil {
			slog.Error("sql error creating setlist", "rehearsal_id", params.RehearsalId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error creating setlist: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToSetlistInfo(&setlist))
}

func (s *SetlistService) ListForRehearsal(w http.ResponseWriter, r *http.Request) {
	rehearsalId, err := utils.URLParamUUID(r, "rehearsal_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var setlists []schema.Setlist
	result := s.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("setlist_items.position ASC")
		}).
		Preload("Items.Song").
		Find(&setlists, "rehearsal_id = ?", rehearsalId)
	if result.Error != nil {
		slog.Error("sql error listing setlists", "rehearsal_id", rehearsalId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing setlists: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]SetlistInfo, 0, len(setlists))
	for _, setlist := range setlists {
		infos = append(infos, convertToSetlistInfo(&setlist))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *SetlistService) Detail(w http.ResponseWriter, r *http.Request) {
	setlistId, err := utils.URLParamUUID(r, "setlist_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	setlist, err := s.setlistBandRole(r, setlistId, false)
	if err != nil {
		http.Error(w, fmt.Sprintf("error getting setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToSetlistInfo(&setlist))
}

func (s *SetlistService) Delete(w http.ResponseWriter, r *http.Request) {
	setlistId, err := utils.URLParamUUID(r, "setlist_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.setlistBandRole(r, setlistId, true); err != nil {
		http.Error(w, fmt.Sprintf("error deleting setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if result := txn.Where("setlist_id = ?", setlistId).Delete(&schema.SetlistItem{}); result.Error != nil {
			slog.Error("sql error deleting setlist items", "setlist_id", setlistId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result := txn.Delete(&schema.Setlist{Id: setlistId}); result.Error != nil {
			slog.Error("sql error deleting setlist", "setlist_id", setlistId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type addSetlistItemRequest struct {
	SongId uuid.UUID `json:"song_id"`
}

func (s *SetlistService) AddItem(w http.ResponseWriter, r *http.Request) {
	setlistId, err := utils.URLParamUUID(r, "setlist_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.setlistBandRole(r, setlistId, true); err != nil {
		http.Error(w, fmt.Sprintf("error adding item to setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	var params addSetlistItemRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.SongId == uuid.Nil {
		http.Error(w, "song_id must be specified", http.StatusBadRequest)
		return
	}

	item := schema.SetlistItem{
		Id:        uuid.New(),
		SetlistId: setlistId,
		SongId:    params.SongId,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkSongExists(txn, params.SongId); err != nil {
			return err
		}

		// New items are appended, the max position query and the insert
		// share the transaction.
		var maxPosition int
		row := txn.Model(&schema.SetlistItem{}).
			Where("setlist_id = ?", setlistId).
			Select("COALESCE(MAX(position), 0)").
			Row()
		if err := row.Scan(&maxPosition); err != nil {
			slog.Error("sql error reading max setlist position", "setlist_id", setlistId, "error", err)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		item.Position = maxPosition + 1

		result := txn.Create(&item)
		if result.Error != nil {
			slog.Error("sql error creating setlist item", "setlist_id", setlistId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error adding item to setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	song, err := schema.GetSong(params.SongId, s.db, false)
	info := SetlistItemInfo{Id: item.Id, SongId: item.SongId, Position: item.Position}
	if err == nil {
		info.Title = song.Title
		info.Artist = song.Artist
	}

	utils.WriteJsonResponse(w, info)
}

func (s *SetlistService) RemoveItem(w http.ResponseWriter, r *http.Request) {
	setlistId, err := utils.URLParamUUID(r, "setlist_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	itemId, err := utils.URLParamUUID(r, "item_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.setlistBandRole(r, setlistId, true); err != nil {
		http.Error(w, fmt.Sprintf("error removing item from setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var item schema.SetlistItem
		result := txn.Limit(1).Find(&item, "id = ? and setlist_id = ?", itemId, setlistId)
		if result.Error != nil {
			slog.Error("sql error loading setlist item", "setlist_id", setlistId, "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		if result.RowsAffected == 0 {
			return CodedError(errors.New("setlist item not found"), http.StatusNotFound)
		}

		if result := txn.Delete(&schema.SetlistItem{Id: item.Id}); result.Error != nil {
			slog.Error("sql error deleting setlist item", "setlist_id", setlistId, "item_id", itemId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		// Positions above the removed item shift down so the order
		// stays gap free.
		result = txn.Model(&schema.SetlistItem{}).
			Where("setlist_id = ? and position > ?", setlistId, item.Position).
			Update("position", gorm.Expr("position - 1"))
		if result.Error != nil {
			slog.Error("sql error compacting setlist positions", "setlist_id", setlistId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error removing item from setlist %v: %v", setlistId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
