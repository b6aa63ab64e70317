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

// Venues are shared across bands, any authenticated user can manage
// them.
type VenueService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *VenueService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Post("/", s.Create)
	r.Get("/", s.List)
	r.Get("/{venue_id}", s.Detail)
	r.Put("/{venue_id}", s.Update)
	r.Delete("/{venue_id}", s.Delete)

	return r
}

type VenueInfo struct {
	Id          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Zip         string    `json:"zip"`
	ContactInfo string    `json:"contact_info"`
	Notes       string    `json:"notes"`
}

func convertToVenueInfo(venue *schema.Venue) VenueInfo {
	return VenueInfo{
		Id:          venue.Id,
		Name:        venue.Name,
		Address:     venue.Address,
		City:        venue.City,
		State:       venue.State,
		Zip:         venue.Zip,
		ContactInfo: venue.ContactInfo,
		Notes:       venue.Notes,
	}
}

type venueRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
	ContactInfo string `json:"contact_info"`
	Notes       string `json:"notes"`
}

func (s *VenueService) Create(w http.ResponseWriter, r *http.Request) {
	var params venueRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "venue name must be specified", http.StatusBadRequest)
		return
	}

	venue := schema.Venue{
		Id:          uuid.New(),
		Name:        params.Name,
		Address:     params.Address,
		City:        params.City,
		State:       params.State,
		Zip:         params.Zip,
		ContactInfo: params.ContactInfo,
		Notes:       params.Notes,
	}

	result := s.db.Create(&venue)
	if result.Error != nil {
		slog.Error("sql error creating venue", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating venue: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToVenueInfo(&venue))
}

func (s *VenueService) List(w http.ResponseWriter, r *http.Request) {
	var venues []schema.Venue
	result := s.db.Order("name ASC").Find(&venues)
	if result.Error != nil {
		slog.Error("sql error listing venues", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing venues: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]VenueInfo, 0, len(venues))
	for _, venue := range venues {
		infos = append(infos, convertToVenueInfo(&venue))
	}

	utils.WriteJsonResponse(w, infos)
}

func (s *VenueService) Detail(w http.ResponseWriter, r *http.Request) {
	venueId, err := utils.URLParamUUID(r, "venue_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	venue, err := schema.GetVenue(venueId, s.db)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, schema.ErrVenueNotFound) {
			responseCode = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("error getting venue %v: %v", venueId, err), responseCode)
		return
	}

	utils.WriteJsonResponse(w, convertToVenueInfo(&venue))
}

func (s *VenueService) Update(w http.ResponseWriter, r *http.Request) {
	venueId, err := utils.URLParamUUID(r, "venue_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params venueRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Name == "" {
		http.Error(w, "venue name cannot be empty", http.StatusUnprocessableEntity)
		return
	}

	var venue schema.Venue
	err = s.db.Transaction(func(txn *gorm.DB) error {
		venue, err = schema.GetVenue(venueId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrVenueNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		venue.Name = params.Name
		venue.Address = params.Address
		venue.City = params.City
		venue.State = params.State
		venue.Zip = params.Zip
		venue.ContactInfo = params.ContactInfo
		venue.Notes = params.Notes

		result := txn.Save(&venue)
		if result.Error != nil {
			slog.Error("sql error updating venue", "venue_id", venueId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating venue %v: %v", venueId, err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, convertToVenueInfo(&venue))
}

func (s *VenueService) Delete(w http.ResponseWriter, r *http.Request) {
	venueId, err := utils.URLParamUUID(r, "venue_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkVenueExists(txn, venueId); err != nil {
			return err
		}

		// Rehearsals keep their slot when a venue goes away.
		result := txn.Model(&schema.Rehearsal{}).Where("venue_id = ?", venueId).Update("venue_id", nil)
		if result.Error != nil {
			slog.Error("sql error clearing venue references", "venue_id", venueId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		result = txn.Delete(&schema.Venue{Id: venueId})
		if result.Error != nil {
			slog.Error("sql error deleting venue", "venue_id", venueId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting venue %v: %v", venueId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
