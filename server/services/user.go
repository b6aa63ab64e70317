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

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

// AuthRoutes are the only unauthenticated endpoints in the api.
func (s *UserService) AuthRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", s.Register)
	r.Post("/login", s.Login)

	return r
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(s.userAuth.AuthMiddleware()...)

	r.Get("/me", s.Info)
	r.Put("/me", s.UpdateProfile)

	r.Get("/me/availability", s.ListAvailability)
	r.Post("/me/availability", s.AddAvailability)
	r.Delete("/me/availability/{availability_id}", s.RemoveAvailability)

	r.Get("/me/unavailable-dates", s.ListUnavailableDates)
	r.Post("/me/unavailable-dates", s.AddUnavailableDate)
	r.Delete("/me/unavailable-dates/{date_id}", s.RemoveUnavailableDate)

	r.Get("/{user_id}", s.UserById)
	r.With(auth.PlatformAdminOnly(s.db)).Delete("/{user_id}", s.DeleteUser)

	return r
}

type ProfileInfo struct {
	Bio          string `json:"bio"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profile_image"`
}

type UserInfo struct {
	Id        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Role      string       `json:"role"`
	IsActive  bool         `json:"is_active"`
	Profile   *ProfileInfo `json:"profile,omitempty"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	info := UserInfo{
		Id:        user.Id,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		IsActive:  user.IsActive,
	}
	if user.Profile != nil {
		info.Profile = &ProfileInfo{
			Bio:          user.Profile.Bio,
			Phone:        user.Profile.Phone,
			ProfileImage: user.Profile.ProfileImage,
		}
	}
	return info
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

func (s *UserService) Register(w http.ResponseWriter, r *http.Request) {
	var params registerRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Email == "" || params.Password == "" || params.FirstName == "" || params.LastName == "" {
		http.Error(w, "email, password, first_name, and last_name must be specified", http.StatusBadRequest)
		return
	}

	login, err := s.userAuth.CreateUser(auth.NewUserArgs{
		Email:     params.Email,
		Password:  params.Password,
		FirstName: params.FirstName,
		LastName:  params.LastName,
	})
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		http.Error(w, fmt.Sprintf("error registering user: %v", err), responseCode)
		return
	}

	user, err := schema.GetUser(login.UserId, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading new user: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, authResponse{Token: login.AccessToken, User: convertToUserInfo(&user)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *UserService) Login(w http.ResponseWriter, r *http.Request) {
	var params loginRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	login, err := s.userAuth.LoginWithEmail(params.Email, params.Password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrUserNotFoundWithEmail), errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserDisabled):
			// Not-found and bad-password are reported identically so the
			// endpoint cannot be used to probe for registered emails.
			responseCode = http.StatusUnauthorized
			err = auth.ErrInvalidCredentials
		}
		http.Error(w, fmt.Sprintf("login failed: %v", err), responseCode)
		return
	}

	user, err := schema.GetUser(login.UserId, s.db)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading user: %v", err), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, authResponse{Token: login.AccessToken, User: convertToUserInfo(&user)})
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var userWithProfile schema.User
	result := s.db.Preload("Profile").First(&userWithProfile, "id = ?", user.Id)
	if result.Error != nil {
		slog.Error("sql error loading user info", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error getting user info: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&userWithProfile))
}

func (s *UserService) UserById(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var user schema.User
	result := s.db.Preload("Profile").First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			http.Error(w, schema.ErrUserNotFound.Error(), http.StatusNotFound)
			return
		}
		slog.Error("sql error loading user", "user_id", userId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error getting user: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, convertToUserInfo(&user))
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
}

func (s *UserService) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params updateProfileRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if params.FirstName != "" {
			user.FirstName = params.FirstName
		}
		if params.LastName != "" {
			user.LastName = params.LastName
		}

		result := txn.Save(&user)
		if result.Error != nil {
			slog.Error("sql error updating user names", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		var profile schema.Profile
		result = txn.Limit(1).Find(&profile, "user_id = ?", user.Id)
		if result.Error != nil {
			slog.Error("sql error loading profile", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if result.RowsAffected == 0 {
			profile = schema.Profile{Id: uuid.New(), UserId: user.Id}
		}
		profile.Bio = params.Bio
		profile.Phone = params.Phone

		result = txn.Save(&profile)
		if result.Error != nil {
			slog.Error("sql error saving profile", "user_id", user.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating profile: %v", err), GetResponseCode(err))
		return
	}

	s.Info(w, r)
}

func (s *UserService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, userId); err != nil {
			return err
		}

		for _, model := range []interface{}{
			&schema.BandMember{}, &schema.Attendance{}, &schema.Availability{},
			&schema.UnavailableDate{}, &schema.Profile{},
		} {
			result := txn.Where("user_id = ?", userId).Delete(model)
			if result.Error != nil {
				slog.Error("sql error deleting user owned rows", "user_id", userId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		result := txn.Delete(&schema.User{Id: userId})
		if result.Error != nil {
			slog.Error("sql error deleting user", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting user %v: %v", userId, err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type AvailabilityInfo struct {
	Id           uuid.UUID `json:"id"`
	DayOfWeek    int       `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	RepeatWeekly bool      `json:"repeat_weekly"`
}

func (s *UserService) ListAvailability(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var entries []schema.Availability
	result := s.db.Order("day_of_week ASC, start_time ASC").Find(&entries, "user_id = ?", user.Id)
	if result.Error != nil {
		slog.Error("sql error listing availability", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing availability: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]AvailabilityInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, AvailabilityInfo{
			Id:           entry.Id,
			DayOfWeek:    entry.DayOfWeek,
			StartTime:    entry.StartTime,
			EndTime:      entry.EndTime,
			RepeatWeekly: entry.RepeatWeekly,
		})
	}

	utils.WriteJsonResponse(w, infos)
}

type addAvailabilityRequest struct {
	DayOfWeek    int    `json:"day_of_week"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	RepeatWeekly *bool  `json:"repeat_weekly"`
}

func (s *UserService) AddAvailability(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addAvailabilityRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.DayOfWeek < 0 || params.DayOfWeek > 6 {
		http.Error(w, fmt.Sprintf("invalid day_of_week %d, must be in range [0, 6]", params.DayOfWeek), http.StatusUnprocessableEntity)
		return
	}
	if params.StartTime == "" || params.EndTime == "" {
		http.Error(w, "start_time and end_time must be specified", http.StatusBadRequest)
		return
	}

	entry := schema.Availability{
		Id:           uuid.New(),
		UserId:       user.Id,
		DayOfWeek:    params.DayOfWeek,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		RepeatWeekly: params.RepeatWeekly == nil || *params.RepeatWeekly,
	}

	result := s.db.Create(&entry)
	if result.Error != nil {
		slog.Error("sql error creating availability", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating availability: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, AvailabilityInfo{
		Id:           entry.Id,
		DayOfWeek:    entry.DayOfWeek,
		StartTime:    entry.StartTime,
		EndTime:      entry.EndTime,
		RepeatWeekly: entry.RepeatWeekly,
	})
}

func (s *UserService) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entryId, err := utils.URLParamUUID(r, "availability_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Where("id = ? and user_id = ?", entryId, user.Id).Delete(&schema.Availability{})
	if result.Error != nil {
		slog.Error("sql error deleting availability", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error deleting availability: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "availability entry not found", http.StatusNotFound)
		return
	}

	utils.WriteSuccess(w)
}

type UnavailableDateInfo struct {
	Id        uuid.UUID `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

func (s *UserService) ListUnavailableDates(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var entries []schema.UnavailableDate
	result := s.db.Order("start_date ASC").Find(&entries, "user_id = ?", user.Id)
	if result.Error != nil {
		slog.Error("sql error listing unavailable dates", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing unavailable dates: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UnavailableDateInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, UnavailableDateInfo{
			Id:        entry.Id,
			StartDate: entry.StartDate,
			EndDate:   entry.EndDate,
			Reason:    entry.Reason,
		})
	}

	utils.WriteJsonResponse(w, infos)
}

type addUnavailableDateRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

func (s *UserService) AddUnavailableDate(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addUnavailableDateRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.StartDate.IsZero() || params.EndDate.IsZero() {
		http.Error(w, "start_date and end_date must be specified", http.StatusBadRequest)
		return
	}
	if !params.StartDate.Before(params.EndDate) && !params.StartDate.Equal(params.EndDate) {
		http.Error(w, "start_date must not be after end_date", http.StatusUnprocessableEntity)
		return
	}

	entry := schema.UnavailableDate{
		Id:        uuid.New(),
		UserId:    user.Id,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Reason:    params.Reason,
	}

	result := s.db.Create(&entry)
	if result.Error != nil {
		slog.Error("sql error creating unavailable date", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating unavailable date: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, UnavailableDateInfo{
		Id:        entry.Id,
		StartDate: entry.StartDate,
		EndDate:   entry.EndDate,
		Reason:    entry.Reason,
	})
}

func (s *UserService) RemoveUnavailableDate(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entryId, err := utils.URLParamUUID(r, "date_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Where("id = ? and user_id = ?", entryId, user.Id).Delete(&schema.UnavailableDate{})
	if result.Error != nil {
		slog.Error("sql error deleting unavailable date", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error deleting unavailable date: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "unavailable date entry not found", http.StatusNotFound)
		return
	}

	utils.WriteSuccess(w)
}
