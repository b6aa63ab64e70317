package client

import (
	"fmt"
	"time"

	"bandroom/server/services"

	"github.com/google/uuid"
)

type BandroomClient struct {
	BaseClient
	userId uuid.UUID
}

func New(baseUrl string) *BandroomClient {
	return &BandroomClient{BaseClient: BaseClient{baseUrl: baseUrl}}
}

func (c *BandroomClient) UserId() uuid.UUID {
	return c.userId
}

type authResponse struct {
	Token string            `json:"token"`
	User  services.UserInfo `json:"user"`
}

func (c *BandroomClient) Register(email, password, firstName, lastName string) error {
	body := map[string]string{
		"email": email, "password": password, "first_name": firstName, "last_name": lastName,
	}

	var res authResponse
	err := c.Post("/api/v1/auth/register").Json(body).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.userId = res.User.Id

	return nil
}

func (c *BandroomClient) Login(email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var res authResponse
	err := c.Post("/api/v1/auth/login").Json(body).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.userId = res.User.Id

	return nil
}

func (c *BandroomClient) Me() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/api/v1/users/me").Do(&res)
	return res, err
}

func (c *BandroomClient) UpdateProfile(firstName, lastName, bio, phone string) (services.UserInfo, error) {
	body := map[string]string{
		"first_name": firstName, "last_name": lastName, "bio": bio, "phone": phone,
	}
	var res services.UserInfo
	err := c.Put("/api/v1/users/me").Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) CreateBand(name, description string) (services.BandInfo, error) {
	body := map[string]string{"name": name, "description": description}
	var res services.BandInfo
	err := c.Post("/api/v1/bands").Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) ListBands() ([]services.BandInfo, error) {
	var res []services.BandInfo
	err := c.Get("/api/v1/bands").Do(&res)
	return res, err
}

func (c *BandroomClient) GetBand(bandId uuid.UUID) (services.BandInfo, error) {
	var res services.BandInfo
	err := c.Get(fmt.Sprintf("/api/v1/bands/%v", bandId)).Do(&res)
	return res, err
}

func (c *BandroomClient) AddBandMember(bandId, userId uuid.UUID, role, instrument string) (services.BandMemberInfo, error) {
	body := map[string]interface{}{"user_id": userId, "role": role, "instrument": instrument}
	var res services.BandMemberInfo
	err := c.Post(fmt.Sprintf("/api/v1/bands/%v/members", bandId)).Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) RemoveBandMember(bandId, userId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/bands/%v/members/%v", bandId, userId)).Do(nil)
}

type CreateRehearsalArgs struct {
	BandId      uuid.UUID  `json:"band_id"`
	VenueId     *uuid.UUID `json:"venue_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
}

func (c *BandroomClient) CreateRehearsal(args CreateRehearsalArgs) (services.RehearsalInfo, error) {
	var res services.RehearsalInfo
	err := c.Post("/api/v1/rehearsals").Json(args).Do(&res)
	return res, err
}

func (c *BandroomClient) ListBandRehearsals(bandId uuid.UUID) ([]services.RehearsalInfo, error) {
	var res []services.RehearsalInfo
	err := c.Get(fmt.Sprintf("/api/v1/rehearsals/band/%v", bandId)).Do(&res)
	return res, err
}

func (c *BandroomClient) UpcomingRehearsals() ([]services.RehearsalInfo, error) {
	var res []services.RehearsalInfo
	err := c.Get("/api/v1/rehearsals").Param("upcoming", "true").Do(&res)
	return res, err
}

func (c *BandroomClient) GetRehearsal(rehearsalId uuid.UUID) (services.RehearsalInfo, error) {
	var res services.RehearsalInfo
	err := c.Get(fmt.Sprintf("/api/v1/rehearsals/%v", rehearsalId)).Do(&res)
	return res, err
}

func (c *BandroomClient) DeleteRehearsal(rehearsalId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/api/v1/rehearsals/%v", rehearsalId)).Do(nil)
}

func (c *BandroomClient) UpdateAttendance(rehearsalId uuid.UUID, status, note string) (services.AttendanceInfo, error) {
	body := map[string]string{"status": status, "note": note}
	var res services.AttendanceInfo
	err := c.Post(fmt.Sprintf("/api/v1/rehearsals/%v/attendance", rehearsalId)).Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) CreateVenue(name, address, city string) (services.VenueInfo, error) {
	body := map[string]string{"name": name, "address": address, "city": city}
	var res services.VenueInfo
	err := c.Post("/api/v1/venues").Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) ListVenues() ([]services.VenueInfo, error) {
	var res []services.VenueInfo
	err := c.Get("/api/v1/venues").Do(&res)
	return res, err
}

type CreateSongArgs struct {
	BandId   uuid.UUID `json:"band_id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Key      string    `json:"key"`
	Tempo    int       `json:"tempo"`
	Duration int       `json:"duration"`
}

func (c *BandroomClient) CreateSong(args CreateSongArgs) (services.SongInfo, error) {
	var res services.SongInfo
	err := c.Post("/api/v1/songs").Json(args).Do(&res)
	return res, err
}

func (c *BandroomClient) ListBandSongs(bandId uuid.UUID) ([]services.SongInfo, error) {
	var res []services.SongInfo
	err := c.Get(fmt.Sprintf("/api/v1/songs/band/%v", bandId)).Do(&res)
	return res, err
}

func (c *BandroomClient) CreateSetlist(rehearsalId uuid.UUID, name string) (services.SetlistInfo, error) {
	body := map[string]interface{}{"rehearsal_id": rehearsalId, "name": name}
	var res services.SetlistInfo
	err := c.Post("/api/v1/setlists").Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) AddSetlistItem(setlistId, songId uuid.UUID) (services.SetlistItemInfo, error) {
	body := map[string]uuid.UUID{"song_id": songId}
	var res services.SetlistItemInfo
	err := c.Post(fmt.Sprintf("/api/v1/setlists/%v/items", setlistId)).Json(body).Do(&res)
	return res, err
}

func (c *BandroomClient) GetSetlist(setlistId uuid.UUID) (services.SetlistInfo, error) {
	var res services.SetlistInfo
	err := c.Get(fmt.Sprintf("/api/v1/setlists/%v", setlistId)).Do(&res)
	return res, err
}
