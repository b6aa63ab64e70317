package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"bandroom/server/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type httpTestRequest struct {
	api http.Handler

	method   string
	endpoint string
	headers  map[string]string
	json     interface{}
	body     io.Reader
}

func newHttpTestRequest(api http.Handler, method, endpoint string) *httpTestRequest {
	return &httpTestRequest{
		api:      api,
		method:   method,
		endpoint: endpoint,
		headers:  nil,
		json:     nil,
		body:     nil,
	}
}

func (r *httpTestRequest) Header(key, value string) *httpTestRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpTestRequest) Auth(token string) *httpTestRequest {
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpTestRequest) Json(data interface{}) *httpTestRequest {
	r.json = data
	return r
}

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnprocessable = errors.New("unprocessable")
)

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	}
	return nil
}

// response body will be parsed into result, passing nil indicates that no result is returned.
func (r *httpTestRequest) Do(result interface{}) error {
	if r.json != nil {
		body := new(bytes.Buffer)
		err := json.NewEncoder(body).Encode(r.json)
		if err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		r.body = body
	}

	req := httptest.NewRequest(r.method, r.endpoint, r.body)
	if r.headers != nil {
		for k, v := range r.headers {
			req.Header.Add(k, v)
		}
	}

	w := httptest.NewRecorder()

	r.api.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		if err := statusError(res.StatusCode); err != nil {
			return fmt.Errorf("%w: %v", err, w.Body.String())
		}
		return fmt.Errorf("%v request to endpoint %v returned status %d, content '%v'", r.method, r.endpoint, res.StatusCode, w.Body.String())
	}

	if result != nil {
		err := json.NewDecoder(res.Body).Decode(result)
		if err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}

type client struct {
	api       chi.Router
	authToken string
	userId    uuid.UUID
}

func (c *client) Get(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "GET", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Post(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "POST", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Put(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "PUT", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

func (c *client) Delete(endpoint string) *httpTestRequest {
	r := newHttpTestRequest(c.api, "DELETE", endpoint)
	if c.authToken != "" {
		return r.Auth(c.authToken)
	}
	return r
}

type authResponse struct {
	Token string            `json:"token"`
	User  services.UserInfo `json:"user"`
}

func (c *client) register(email, password, firstName, lastName string) error {
	body := map[string]string{
		"email": email, "password": password, "first_name": firstName, "last_name": lastName,
	}

	var res authResponse
	err := c.Post("/auth/register").Json(body).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.userId = res.User.Id

	return nil
}

func (c *client) login(email, password string) error {
	body := map[string]string{"email": email, "password": password}

	var res authResponse
	err := c.Post("/auth/login").Json(body).Do(&res)
	if err != nil {
		return err
	}

	c.authToken = res.Token
	c.userId = res.User.Id

	return nil
}

func (c *client) userInfo() (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Get("/users/me").Do(&res)
	return res, err
}

func (c *client) updateProfile(body map[string]string) (services.UserInfo, error) {
	var res services.UserInfo
	err := c.Put("/users/me").Json(body).Do(&res)
	return res, err
}

func (c *client) deleteUser(userId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/users/%v", userId)).Do(nil)
}

func (c *client) addAvailability(dayOfWeek int, start, end string) (services.AvailabilityInfo, error) {
	body := map[string]interface{}{"day_of_week": dayOfWeek, "start_time": start, "end_time": end}
	var res services.AvailabilityInfo
	err := c.Post("/users/me/availability").Json(body).Do(&res)
	return res, err
}

func (c *client) listAvailability() ([]services.AvailabilityInfo, error) {
	var res []services.AvailabilityInfo
	err := c.Get("/users/me/availability").Do(&res)
	return res, err
}

func (c *client) removeAvailability(id uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/users/me/availability/%v", id)).Do(nil)
}

func (c *client) addUnavailableDate(start, end time.Time, reason string) (services.UnavailableDateInfo, error) {
	body := map[string]interface{}{"start_date": start, "end_date": end, "reason": reason}
	var res services.UnavailableDateInfo
	err := c.Post("/users/me/unavailable-dates").Json(body).Do(&res)
	return res, err
}

func (c *client) createBand(name string) (services.BandInfo, error) {
	body := map[string]string{"name": name}
	var res services.BandInfo
	err := c.Post("/bands").Json(body).Do(&res)
	return res, err
}

func (c *client) listBands() ([]services.BandInfo, error) {
	var res []services.BandInfo
	err := c.Get("/bands").Do(&res)
	return res, err
}

func (c *client) getBand(bandId uuid.UUID) (services.BandInfo, error) {
	var res services.BandInfo
	err := c.Get(fmt.Sprintf("/bands/%v", bandId)).Do(&res)
	return res, err
}

func (c *client) updateBand(bandId uuid.UUID, body map[string]string) (services.BandInfo, error) {
	var res services.BandInfo
	err := c.Put(fmt.Sprintf("/bands/%v", bandId)).Json(body).Do(&res)
	return res, err
}

func (c *client) deleteBand(bandId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/bands/%v", bandId)).Do(nil)
}

func (c *client) listMembers(bandId uuid.UUID) ([]services.BandMemberInfo, error) {
	var res []services.BandMemberInfo
	err := c.Get(fmt.Sprintf("/bands/%v/members", bandId)).Do(&res)
	return res, err
}

func (c *client) addMember(bandId, userId uuid.UUID, role string) (services.BandMemberInfo, error) {
	body := map[string]interface{}{"user_id": userId, "role": role}
	var res services.BandMemberInfo
	err := c.Post(fmt.Sprintf("/bands/%v/members", bandId)).Json(body).Do(&res)
	return res, err
}

func (c *client) removeMember(bandId, userId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/bands/%v/members/%v", bandId, userId)).Do(nil)
}

func (c *client) createRehearsal(body map[string]interface{}) (services.RehearsalInfo, error) {
	var res services.RehearsalInfo
	err := c.Post("/rehearsals").Json(body).Do(&res)
	return res, err
}

func (c *client) listBandRehearsals(bandId uuid.UUID) ([]services.RehearsalInfo, error) {
	var res []services.RehearsalInfo
	err := c.Get(fmt.Sprintf("/rehearsals/band/%v", bandId)).Do(&res)
	return res, err
}

func (c *client) upcomingRehearsals() ([]services.RehearsalInfo, error) {
	var res []services.RehearsalInfo
	err := c.Get("/rehearsals?upcoming=true").Do(&res)
	return res, err
}

func (c *client) getRehearsal(rehearsalId uuid.UUID) (services.RehearsalInfo, error) {
	var res services.RehearsalInfo
	err := c.Get(fmt.Sprintf("/rehearsals/%v", rehearsalId)).Do(&res)
	return res, err
}

func (c *client) updateRehearsal(rehearsalId uuid.UUID, body map[string]interface{}) (services.RehearsalInfo, error) {
	var res services.RehearsalInfo
	err := c.Put(fmt.Sprintf("/rehearsals/%v", rehearsalId)).Json(body).Do(&res)
	return res, err
}

func (c *client) deleteRehearsal(rehearsalId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/rehearsals/%v", rehearsalId)).Do(nil)
}

func (c *client) updateAttendance(rehearsalId uuid.UUID, status, note string) (services.AttendanceInfo, error) {
	body := map[string]string{"status": status, "note": note}
	var res services.AttendanceInfo
	err := c.Post(fmt.Sprintf("/rehearsals/%v/attendance", rehearsalId)).Json(body).Do(&res)
	return res, err
}

func (c *client) createVenue(name string) (services.VenueInfo, error) {
	body := map[string]string{"name": name}
	var res services.VenueInfo
	err := c.Post("/venues").Json(body).Do(&res)
	return res, err
}

func (c *client) createSong(bandId uuid.UUID, title string) (services.SongInfo, error) {
	body := map[string]interface{}{"band_id": bandId, "title": title}
	var res services.SongInfo
	err := c.Post("/songs").Json(body).Do(&res)
	return res, err
}

func (c *client) listBandSongs(bandId uuid.UUID) ([]services.SongInfo, error) {
	var res []services.SongInfo
	err := c.Get(fmt.Sprintf("/songs/band/%v", bandId)).Do(&res)
	return res, err
}

func (c *client) addAttachment(songId uuid.UUID, name, fileUrl string) (services.SongAttachmentInfo, error) {
	body := map[string]string{"name": name, "file_url": fileUrl}
	var res services.SongAttachmentInfo
	err := c.Post(fmt.Sprintf("/songs/%v/attachments", songId)).Json(body).Do(&res)
	return res, err
}

func (c *client) createSetlist(rehearsalId uuid.UUID, name string) (services.SetlistInfo, error) {
	body := map[string]interface{}{"rehearsal_id": rehearsalId, "name": name}
	var res services.SetlistInfo
	err := c.Post("/setlists").Json(body).Do(&res)
	return res, err
}

func (c *client) getSetlist(setlistId uuid.UUID) (services.SetlistInfo, error) {
	var res services.SetlistInfo
	err := c.Get(fmt.Sprintf("/setlists/%v", setlistId)).Do(&res)
	return res, err
}

func (c *client) addSetlistItem(setlistId, songId uuid.UUID) (services.SetlistItemInfo, error) {
	body := map[string]uuid.UUID{"song_id": songId}
	var res services.SetlistItemInfo
	err := c.Post(fmt.Sprintf("/setlists/%v/items", setlistId)).Json(body).Do(&res)
	return res, err
}

func (c *client) removeSetlistItem(setlistId, itemId uuid.UUID) error {
	return c.Delete(fmt.Sprintf("/setlists/%v/items/%v", setlistId, itemId)).Do(nil)
}
