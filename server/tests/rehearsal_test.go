package tests

import (
	"errors"
	"testing"
	"time"

	"bandroom/server/schema"

	"github.com/google/uuid"
)

func futureRehearsalBody(bandId uuid.UUID, title string) map[string]interface{} {
	start := time.Now().UTC().Add(24 * time.Hour)
	return map[string]interface{}{
		"band_id":    bandId,
		"title":      title,
		"start_time": start,
		"end_time":   start.Add(2 * time.Hour),
	}
}

func TestCreateRehearsalSeedsAttendance(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("sched")
	if err != nil {
		t.Fatal(err)
	}
	drummer, err := env.newUser("drummer")
	if err != nil {
		t.Fatal(err)
	}
	bassist, err := env.newUser("bassist")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Cascade")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, drummer.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, bassist.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}

	rehearsal, err := admin.createRehearsal(futureRehearsalBody(band.Id, "Tuesday Practice"))
	if err != nil {
		t.Fatal(err)
	}

	if len(rehearsal.Attendances) != 3 {
		t.Fatalf("expected one attendance per member, got %d", len(rehearsal.Attendances))
	}

	seen := map[uuid.UUID]bool{}
	for _, attendance := range rehearsal.Attendances {
		if attendance.Status != schema.AttendanceNoResponse {
			t.Fatalf("seeded attendance should be no_response: %v", attendance)
		}
		if seen[attendance.UserId] {
			t.Fatalf("duplicate attendance row for user %v", attendance.UserId)
		}
		seen[attendance.UserId] = true
	}
	for _, c := range []*client{admin, drummer, bassist} {
		if !seen[c.userId] {
			t.Fatalf("missing attendance row for user %v", c.userId)
		}
	}
}

func TestCreateRehearsalSingleMember(t *testing.T) {
	env := setupTestEnv(t)

	solo, err := env.newUser("soloist")
	if err != nil {
		t.Fatal(err)
	}

	band, err := solo.createBand("One Man Band")
	if err != nil {
		t.Fatal(err)
	}

	rehearsal, err := solo.createRehearsal(futureRehearsalBody(band.Id, "Solo Practice"))
	if err != nil {
		t.Fatal(err)
	}

	if len(rehearsal.Attendances) != 1 {
		t.Fatalf("expected a single attendance row, got %d", len(rehearsal.Attendances))
	}
	row := rehearsal.Attendances[0]
	if row.UserId != solo.userId || row.Status != schema.AttendanceNoResponse {
		t.Fatalf("unexpected attendance row: %v", row)
	}
}

func TestCreateRehearsalValidation(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("validator")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("nonmember")
	if err != nil {
		t.Fatal(err)
	}

	band, err := user.createBand("Strict")
	if err != nil {
		t.Fatal(err)
	}

	body := futureRehearsalBody(band.Id, "Backwards")
	body["start_time"], body["end_time"] = body["end_time"], body["start_time"]
	_, err = user.createRehearsal(body)
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("start after end should be rejected: %v", err)
	}

	_, err = outsider.createRehearsal(futureRehearsalBody(band.Id, "Sneaky"))
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-members cannot schedule rehearsals: %v", err)
	}

	_, err = user.createRehearsal(futureRehearsalBody(uuid.New(), "Nowhere"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing band should 404: %v", err)
	}

	body = futureRehearsalBody(band.Id, "Ghost Venue")
	body["venue_id"] = uuid.New()
	_, err = user.createRehearsal(body)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing venue should 404: %v", err)
	}

	venue, err := user.createVenue("Garage")
	if err != nil {
		t.Fatal(err)
	}
	body["venue_id"] = venue.Id
	rehearsal, err := user.createRehearsal(body)
	if err != nil {
		t.Fatal(err)
	}
	if rehearsal.Venue == nil || rehearsal.Venue.Name != "Garage" {
		t.Fatalf("venue should be attached: %v", rehearsal)
	}
}

func TestListRehearsalsAscending(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("lister")
	if err != nil {
		t.Fatal(err)
	}
	band, err := user.createBand("Ordered")
	if err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC().Add(24 * time.Hour)
	for _, offset := range []time.Duration{72 * time.Hour, 0, 24 * time.Hour} {
		body := map[string]interface{}{
			"band_id":    band.Id,
			"title":      "Practice",
			"start_time": base.Add(offset),
			"end_time":   base.Add(offset + 2*time.Hour),
		}
		if _, err := user.createRehearsal(body); err != nil {
			t.Fatal(err)
		}
	}

	rehearsals, err := user.listBandRehearsals(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(rehearsals) != 3 {
		t.Fatalf("expected 3 rehearsals, got %d", len(rehearsals))
	}
	for i := 1; i < len(rehearsals); i++ {
		if rehearsals[i].StartTime.Before(rehearsals[i-1].StartTime) {
			t.Fatal("rehearsals should be sorted ascending by start time")
		}
	}
}

func TestUpcomingRehearsals(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("upcoming")
	if err != nil {
		t.Fatal(err)
	}
	band, err := user.createBand("Future")
	if err != nil {
		t.Fatal(err)
	}

	otherUser, err := env.newUser("otherband")
	if err != nil {
		t.Fatal(err)
	}
	otherBand, err := otherUser.createBand("Unrelated")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := otherUser.createRehearsal(futureRehearsalBody(otherBand.Id, "Not Yours")); err != nil {
		t.Fatal(err)
	}

	past := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := user.createRehearsal(map[string]interface{}{
		"band_id":    band.Id,
		"title":      "Old Practice",
		"start_time": past,
		"end_time":   past.Add(2 * time.Hour),
	}); err != nil {
		t.Fatal(err)
	}

	future, err := user.createRehearsal(futureRehearsalBody(band.Id, "New Practice"))
	if err != nil {
		t.Fatal(err)
	}

	upcoming, err := user.upcomingRehearsals()
	if err != nil {
		t.Fatal(err)
	}
	if len(upcoming) != 1 || upcoming[0].Id != future.Id {
		t.Fatalf("upcoming should only contain the caller's future rehearsal: %v", upcoming)
	}
}

func TestUpdateRehearsal(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("updadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("updmember")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Editable")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, member.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}

	rehearsal, err := admin.createRehearsal(futureRehearsalBody(band.Id, "Original"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = member.updateRehearsal(rehearsal.Id, map[string]interface{}{"title": "Hijacked"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("only band admins can modify rehearsals: %v", err)
	}

	_, err = admin.updateRehearsal(rehearsal.Id, map[string]interface{}{
		"end_time": rehearsal.StartTime.Add(-time.Hour),
	})
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("end before start should be rejected: %v", err)
	}

	updated, err := admin.updateRehearsal(rehearsal.Id, map[string]interface{}{"title": "Moved"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Moved" {
		t.Fatalf("title should be updated: %v", updated)
	}

	_, err = admin.updateRehearsal(uuid.New(), map[string]interface{}{"title": "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing rehearsal should 404: %v", err)
	}
}

func TestDeleteRehearsalRemovesAttendance(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("deladmin")
	if err != nil {
		t.Fatal(err)
	}
	band, err := admin.createBand("Cleanup")
	if err != nil {
		t.Fatal(err)
	}

	rehearsal, err := admin.createRehearsal(futureRehearsalBody(band.Id, "Doomed Practice"))
	if err != nil {
		t.Fatal(err)
	}
	setlist, err := admin.createSetlist(rehearsal.Id, "Doomed Set")
	if err != nil {
		t.Fatal(err)
	}

	err = admin.deleteRehearsal(rehearsal.Id)
	if err != nil {
		t.Fatal(err)
	}

	var attendances int64
	if err := env.db.Model(&schema.Attendance{}).Where("rehearsal_id = ?", rehearsal.Id).Count(&attendances).Error; err != nil {
		t.Fatal(err)
	}
	if attendances != 0 {
		t.Fatalf("attendances should be removed with the rehearsal, found %d", attendances)
	}

	var setlists int64
	if err := env.db.Model(&schema.Setlist{}).Where("id = ?", setlist.Id).Count(&setlists).Error; err != nil {
		t.Fatal(err)
	}
	if setlists != 0 {
		t.Fatalf("setlists should be removed with the rehearsal, found %d", setlists)
	}

	_, err = admin.getRehearsal(rehearsal.Id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted rehearsal should 404: %v", err)
	}
}

func TestAttendanceUpsert(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("attadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("attmember")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("attoutsider")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Responses")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, member.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}

	rehearsal, err := admin.createRehearsal(futureRehearsalBody(band.Id, "RSVP Practice"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = outsider.updateAttendance(rehearsal.Id, schema.AttendanceConfirmed, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-members cannot respond: %v", err)
	}

	_, err = member.updateAttendance(rehearsal.Id, "maybe", "")
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("invalid status should be rejected: %v", err)
	}

	_, err = member.updateAttendance(rehearsal.Id, schema.AttendanceNoResponse, "")
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("no_response is not a settable status: %v", err)
	}

	first, err := member.updateAttendance(rehearsal.Id, schema.AttendanceTentative, "might be late")
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != schema.AttendanceTentative {
		t.Fatalf("unexpected attendance: %v", first)
	}

	second, err := member.updateAttendance(rehearsal.Id, schema.AttendanceConfirmed, "")
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != schema.AttendanceConfirmed {
		t.Fatalf("unexpected attendance: %v", second)
	}

	var rows []schema.Attendance
	if err := env.db.Find(&rows, "rehearsal_id = ? and user_id = ?", rehearsal.Id, member.userId).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Status != schema.AttendanceConfirmed {
		t.Fatalf("double upsert must leave one row with the latest status: %v", rows)
	}

	// A member added after scheduling has no seeded row, the upsert
	// creates it.
	late, err := env.newUser("latecomer")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, late.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}
	res, err := late.updateAttendance(rehearsal.Id, schema.AttendanceDeclined, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != schema.AttendanceDeclined {
		t.Fatalf("unexpected attendance: %v", res)
	}
}
