package tests

import (
	"errors"
	"testing"

	"bandroom/server/schema"
)

func TestSongLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("songadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("songmember")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("songoutsider")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Songwriters")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admin.addMember(band.Id, member.userId, schema.BandRoleMember); err != nil {
		t.Fatal(err)
	}

	_, err = outsider.createSong(band.Id, "Stolen Tune")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-members cannot add songs: %v", err)
	}

	song, err := member.createSong(band.Id, "Midnight Drive")
	if err != nil {
		t.Fatal(err)
	}

	songs, err := member.listBandSongs(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(songs) != 1 || songs[0].Title != "Midnight Drive" {
		t.Fatalf("unexpected song list: %v", songs)
	}

	_, err = outsider.listBandSongs(band.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-members cannot list songs: %v", err)
	}

	// Members can view, only admins can mutate.
	err = member.Get("/songs/" + song.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	err = member.Put("/songs/"+song.Id.String()).Json(map[string]string{"title": "Renamed"}).Do(nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin members cannot update songs: %v", err)
	}

	var updated map[string]interface{}
	err = admin.Put("/songs/"+song.Id.String()).Json(map[string]interface{}{"title": "Renamed", "tempo": 120}).Do(&updated)
	if err != nil {
		t.Fatal(err)
	}
	if updated["title"] != "Renamed" {
		t.Fatalf("song should be renamed: %v", updated)
	}

	attachment, err := member.addAttachment(song.Id, "chart", "https://files.example.com/chart.pdf")
	if err != nil {
		t.Fatal(err)
	}

	songs, err = member.listBandSongs(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(songs[0].Attachments) != 1 || songs[0].Attachments[0].Id != attachment.Id {
		t.Fatalf("attachment should be listed with the song: %v", songs)
	}

	err = member.Delete("/songs/" + song.Id.String()).Do(nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin members cannot delete songs: %v", err)
	}

	err = admin.Delete("/songs/" + song.Id.String()).Do(nil)
	if err != nil {
		t.Fatal(err)
	}

	var count int64
	if err := env.db.Model(&schema.SongAttachment{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("attachments should be removed with the song, found %d", count)
	}
}
