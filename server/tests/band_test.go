package tests

import (
	"errors"
	"testing"

	"bandroom/server/schema"

	"github.com/google/uuid"
)

func TestCreateBandCreatorBecomesAdmin(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("founder")
	if err != nil {
		t.Fatal(err)
	}

	band, err := user.createBand("The Testers")
	if err != nil {
		t.Fatal(err)
	}
	if band.Name != "The Testers" || band.CreatedBy != user.userId {
		t.Fatalf("unexpected band: %v", band)
	}

	members, err := user.listMembers(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].UserId != user.userId || members[0].Role != schema.BandRoleAdmin {
		t.Fatalf("creator should be the sole admin member: %v", members)
	}

	bands, err := user.listBands()
	if err != nil {
		t.Fatal(err)
	}
	if len(bands) != 1 || bands[0].Id != band.Id || bands[0].Role != schema.BandRoleAdmin {
		t.Fatalf("band list should carry the caller's role: %v", bands)
	}
}

func TestBandAccessControl(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("bandadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("bandmember")
	if err != nil {
		t.Fatal(err)
	}
	outsider, err := env.newUser("outsider")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Access Control")
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.addMember(band.Id, member.userId, schema.BandRoleMember)
	if err != nil {
		t.Fatal(err)
	}

	_, err = outsider.getBand(band.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-members cannot view band detail: %v", err)
	}

	_, err = member.updateBand(band.Id, map[string]string{"name": "Renamed"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin members cannot update the band: %v", err)
	}

	_, err = member.addMember(band.Id, outsider.userId, schema.BandRoleMember)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin members cannot add members: %v", err)
	}

	updated, err := admin.updateBand(band.Id, map[string]string{"name": "Renamed"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("band should be renamed: %v", updated)
	}

	detail, err := member.getBand(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.Members) != 2 {
		t.Fatalf("detail should include members: %v", detail)
	}
}

func TestAddMemberValidation(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("validadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("validmember")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Validation")
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.addMember(band.Id, uuid.New(), schema.BandRoleMember)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("adding a missing user should 404: %v", err)
	}

	_, err = admin.addMember(band.Id, member.userId, "roadie")
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("invalid role should be rejected: %v", err)
	}

	added, err := admin.addMember(band.Id, member.userId, schema.BandRoleCrew)
	if err != nil {
		t.Fatal(err)
	}
	if added.Role != schema.BandRoleCrew {
		t.Fatalf("unexpected member: %v", added)
	}

	_, err = admin.addMember(band.Id, member.userId, schema.BandRoleMember)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate member add should conflict: %v", err)
	}
}

func TestDuplicateMemberRowRejectedByIndex(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("idxadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("idxmember")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Index Check")
	if err != nil {
		t.Fatal(err)
	}

	_, err = admin.addMember(band.Id, member.userId, schema.BandRoleMember)
	if err != nil {
		t.Fatal(err)
	}

	// Bypass the handler's existence check to verify the uniqueness is
	// enforced at the persistence layer, not just in application logic.
	duplicate := schema.BandMember{
		Id:     uuid.New(),
		BandId: band.Id,
		UserId: member.userId,
		Role:   schema.BandRoleMember,
	}
	result := env.db.Create(&duplicate)
	if result.Error == nil {
		t.Fatal("duplicate (band, user) row should violate the unique index")
	}

	var count int64
	if err := env.db.Model(&schema.BandMember{}).
		Where("band_id = ? and user_id = ?", band.Id, member.userId).
		Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one membership row, got %d", count)
	}
}

func TestRemoveMemberLastAdminBlocked(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("lastadmin")
	if err != nil {
		t.Fatal(err)
	}
	member, err := env.newUser("secondmember")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Last Admin")
	if err != nil {
		t.Fatal(err)
	}
	_, err = admin.addMember(band.Id, member.userId, schema.BandRoleMember)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.removeMember(band.Id, admin.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("removing the last admin should be blocked: %v", err)
	}

	members, err := admin.listMembers(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 {
		t.Fatalf("membership must be unchanged after blocked removal: %v", members)
	}

	// Promote the second member, then the original admin can leave.
	err = admin.removeMember(band.Id, member.userId)
	if err != nil {
		t.Fatal(err)
	}
	_, err = admin.addMember(band.Id, member.userId, schema.BandRoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.removeMember(band.Id, admin.userId)
	if err != nil {
		t.Fatal(err)
	}

	members, err = member.listMembers(band.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].UserId != member.userId {
		t.Fatalf("expected only the promoted admin to remain: %v", members)
	}

	err = member.removeMember(band.Id, admin.userId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing a non-member should 404: %v", err)
	}
}

func TestDeleteBandCascades(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newUser("deleter")
	if err != nil {
		t.Fatal(err)
	}

	band, err := admin.createBand("Doomed")
	if err != nil {
		t.Fatal(err)
	}

	rehearsal, err := admin.createRehearsal(futureRehearsalBody(band.Id, "Final Practice"))
	if err != nil {
		t.Fatal(err)
	}
	song, err := admin.createSong(band.Id, "Last Song")
	if err != nil {
		t.Fatal(err)
	}
	setlist, err := admin.createSetlist(rehearsal.Id, "Final Set")
	if err != nil {
		t.Fatal(err)
	}
	_, err = admin.addSetlistItem(setlist.Id, song.Id)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.deleteBand(band.Id)
	if err != nil {
		t.Fatal(err)
	}

	for model, name := range map[interface{}]string{
		&schema.Band{}:        "bands",
		&schema.BandMember{}:  "band members",
		&schema.Rehearsal{}:   "rehearsals",
		&schema.Attendance{}:  "attendances",
		&schema.Song{}:        "songs",
		&schema.Setlist{}:     "setlists",
		&schema.SetlistItem{}: "setlist items",
	} {
		var count int64
		if err := env.db.Model(model).Count(&count).Error; err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Fatalf("expected no %v rows after band delete, got %d", name, count)
		}
	}

	// The membership row is gone too, so the admin check fails first.
	err = admin.deleteBand(band.Id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("deleting a missing band should be rejected: %v", err)
	}
}
