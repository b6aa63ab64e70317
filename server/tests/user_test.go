package tests

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestEnv(t)

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("user%d@mail.com", i)
		password := fmt.Sprintf("user%d_password", i)

		c := env.newClient()
		err := c.register(email, password, fmt.Sprintf("User%d", i), "Tester")
		if err != nil {
			t.Fatal(err)
		}

		dup := env.newClient()
		err = dup.register(email, password, "Dup", "Tester")
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate registration should conflict: %v", err)
		}

		err = env.newClient().login("missing@mail.com", password)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login should fail with wrong email: %v", err)
		}

		err = env.newClient().login(email, "wrong_password")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("login should fail with wrong password: %v", err)
		}

		c2 := env.newClient()
		err = c2.login(email, password)
		if err != nil {
			t.Fatal(err)
		}

		info, err := c2.userInfo()
		if err != nil {
			t.Fatal(err)
		}
		if info.Email != email || info.Id != c2.userId || !info.IsActive {
			t.Fatalf("invalid info %v", info)
		}
	}
}

func TestUserInfoRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()
	_, err := c.userInfo()
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("profileuser")
	if err != nil {
		t.Fatal(err)
	}

	info, err := user.updateProfile(map[string]string{
		"first_name": "Updated", "bio": "plays bass", "phone": "555-0100",
	})
	if err != nil {
		t.Fatal(err)
	}

	if info.FirstName != "Updated" || info.LastName != "Tester" {
		t.Fatalf("name not updated: %v", info)
	}
	if info.Profile == nil || info.Profile.Bio != "plays bass" || info.Profile.Phone != "555-0100" {
		t.Fatalf("profile not updated: %v", info)
	}

	info, err = user.updateProfile(map[string]string{"bio": "plays drums now"})
	if err != nil {
		t.Fatal(err)
	}
	if info.FirstName != "Updated" {
		t.Fatal("empty names should not overwrite existing values")
	}
	if info.Profile == nil || info.Profile.Bio != "plays drums now" {
		t.Fatalf("profile upsert should replace existing row: %v", info)
	}
}

func TestAvailability(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("availuser")
	if err != nil {
		t.Fatal(err)
	}

	_, err = user.addAvailability(9, "18:00", "21:00")
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("day_of_week out of range should be rejected: %v", err)
	}

	monday, err := user.addAvailability(1, "18:00", "21:00")
	if err != nil {
		t.Fatal(err)
	}
	_, err = user.addAvailability(3, "19:00", "22:00")
	if err != nil {
		t.Fatal(err)
	}

	entries, err := user.listAvailability()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].DayOfWeek != 1 || entries[1].DayOfWeek != 3 {
		t.Fatalf("unexpected availability list: %v", entries)
	}

	err = user.removeAvailability(monday.Id)
	if err != nil {
		t.Fatal(err)
	}

	err = user.removeAvailability(monday.Id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("double removal should 404: %v", err)
	}

	entries, err = user.listAvailability()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	other, err := env.newUser("otheravail")
	if err != nil {
		t.Fatal(err)
	}
	otherEntries, err := other.listAvailability()
	if err != nil {
		t.Fatal(err)
	}
	if len(otherEntries) != 0 {
		t.Fatal("availability must be scoped per user")
	}
}

func TestUnavailableDates(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.newUser("tripuser")
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now().UTC().Add(48 * time.Hour)

	_, err = user.addUnavailableDate(start, start.Add(-time.Hour), "backwards")
	if !errors.Is(err, ErrUnprocessable) {
		t.Fatalf("end before start should be rejected: %v", err)
	}

	entry, err := user.addUnavailableDate(start, start.Add(72*time.Hour), "tour")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Reason != "tour" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestDeleteUserRequiresPlatformAdmin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.newPlatformAdmin("platformadmin")
	if err != nil {
		t.Fatal(err)
	}

	user, err := env.newUser("regular")
	if err != nil {
		t.Fatal(err)
	}
	victim, err := env.newUser("victim")
	if err != nil {
		t.Fatal(err)
	}

	err = user.deleteUser(victim.userId)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("regular users cannot delete users: %v", err)
	}

	err = admin.deleteUser(victim.userId)
	if err != nil {
		t.Fatal(err)
	}

	err = env.newClient().login("victim@mail.com", "victim_password")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("deleted user should not be able to login: %v", err)
	}

	err = admin.deleteUser(victim.userId)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting a missing user should 404: %v", err)
	}
}
