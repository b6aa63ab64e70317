package tests

import (
	"bytes"
	"fmt"
	"testing"

	"bandroom/server/auth"
	"bandroom/server/schema"
	"bandroom/server/services"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	bandroom services.Bandroom
	api      chi.Router
	db       *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(schema.Tables()...)
	if err != nil {
		t.Fatal(err)
	}

	userAuth := auth.NewBasicIdentityProvider(
		db,
		auth.NewAuditLogger(new(bytes.Buffer)),
		auth.BasicProviderArgs{Secret: []byte("290zcv02ai249")},
	)

	bandroom := services.NewBandroom(db, userAuth)

	return &testEnv{bandroom: bandroom, api: bandroom.Routes(), db: db}
}

func (e *testEnv) newClient() *client {
	return &client{api: e.api}
}

// newUser registers a user named after the given handle and returns an
// authenticated client.
func (e *testEnv) newUser(handle string) (*client, error) {
	c := e.newClient()
	err := c.register(handle+"@mail.com", handle+"_password", handle, "Tester")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// newPlatformAdmin registers a user and promotes it to the platform
// admin role directly in the database.
func (e *testEnv) newPlatformAdmin(handle string) (*client, error) {
	c, err := e.newUser(handle)
	if err != nil {
		return nil, err
	}

	result := e.db.Model(&schema.User{}).Where("id = ?", c.userId).Update("role", schema.UserRoleAdmin)
	if result.Error != nil {
		return nil, fmt.Errorf("error promoting user: %w", result.Error)
	}

	return c, nil
}
