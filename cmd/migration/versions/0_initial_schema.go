package versions

import (
	"bandroom/server/schema"

	"gorm.io/gorm"
)

func Migration_0_initial_schema(txn *gorm.DB) error {
	return txn.AutoMigrate(schema.Tables()...)
}
