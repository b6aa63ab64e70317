package main

import (
	"flag"
	"log"

	"bandroom/cmd/migration/versions"
	"bandroom/server/schema"

	"github.com/caarlos0/env/v10"
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type migrationEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
}

func loadEnv() (*migrationEnv, error) {
	cfg := &migrationEnv{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID:      "0_initial_schema",
			Migrate: versions.Migration_0_initial_schema,
		},
	}
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from.")
	dbUri := flag.String("db_uri", "", "Database connection string. Overrides the DATABASE_URI env variable if specified.")

	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("error loading .env file '%v': %v", *envFile, err)
		}
	}

	uri := *dbUri
	if uri == "" {
		cfg, err := loadEnv()
		if err != nil {
			log.Fatalf("failed to load environment variables: %v", err)
		}
		uri = cfg.DatabaseUri
	}

	db, err := gorm.Open(postgres.Open(uri), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	// Fresh databases skip the migration history and build the schema
	// directly from the current models.
	m.InitSchema(func(txn *gorm.DB) error {
		return txn.AutoMigrate(schema.Tables()...)
	})

	if err := m.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migration completed successfully")
}
