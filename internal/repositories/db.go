package repositories

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/collabforge/collabforge/internal/config"
	"github.com/collabforge/collabforge/internal/models"
)

var DB *gorm.DB

func ConnectDatabase() {
	dsn := config.Envs.DB_URL
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	// Run migrations
	err = db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Collaborator{},
		&models.Folder{},
		&models.FileRecord{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	DB = db
	log.Info().Msg("Successfully connected to database")
}
