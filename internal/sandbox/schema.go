package sandbox

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Project struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null"`
	Description string
	CreatedAt   time.Time

	Uploads []Upload `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE"`
	Reports []Report `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE"`
}

// Upload holds one dataset per (project, kind). Re-uploading a kind replaces
// the previous row; the other kind is untouched.
type Upload struct {
	ProjectId  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind       string    `gorm:"primaryKey"`
	Filename   string
	Data       []byte `gorm:"not null"`
	Rows       int
	Columns    int
	UploadedAt time.Time
}

type Report struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectId uuid.UUID `gorm:"type:uuid;index;not null"`
	Preset    string    `gorm:"not null"`
	Content   []byte    `gorm:"not null"` // JSON document
	CreatedAt time.Time
}

// NewDatabase opens the backing store. Postgres DSNs use the postgres
// driver, anything else is treated as a sqlite path.
func NewDatabase(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := GetMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return db, nil
}

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&Project{}, &Upload{}, &Report{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// This is run by the migrator if no previous migration is detected.
		// It allows it to bypass running all the migrations sequentially and
		// just create the latest database state.

		log.Println("clean database detected, running full schema initialization")

		dbType := db.Dialector.Name()
		if dbType == "sqlite" || dbType == "sqlite3" {
			// Sqlite does not enable foreign key constraints by default.
			if err := txn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				slog.Error("error enabling foreign keys for SQLite", "error", err)
			}
		}

		return txn.AutoMigrate(&Project{}, &Upload{}, &Report{})
	})

	return migrator
}
