package history

import (
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	EventSearch      = "search"
	EventProfileView = "profile-view"
	EventChat        = "chat"
)

// Event is one recorded interaction with the backend: a search, a profile
// view, or a chat exchange about a researcher.
type Event struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Kind       string `gorm:"size:20;not null;index" json:"kind"`
	RegistryId string `gorm:"index" json:"registry_id,omitempty"`
	Query      string `json:"query,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening history db: %w", err)
	}

	if err := getMigrator(db).Migrate(); err != nil {
		return nil, fmt.Errorf("error migrating history db: %w", err)
	}

	return &Store{db: db}, nil
}

func getMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&Event{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		return txn.AutoMigrate(&Event{})
	})

	return migrator
}

func (s *Store) record(event Event) error {
	event.Id = uuid.New()
	event.CreatedAt = time.Now().UTC()
	if err := s.db.Create(&event).Error; err != nil {
		return fmt.Errorf("error recording %s event: %w", event.Kind, err)
	}
	return nil
}

func (s *Store) RecordSearch(query, searchType, country string) error {
	detail := "type=" + searchType
	if country != "" {
		detail += " country=" + country
	}
	return s.record(Event{Kind: EventSearch, Query: query, Detail: detail})
}

func (s *Store) RecordProfileView(registryId string) error {
	return s.record(Event{Kind: EventProfileView, RegistryId: registryId})
}

func (s *Store) RecordChat(registryId, message string) error {
	return s.record(Event{Kind: EventChat, RegistryId: registryId, Query: message})
}

// Recent returns the most recent events, newest first, capped at limit.
func (s *Store) Recent(limit int) ([]Event, error) {
	var events []Event
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("error listing history: %w", err)
	}
	return events, nil
}
