package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "tabioke.sqlite3"

// Keys used for persisted practice settings.
const (
	KeyTab           = "tabioke-tab"
	KeyTempo         = "tabioke-tempo"
	KeyTimeSignature = "tabioke-time-signature"
	KeyOffset        = "tabioke-offset"
	KeyAccentFirst   = "tabioke-accent-first"
	KeyAutoStart     = "tabioke-auto-start"
	KeySyncTempo     = "tabioke-sync-tempo"
)

var ErrNotFound = errors.New("store: key not found")

const errStoreNil = "store is nil"

// Setting is one key/value row.
type Setting struct {
	Key       string `gorm:"column:name;primaryKey;type:varchar(128)"`
	Value     string
	UpdatedAt time.Time
}

type Store struct {
	DB *gorm.DB
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Setting{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &Store{DB: db, db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Get(key string) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New(errStoreNil)
	}
	var row Setting
	err := s.DB.Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return row.Value, nil
}

func (s *Store) Set(key, value string) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	row := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if s == nil || s.DB == nil {
		return errors.New(errStoreNil)
	}
	if err := s.DB.Where("name = ?", key).Delete(&Setting{}).Error; err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting ordered by key.
func (s *Store) All() ([]Setting, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New(errStoreNil)
	}
	var rows []Setting
	if err := s.DB.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return rows, nil
}

func (s *Store) GetInt(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func (s *Store) GetFloat(key string) (float64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return f, nil
}

// GetBool reads values written by SetBool; anything but "true" is false.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func (s *Store) SetInt(key string, v int) error { return s.Set(key, strconv.Itoa(v)) }

func (s *Store) SetFloat(key string, v float64) error {
	return s.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Store) SetBool(key string, v bool) error { return s.Set(key, strconv.FormatBool(v)) }
