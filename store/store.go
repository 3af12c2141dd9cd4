// Package store persists player accounts, scored image hashes and the daily upload counters.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/recyclebuddy/recyclebuddy/config"
	"github.com/recyclebuddy/recyclebuddy/models"
)

var (
	ErrUserExists    = errors.New("username already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrQuotaExceeded = errors.New("daily upload limit reached")
	ErrNegativeXP    = errors.New("xp delta must not be negative")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is the persistence boundary used by the HTTP layer.
// XP and quota mutations are atomic per user.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	// AddXP adds a non-negative delta and returns the new total.
	AddXP(ctx context.Context, username string, delta int) (int, error)

	HasImage(ctx context.Context, username, hash string) (bool, error)
	RecordImage(ctx context.Context, username, hash string) error

	// UploadsToday reports how many uploads were consumed on day (YYYY-MM-DD).
	UploadsToday(ctx context.Context, username, day string) (int, error)
	// ConsumeUpload increments the counter for day, resetting it when the
	// stored day differs. Returns ErrQuotaExceeded when already at limit.
	ConsumeUpload(ctx context.Context, username, day string, limit int) (int, error)

	Close() error
}

// Open builds the store selected by configuration.
func Open(cfg config.AppConfig) (Store, error) {
	switch cfg.Store.Driver {
	case "", "badger":
		return OpenBadger(cfg.Store.BadgerPath)
	case "mysql":
		db, err := config.OpenDatabase(cfg, &models.User{}, &models.UserImage{}, &models.DailyUpload{})
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Store.Driver)
	}
}
