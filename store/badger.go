package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/recyclebuddy/recyclebuddy/models"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix  = "user:"
	imageKeyPrefix = "img:"
	quotaKeyPrefix = "quota:"
)

// conflictRetries bounds optimistic transaction retries on badger.ErrConflict.
const conflictRetries = 64

type userRecord struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	XP           int       `json:"xp"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r userRecord) model() *models.User {
	return &models.User{
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		XP:           r.XP,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type quotaRecord struct {
	Day   string `json:"date"`
	Count int    `json:"count"`
}

// BadgerStore implements Store on an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB at dir. An empty dir keeps everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened BadgerDB.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func userKey(username string) []byte { return []byte(userKeyPrefix + username) }

func imageKey(username, hash string) []byte {
	return []byte(imageKeyPrefix + username + ":" + hash)
}

func quotaKey(username string) []byte { return []byte(quotaKeyPrefix + username) }

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func getJSON(txn *badger.Txn, key []byte, out any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// CreateUser stores a new account; the username must be unused.
func (s *BadgerStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	now := time.Now()
	rec := userRecord{Username: username, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	err := s.update(ctx, func(txn *badger.Txn) error {
		var existing userRecord
		found, err := getJSON(txn, userKey(username), &existing)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if found {
			return ErrUserExists
		}
		return setJSON(txn, userKey(username), rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.model(), nil
}

// GetUser loads an account by username.
func (s *BadgerStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var rec userRecord
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, userKey(username), &rec)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !found {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.model(), nil
}

// AddXP increments the user's XP inside a single transaction.
func (s *BadgerStore) AddXP(ctx context.Context, username string, delta int) (int, error) {
	if delta < 0 {
		return 0, ErrNegativeXP
	}
	var total int
	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec userRecord
		found, err := getJSON(txn, userKey(username), &rec)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !found {
			return ErrUserNotFound
		}
		rec.XP += delta
		rec.UpdatedAt = time.Now()
		total = rec.XP
		return setJSON(txn, userKey(username), rec)
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// HasImage reports whether the user was already scored on an image with this hash.
func (s *BadgerStore) HasImage(ctx context.Context, username, hash string) (bool, error) {
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(imageKey(username, hash))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("get image: %w", err)
	}
	return found, nil
}

// RecordImage adds hash to the user's set. Recording twice is a no-op.
func (s *BadgerStore) RecordImage(ctx context.Context, username, hash string) error {
	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	return s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(imageKey(username, hash))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get image: %w", err)
		}
		return txn.Set(imageKey(username, hash), stamp)
	})
}

// UploadsToday returns the stored count when it belongs to day, zero otherwise.
func (s *BadgerStore) UploadsToday(ctx context.Context, username, day string) (int, error) {
	var rec quotaRecord
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, quotaKey(username), &rec)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get quota: %w", err)
	}
	if rec.Day != day {
		return 0, nil
	}
	return rec.Count, nil
}

// ConsumeUpload is an atomic check-and-increment of the daily counter.
func (s *BadgerStore) ConsumeUpload(ctx context.Context, username, day string, limit int) (int, error) {
	var count int
	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec quotaRecord
		if _, err := getJSON(txn, quotaKey(username), &rec); err != nil {
			return fmt.Errorf("get quota: %w", err)
		}
		if rec.Day != day {
			rec = quotaRecord{Day: day}
		}
		if rec.Count >= limit {
			count = rec.Count
			return ErrQuotaExceeded
		}
		rec.Count++
		count = rec.Count
		return setJSON(txn, quotaKey(username), rec)
	})
	return count, err
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
