package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recyclebuddy/recyclebuddy/models"
)

// MySQL server errors that abort a transaction which can simply be run again.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
	txRetries            = 5
)

// GormStore implements Store on MySQL through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialised gorm handle. The schema must already be migrated.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// transaction runs fn in a transaction, retrying when MySQL picks it as a deadlock victim.
func (s *GormStore) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for i := 0; i < txRetries; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.WithContext(ctx).Transaction(fn)
		if !retryable(err) {
			return err
		}
	}
	return err
}

func retryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
}

func (s *GormStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{Username: username, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) AddXP(ctx context.Context, username string, delta int) (int, error) {
	if delta < 0 {
		return 0, ErrNegativeXP
	}
	var total int
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("username = ?", username).
			Update("xp", gorm.Expr("xp + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Model(&models.User{}).Where("username = ?", username).
			Select("xp").Scan(&total).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("add xp: %w", err)
	}
	return total, nil
}

func (s *GormStore) HasImage(ctx context.Context, username, hash string) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&models.UserImage{}).
		Where("username = ? AND hash = ?", username, hash).Count(&cnt).Error
	if err != nil {
		return false, fmt.Errorf("count images: %w", err)
	}
	return cnt > 0, nil
}

func (s *GormStore) RecordImage(ctx context.Context, username, hash string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserImage{Username: username, Hash: hash}).Error
	if err != nil {
		return fmt.Errorf("record image: %w", err)
	}
	return nil
}

func (s *GormStore) UploadsToday(ctx context.Context, username, day string) (int, error) {
	var row models.DailyUpload
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota: %w", err)
	}
	if row.Day != day {
		return 0, nil
	}
	return row.Count, nil
}

func (s *GormStore) ConsumeUpload(ctx context.Context, username, day string, limit int) (int, error) {
	var count int
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		// make sure a row exists so the lock below has something to hold
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.DailyUpload{Username: username, Day: day}).Error; err != nil {
			return err
		}
		var row models.DailyUpload
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("username = ?", username).First(&row).Error; err != nil {
			return err
		}
		if row.Day != day {
			row.Day = day
			row.Count = 0
		}
		if row.Count >= limit {
			count = row.Count
			return ErrQuotaExceeded
		}
		row.Count++
		count = row.Count
		return tx.Model(&models.DailyUpload{}).Where("username = ?", username).
			Updates(map[string]interface{}{"day": row.Day, "count": row.Count}).Error
	})
	if err != nil && !errors.Is(err, ErrQuotaExceeded) {
		return 0, fmt.Errorf("consume upload: %w", err)
	}
	return count, err
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
