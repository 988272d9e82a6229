package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutnpaste/api/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the durable backend. It runs on SQLite for single-node
// deployments and Postgres when pointed at a DSN.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGorm opens the configured database and migrates the auth tables.
func NewGorm(backend, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector

	switch backend {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database, %w", backend, err)
	}

	err = db.AutoMigrate(model.Account{}, model.VerificationCode{}, model.Session{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account

	err := s.db.WithContext(ctx).Where("email = ?", email).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &a, nil
}

func (s *GormStore) FindAccountByID(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &a, nil
}

func (s *GormStore) InsertAccount(ctx context.Context, a *model.Account) error {
	err := s.db.WithContext(ctx).Create(a).Error
	if err != nil {
		// The unique index on email is what makes concurrent duplicate
		// registrations lose deterministically.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}

		return err
	}

	return nil
}

func (s *GormStore) UpdateAccountFields(ctx context.Context, id string, fields map[string]any) error {
	r := s.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(fields)
	if r.Error != nil {
		return r.Error
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) UpsertCode(ctx context.Context, c *model.VerificationCode) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "expires_at", "created_at"}),
		}).
		Create(c).
		Error
}

func (s *GormStore) FindCode(ctx context.Context, email string) (*model.VerificationCode, error) {
	var c model.VerificationCode

	err := s.db.WithContext(ctx).Where("email = ?", email).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &c, nil
}

func (s *GormStore) DeleteCode(ctx context.Context, email string) error {
	return s.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&model.VerificationCode{}).
		Error
}

func (s *GormStore) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.VerificationCode{})

	return r.RowsAffected, r.Error
}

func (s *GormStore) InsertSession(ctx context.Context, sess *model.Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *GormStore) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var sess model.Session

	err := s.db.WithContext(ctx).Where("token = ?", token).First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &sess, nil
}

func (s *GormStore) DeleteSessionsByAccount(ctx context.Context, accountID string) error {
	return s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&model.Session{}).
		Error
}

func (s *GormStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.Session{})

	return r.RowsAffected, r.Error
}
