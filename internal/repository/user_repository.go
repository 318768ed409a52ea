package repository

import (
	"prepchat/internal/entity"
	apperrors "prepchat/pkg/errors"

	"gorm.io/gorm"
)

type UserRepository interface {
	// Resolve looks up the public profile behind a user id. A missing account
	// is not an error here: it returns (nil, nil) so callers can distinguish
	// "unresolved sender" from storage failure.
	Resolve(uuid string) (*entity.User, error)
}

type SQLiteUserRepository struct {
	db *gorm.DB
}

func NewSQLiteUserRepository(db *gorm.DB) UserRepository {
	return &SQLiteUserRepository{db}
}

func (repo *SQLiteUserRepository) Resolve(uuid string) (*entity.User, error) {
	var user entity.User
	err := repo.db.Where("uuid = ?", uuid).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return &user, nil
}
