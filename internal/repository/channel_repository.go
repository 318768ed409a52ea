package repository

import (
	"time"

	"prepchat/internal/entity"
	apperrors "prepchat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChannelRepository interface {
	GetBySubjectKey(subjectKey string) (*entity.Channel, error)
	GetByID(id string) (*entity.Channel, error)

	// CreateIfAbsent inserts the channel unless one already exists for its
	// subject key, and returns the surviving record either way. The unique
	// index on subject_key makes this safe under concurrent first-time
	// creation; there is no read-then-create window.
	CreateIfAbsent(channel *entity.Channel) (*entity.Channel, error)
}

type SQLiteChannelRepository struct {
	db *gorm.DB
}

func NewSQLiteChannelRepository(db *gorm.DB) ChannelRepository {
	return &SQLiteChannelRepository{db}
}

func (repo *SQLiteChannelRepository) GetBySubjectKey(subjectKey string) (*entity.Channel, error) {
	var channel entity.Channel
	err := repo.db.Where("subject_key = ?", subjectKey).First(&channel).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.ErrChannelNotFound
	}
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return &channel, nil
}

func (repo *SQLiteChannelRepository) GetByID(id string) (*entity.Channel, error) {
	var channel entity.Channel
	err := repo.db.Where("id = ?", id).First(&channel).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.ErrChannelNotFound
	}
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return &channel, nil
}

func (repo *SQLiteChannelRepository) CreateIfAbsent(channel *entity.Channel) (*entity.Channel, error) {
	if channel.ID == "" {
		channel.ID = uuid.New().String()
	}
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}

	err := repo.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_key"}},
		DoNothing: true,
	}).Create(channel).Error
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	// A conflicting insert is a no-op; re-fetch so the caller always gets the
	// record that actually won.
	return repo.GetBySubjectKey(channel.SubjectKey)
}
