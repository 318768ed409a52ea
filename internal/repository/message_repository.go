package repository

import (
	"time"

	"prepchat/internal/entity"
	apperrors "prepchat/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(message *entity.Message) error
	GetByID(id string) (*entity.Message, error)

	// ListByChannel returns the channel's log in creation order (createdAt,
	// then insertion order for ties), senders resolved where possible. A
	// limit <= 0 means no bound.
	ListByChannel(channelID string, limit int) ([]*entity.Message, error)

	// EditOwned and DeleteOwned run the full ownership chain and the write in
	// one transaction with the message row locked, so the existence and
	// ownership checks cannot race a concurrent mutation of the same message.
	EditOwned(id, requesterUUID, content string, now time.Time) (*entity.Message, error)
	DeleteOwned(id, requesterUUID string) (*entity.Message, error)
}

type SQLiteMessageRepository struct {
	db *gorm.DB
}

func NewSQLiteMessageRepository(db *gorm.DB) MessageRepository {
	return &SQLiteMessageRepository{db}
}

func (repo *SQLiteMessageRepository) Create(message *entity.Message) error {
	// Sender is read-resolved, never written from here.
	if err := repo.db.Omit(clause.Associations).Create(message).Error; err != nil {
		return apperrors.ErrStorageUnavailable(err)
	}
	return nil
}

func (repo *SQLiteMessageRepository) GetByID(id string) (*entity.Message, error) {
	var message entity.Message
	err := repo.db.Preload("Sender").Where("id = ?", id).First(&message).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return &message, nil
}

func (repo *SQLiteMessageRepository) ListByChannel(channelID string, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	query := repo.db.Preload("Sender").
		Where("channel_id = ?", channelID).
		Order("created_at ASC").Order("seq ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}
	return messages, nil
}

func (repo *SQLiteMessageRepository) EditOwned(id, requesterUUID, content string, now time.Time) (*entity.Message, error) {
	var message entity.Message
	err := repo.db.Transaction(func(tx *gorm.DB) error {
		if err := lockedOwnedMessage(tx, id, requesterUUID, &message); err != nil {
			return err
		}

		message.Content = &content
		message.Edited = true
		message.EditedAt = &now
		if err := tx.Model(&entity.Message{}).Where("id = ?", id).Updates(map[string]any{
			"content":   content,
			"edited":    true,
			"edited_at": now,
		}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &message, nil
}

func (repo *SQLiteMessageRepository) DeleteOwned(id, requesterUUID string) (*entity.Message, error) {
	var message entity.Message
	err := repo.db.Transaction(func(tx *gorm.DB) error {
		if err := lockedOwnedMessage(tx, id, requesterUUID, &message); err != nil {
			return err
		}
		// Hard delete, no tombstone.
		return tx.Where("id = ?", id).Delete(&entity.Message{}).Error
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return &message, nil
}

// lockedOwnedMessage loads the message row under a write lock and walks the
// authorization chain: missing row, orphaned sender (fail closed), then
// ownership.
func lockedOwnedMessage(tx *gorm.DB, id, requesterUUID string, out *entity.Message) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Sender").
		Where("id = ?", id).First(out).Error
	if err == gorm.ErrRecordNotFound {
		return apperrors.ErrMessageNotFound
	}
	if err != nil {
		return err
	}

	if out.Orphaned() {
		return apperrors.ErrOrphanedMessage
	}
	if out.Sender.UUID != requesterUUID {
		return apperrors.ErrNotMessageOwner
	}
	return nil
}

func mapStorageErr(err error) error {
	if apperrors.CodeOf(err) != apperrors.CodeUnknown {
		return err
	}
	return apperrors.ErrStorageUnavailable(err)
}
