package service

import (
	"fmt"
	"strings"

	"prepchat/internal/entity"
	"prepchat/internal/nlog"
	"prepchat/internal/repository"
	apperrors "prepchat/pkg/errors"
)

// ChannelService is the channel directory: one channel per subject key,
// created lazily on first request.
type ChannelService interface {
	GetOrCreate(subjectKey string) (*entity.Channel, error)
	GetByID(id string) (*entity.Channel, error)
}

type channelDirectory struct {
	channelRepository repository.ChannelRepository
	logger            nlog.Logger
}

func NewChannelService(channelRepo repository.ChannelRepository, logger nlog.Logger) ChannelService {
	return &channelDirectory{
		channelRepository: channelRepo,
		logger:            logger,
	}
}

func (c *channelDirectory) Logf(format string, v ...any) {
	c.logger.Logf(format, v...)
}

func (c *channelDirectory) GetOrCreate(subjectKey string) (*entity.Channel, error) {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" {
		return nil, apperrors.ErrSubjectRequired
	}

	channel, err := c.channelRepository.CreateIfAbsent(&entity.Channel{
		SubjectKey:  subjectKey,
		DisplayName: subjectKey,
		Description: fmt.Sprintf("Chat for %s", subjectKey),
	})
	if err != nil {
		c.Logf("Channel get-or-create failed for %q: %v", subjectKey, err)
		return nil, err
	}
	return channel, nil
}

func (c *channelDirectory) GetByID(id string) (*entity.Channel, error) {
	return c.channelRepository.GetByID(id)
}
