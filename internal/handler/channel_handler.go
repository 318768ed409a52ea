package handler

import (
	"net/http"

	"prepchat/internal/nlog"
	"prepchat/internal/service"
)

type channelReqFields struct {
	Subject string `json:"subject"`
}

type ChannelHandler struct {
	channelService service.ChannelService
	logger         nlog.Logger
}

func NewChannelHandler(channelService service.ChannelService, logger nlog.Logger) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
		logger:         logger,
	}
}

// GetOrCreate returns the channel for a subject, creating it on first sight.
func (c *ChannelHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req channelReqFields
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	channel, err := c.channelService.GetOrCreate(req.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]any{"channel": channel}, http.StatusOK)
}
