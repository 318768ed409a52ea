package handler

import (
	"net/http"
	"strconv"

	"prepchat/internal/middleware"
	"prepchat/internal/nlog"
	"prepchat/internal/service"
	"prepchat/internal/storage"
	apperrors "prepchat/pkg/errors"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 32 << 20

type msgReqFields struct {
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type MessageHandler struct {
	messageService service.MessageService
	attachments    storage.AttachmentStore
	logger         nlog.Logger
}

func NewMessageHandler(messageService service.MessageService, attachments storage.AttachmentStore, logger nlog.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		attachments:    attachments,
		logger:         logger,
	}
}

// List returns the channel's full ordered history, senders resolved.
func (m *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["channelId"]

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, apperrors.InvalidArg("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	messages, err := m.messageService.ListByChannel(r.Context(), channelID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, messages, http.StatusOK)
}

// Send is the synchronous text-send path. Plain-text sends over the
// websocket land on the same gateway call.
func (m *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req msgReqFields
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	message, err := m.messageService.Send(r.Context(), service.SendInput{
		ChannelID:      mux.Vars(r)["channelId"],
		SenderID:       identity.UserID,
		Content:        req.Content,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, message, http.StatusCreated)
}

// Upload stores the binary first, then runs the exact same commit-then-publish
// send as every other path, so attachment sends broadcast too.
func (m *MessageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperrors.InvalidArg("malformed multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperrors.InvalidArg("no file uploaded"))
		return
	}
	defer file.Close()

	ref, err := m.attachments.Store(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		m.logger.Logf("Attachment upload failed: %v", err)
		writeError(w, apperrors.ErrStorageUnavailable(err))
		return
	}

	message, err := m.messageService.Send(r.Context(), service.SendInput{
		ChannelID:      r.FormValue("channelId"),
		SenderID:       identity.UserID,
		Content:        r.FormValue("content"),
		AttachmentRef:  ref,
		IdempotencyKey: r.FormValue("idempotencyKey"),
	})
	if err != nil {
		// The binary is orphaned if the send is rejected; reclaim it.
		m.attachments.Delete(r.Context(), ref)
		writeError(w, err)
		return
	}

	writeJSON(w, message, http.StatusCreated)
}

// Edit mutates a message's content; ownership is re-verified server-side.
func (m *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req msgReqFields
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	message, err := m.messageService.Edit(r.Context(), mux.Vars(r)["messageId"], identity.UserID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, message, http.StatusOK)
}

// Delete hard-deletes a message and best-effort reclaims its attachment.
func (m *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFrom(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := m.messageService.Delete(r.Context(), mux.Vars(r)["messageId"], identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"message": "Message deleted"}, http.StatusOK)
}
