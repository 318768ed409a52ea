package errors

var (
	// Domain errors — used in service/repository
	ErrSubjectRequired       = InvalidArg("subject key must not be empty")
	ErrEmptyContent          = InvalidArg("message content cannot be empty")
	ErrNoContentNoAttachment = InvalidArg("message must have either text or an attachment")
	ErrChannelNotFound       = NotFound("channel not found")
	ErrMessageNotFound       = NotFound("message not found")
	ErrNotMessageOwner       = Forbidden("only the sender can modify this message")
	ErrOrphanedMessage       = FailedPrecondition("message sender no longer exists, ownership unverifiable")
	ErrNotAuthenticated      = Unauthenticated("missing or invalid credentials")
)

func ErrStorageUnavailable(cause error) error {
	return Wrap(CodeUnavailable, "storage temporarily unreachable", cause)
}

func ErrBusUnavailable(cause error) error {
	return Wrap(CodeUnavailable, "broadcast bus temporarily unreachable", cause)
}
