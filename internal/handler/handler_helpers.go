package handler

import (
	"encoding/json"
	"net/http"

	apperrors "prepchat/pkg/errors"
)

func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError surfaces the machine-checkable error kind to the caller.
// Ownership violations and not-found come back as denial/absence, never as a
// generic server error.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	// Authored message only; wrapped causes carry driver/broker detail that
	// never belongs on the wire.
	body := map[string]any{"code": code, "message": apperrors.PublicMessage(err)}
	if code == apperrors.CodeUnknown || code == apperrors.CodeInternal {
		body["message"] = "Server error"
	}
	writeJSON(w, body, httpStatusFor(code))
}

func httpStatusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodeFailedPrecondition:
		return http.StatusConflict
	case apperrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody[T any](r *http.Request, into *T) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apperrors.InvalidArg("malformed request body")
	}
	return nil
}
