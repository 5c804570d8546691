package handlers

import (
	"net/http"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/httputil"
)

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps a server error to an HTTP response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch cause := errors.Cause(err); {
	case cause == server.ErrNotFound:
		writeErrorCode(w, http.StatusNotFound, "not_found", "Session not found")
	case cause == server.ErrForbidden:
		writeErrorCode(w, http.StatusForbidden, "forbidden", "Access denied")
	case cause == server.ErrTranscriptNotAvailable:
		writeErrorCode(w, http.StatusConflict, "transcript_not_available", "The session does not have a transcript yet")
	case cause == server.ErrReuploadRequired:
		writeErrorCode(w, http.StatusGone, "reupload_required", "The audio is no longer stored, upload it again to retry")
	case server.IsValidationError(err):
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", cause.(*server.ValidationError).Reason)
	case server.IsQuotaError(err):
		writeErrorCode(w, http.StatusPaymentRequired, "quota_exceeded", cause.(*server.QuotaError).Reason)
	default:
		golog.LogDepthf(1, golog.ERR, "transcription: %s %s failed: %s", r.Method, r.URL.Path, err)
		writeErrorCode(w, http.StatusInternalServerError, "internal", "Internal error")
	}
}

func writeErrorCode(w http.ResponseWriter, statusCode int, errType, message string) {
	httputil.JSONResponse(w, statusCode, &errorResponse{
		Error: errorBody{Type: errType, Message: message},
	})
}
