// Package handlers exposes the transcription service over HTTP.
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/libs/httputil"
)

// accountIDHeader carries the authenticated account id, set by the API
// gateway after it verifies the caller's token.
const accountIDHeader = "X-Account-ID"

// New returns the HTTP handler for the transcription API.
func New(srv *server.Server) http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.Handle("/sessions", newSessionsHandler(srv))
	router.Handle("/sessions/{id}", newSessionHandler(srv))
	router.Handle("/sessions/{id}/upload-url", newUploadURLHandler(srv))
	router.Handle("/sessions/{id}/confirm-upload", newConfirmUploadHandler(srv))
	router.Handle("/sessions/{id}/status", newStatusHandler(srv))
	router.Handle("/sessions/{id}/status/history", newStatusHistoryHandler(srv))
	router.Handle("/sessions/{id}/retry", newRetryHandler(srv))
	router.Handle("/sessions/{id}/transcript", newTranscriptHandler(srv))
	router.Handle("/sessions/{id}/speakers", newSpeakersHandler(srv))

	return requireAccount(router)
}

// requireAccount rejects requests without an authenticated account id.
func requireAccount(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(accountIDHeader) == "" {
			httputil.JSONResponse(w, http.StatusUnauthorized, &errorResponse{
				Error: errorBody{Type: "unauthenticated", Message: "Account authentication required"},
			})
			return
		}
		h.ServeHTTP(w, r)
	})
}

func accountID(r *http.Request) string {
	return r.Header.Get(accountIDHeader)
}
