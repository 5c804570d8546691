package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/libs/httputil"
)

type sessionResponse struct {
	ID                string  `json:"id"`
	Title             string  `json:"title,omitempty"`
	Language          string  `json:"language,omitempty"`
	CoachingSessionID string  `json:"coaching_session_id,omitempty"`
	Status            string  `json:"status"`
	Progress          float64 `json:"progress"`
	AudioFilename     string  `json:"audio_filename,omitempty"`
	DurationSeconds   int     `json:"duration_seconds,omitempty"`
	FailureReason     string  `json:"failure_reason,omitempty"`
	RetryOfSessionID  string  `json:"retry_of_session_id,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UploadedAt        string  `json:"uploaded_at,omitempty"`
	CompletedAt       string  `json:"completed_at,omitempty"`
}

func sessionToResponse(s *dal.Session) *sessionResponse {
	return &sessionResponse{
		ID:                s.ID.String(),
		Title:             s.Title,
		Language:          s.Language,
		CoachingSessionID: s.CoachingSessionID,
		Status:            strings.ToLower(s.Status.String()),
		Progress:          s.Progress,
		AudioFilename:     s.AudioFilename,
		DurationSeconds:   s.DurationSeconds,
		FailureReason:     s.FailureReason,
		RetryOfSessionID:  s.RetryOfSessionID.String(),
		CreatedAt:         formatTime(s.Created),
		UploadedAt:        formatTime(s.UploadedAt),
		CompletedAt:       formatTime(s.CompletedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sessionID(w http.ResponseWriter, r *http.Request) (dal.SessionID, bool) {
	id, err := dal.ParseSessionID(mux.Vars(r)["id"])
	if err != nil {
		writeErrorCode(w, http.StatusNotFound, "not_found", "Session not found")
		return dal.EmptySessionID(), false
	}
	return id, true
}

type sessionsHandler struct {
	srv *server.Server
}

func newSessionsHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&sessionsHandler{srv: srv}, httputil.Get, httputil.Post)
}

type createSessionRequest struct {
	Title             string `json:"title"`
	Language          string `json:"language"`
	CoachingSessionID string `json:"coaching_session_id"`
}

func (h *sessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case httputil.Post:
		var rd createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse request body")
			return
		}
		session, err := h.srv.CreateSession(&server.CreateSessionRequest{
			AccountID:         accountID(r),
			Title:             rd.Title,
			Language:          rd.Language,
			CoachingSessionID: rd.CoachingSessionID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSONResponse(w, http.StatusCreated, sessionToResponse(session))
	case httputil.Get:
		sessions, err := h.srv.Sessions(accountID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		res := struct {
			Sessions []*sessionResponse `json:"sessions"`
		}{
			Sessions: make([]*sessionResponse, len(sessions)),
		}
		for i, s := range sessions {
			res.Sessions[i] = sessionToResponse(s)
		}
		httputil.JSONResponse(w, http.StatusOK, &res)
	}
}

type sessionHandler struct {
	srv *server.Server
}

func newSessionHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&sessionHandler{srv: srv}, httputil.Get, httputil.Patch, httputil.Delete)
}

type updateSessionRequest struct {
	Title    *string `json:"title"`
	Language *string `json:"language"`
}

func (h *sessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case httputil.Get:
		session, err := h.srv.Session(accountID(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSONResponse(w, http.StatusOK, sessionToResponse(session))
	case httputil.Patch:
		var rd updateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse request body")
			return
		}
		session, err := h.srv.UpdateSession(accountID(r), id, &server.UpdateSessionRequest{
			Title:    rd.Title,
			Language: rd.Language,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSONResponse(w, http.StatusOK, sessionToResponse(session))
	case httputil.Delete:
		if err := h.srv.DeleteSession(accountID(r), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type uploadURLHandler struct {
	srv *server.Server
}

func newUploadURLHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&uploadURLHandler{srv: srv}, httputil.Post)
}

type uploadURLRequest struct {
	Filename string `json:"filename"`
}

type uploadURLResponse struct {
	URL     string `json:"url"`
	Expires string `json:"expires"`
}

func (h *uploadURLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var rd uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse request body")
		return
	}
	res, err := h.srv.UploadURL(&server.UploadURLRequest{
		AccountID: accountID(r),
		ID:        id,
		Filename:  rd.Filename,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, &uploadURLResponse{
		URL:     res.URL,
		Expires: formatTime(res.Expires),
	})
}

type confirmUploadHandler struct {
	srv *server.Server
}

func newConfirmUploadHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&confirmUploadHandler{srv: srv}, httputil.Post)
}

type confirmUploadRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (h *confirmUploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var rd confirmUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse request body")
		return
	}
	session, err := h.srv.ConfirmUpload(&server.ConfirmUploadRequest{
		AccountID:       accountID(r),
		ID:              id,
		DurationSeconds: rd.DurationSeconds,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, sessionToResponse(session))
}

type statusHandler struct {
	srv *server.Server
}

func newStatusHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&statusHandler{srv: srv}, httputil.Get)
}

type statusResponse struct {
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message"`
	ETASeconds int     `json:"eta_seconds,omitempty"`
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	st, _, err := h.srv.Status(accountID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.JSONResponse(w, http.StatusOK, &statusResponse{
		Status:     strings.ToLower(st.Status.String()),
		Progress:   st.Progress,
		Message:    st.Message,
		ETASeconds: st.ETASeconds,
	})
}

type statusHistoryHandler struct {
	srv *server.Server
}

func newStatusHistoryHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&statusHistoryHandler{srv: srv}, httputil.Get)
}

type statusRecordResponse struct {
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func (h *statusHistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	records, err := h.srv.StatusHistory(accountID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := struct {
		History []*statusRecordResponse `json:"history"`
	}{
		History: make([]*statusRecordResponse, len(records)),
	}
	for i, rec := range records {
		res.History[i] = &statusRecordResponse{
			Status:    strings.ToLower(rec.Status.String()),
			Progress:  rec.Progress,
			Message:   rec.Message,
			CreatedAt: formatTime(rec.Created),
		}
	}
	httputil.JSONResponse(w, http.StatusOK, &res)
}

type retryHandler struct {
	srv *server.Server
}

func newRetryHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&retryHandler{srv: srv}, httputil.Post)
}

func (h *retryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.srv.Retry(accountID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.JSONResponse(w, http.StatusCreated, sessionToResponse(session))
}
