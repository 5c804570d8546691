package handlers

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/libs/httputil"
	"github.com/coachloop/backend/libs/transcript"
)

// maxTranscriptBytes caps the size of a manually uploaded transcript.
const maxTranscriptBytes = 10 << 20

type transcriptHandler struct {
	srv *server.Server
}

func newTranscriptHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&transcriptHandler{srv: srv}, httputil.Get, httputil.Put)
}

type exportQuery struct {
	Format            string   `schema:"format"`
	ExcludeTimestamps bool     `schema:"exclude_timestamps"`
	ExcludeSpeakers   bool     `schema:"exclude_speakers"`
	Speakers          []string `schema:"speaker"`
}

func (h *transcriptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case httputil.Get:
		if err := r.ParseForm(); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse query")
			return
		}
		query := &exportQuery{Format: string(transcript.FormatJSON)}
		decoder := schema.NewDecoder()
		decoder.IgnoreUnknownKeys(true)
		if err := decoder.Decode(query, r.Form); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse query")
			return
		}
		format, err := transcript.ParseFormat(query.Format)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Unsupported format %q", query.Format))
			return
		}

		// Validate before streaming so errors still produce a clean JSON
		// response instead of a half-written body.
		info, err := h.srv.ExportInfo(accountID(r), id, format)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", info.MIMEType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", info.Filename))
		if _, err := h.srv.Export(w, accountID(r), id, &server.ExportRequest{
			Format:            format,
			ExcludeTimestamps: query.ExcludeTimestamps,
			ExcludeSpeakers:   query.ExcludeSpeakers,
			Speakers:          query.Speakers,
		}); err != nil {
			// Headers are out, log and cut the stream.
			writeError(w, r, err)
			return
		}
	case httputil.Put:
		format, err := transcript.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unsupported or missing transcript format")
			return
		}
		body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxTranscriptBytes))
		if err != nil {
			writeErrorCode(w, http.StatusRequestEntityTooLarge, "invalid_request", "Transcript too large")
			return
		}
		session, err := h.srv.UploadTranscript(accountID(r), id, format, string(body))
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSONResponse(w, http.StatusOK, sessionToResponse(session))
	}
}

type speakersHandler struct {
	srv *server.Server
}

func newSpeakersHandler(srv *server.Server) http.Handler {
	return httputil.SupportedMethods(&speakersHandler{srv: srv}, httputil.Get, httputil.Put)
}

type speakerRoleRequest struct {
	Speaker string `json:"speaker"`
	Role    string `json:"role"`
}

type speakersResponse struct {
	Speakers  []string          `json:"speakers"`
	Assigned  map[string]string `json:"assigned"`
	Suggested map[string]string `json:"suggested,omitempty"`
}

func (h *speakersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case httputil.Get:
		res, err := h.srv.SpeakerRoles(accountID(r), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httputil.JSONResponse(w, http.StatusOK, &speakersResponse{
			Speakers:  res.Speakers,
			Assigned:  roleMapToStrings(res.Assigned),
			Suggested: roleMapToStrings(res.Suggested),
		})
	case httputil.Put:
		var rd speakerRoleRequest
		if err := json.NewDecoder(r.Body).Decode(&rd); err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", "Unable to parse request body")
			return
		}
		role, err := transcript.ParseRole(rd.Role)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Unknown role %q", rd.Role))
			return
		}
		if err := h.srv.AssignSpeakerRole(accountID(r), id, rd.Speaker, role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func roleMapToStrings(m transcript.RoleMap) map[string]string {
	if m == nil {
		return nil
	}
	res := make(map[string]string, len(m))
	for speaker, role := range m {
		res[speaker] = string(role)
	}
	return res
}
