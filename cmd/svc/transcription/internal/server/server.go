// Package server implements the transcription session lifecycle: session
// creation, audio upload coordination, submission for transcription, status
// projection, transcript storage, and export.
package server

import (
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/samuel/go-metrics/metrics"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/storage"
)

// Config value names for upload handling.
const (
	CfgUploadURLTTL    = "transcription.upload_url_ttl"
	CfgObjectRetention = "transcription.object_retention"
	CfgMaxAudioBytes   = "transcription.max_audio_bytes"
)

// Defs returns the config definitions consumed by this package.
func Defs() []*cfg.ValueDef {
	return []*cfg.ValueDef{
		{
			Name:        CfgUploadURLTTL,
			Type:        cfg.ValueTypeDuration,
			Description: "How long a presigned upload URL stays valid",
			Default:     30 * time.Minute,
		},
		{
			Name:        CfgObjectRetention,
			Type:        cfg.ValueTypeDuration,
			Description: "How long uploaded audio is kept for retries",
			Default:     24 * time.Hour,
		},
		{
			Name:        CfgMaxAudioBytes,
			Type:        cfg.ValueTypeInt,
			Description: "Maximum accepted audio upload size in bytes",
			Default:     int64(1 << 30),
		},
	}
}

// audioContentTypes maps accepted audio file extensions to content types.
var audioContentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
}

// QuotaGate answers whether an account may start another transcription.
// Implementations return a *QuotaError when the account is over its limit.
type QuotaGate interface {
	CanCreateSession(accountID string) error
}

// CoachingSessionDirectory verifies that a coaching session exists and
// belongs to the account before a transcription is linked to it.
type CoachingSessionDirectory interface {
	CanLinkCoachingSession(accountID, coachingSessionID string) error
}

// SubmitMessage is the body of the queue message that triggers submission of
// an uploaded session to the transcription provider.
type SubmitMessage struct {
	SessionID dal.SessionID `json:"session_id"`
}

type Server struct {
	dal            dal.DAL
	store          storage.Store
	sqsAPI         sqsiface.SQSAPI
	submitQueueURL string
	clk            clock.Clock
	cfgStore       cfg.Store
	projector      *progress.Projector
	quota          QuotaGate
	directory      CoachingSessionDirectory

	statSessionsCreated *metrics.Counter
	statSubmitsEnqueued *metrics.Counter
	statRetries         *metrics.Counter
}

func New(
	dl dal.DAL,
	store storage.Store,
	sqsAPI sqsiface.SQSAPI,
	submitQueueURL string,
	clk clock.Clock,
	cfgStore cfg.Store,
	quota QuotaGate,
	directory CoachingSessionDirectory,
	metricsRegistry metrics.Registry,
) *Server {
	s := &Server{
		dal:                 dl,
		store:               store,
		sqsAPI:              sqsAPI,
		submitQueueURL:      submitQueueURL,
		clk:                 clk,
		cfgStore:            cfgStore,
		projector:           progress.New(clk),
		quota:               quota,
		directory:           directory,
		statSessionsCreated: metrics.NewCounter(),
		statSubmitsEnqueued: metrics.NewCounter(),
		statRetries:         metrics.NewCounter(),
	}
	if metricsRegistry != nil {
		metricsRegistry.Add("sessions_created", s.statSessionsCreated)
		metricsRegistry.Add("submits_enqueued", s.statSubmitsEnqueued)
		metricsRegistry.Add("retries", s.statRetries)
	}
	return s
}

type CreateSessionRequest struct {
	AccountID         string
	Title             string
	Language          string
	CoachingSessionID string
}

// CreateSession creates a new pending session for an account.
func (s *Server) CreateSession(req *CreateSessionRequest) (*dal.Session, error) {
	if req.AccountID == "" {
		return nil, validationErrorf("account id required")
	}
	if err := s.quota.CanCreateSession(req.AccountID); err != nil {
		return nil, errors.Trace(err)
	}
	if req.CoachingSessionID != "" {
		if err := s.directory.CanLinkCoachingSession(req.AccountID, req.CoachingSessionID); err != nil {
			return nil, errors.Trace(err)
		}
	}

	model := &dal.Session{
		AccountID:         req.AccountID,
		CoachingSessionID: req.CoachingSessionID,
		Title:             req.Title,
		Language:          req.Language,
		Status:            dal.SessionStatusPending,
	}
	var id dal.SessionID
	err := s.dal.Transact(func(dl dal.DAL) error {
		var err error
		id, err = dl.CreateSession(model)
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: id,
			Status:    dal.SessionStatusPending,
			Message:   progress.MsgPending,
		}))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.statSessionsCreated.Inc(1)
	return s.dal.Session(id)
}

type UploadURLRequest struct {
	AccountID string
	ID        dal.SessionID
	Filename  string
}

type UploadURLResponse struct {
	URL     string
	Expires time.Time
}

// UploadURL issues a presigned upload URL for a session's audio. It may be
// called again to re-issue an expired URL as long as the session has not been
// submitted for transcription.
func (s *Server) UploadURL(req *UploadURLRequest) (*UploadURLResponse, error) {
	session, err := s.sessionForAccount(req.AccountID, req.ID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if session.Status != dal.SessionStatusPending && session.Status != dal.SessionStatusUploading {
		return nil, validationErrorf("session %s is %s, audio can no longer be uploaded", session.ID, strings.ToLower(session.Status.String()))
	}
	contentType, ok := audioContentTypes[strings.ToLower(path.Ext(req.Filename))]
	if !ok {
		return nil, validationErrorf("unsupported audio file type %q", path.Ext(req.Filename))
	}

	ttl := s.cfgStore.Snapshot().Duration(CfgUploadURLTTL)
	name := "audio/" + session.ID.String() + "/" + path.Base(req.Filename)
	url, objectID, err := s.store.ExpiringPutURL(name, contentType, ttl)
	if err != nil {
		return nil, errors.Trace(err)
	}

	expires := s.clk.Now().Add(ttl)
	err = s.dal.Transact(func(dl dal.DAL) error {
		update := &dal.SessionUpdate{
			AudioFilename:    ptr.String(path.Base(req.Filename)),
			AudioObjectID:    ptr.String(objectID),
			UploadURLExpires: ptr.Time(expires),
		}
		if session.Status == dal.SessionStatusPending {
			aff, err := dl.TransitionSession(session.ID, dal.SessionStatusPending, dal.SessionStatusUploading, update)
			if err != nil {
				return errors.Trace(err)
			}
			if aff == 0 {
				return validationErrorf("session %s changed state, request a new upload URL", session.ID)
			}
			return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
				SessionID: session.ID,
				Status:    dal.SessionStatusUploading,
				Message:   progress.MsgUploading,
			}))
		}
		_, err := dl.UpdateSession(session.ID, update)
		return errors.Trace(err)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &UploadURLResponse{URL: url, Expires: expires}, nil
}

type ConfirmUploadRequest struct {
	AccountID       string
	ID              dal.SessionID
	DurationSeconds int
}

// ConfirmUpload verifies the audio object exists and submits the session for
// transcription. Confirmation is idempotent: concurrent or repeated calls
// resolve to a single submission because only the caller that wins the
// uploading to processing transition enqueues the submit message.
func (s *Server) ConfirmUpload(req *ConfirmUploadRequest) (*dal.Session, error) {
	session, err := s.sessionForAccount(req.AccountID, req.ID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	switch session.Status {
	case dal.SessionStatusUploading:
	case dal.SessionStatusProcessing, dal.SessionStatusCompleted:
		// Already confirmed.
		return session, nil
	default:
		return nil, validationErrorf("session %s is %s, nothing to confirm", session.ID, strings.ToLower(session.Status.String()))
	}

	info, err := s.store.Head(session.AudioObjectID)
	if errors.Cause(err) == storage.ErrNoObject {
		return nil, validationErrorf("audio for session %s has not been uploaded", session.ID)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	if info.Size == 0 {
		return nil, validationErrorf("uploaded audio for session %s is empty", session.ID)
	}
	if max := s.cfgStore.Snapshot().Int64(CfgMaxAudioBytes); info.Size > max {
		return nil, validationErrorf("audio exceeds the maximum size of %d bytes", max)
	}
	if req.DurationSeconds < 0 {
		return nil, validationErrorf("duration cannot be negative")
	}

	now := s.clk.Now()
	var won bool
	err = s.dal.Transact(func(dl dal.DAL) error {
		aff, err := dl.TransitionSession(session.ID, dal.SessionStatusUploading, dal.SessionStatusProcessing, &dal.SessionUpdate{
			AudioSizeBytes:  ptr.Uint64(uint64(info.Size)),
			DurationSeconds: ptr.Int(req.DurationSeconds),
			UploadedAt:      ptr.Time(now),
			ProgressUpdated: ptr.Time(now),
		})
		if err != nil {
			return errors.Trace(err)
		}
		won = aff != 0
		if !won {
			return nil
		}
		return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: session.ID,
			Status:    dal.SessionStatusProcessing,
			Message:   progress.MsgProcessing,
		}))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if won {
		if err := s.enqueueSubmit(session.ID); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return s.dal.Session(session.ID)
}

// Session returns a single session owned by the account.
func (s *Server) Session(accountID string, id dal.SessionID) (*dal.Session, error) {
	return s.sessionForAccount(accountID, id)
}

// Sessions returns the account's sessions, newest first.
func (s *Server) Sessions(accountID string) ([]*dal.Session, error) {
	sessions, err := s.dal.SessionsForAccount(accountID)
	return sessions, errors.Trace(err)
}

// Status returns the projected client-facing status of a session.
func (s *Server) Status(accountID string, id dal.SessionID) (*progress.Status, *dal.Session, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return s.projector.Project(s.cfgStore.Snapshot(), session), session, nil
}

// StatusHistory returns the recorded status transitions of a session.
func (s *Server) StatusHistory(accountID string, id dal.SessionID) ([]*dal.StatusRecord, error) {
	if _, err := s.sessionForAccount(accountID, id); err != nil {
		return nil, errors.Trace(err)
	}
	records, err := s.dal.StatusHistory(id)
	return records, errors.Trace(err)
}

type UpdateSessionRequest struct {
	Title    *string
	Language *string
}

// UpdateSession updates the client-editable attributes of a session.
func (s *Server) UpdateSession(accountID string, id dal.SessionID, req *UpdateSessionRequest) (*dal.Session, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if req.Language != nil && session.Status != dal.SessionStatusPending && session.Status != dal.SessionStatusUploading {
		return nil, validationErrorf("language can no longer be changed for session %s", session.ID)
	}
	if _, err := s.dal.UpdateSession(id, &dal.SessionUpdate{
		Title:    req.Title,
		Language: req.Language,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return s.dal.Session(id)
}

// DeleteSession deletes a session, its transcript, and its stored audio.
func (s *Server) DeleteSession(accountID string, id dal.SessionID) error {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return errors.Trace(err)
	}
	if session.AudioObjectID != "" {
		if err := s.store.Delete(session.AudioObjectID); err != nil && errors.Cause(err) != storage.ErrNoObject {
			golog.Errorf("Failed to delete audio object %s for session %s: %s", session.AudioObjectID, session.ID, err)
		}
	}
	_, err = s.dal.DeleteSession(id)
	return errors.Trace(err)
}

// Retry starts a fresh transcription attempt for a failed session. The failed
// session is left untouched so its history stays intact; a new session is
// created against the same uploaded audio. If the audio has aged out of
// storage the caller must re-upload and gets ErrReuploadRequired.
func (s *Server) Retry(accountID string, id dal.SessionID) (*dal.Session, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if session.Status != dal.SessionStatusFailed {
		return nil, validationErrorf("session %s is %s, only failed sessions can be retried", session.ID, strings.ToLower(session.Status.String()))
	}
	if session.AudioObjectID == "" {
		return nil, errors.Trace(ErrReuploadRequired)
	}
	if retention := s.cfgStore.Snapshot().Duration(CfgObjectRetention); retention > 0 && !session.UploadedAt.IsZero() && s.clk.Now().Sub(session.UploadedAt) > retention {
		return nil, errors.Trace(ErrReuploadRequired)
	}
	if _, err := s.store.Head(session.AudioObjectID); errors.Cause(err) == storage.ErrNoObject {
		return nil, errors.Trace(ErrReuploadRequired)
	} else if err != nil {
		return nil, errors.Trace(err)
	}

	now := s.clk.Now()
	model := &dal.Session{
		AccountID:         session.AccountID,
		CoachingSessionID: session.CoachingSessionID,
		Title:             session.Title,
		Language:          session.Language,
		Status:            dal.SessionStatusProcessing,
		AudioFilename:     session.AudioFilename,
		AudioObjectID:     session.AudioObjectID,
		AudioSizeBytes:    session.AudioSizeBytes,
		DurationSeconds:   session.DurationSeconds,
		RetryOfSessionID:  session.ID,
		UploadedAt:        now,
		ProgressUpdated:   now,
	}
	var newID dal.SessionID
	err = s.dal.Transact(func(dl dal.DAL) error {
		var err error
		newID, err = dl.CreateSession(model)
		if err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: newID,
			Status:    dal.SessionStatusProcessing,
			Message:   progress.MsgProcessing,
		}))
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err := s.enqueueSubmit(newID); err != nil {
		return nil, errors.Trace(err)
	}
	s.statRetries.Inc(1)
	return s.dal.Session(newID)
}

func (s *Server) enqueueSubmit(id dal.SessionID) error {
	data, err := json.Marshal(&SubmitMessage{SessionID: id})
	if err != nil {
		return errors.Trace(err)
	}
	if _, err := s.sqsAPI.SendMessage(&sqs.SendMessageInput{
		MessageBody: aws.String(string(data)),
		QueueUrl:    aws.String(s.submitQueueURL),
	}); err != nil {
		return errors.Trace(err)
	}
	s.statSubmitsEnqueued.Inc(1)
	return nil
}

func (s *Server) sessionForAccount(accountID string, id dal.SessionID) (*dal.Session, error) {
	if accountID == "" {
		return nil, validationErrorf("account id required")
	}
	if !id.IsValid() {
		return nil, validationErrorf("session id required")
	}
	session, err := s.dal.Session(id)
	if errors.Cause(err) == dal.ErrNotFound {
		return nil, errors.Trace(ErrNotFound)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	if session.AccountID != accountID {
		return nil, errors.Trace(ErrForbidden)
	}
	return session, nil
}
