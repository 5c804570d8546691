package server

import (
	"fmt"
	"io"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/transcript"
)

// UploadTranscript stores a client-provided transcript for a session,
// bypassing the provider. The transcript replaces any segments persisted so
// far and completes the session in the same transaction. Sessions already in
// a terminal state keep their stored transcript: completed transcripts are
// immutable and a failed session is retried, not patched.
func (s *Server) UploadTranscript(accountID string, id dal.SessionID, format transcript.Format, content string) (*dal.Session, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if session.Status.Terminal() {
		return nil, validationErrorf("session %s is %s and can no longer accept a transcript", session.ID, session.Status)
	}
	segments, err := transcript.Parse(content, format)
	if err != nil {
		if verr, ok := err.(*transcript.ValidationError); ok {
			return nil, errors.Trace(&ValidationError{Reason: verr.Reason})
		}
		return nil, errors.Trace(err)
	}

	now := s.clk.Now()
	rows := make([]*dal.Segment, len(segments))
	for i, seg := range segments {
		rows[i] = &dal.Segment{
			SessionID:  session.ID,
			Sequence:   seg.Sequence,
			StartMS:    seg.StartMS,
			EndMS:      seg.EndMS,
			Speaker:    seg.Speaker,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		}
	}
	defaults := transcript.DefaultRoles(segments)
	err = s.dal.Transact(func(dl dal.DAL) error {
		if _, err := dl.DeleteSegments(session.ID); err != nil {
			return errors.Trace(err)
		}
		if err := dl.InsertSegments(session.ID, rows); err != nil {
			return errors.Trace(err)
		}
		for _, speaker := range transcript.SpeakerOrder(segments) {
			role := defaults.Resolve(speaker)
			if role == transcript.RoleUnknown {
				continue
			}
			if err := dl.UpsertSpeakerRole(session.ID, speaker, string(role)); err != nil {
				return errors.Trace(err)
			}
		}
		aff, err := dl.TransitionSession(session.ID, session.Status, dal.SessionStatusCompleted, &dal.SessionUpdate{
			Progress:    ptr.Float64(100),
			CompletedAt: ptr.Time(now),
		})
		if err != nil {
			return errors.Trace(err)
		}
		if aff == 0 {
			return validationErrorf("session %s changed state, try again", session.ID)
		}
		if err := dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: session.ID,
			Status:    dal.SessionStatusCompleted,
			Progress:  100,
			Message:   progress.MsgCompleted,
		}); err != nil {
			return errors.Trace(err)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return s.dal.Session(session.ID)
}

type ExportRequest struct {
	Format            transcript.Format
	ExcludeTimestamps bool
	ExcludeSpeakers   bool
	Speakers          []string
}

type ExportResult struct {
	Filename string
	MIMEType string
}

// ExportInfo validates that a session can be exported and returns the
// filename and content type without rendering. Handlers call it before Export
// so response headers can be written ahead of the streamed body.
func (s *Server) ExportInfo(accountID string, id dal.SessionID, format transcript.Format) (*ExportResult, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if session.Status != dal.SessionStatusCompleted {
		return nil, errors.Trace(ErrTranscriptNotAvailable)
	}
	return &ExportResult{
		Filename: exportFilename(session, format),
		MIMEType: format.MIMEType(),
	}, nil
}

// Export renders the stored transcript of a completed session to w.
func (s *Server) Export(w io.Writer, accountID string, id dal.SessionID, req *ExportRequest) (*ExportResult, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if session.Status != dal.SessionStatusCompleted {
		return nil, errors.Trace(ErrTranscriptNotAvailable)
	}
	doc, err := s.document(session)
	if err != nil {
		return nil, errors.Trace(err)
	}
	doc.ExportedAt = s.clk.Now()

	opts := &transcript.RenderOptions{
		Format:            req.Format,
		ExcludeTimestamps: req.ExcludeTimestamps,
		ExcludeSpeakers:   req.ExcludeSpeakers,
	}
	if len(req.Speakers) != 0 {
		opts.SpeakerFilter = make(map[string]bool, len(req.Speakers))
		for _, sp := range req.Speakers {
			opts.SpeakerFilter[sp] = true
		}
	}
	if err := transcript.Render(w, doc, opts); err != nil {
		return nil, errors.Trace(err)
	}
	return &ExportResult{
		Filename: exportFilename(session, req.Format),
		MIMEType: req.Format.MIMEType(),
	}, nil
}

// AssignSpeakerRole assigns a coach/client role to a raw speaker label. The
// label must appear in the stored transcript.
func (s *Server) AssignSpeakerRole(accountID string, id dal.SessionID, speaker string, role transcript.Role) error {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return errors.Trace(err)
	}
	segments, err := s.dal.Segments(session.ID)
	if err != nil {
		return errors.Trace(err)
	}
	if len(segments) == 0 {
		return errors.Trace(ErrTranscriptNotAvailable)
	}
	found := false
	for _, seg := range segments {
		if seg.Speaker == speaker {
			found = true
			break
		}
	}
	if !found {
		return validationErrorf("speaker %q does not appear in the transcript", speaker)
	}
	return errors.Trace(s.dal.UpsertSpeakerRole(session.ID, speaker, string(role)))
}

// SpeakerRolesResponse lists the transcript's speakers in first-seen order
// with their assigned roles, plus an advisory suggestion when one can be made.
type SpeakerRolesResponse struct {
	Speakers  []string
	Assigned  transcript.RoleMap
	Suggested transcript.RoleMap
}

// SpeakerRoles returns the speakers of a stored transcript, their assigned
// roles, and a role suggestion. Explicit assignments always win over the
// suggestion.
func (s *Server) SpeakerRoles(accountID string, id dal.SessionID) (*SpeakerRolesResponse, error) {
	session, err := s.sessionForAccount(accountID, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	segments, roles, err := s.transcriptData(session.ID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(segments) == 0 {
		return nil, errors.Trace(ErrTranscriptNotAvailable)
	}
	return &SpeakerRolesResponse{
		Speakers:  transcript.SpeakerOrder(segments),
		Assigned:  roles,
		Suggested: transcript.SuggestRoles(segments),
	}, nil
}

func (s *Server) document(session *dal.Session) (*transcript.Document, error) {
	segments, roles, err := s.transcriptData(session.ID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(segments) == 0 {
		return nil, errors.Trace(ErrTranscriptNotAvailable)
	}
	return &transcript.Document{
		SessionID:       session.ID.String(),
		Title:           session.Title,
		Date:            session.Created,
		DurationSeconds: session.DurationSeconds,
		Language:        session.Language,
		Segments:        segments,
		Roles:           roles,
	}, nil
}

func (s *Server) transcriptData(id dal.SessionID) ([]*transcript.Segment, transcript.RoleMap, error) {
	rows, err := s.dal.Segments(id)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	segments := make([]*transcript.Segment, len(rows))
	for i, row := range rows {
		segments[i] = &transcript.Segment{
			Sequence:   row.Sequence,
			StartMS:    row.StartMS,
			EndMS:      row.EndMS,
			Speaker:    row.Speaker,
			Text:       row.Text,
			Confidence: row.Confidence,
		}
	}
	assigned, err := s.dal.SpeakerRoles(id)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	roles := make(transcript.RoleMap, len(assigned))
	for speaker, role := range assigned {
		r, err := transcript.ParseRole(role)
		if err != nil {
			return nil, nil, errors.Trace(err)
		}
		roles[speaker] = r
	}
	return segments, roles, nil
}

func exportFilename(session *dal.Session, format transcript.Format) string {
	date := session.Created
	if !session.CompletedAt.IsZero() {
		date = session.CompletedAt
	}
	return fmt.Sprintf("session_%s_%s.%s", session.ID, date.Format("2006-01-02"), format.Ext())
}
