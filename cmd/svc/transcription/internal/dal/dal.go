package dal

import (
	"crypto/rand"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coachloop/backend/libs/dbutil"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/transactional/tsql"
)

// ErrNotFound represents when an object cannot be found at the data layer
var ErrNotFound = errors.New("transcription/dal: object not found")

// DAL represents the methods required to provide data access layer functionality
type DAL interface {
	Transact(trans func(dal DAL) error) (err error)

	CreateSession(model *Session) (SessionID, error)
	Session(id SessionID) (*Session, error)
	SessionsForAccount(accountID string) ([]*Session, error)
	SessionCountSince(accountID string, since time.Time) (int, error)
	SessionsInStatus(status SessionStatus, limit int) ([]*Session, error)
	UpdateSession(id SessionID, update *SessionUpdate) (int64, error)
	TransitionSession(id SessionID, from, to SessionStatus, update *SessionUpdate) (int64, error)
	DeleteSession(id SessionID) (int64, error)

	InsertSegments(id SessionID, segments []*Segment) error
	Segments(id SessionID) ([]*Segment, error)
	DeleteSegments(id SessionID) (int64, error)

	UpsertSpeakerRole(id SessionID, speaker, role string) error
	SpeakerRoles(id SessionID) (map[string]string, error)

	InsertStatusRecord(model *StatusRecord) error
	StatusHistory(id SessionID) ([]*StatusRecord, error)
}

type dal struct {
	db tsql.DB
}

// New returns an initialized instance of dal
func New(db *sql.DB) DAL {
	return &dal{db: tsql.AsDB(db)}
}

// Transact encapsulates the provided function in a transaction and handles rollback and commit actions
func (d *dal) Transact(trans func(dal DAL) error) (err error) {
	tx, err := d.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	tdal := &dal{
		db: tsql.AsSafeTx(tx),
	}
	// Recover from any inner panics that happened and close the transaction
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = errors.Trace(fmt.Errorf("Encountered panic during transaction execution: %v", r))
		}
	}()
	if err := trans(tdal); err != nil {
		tx.Rollback()
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

// SessionID is the ID for a transcription session
type SessionID string

// NewSessionID returns a new SessionID.
func NewSessionID() (SessionID, error) {
	buff := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buff); err != nil {
		return EmptySessionID(), errors.Trace(err)
	}
	return SessionID(fmt.Sprintf("ts_%x", buff)), nil
}

// EmptySessionID returns an empty initialized ID
func EmptySessionID() SessionID {
	return ""
}

// ParseSessionID transforms a SessionID from its string representation into the actual ID value
func ParseSessionID(s string) (SessionID, error) {
	if s == "" || !strings.HasPrefix(s, "ts_") {
		return EmptySessionID(), fmt.Errorf("Cannot parse session id: %q", s)
	}
	return SessionID(s), nil
}

// IsValid returns a flag representing if the session id is valid or not
func (s SessionID) IsValid() bool {
	return string(s) != ""
}

// Value implements sql/driver.Valuer to allow it to be used in an sql query
func (s SessionID) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner and expects src to be nil or of type []byte, or string
func (s *SessionID) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*s = SessionID(string(v))
	case string:
		*s = SessionID(v)
	default:
		return errors.Trace(fmt.Errorf("unsupported type for SessionID.Scan: %T", src))
	}
	return nil
}

func (s SessionID) String() string {
	return string(s)
}

// SessionStatus represents the status column of the transcription_session table
type SessionStatus string

const (
	// SessionStatusPending represents a created session with no media yet
	SessionStatusPending SessionStatus = "PENDING"
	// SessionStatusUploading represents a session with an issued upload URL
	SessionStatusUploading SessionStatus = "UPLOADING"
	// SessionStatusProcessing represents a session submitted for transcription
	SessionStatusProcessing SessionStatus = "PROCESSING"
	// SessionStatusCompleted represents a session with a stored transcript
	SessionStatusCompleted SessionStatus = "COMPLETED"
	// SessionStatusFailed represents a session whose transcription failed
	SessionStatusFailed SessionStatus = "FAILED"
)

// ParseSessionStatus converts a string into the corresponding enum value
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch t := SessionStatus(strings.ToUpper(s)); t {
	case SessionStatusPending, SessionStatusUploading, SessionStatusProcessing,
		SessionStatusCompleted, SessionStatusFailed:
		return t, nil
	}
	return SessionStatus(""), errors.Trace(fmt.Errorf("Unknown status: %s", s))
}

func (t SessionStatus) String() string {
	return string(t)
}

// Terminal reports whether the status can never change again.
func (t SessionStatus) Terminal() bool {
	return t == SessionStatusCompleted || t == SessionStatusFailed
}

// Value implements sql/driver.Valuer to allow it to be used in an sql query
func (t SessionStatus) Value() (driver.Value, error) {
	return string(t), nil
}

// Scan allows for scanning of SessionStatus from a database conforming to the sql.Scanner interface
func (t *SessionStatus) Scan(src interface{}) error {
	var err error
	switch ts := src.(type) {
	case string:
		*t, err = ParseSessionStatus(ts)
	case []byte:
		*t, err = ParseSessionStatus(string(ts))
	}
	return errors.Trace(err)
}

// Session represents a transcription session record
type Session struct {
	ID                SessionID
	AccountID         string
	CoachingSessionID string
	Title             string
	Language          string
	Status            SessionStatus
	Progress          float64
	AudioFilename     string
	AudioObjectID     string
	AudioSizeBytes    uint64
	DurationSeconds   int
	ProviderJobID     string
	FailureReason     string
	RetryOfSessionID  SessionID
	SubmitAttempts    int
	UploadURLExpires  time.Time
	ProgressUpdated   time.Time
	UploadedAt        time.Time
	CompletedAt       time.Time
	Created           time.Time
	Modified          time.Time
}

// SessionUpdate represents the mutable aspects of a transcription session record
type SessionUpdate struct {
	Title            *string
	Language         *string
	Progress         *float64
	AudioFilename    *string
	AudioObjectID    *string
	AudioSizeBytes   *uint64
	DurationSeconds  *int
	ProviderJobID    *string
	FailureReason    *string
	SubmitAttempts   *int
	UploadURLExpires *time.Time
	ProgressUpdated  *time.Time
	UploadedAt       *time.Time
	CompletedAt      *time.Time
}

// Segment represents one timed unit of a stored transcript
type Segment struct {
	SessionID  SessionID
	Sequence   int
	StartMS    int64
	EndMS      int64
	Speaker    string
	Text       string
	Confidence float64
}

// StatusRecord is one entry of a session's status history
type StatusRecord struct {
	SessionID SessionID
	Status    SessionStatus
	Progress  float64
	Message   string
	Created   time.Time
}

// CreateSession inserts a transcription session record
func (d *dal) CreateSession(model *Session) (SessionID, error) {
	if !model.ID.IsValid() {
		id, err := NewSessionID()
		if err != nil {
			return EmptySessionID(), errors.Trace(err)
		}
		model.ID = id
	}
	if model.Status == "" {
		model.Status = SessionStatusPending
	}
	_, err := d.db.Exec(
		`INSERT INTO transcription_session
		  (id, account_id, coaching_session_id, title, language, status, progress,
		   audio_filename, audio_object_id, audio_size_bytes, duration_seconds,
		   provider_job_id, failure_reason, retry_of_session_id, submit_attempts,
		   upload_url_expires, progress_updated, uploaded_at, completed_at)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		model.ID, model.AccountID, model.CoachingSessionID, model.Title, model.Language,
		model.Status, model.Progress, model.AudioFilename, model.AudioObjectID,
		model.AudioSizeBytes, model.DurationSeconds, model.ProviderJobID, model.FailureReason,
		model.RetryOfSessionID, model.SubmitAttempts, nullTime(model.UploadURLExpires),
		nullTime(model.ProgressUpdated), nullTime(model.UploadedAt), nullTime(model.CompletedAt))
	if err != nil {
		return EmptySessionID(), errors.Trace(err)
	}
	return model.ID, nil
}

// Session retrieves a transcription session record
func (d *dal) Session(id SessionID) (*Session, error) {
	row := d.db.QueryRow(selectSession+` WHERE id = ?`, id)
	model, err := scanSession(row)
	return model, errors.Trace(err)
}

// SessionsForAccount retrieves all sessions owned by an account, newest first
func (d *dal) SessionsForAccount(accountID string) ([]*Session, error) {
	rows, err := d.db.Query(selectSession+` WHERE account_id = ? ORDER BY created DESC`, accountID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// SessionCountSince counts the sessions an account created at or after since
func (d *dal) SessionCountSince(accountID string, since time.Time) (int, error) {
	var count int
	if err := d.db.QueryRow(`
		SELECT COUNT(1) FROM transcription_session
		WHERE account_id = ? AND created >= ?`, accountID, since).Scan(&count); err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}

// SessionsInStatus retrieves up to limit sessions in the given status, oldest first
func (d *dal) SessionsInStatus(status SessionStatus, limit int) ([]*Session, error) {
	rows, err := d.db.Query(selectSession+` WHERE status = ? ORDER BY modified LIMIT ?`, status, limit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// UpdateSession updates the mutable aspects of a session record
func (d *dal) UpdateSession(id SessionID, update *SessionUpdate) (int64, error) {
	args := sessionUpdateArgs(update)
	if args.IsEmpty() {
		return 0, nil
	}
	res, err := d.db.Exec(
		`UPDATE transcription_session SET `+args.ColumnsForUpdate()+` WHERE id = ?`,
		append(args.Values(), id)...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	aff, err := res.RowsAffected()
	return aff, errors.Trace(err)
}

// TransitionSession moves a session from one status to another, applying the
// update in the same statement. The write only applies if the session is still
// in the from status so concurrent transitions resolve to a single winner.
func (d *dal) TransitionSession(id SessionID, from, to SessionStatus, update *SessionUpdate) (int64, error) {
	args := dbutil.MySQLVarArgs()
	args.Append("status", to)
	if update != nil {
		for _, kv := range sessionUpdateColumns(update) {
			args.Append(kv.col, kv.val)
		}
	}
	res, err := d.db.Exec(
		`UPDATE transcription_session SET `+args.ColumnsForUpdate()+` WHERE id = ? AND status = ?`,
		append(args.Values(), id, from)...)
	if err != nil {
		return 0, errors.Trace(err)
	}
	aff, err := res.RowsAffected()
	return aff, errors.Trace(err)
}

// DeleteSession deletes a session record and its dependent rows
func (d *dal) DeleteSession(id SessionID) (int64, error) {
	if _, err := d.db.Exec(`DELETE FROM transcript_segment WHERE session_id = ?`, id); err != nil {
		return 0, errors.Trace(err)
	}
	if _, err := d.db.Exec(`DELETE FROM speaker_role WHERE session_id = ?`, id); err != nil {
		return 0, errors.Trace(err)
	}
	if _, err := d.db.Exec(`DELETE FROM session_status_history WHERE session_id = ?`, id); err != nil {
		return 0, errors.Trace(err)
	}
	res, err := d.db.Exec(`DELETE FROM transcription_session WHERE id = ?`, id)
	if err != nil {
		return 0, errors.Trace(err)
	}
	aff, err := res.RowsAffected()
	return aff, errors.Trace(err)
}

// InsertSegments bulk inserts the segments of a transcript
func (d *dal) InsertSegments(id SessionID, segments []*Segment) error {
	if len(segments) == 0 {
		return nil
	}
	ins := dbutil.MySQLMultiInsert(len(segments))
	for _, seg := range segments {
		ins.Append(id, seg.Sequence, seg.StartMS, seg.EndMS, seg.Speaker, seg.Text, seg.Confidence)
	}
	_, err := d.db.Exec(
		`INSERT INTO transcript_segment
		  (session_id, sequence, start_ms, end_ms, speaker, text, confidence)
		  VALUES `+ins.Query(), ins.Values()...)
	return errors.Trace(err)
}

// Segments retrieves the stored transcript of a session in sequence order
func (d *dal) Segments(id SessionID) ([]*Segment, error) {
	rows, err := d.db.Query(`
		SELECT session_id, sequence, start_ms, end_ms, speaker, text, confidence
		FROM transcript_segment
		WHERE session_id = ?
		ORDER BY sequence`, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.SessionID, &seg.Sequence, &seg.StartMS, &seg.EndMS,
			&seg.Speaker, &seg.Text, &seg.Confidence); err != nil {
			return nil, errors.Trace(err)
		}
		segments = append(segments, &seg)
	}
	return segments, errors.Trace(rows.Err())
}

// DeleteSegments deletes the stored transcript of a session
func (d *dal) DeleteSegments(id SessionID) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM transcript_segment WHERE session_id = ?`, id)
	if err != nil {
		return 0, errors.Trace(err)
	}
	aff, err := res.RowsAffected()
	return aff, errors.Trace(err)
}

// UpsertSpeakerRole assigns a role to a raw speaker label
func (d *dal) UpsertSpeakerRole(id SessionID, speaker, role string) error {
	_, err := d.db.Exec(`
		INSERT INTO speaker_role (session_id, speaker, role)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE role = VALUES(role)`, id, speaker, role)
	return errors.Trace(err)
}

// SpeakerRoles retrieves the role assignments of a session keyed by raw label
func (d *dal) SpeakerRoles(id SessionID) (map[string]string, error) {
	rows, err := d.db.Query(`SELECT speaker, role FROM speaker_role WHERE session_id = ?`, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	roles := make(map[string]string)
	for rows.Next() {
		var speaker, role string
		if err := rows.Scan(&speaker, &role); err != nil {
			return nil, errors.Trace(err)
		}
		roles[speaker] = role
	}
	return roles, errors.Trace(rows.Err())
}

// InsertStatusRecord appends an entry to a session's status history
func (d *dal) InsertStatusRecord(model *StatusRecord) error {
	_, err := d.db.Exec(`
		INSERT INTO session_status_history (session_id, status, progress, message)
		VALUES (?, ?, ?, ?)`, model.SessionID, model.Status, model.Progress, model.Message)
	return errors.Trace(err)
}

// StatusHistory retrieves a session's status history, oldest first
func (d *dal) StatusHistory(id SessionID) ([]*StatusRecord, error) {
	rows, err := d.db.Query(`
		SELECT session_id, status, progress, message, created
		FROM session_status_history
		WHERE session_id = ?
		ORDER BY created, id`, id)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var records []*StatusRecord
	for rows.Next() {
		var rec StatusRecord
		if err := rows.Scan(&rec.SessionID, &rec.Status, &rec.Progress, &rec.Message, &rec.Created); err != nil {
			return nil, errors.Trace(err)
		}
		records = append(records, &rec)
	}
	return records, errors.Trace(rows.Err())
}

const selectSession = `
	SELECT id, account_id, coaching_session_id, title, language, status, progress,
	       audio_filename, audio_object_id, audio_size_bytes, duration_seconds,
	       provider_job_id, failure_reason, retry_of_session_id, submit_attempts,
	       upload_url_expires, progress_updated, uploaded_at, completed_at, created, modified
	  FROM transcription_session`

func scanSession(row dbutil.Scanner) (*Session, error) {
	var m Session
	var uploadURLExpires, progressUpdated, uploadedAt, completedAt sql.NullTime
	err := row.Scan(&m.ID, &m.AccountID, &m.CoachingSessionID, &m.Title, &m.Language,
		&m.Status, &m.Progress, &m.AudioFilename, &m.AudioObjectID, &m.AudioSizeBytes,
		&m.DurationSeconds, &m.ProviderJobID, &m.FailureReason, &m.RetryOfSessionID,
		&m.SubmitAttempts, &uploadURLExpires, &progressUpdated, &uploadedAt, &completedAt,
		&m.Created, &m.Modified)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	m.UploadURLExpires = uploadURLExpires.Time
	m.ProgressUpdated = progressUpdated.Time
	m.UploadedAt = uploadedAt.Time
	m.CompletedAt = completedAt.Time
	return &m, nil
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, errors.Trace(err)
		}
		sessions = append(sessions, s)
	}
	return sessions, errors.Trace(rows.Err())
}

type colVal struct {
	col string
	val interface{}
}

func sessionUpdateColumns(update *SessionUpdate) []colVal {
	var cols []colVal
	if update.Title != nil {
		cols = append(cols, colVal{"title", *update.Title})
	}
	if update.Language != nil {
		cols = append(cols, colVal{"language", *update.Language})
	}
	if update.Progress != nil {
		cols = append(cols, colVal{"progress", *update.Progress})
	}
	if update.AudioFilename != nil {
		cols = append(cols, colVal{"audio_filename", *update.AudioFilename})
	}
	if update.AudioObjectID != nil {
		cols = append(cols, colVal{"audio_object_id", *update.AudioObjectID})
	}
	if update.AudioSizeBytes != nil {
		cols = append(cols, colVal{"audio_size_bytes", *update.AudioSizeBytes})
	}
	if update.DurationSeconds != nil {
		cols = append(cols, colVal{"duration_seconds", *update.DurationSeconds})
	}
	if update.ProviderJobID != nil {
		cols = append(cols, colVal{"provider_job_id", *update.ProviderJobID})
	}
	if update.FailureReason != nil {
		cols = append(cols, colVal{"failure_reason", *update.FailureReason})
	}
	if update.SubmitAttempts != nil {
		cols = append(cols, colVal{"submit_attempts", *update.SubmitAttempts})
	}
	if update.UploadURLExpires != nil {
		cols = append(cols, colVal{"upload_url_expires", *update.UploadURLExpires})
	}
	if update.ProgressUpdated != nil {
		cols = append(cols, colVal{"progress_updated", *update.ProgressUpdated})
	}
	if update.UploadedAt != nil {
		cols = append(cols, colVal{"uploaded_at", *update.UploadedAt})
	}
	if update.CompletedAt != nil {
		cols = append(cols, colVal{"completed_at", *update.CompletedAt})
	}
	return cols
}

func sessionUpdateArgs(update *SessionUpdate) dbutil.VarArgs {
	args := dbutil.MySQLVarArgs()
	for _, kv := range sessionUpdateColumns(update) {
		args.Append(kv.col, kv.val)
	}
	return args
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
