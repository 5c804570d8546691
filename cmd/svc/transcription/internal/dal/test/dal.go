package test

import (
	"testing"
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/test/mock"
)

var _ dal.DAL = &mockDAL{}

type mockDAL struct {
	*mock.Expector
}

// New returns an initialized instance of mockDAL
func New(t *testing.T) *mockDAL {
	return &mockDAL{&mock.Expector{T: t}}
}

func (dl *mockDAL) Transact(trans func(dal dal.DAL) error) (err error) {
	if err := trans(dl); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (dl *mockDAL) CreateSession(model *dal.Session) (dal.SessionID, error) {
	rets := dl.Record(model)
	if len(rets) == 0 {
		return dal.EmptySessionID(), nil
	}
	return rets[0].(dal.SessionID), mock.SafeError(rets[1])
}

func (dl *mockDAL) Session(id dal.SessionID) (*dal.Session, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*dal.Session), mock.SafeError(rets[1])
}

func (dl *mockDAL) SessionsForAccount(accountID string) ([]*dal.Session, error) {
	rets := dl.Record(accountID)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*dal.Session), mock.SafeError(rets[1])
}

func (dl *mockDAL) SessionCountSince(accountID string, since time.Time) (int, error) {
	rets := dl.Record(accountID, since)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int), mock.SafeError(rets[1])
}

func (dl *mockDAL) SessionsInStatus(status dal.SessionStatus, limit int) ([]*dal.Session, error) {
	rets := dl.Record(status, limit)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*dal.Session), mock.SafeError(rets[1])
}

func (dl *mockDAL) UpdateSession(id dal.SessionID, update *dal.SessionUpdate) (int64, error) {
	rets := dl.Record(id, update)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (dl *mockDAL) TransitionSession(id dal.SessionID, from, to dal.SessionStatus, update *dal.SessionUpdate) (int64, error) {
	rets := dl.Record(id, from, to, update)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (dl *mockDAL) DeleteSession(id dal.SessionID) (int64, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (dl *mockDAL) InsertSegments(id dal.SessionID, segments []*dal.Segment) error {
	rets := dl.Record(id, segments)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func (dl *mockDAL) Segments(id dal.SessionID) ([]*dal.Segment, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*dal.Segment), mock.SafeError(rets[1])
}

func (dl *mockDAL) DeleteSegments(id dal.SessionID) (int64, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return 0, nil
	}
	return rets[0].(int64), mock.SafeError(rets[1])
}

func (dl *mockDAL) UpsertSpeakerRole(id dal.SessionID, speaker, role string) error {
	rets := dl.Record(id, speaker, role)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func (dl *mockDAL) SpeakerRoles(id dal.SessionID) (map[string]string, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(map[string]string), mock.SafeError(rets[1])
}

func (dl *mockDAL) InsertStatusRecord(model *dal.StatusRecord) error {
	rets := dl.Record(model)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func (dl *mockDAL) StatusHistory(id dal.SessionID) ([]*dal.StatusRecord, error) {
	rets := dl.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].([]*dal.StatusRecord), mock.SafeError(rets[1])
}
