package workers

import (
	"testing"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	dalmock "github.com/coachloop/backend/cmd/svc/transcription/internal/dal/test"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/storage"
	"github.com/coachloop/backend/libs/stt"
	"github.com/coachloop/backend/libs/test"
	"github.com/coachloop/backend/libs/test/mock"
)

func TestSubmit(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	store := storage.NewTestStore(map[string][]byte{"audio/ts_1/call.mp3": []byte("audio")})
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, store, jobs, clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	objectID := store.IDFromName("audio/ts_1/call.mp3")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns(&dal.Session{
		ID: id, AccountID: "acc_1", Status: dal.SessionStatusProcessing, AudioObjectID: objectID, Language: "en",
	}, nil))
	dl.Expect(mock.NewExpectation(dl.UpdateSession, id, &dal.SessionUpdate{
		SubmitAttempts: ptr.Int(1),
	}).WithReturns(int64(1), nil))
	mediaURL := objectID + "?expires=14400"
	jobs.Expect(mock.NewExpectation(jobs.Submit, mediaURL, "en").WithReturns("job_1", nil))
	now := clk.Now()
	dl.Expect(mock.NewExpectation(dl.UpdateSession, id, &dal.SessionUpdate{
		ProviderJobID:   ptr.String("job_1"),
		ProgressUpdated: ptr.Time(now),
	}).WithReturns(int64(1), nil))

	test.OK(t, w.processMessage(`{"session_id":"ts_1"}`))
}

// A redelivered message for a session that already has a provider job must
// not submit a second job.
func TestSubmitRedelivery(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, storage.NewTestStore(nil), jobs, clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns(&dal.Session{
		ID: id, Status: dal.SessionStatusProcessing, ProviderJobID: "job_1",
	}, nil))

	test.OK(t, w.processMessage(`{"session_id":"ts_1"}`))
}

func TestSubmitDeletedSession(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, storage.NewTestStore(nil), newMockJobClient(t), clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns((*dal.Session)(nil), dal.ErrNotFound))

	test.OK(t, w.processMessage(`{"session_id":"ts_1"}`))
}

func TestSubmitAttemptsExhausted(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, storage.NewTestStore(nil), jobs, clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns(&dal.Session{
		ID: id, Status: dal.SessionStatusProcessing, SubmitAttempts: 3,
	}, nil))
	now := clk.Now()
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String(progress.MsgFailed),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   progress.MsgFailed,
	}))

	test.OK(t, w.processMessage(`{"session_id":"ts_1"}`))
}

func TestSubmitProviderRejects(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	store := storage.NewTestStore(map[string][]byte{"audio/ts_1/call.mp3": []byte("audio")})
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, store, jobs, clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	objectID := store.IDFromName("audio/ts_1/call.mp3")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns(&dal.Session{
		ID: id, Status: dal.SessionStatusProcessing, AudioObjectID: objectID, Language: "en",
	}, nil))
	dl.Expect(mock.NewExpectation(dl.UpdateSession, id, &dal.SessionUpdate{
		SubmitAttempts: ptr.Int(1),
	}).WithReturns(int64(1), nil))
	jobs.Expect(mock.NewExpectation(jobs.Submit, objectID+"?expires=14400", "en").WithReturns("", &stt.Error{
		Status:  400,
		Message: "unsupported media",
	}))
	now := clk.Now()
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String(progress.MsgFailed),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   progress.MsgFailed,
	}))

	test.OK(t, w.processMessage(`{"session_id":"ts_1"}`))
}

// Transient provider errors leave the message on the queue for redelivery.
func TestSubmitProviderUnavailable(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	store := storage.NewTestStore(map[string][]byte{"audio/ts_1/call.mp3": []byte("audio")})
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, store, jobs, clk, testCfgStore(t), nil)

	id := dal.SessionID("ts_1")
	objectID := store.IDFromName("audio/ts_1/call.mp3")
	dl.Expect(mock.NewExpectation(dl.Session, id).WithReturns(&dal.Session{
		ID: id, Status: dal.SessionStatusProcessing, AudioObjectID: objectID, Language: "en",
	}, nil))
	dl.Expect(mock.NewExpectation(dl.UpdateSession, id, &dal.SessionUpdate{
		SubmitAttempts: ptr.Int(1),
	}).WithReturns(int64(1), nil))
	jobs.Expect(mock.NewExpectation(jobs.Submit, objectID+"?expires=14400", "en").WithReturns("", &stt.Error{
		Status: 503,
	}))

	err := w.processMessage(`{"session_id":"ts_1"}`)
	test.Assert(t, err != nil, "expected an error so the message is redelivered")
}

func TestSubmitUndecodableMessage(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	clk := testClock()
	w := NewSubmitWorker(nil, "", dl, storage.NewTestStore(nil), newMockJobClient(t), clk, testCfgStore(t), nil)

	test.OK(t, w.processMessage("not json"))
}
