package workers

import (
	"testing"
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	dalmock "github.com/coachloop/backend/cmd/svc/transcription/internal/dal/test"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/stt"
	"github.com/coachloop/backend/libs/test"
	"github.com/coachloop/backend/libs/test/mock"
)

func TestPollFinished(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	session := &dal.Session{
		ID:              id,
		Status:          dal.SessionStatusProcessing,
		ProviderJobID:   "job_1",
		DurationSeconds: 600,
		Progress:        50,
		UploadedAt:      now.Add(-5 * time.Minute),
	}
	jobs.Expect(mock.NewExpectation(jobs.Get, "job_1").WithReturns(&stt.Job{
		ID:     "job_1",
		Status: stt.JobStatusFinished,
		Utterances: []*stt.Utterance{
			{StartMS: 100, EndMS: 2000, Speaker: "Agent", Text: "Hello.", Confidence: 0.9},
			{StartMS: 2000, EndMS: 2000, Speaker: "Agent", Text: "dropped"},
			{StartMS: 2000, EndMS: 5000, Text: "Hi.", Confidence: 0.8},
		},
	}, nil))
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusCompleted, &dal.SessionUpdate{
		Progress:    ptr.Float64(100),
		CompletedAt: ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.DeleteSegments, id).WithReturns(int64(0), nil))
	dl.Expect(mock.NewExpectation(dl.InsertSegments, id, []*dal.Segment{
		{SessionID: id, Sequence: 1, StartMS: 100, EndMS: 2000, Speaker: "Agent", Text: "Hello.", Confidence: 0.9},
		{SessionID: id, Sequence: 2, StartMS: 2000, EndMS: 5000, Speaker: "Speaker 2", Text: "Hi.", Confidence: 0.8},
	}))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusCompleted,
		Progress:  100,
		Message:   progress.MsgCompleted,
	}))
	jobs.Expect(mock.NewExpectation(jobs.Delete, "job_1"))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}

func TestPollFinishedEmptyTranscript(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	session := &dal.Session{
		ID:            id,
		Status:        dal.SessionStatusProcessing,
		ProviderJobID: "job_1",
		UploadedAt:    now.Add(-5 * time.Minute),
	}
	jobs.Expect(mock.NewExpectation(jobs.Get, "job_1").WithReturns(&stt.Job{
		ID:     "job_1",
		Status: stt.JobStatusFinished,
	}, nil))
	reason := "Transcription returned an empty transcript."
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String(reason),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   reason,
	}))
	jobs.Expect(mock.NewExpectation(jobs.Delete, "job_1"))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}

func TestPollProviderFailed(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	session := &dal.Session{
		ID:            id,
		Status:        dal.SessionStatusProcessing,
		ProviderJobID: "job_1",
		UploadedAt:    now.Add(-5 * time.Minute),
	}
	jobs.Expect(mock.NewExpectation(jobs.Get, "job_1").WithReturns(&stt.Job{
		ID:            "job_1",
		Status:        stt.JobStatusFailed,
		FailureReason: "media download failed",
	}, nil))
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String("media download failed"),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   "media download failed",
	}))
	jobs.Expect(mock.NewExpectation(jobs.Delete, "job_1"))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}

func TestPollProgress(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	// 600s of audio means 300s expected processing, so 150s in the elapsed
	// component sits at 50. Provider also reports 50, combined is 50.
	session := &dal.Session{
		ID:              id,
		Status:          dal.SessionStatusProcessing,
		ProviderJobID:   "job_1",
		DurationSeconds: 600,
		Progress:        10,
		UploadedAt:      now.Add(-150 * time.Second),
	}
	jobs.Expect(mock.NewExpectation(jobs.Get, "job_1").WithReturns(&stt.Job{
		ID:       "job_1",
		Status:   stt.JobStatusRunning,
		Progress: 50,
	}, nil))
	dl.Expect(mock.NewExpectation(dl.UpdateSession, id, &dal.SessionUpdate{
		Progress:        ptr.Float64(50),
		ProgressUpdated: ptr.Time(now),
	}).WithReturns(int64(1), nil))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}

func TestPollHardTimeout(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	// The timeout floor is 30 minutes for short audio.
	session := &dal.Session{
		ID:              id,
		Status:          dal.SessionStatusProcessing,
		ProviderJobID:   "job_1",
		DurationSeconds: 600,
		Progress:        95,
		UploadedAt:      now.Add(-31 * time.Minute),
	}
	jobs.Expect(mock.NewExpectation(jobs.Get, "job_1").WithReturns(&stt.Job{
		ID:     "job_1",
		Status: stt.JobStatusRunning,
	}, nil))
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String(progress.MsgFailed),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   progress.MsgFailed,
	}))
	jobs.Expect(mock.NewExpectation(jobs.Delete, "job_1"))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}

// A session the submit worker has not picked up yet still counts against the
// processing deadline.
func TestPollUnsubmittedTimeout(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()
	jobs := newMockJobClient(t)
	defer jobs.Finish()
	clk := testClock()
	cfgStore := testCfgStore(t)
	w := NewPollWorker(dl, jobs, clk, cfgStore, nil)

	now := clk.Now()
	id := dal.SessionID("ts_1")
	session := &dal.Session{
		ID:              id,
		Status:          dal.SessionStatusProcessing,
		DurationSeconds: 600,
		UploadedAt:      now.Add(-31 * time.Minute),
	}
	dl.Expect(mock.NewExpectation(dl.TransitionSession, id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
		FailureReason: ptr.String(progress.MsgFailed),
		CompletedAt:   ptr.Time(now),
	}).WithReturns(int64(1), nil))
	dl.Expect(mock.NewExpectation(dl.InsertStatusRecord, &dal.StatusRecord{
		SessionID: id,
		Status:    dal.SessionStatusFailed,
		Message:   progress.MsgFailed,
	}))

	test.OK(t, w.poll(cfgStore.Snapshot(), session))
}
