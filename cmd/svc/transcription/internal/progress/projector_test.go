package progress

import (
	"testing"
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/test"
)

func testSnapshot(t *testing.T) cfg.Snapshot {
	t.Helper()
	store, err := cfg.NewLocalStore(Defs())
	test.OK(t, err)
	return store.Snapshot()
}

func TestProjectTerminalStates(t *testing.T) {
	snap := testSnapshot(t)
	p := New(clock.NewManaged(time.Now()))

	st := p.Project(snap, &dal.Session{Status: dal.SessionStatusCompleted, Progress: 80})
	test.Equals(t, float64(100), st.Progress)
	test.Equals(t, MsgCompleted, st.Message)

	st = p.Project(snap, &dal.Session{Status: dal.SessionStatusFailed, Progress: 40})
	test.Equals(t, float64(40), st.Progress)
	test.Equals(t, MsgFailed, st.Message)

	st = p.Project(snap, &dal.Session{
		Status:        dal.SessionStatusFailed,
		FailureReason: "Audio format not supported.",
	})
	test.Equals(t, "Audio format not supported.", st.Message)
}

func TestProjectPendingAndUploading(t *testing.T) {
	snap := testSnapshot(t)
	p := New(clock.NewManaged(time.Now()))

	st := p.Project(snap, &dal.Session{Status: dal.SessionStatusPending})
	test.Equals(t, float64(0), st.Progress)
	test.Equals(t, MsgPending, st.Message)

	st = p.Project(snap, &dal.Session{Status: dal.SessionStatusUploading, Progress: 5})
	test.Equals(t, float64(5), st.Progress)
	test.Equals(t, MsgUploading, st.Message)
}

func TestProjectProcessing(t *testing.T) {
	snap := testSnapshot(t)
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManaged(start)
	p := New(clk)

	// 20 minutes of audio, expected processing 10 minutes.
	s := &dal.Session{
		Status:          dal.SessionStatusProcessing,
		DurationSeconds: 1200,
		UploadedAt:      start,
		ProgressUpdated: start,
		Progress:        0,
	}

	// Halfway through the expected processing window with the provider
	// reporting 50: 0.7*50 + 0.3*50 = 50.
	clk.WarpForward(5 * time.Minute)
	test.Equals(t, float64(50), p.Combine(snap, s, 50, clk.Now()))

	// The stored progress is a floor.
	s.Progress = 60
	test.Equals(t, float64(60), p.Combine(snap, s, 50, clk.Now()))

	// The combined value caps at 95 while still processing.
	clk.WarpForward(time.Hour)
	test.Equals(t, float64(95), p.Combine(snap, s, 100, clk.Now()))
}

func TestProjectMonotonic(t *testing.T) {
	snap := testSnapshot(t)
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManaged(start)
	p := New(clk)

	s := &dal.Session{
		Status:          dal.SessionStatusProcessing,
		DurationSeconds: 1200,
		UploadedAt:      start,
		ProgressUpdated: start,
	}

	last := 0.0
	for i := 0; i < 10; i++ {
		clk.WarpForward(time.Minute)
		st := p.Project(snap, s)
		test.Assert(t, st.Progress >= last, "progress moved backwards: %f -> %f", last, st.Progress)
		last = st.Progress
		s.Progress = st.Progress
	}
}

func TestProjectStallMessage(t *testing.T) {
	snap := testSnapshot(t)
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManaged(start)
	p := New(clk)

	s := &dal.Session{
		Status:          dal.SessionStatusProcessing,
		DurationSeconds: 1200,
		UploadedAt:      start,
		ProgressUpdated: start,
		Progress:        40,
	}

	clk.WarpForward(4 * time.Minute)
	test.Equals(t, MsgProcessing, p.Project(snap, s).Message)

	clk.WarpForward(2 * time.Minute)
	st := p.Project(snap, s)
	test.Equals(t, MsgStalled, st.Message)
	// A stall changes the message only, the session stays processing.
	test.Equals(t, dal.SessionStatusProcessing, st.Status)
}

func TestProjectETA(t *testing.T) {
	snap := testSnapshot(t)
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManaged(start)
	p := New(clk)

	s := &dal.Session{
		Status:          dal.SessionStatusProcessing,
		DurationSeconds: 1200,
		UploadedAt:      start,
		ProgressUpdated: start,
	}

	clk.WarpForward(4 * time.Minute)
	test.Equals(t, 360, p.Project(snap, s).ETASeconds)

	// Past the expected window there is no ETA to give.
	clk.WarpForward(10 * time.Minute)
	test.Equals(t, 0, p.Project(snap, s).ETASeconds)
}

func TestHardTimeout(t *testing.T) {
	snap := testSnapshot(t)

	// 10 minute expected window * 6 = 60 minutes.
	s := &dal.Session{DurationSeconds: 1200}
	test.Equals(t, time.Hour, HardTimeout(snap, s))

	// Short audio hits the floor.
	s = &dal.Session{DurationSeconds: 60}
	test.Equals(t, 30*time.Minute, HardTimeout(snap, s))

	// Very long audio hits the cap.
	s = &dal.Session{DurationSeconds: 12 * 3600}
	test.Equals(t, 4*time.Hour, HardTimeout(snap, s))
}
