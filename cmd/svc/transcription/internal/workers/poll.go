package workers

import (
	"fmt"
	"sort"
	"time"

	"github.com/samuel/go-metrics/metrics"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/smet"
	"github.com/coachloop/backend/libs/stt"
	"github.com/coachloop/backend/libs/worker"
)

const pollErrMetricName = "transcription_poll_worker_err"

// PollWorker periodically checks every processing session against the
// provider. It stores finished transcripts, advances progress, enforces the
// hard processing timeout, and cleans up provider-side media once a job
// reaches a terminal state.
type PollWorker struct {
	worker.Worker

	dal       dal.DAL
	jobs      stt.JobClient
	clk       clock.Clock
	cfgStore  cfg.Store
	projector *progress.Projector

	statCompleted *metrics.Counter
	statFailed    *metrics.Counter
	statTimedOut  *metrics.Counter
}

func NewPollWorker(
	dl dal.DAL,
	jobs stt.JobClient,
	clk clock.Clock,
	cfgStore cfg.Store,
	metricsRegistry metrics.Registry,
) *PollWorker {
	w := &PollWorker{
		dal:           dl,
		jobs:          jobs,
		clk:           clk,
		cfgStore:      cfgStore,
		projector:     progress.New(clk),
		statCompleted: metrics.NewCounter(),
		statFailed:    metrics.NewCounter(),
		statTimedOut:  metrics.NewCounter(),
	}
	w.Worker = worker.NewRepeat(cfgStore.Snapshot().Duration(CfgPollInterval), w.work)
	if metricsRegistry != nil {
		metricsRegistry.Add("completed", w.statCompleted)
		metricsRegistry.Add("failed", w.statFailed)
		metricsRegistry.Add("timedout", w.statTimedOut)
	}
	return w
}

func (w *PollWorker) work() {
	snap := w.cfgStore.Snapshot()
	sessions, err := w.dal.SessionsInStatus(dal.SessionStatusProcessing, snap.Int(CfgPollBatchSize))
	if err != nil {
		smet.Errorf(pollErrMetricName, "Failed to list processing sessions: %s", err)
		return
	}
	for _, s := range sessions {
		if err := w.poll(snap, s); err != nil {
			smet.Errorf(pollErrMetricName, "Poll of session %s failed: %s", s.ID, err)
		}
	}
}

func (w *PollWorker) poll(snap cfg.Snapshot, s *dal.Session) error {
	now := w.clk.Now()

	if s.ProviderJobID == "" {
		// Not submitted yet. The submit worker owns this phase, the poll
		// worker only enforces the overall deadline.
		return w.checkTimeout(snap, s, now)
	}

	job, err := w.jobs.Get(s.ProviderJobID)
	if err != nil {
		if terr := w.checkTimeout(snap, s, now); terr != nil {
			return errors.Trace(terr)
		}
		return errors.Trace(err)
	}

	switch job.Status {
	case stt.JobStatusFinished:
		return errors.Trace(w.complete(s, job, now))
	case stt.JobStatusFailed:
		w.statFailed.Inc(1)
		if err := failSession(w.dal, s.ID, job.FailureReason, now); err != nil {
			return errors.Trace(err)
		}
		w.deleteJob(s.ProviderJobID)
		return nil
	}

	combined := w.projector.Combine(snap, s, job.Progress, now)
	if combined > s.Progress {
		if _, err := w.dal.UpdateSession(s.ID, &dal.SessionUpdate{
			Progress:        ptr.Float64(combined),
			ProgressUpdated: ptr.Time(now),
		}); err != nil {
			return errors.Trace(err)
		}
		return nil
	}
	return w.checkTimeout(snap, s, now)
}

// complete stores the finished transcript and flips the session to completed
// in a single transaction. A finished job with no usable utterances is a
// failure, not an empty success.
func (w *PollWorker) complete(s *dal.Session, job *stt.Job, now time.Time) error {
	segments := segmentsFromUtterances(s.ID, job.Utterances)
	if len(segments) == 0 {
		w.statFailed.Inc(1)
		if err := failSession(w.dal, s.ID, "Transcription returned an empty transcript.", now); err != nil {
			return errors.Trace(err)
		}
		w.deleteJob(s.ProviderJobID)
		return nil
	}

	update := &dal.SessionUpdate{
		Progress:    ptr.Float64(100),
		CompletedAt: ptr.Time(now),
	}
	if s.DurationSeconds == 0 && job.DurationMS > 0 {
		update.DurationSeconds = ptr.Int(int(job.DurationMS / 1000))
	}
	err := w.dal.Transact(func(dl dal.DAL) error {
		aff, err := dl.TransitionSession(s.ID, dal.SessionStatusProcessing, dal.SessionStatusCompleted, update)
		if err != nil {
			return errors.Trace(err)
		}
		if aff == 0 {
			golog.Infof("transcription: session %s left processing before completion", s.ID)
			return nil
		}
		if _, err := dl.DeleteSegments(s.ID); err != nil {
			return errors.Trace(err)
		}
		if err := dl.InsertSegments(s.ID, segments); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: s.ID,
			Status:    dal.SessionStatusCompleted,
			Progress:  100,
			Message:   progress.MsgCompleted,
		}))
	})
	if err != nil {
		return errors.Trace(err)
	}
	w.statCompleted.Inc(1)
	w.deleteJob(s.ProviderJobID)
	return nil
}

func (w *PollWorker) checkTimeout(snap cfg.Snapshot, s *dal.Session, now time.Time) error {
	if s.UploadedAt.IsZero() || now.Sub(s.UploadedAt) <= progress.HardTimeout(snap, s) {
		return nil
	}
	w.statTimedOut.Inc(1)
	golog.Warningf("transcription: session %s exceeded the processing deadline", s.ID)
	if err := failSession(w.dal, s.ID, "", now); err != nil {
		return errors.Trace(err)
	}
	if s.ProviderJobID != "" {
		w.deleteJob(s.ProviderJobID)
	}
	return nil
}

// deleteJob removes the job and its media from the provider. Best effort: the
// provider expires media on its own eventually.
func (w *PollWorker) deleteJob(jobID string) {
	if err := w.jobs.Delete(jobID); err != nil {
		golog.Warningf("transcription: failed to delete provider job %s: %s", jobID, err)
	}
}

// segmentsFromUtterances converts provider utterances to transcript segments,
// dropping non-positive durations and assigning default speaker labels.
func segmentsFromUtterances(id dal.SessionID, utterances []*stt.Utterance) []*dal.Segment {
	sorted := make([]*stt.Utterance, len(utterances))
	copy(sorted, utterances)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMS < sorted[j].StartMS })

	speakerNames := make(map[string]string)
	var segments []*dal.Segment
	for _, u := range sorted {
		if u.EndMS <= u.StartMS || u.Text == "" {
			continue
		}
		name, ok := speakerNames[u.Speaker]
		if !ok {
			if u.Speaker == "" {
				name = fmt.Sprintf("Speaker %d", len(speakerNames)+1)
			} else {
				name = u.Speaker
			}
			speakerNames[u.Speaker] = name
		}
		segments = append(segments, &dal.Segment{
			SessionID:  id,
			Sequence:   len(segments) + 1,
			StartMS:    u.StartMS,
			EndMS:      u.EndMS,
			Speaker:    name,
			Text:       u.Text,
			Confidence: u.Confidence,
		})
	}
	return segments
}
