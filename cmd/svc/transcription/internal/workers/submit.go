package workers

import (
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/samuel/go-metrics/metrics"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/server"
	"github.com/coachloop/backend/libs/awsutil"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ptr"
	"github.com/coachloop/backend/libs/storage"
	"github.com/coachloop/backend/libs/stt"
)

// SubmitWorker consumes submit messages and hands the uploaded audio to the
// transcription provider. Submission is idempotent per session: a session
// that already carries a provider job id is never submitted again, so message
// redelivery and crash recovery cannot produce duplicate jobs.
type SubmitWorker struct {
	worker   *awsutil.SQSWorker
	dal      dal.DAL
	store    storage.Store
	jobs     stt.JobClient
	clk      clock.Clock
	cfgStore cfg.Store

	statSubmitted *metrics.Counter
	statFailed    *metrics.Counter
}

func NewSubmitWorker(
	sqsAPI sqsiface.SQSAPI,
	queueURL string,
	dl dal.DAL,
	store storage.Store,
	jobs stt.JobClient,
	clk clock.Clock,
	cfgStore cfg.Store,
	metricsRegistry metrics.Registry,
) *SubmitWorker {
	w := &SubmitWorker{
		dal:           dl,
		store:         store,
		jobs:          jobs,
		clk:           clk,
		cfgStore:      cfgStore,
		statSubmitted: metrics.NewCounter(),
		statFailed:    metrics.NewCounter(),
	}
	w.worker = awsutil.NewSQSWorker(sqsAPI, queueURL, w.processMessage)
	if metricsRegistry != nil {
		metricsRegistry.Add("submitted", w.statSubmitted)
		metricsRegistry.Add("failed", w.statFailed)
	}
	return w
}

func (w *SubmitWorker) Start()                  { w.worker.Start() }
func (w *SubmitWorker) Stop(wait time.Duration) { w.worker.Stop(wait) }
func (w *SubmitWorker) Started() bool           { return w.worker.Started() }

// processMessage submits one session. Returning an error leaves the message
// on the queue for redelivery; permanent failures are absorbed after failing
// the session.
func (w *SubmitWorker) processMessage(body string) error {
	var msg server.SubmitMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		golog.Errorf("transcription: dropping undecodable submit message: %s", err)
		return nil
	}

	session, err := w.dal.Session(msg.SessionID)
	if errors.Cause(err) == dal.ErrNotFound {
		golog.Infof("transcription: submit message for deleted session %s", msg.SessionID)
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}
	if session.Status != dal.SessionStatusProcessing {
		golog.Infof("transcription: session %s is %s, skipping submit", session.ID, session.Status)
		return nil
	}
	if session.ProviderJobID != "" {
		// Already submitted, the poll worker picks it up from here.
		return nil
	}

	snap := w.cfgStore.Snapshot()
	now := w.clk.Now()

	attempts := session.SubmitAttempts + 1
	if attempts > snap.Int(CfgSubmitMaxAttempts) {
		w.statFailed.Inc(1)
		return errors.Trace(failSession(w.dal, session.ID, "", now))
	}
	if _, err := w.dal.UpdateSession(session.ID, &dal.SessionUpdate{
		SubmitAttempts: ptr.Int(attempts),
	}); err != nil {
		return errors.Trace(err)
	}

	mediaURL, err := w.store.ExpiringURL(session.AudioObjectID, snap.Duration(CfgMediaURLTTL))
	if err != nil {
		return errors.Trace(err)
	}

	jobID, err := w.jobs.Submit(mediaURL, session.Language)
	if err != nil {
		if stt.IsRetryable(err) {
			return errors.Trace(err)
		}
		golog.Errorf("transcription: provider rejected session %s: %s", session.ID, err)
		w.statFailed.Inc(1)
		return errors.Trace(failSession(w.dal, session.ID, "", now))
	}

	if _, err := w.dal.UpdateSession(session.ID, &dal.SessionUpdate{
		ProviderJobID:   ptr.String(jobID),
		ProgressUpdated: ptr.Time(now),
	}); err != nil {
		return errors.Trace(err)
	}
	w.statSubmitted.Inc(1)
	golog.Infof("transcription: submitted session %s as provider job %s", session.ID, jobID)
	return nil
}
