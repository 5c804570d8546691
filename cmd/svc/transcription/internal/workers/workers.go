// Package workers contains the background workers that drive transcription:
// submission of uploaded audio to the provider and polling of in-flight jobs.
package workers

import (
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/errors"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ptr"
)

// Config value names for the workers.
const (
	CfgSubmitMaxAttempts = "transcription.submit_max_attempts"
	CfgPollInterval      = "transcription.poll_interval"
	CfgMediaURLTTL       = "transcription.provider_media_url_ttl"
	CfgPollBatchSize     = "transcription.poll_batch_size"
)

// Defs returns the config definitions consumed by this package.
func Defs() []*cfg.ValueDef {
	return []*cfg.ValueDef{
		{
			Name:        CfgSubmitMaxAttempts,
			Type:        cfg.ValueTypeInt,
			Description: "How many times a session is submitted to the provider before it is failed",
			Default:     3,
		},
		{
			Name:        CfgPollInterval,
			Type:        cfg.ValueTypeDuration,
			Description: "How often in-flight provider jobs are polled",
			Default:     15 * time.Second,
		},
		{
			Name:        CfgMediaURLTTL,
			Type:        cfg.ValueTypeDuration,
			Description: "How long the media URL handed to the provider stays fetchable",
			Default:     4 * time.Hour,
		},
		{
			Name:        CfgPollBatchSize,
			Type:        cfg.ValueTypeInt,
			Description: "Maximum processing sessions examined per poll pass",
			Default:     100,
		},
	}
}

// failSession moves a processing session to failed with the given reason and
// records the transition. A session that already left processing is left
// alone.
func failSession(dl dal.DAL, id dal.SessionID, reason string, now time.Time) error {
	if reason == "" {
		reason = progress.MsgFailed
	}
	return errors.Trace(dl.Transact(func(dl dal.DAL) error {
		aff, err := dl.TransitionSession(id, dal.SessionStatusProcessing, dal.SessionStatusFailed, &dal.SessionUpdate{
			FailureReason: ptr.String(reason),
			CompletedAt:   ptr.Time(now),
		})
		if err != nil {
			return errors.Trace(err)
		}
		if aff == 0 {
			golog.Infof("transcription: session %s left processing before it could be failed", id)
			return nil
		}
		return errors.Trace(dl.InsertStatusRecord(&dal.StatusRecord{
			SessionID: id,
			Status:    dal.SessionStatusFailed,
			Message:   reason,
		}))
	}))
}
