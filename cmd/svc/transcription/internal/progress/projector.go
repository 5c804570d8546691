// Package progress computes the externally visible progress of a
// transcription session from provider-reported progress and elapsed time.
package progress

import (
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/dal"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
)

// Config value names for the progress model. All are tunable at runtime.
const (
	CfgProviderWeight     = "transcription.progress_provider_weight"
	CfgElapsedWeight      = "transcription.progress_elapsed_weight"
	CfgProcessingMultiple = "transcription.expected_processing_multiple"
	CfgStallThreshold     = "transcription.stall_threshold"
	CfgHardTimeoutMult    = "transcription.hard_timeout_multiple"
	CfgHardTimeoutFloor   = "transcription.hard_timeout_floor"
	CfgHardTimeoutCap     = "transcription.hard_timeout_cap"
)

// Defs returns the config definitions consumed by this package.
func Defs() []*cfg.ValueDef {
	return []*cfg.ValueDef{
		{
			Name:        CfgProviderWeight,
			Type:        cfg.ValueTypeFloat,
			Description: "Weight of the provider reported progress in the combined progress value",
			Default:     0.7,
		},
		{
			Name:        CfgElapsedWeight,
			Type:        cfg.ValueTypeFloat,
			Description: "Weight of the elapsed time estimate in the combined progress value",
			Default:     0.3,
		},
		{
			Name:        CfgProcessingMultiple,
			Type:        cfg.ValueTypeFloat,
			Description: "Expected processing time as a multiple of the audio duration",
			Default:     0.5,
		},
		{
			Name:        CfgStallThreshold,
			Type:        cfg.ValueTypeDuration,
			Description: "How long progress may stand still before the status message flags a stall",
			Default:     5 * time.Minute,
		},
		{
			Name:        CfgHardTimeoutMult,
			Type:        cfg.ValueTypeFloat,
			Description: "Hard processing timeout as a multiple of the expected processing time",
			Default:     6.0,
		},
		{
			Name:        CfgHardTimeoutFloor,
			Type:        cfg.ValueTypeDuration,
			Description: "Minimum hard processing timeout",
			Default:     30 * time.Minute,
		},
		{
			Name:        CfgHardTimeoutCap,
			Type:        cfg.ValueTypeDuration,
			Description: "Maximum hard processing timeout",
			Default:     4 * time.Hour,
		},
	}
}

// Messages shown with each status.
const (
	MsgPending    = "Waiting for upload."
	MsgUploading  = "Uploading audio."
	MsgProcessing = "Transcribing audio."
	MsgStalled    = "Still processing. This is taking longer than usual."
	MsgCompleted  = "Transcript ready."
	MsgFailed     = "Processing failed. Please try again."
)

// Status is the projected client-facing state of a session.
type Status struct {
	Status     dal.SessionStatus
	Progress   float64
	Message    string
	ETASeconds int
}

type Projector struct {
	clk clock.Clock
}

func New(clk clock.Clock) *Projector {
	return &Projector{clk: clk}
}

// Project computes the client-facing status of a session. For processing
// sessions progress combines what the provider reports with an elapsed time
// estimate, never moves backwards relative to the stored value, and stays
// below 100 until the transcript is actually stored.
func (p *Projector) Project(snap cfg.Snapshot, s *dal.Session) *Status {
	switch s.Status {
	case dal.SessionStatusPending:
		return &Status{Status: s.Status, Progress: 0, Message: MsgPending}
	case dal.SessionStatusUploading:
		return &Status{Status: s.Status, Progress: s.Progress, Message: MsgUploading}
	case dal.SessionStatusCompleted:
		return &Status{Status: s.Status, Progress: 100, Message: MsgCompleted}
	case dal.SessionStatusFailed:
		msg := s.FailureReason
		if msg == "" {
			msg = MsgFailed
		}
		return &Status{Status: s.Status, Progress: s.Progress, Message: msg}
	}

	now := p.clk.Now()
	combined := p.Combined(snap, s, now)

	st := &Status{
		Status:   s.Status,
		Progress: combined,
		Message:  MsgProcessing,
	}
	expected := ExpectedProcessing(snap, s)
	if !s.UploadedAt.IsZero() {
		if remaining := expected - now.Sub(s.UploadedAt); remaining > 0 {
			st.ETASeconds = int(remaining / time.Second)
		}
	}
	if !s.ProgressUpdated.IsZero() && now.Sub(s.ProgressUpdated) > snap.Duration(CfgStallThreshold) {
		st.Message = MsgStalled
	}
	return st
}

// Combined returns the live combined progress for a processing session at the
// given time. Between polls the stored progress stands in for the provider
// component so the value can only grow through the elapsed estimate.
func (p *Projector) Combined(snap cfg.Snapshot, s *dal.Session, now time.Time) float64 {
	return p.Combine(snap, s, s.Progress, now)
}

// Combine merges a provider reported progress value (0..100) with the elapsed
// time estimate. The stored progress acts as the floor so the result never
// regresses, and the result stays at or below 95 until the transcript is
// actually stored.
func (p *Projector) Combine(snap cfg.Snapshot, s *dal.Session, providerProgress float64, now time.Time) float64 {
	elapsedPart := 0.0
	if expected := ExpectedProcessing(snap, s); expected > 0 && !s.UploadedAt.IsZero() {
		elapsedPart = clamp(float64(now.Sub(s.UploadedAt))/float64(expected)) * 100
	}
	combined := snap.Float64(CfgProviderWeight)*providerProgress + snap.Float64(CfgElapsedWeight)*elapsedPart
	if combined < s.Progress {
		combined = s.Progress
	}
	if combined > 95 {
		combined = 95
	}
	return combined
}

// ExpectedProcessing returns how long transcription is expected to take based
// on the audio duration.
func ExpectedProcessing(snap cfg.Snapshot, s *dal.Session) time.Duration {
	if s.DurationSeconds <= 0 {
		return 0
	}
	return time.Duration(float64(s.DurationSeconds) * snap.Float64(CfgProcessingMultiple) * float64(time.Second))
}

// HardTimeout returns the duration after which a processing session is forced
// to failed.
func HardTimeout(snap cfg.Snapshot, s *dal.Session) time.Duration {
	timeout := time.Duration(float64(ExpectedProcessing(snap, s)) * snap.Float64(CfgHardTimeoutMult))
	if floor := snap.Duration(CfgHardTimeoutFloor); timeout < floor {
		timeout = floor
	}
	if max := snap.Duration(CfgHardTimeoutCap); timeout > max {
		timeout = max
	}
	return timeout
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
