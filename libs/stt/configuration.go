package stt

type Priority string

const (
	// PriorityHigh moves the job to the front of the queue for a premium.
	PriorityHigh Priority = "high"
	// PriorityLow moves the job to the back of the queue for a discount.
	PriorityLow Priority = "low"
	// PriorityNormal is the default priority for a job.
	PriorityNormal Priority = "normal"
)

type DiarizationConfiguration struct {
	Enabled     bool `json:"enabled"`
	MinSpeakers int  `json:"minSpeakers,omitempty"`
	MaxSpeakers int  `json:"maxSpeakers,omitempty"`
}

type TranscriptConfiguration struct {
	EnablePunctuation bool `json:"enablePunctuation"`
}

// Configuration controls how a media object is transcribed at submit time.
type Configuration struct {
	Priority    Priority                  `json:"priority"`
	Language    string                    `json:"language,omitempty"`
	Diarization *DiarizationConfiguration `json:"diarization,omitempty"`
	Transcript  *TranscriptConfiguration  `json:"transcript,omitempty"`
}

// coachingOptimizedConfiguration is the submit configuration used for coaching
// session recordings: two-way diarization with punctuation enabled.
var coachingOptimizedConfiguration = &Configuration{
	Priority: PriorityNormal,
	Diarization: &DiarizationConfiguration{
		Enabled:     true,
		MinSpeakers: 2,
		MaxSpeakers: 2,
	},
	Transcript: &TranscriptConfiguration{
		EnablePunctuation: true,
	},
}
