package stt

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
)

// Job statuses reported by the service.
const (
	JobStatusAccepted = "accepted"
	JobStatusRunning  = "running"
	JobStatusFinished = "finished"
	JobStatusFailed   = "failed"
)

// Utterance is one diarized unit of the finished transcript.
type Utterance struct {
	StartMS    int64   `json:"startMs"`
	EndMS      int64   `json:"endMs"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Job is the state of an asynchronous transcription job. Progress runs from
// 0 to 100. Utterances are only populated once the job is finished.
type Job struct {
	ID            string       `json:"jobId"`
	Status        string       `json:"status"`
	Progress      float64      `json:"progress"`
	FailureReason string       `json:"failureReason,omitempty"`
	DurationMS    int64        `json:"durationMs,omitempty"`
	Utterances    []*Utterance `json:"utterances,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.Status == JobStatusFinished || j.Status == JobStatusFailed
}

type jobResponse struct {
	Job *Job `json:"job"`
}

type configurationContainer struct {
	Configuration *Configuration `json:"configuration"`
}

// JobClient submits media for transcription and polls job state.
type JobClient interface {
	Submit(mediaURL, language string) (string, error)
	Get(id string) (*Job, error)
	Delete(id string) error
}

type jobClient struct {
	b           Backend
	bearerToken string
}

func NewJobClient(backend Backend, bearerToken string) JobClient {
	return &jobClient{
		b:           backend,
		bearerToken: bearerToken,
	}
}

// Submit hands the service a URL to fetch the media from and returns the job
// ID. The URL must remain fetchable until the job finishes.
func (c jobClient) Submit(mediaURL, language string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	writer.WriteField("media", mediaURL)

	cfg := *coachingOptimizedConfiguration
	cfg.Language = language
	configurationData, err := json.Marshal(&configurationContainer{Configuration: &cfg})
	if err != nil {
		return "", err
	}

	writer.WriteField("configuration", string(configurationData))

	if err := writer.Close(); err != nil {
		return "", err
	}

	var job Job
	if err := c.b.CallMultipart("POST", "jobs", c.bearerToken, writer.Boundary(), body, &job); err != nil {
		return "", err
	}

	return job.ID, nil
}

func (c jobClient) Get(id string) (*Job, error) {
	var res jobResponse
	if err := c.b.Call("GET", "jobs/"+id, c.bearerToken, &res); err != nil {
		return nil, err
	}

	return res.Job, nil
}

// Delete removes the job and any media the service fetched for it.
func (c jobClient) Delete(id string) error {
	return c.b.Call("DELETE", "jobs/"+id, c.bearerToken, nil)
}
