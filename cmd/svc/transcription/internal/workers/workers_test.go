package workers

import (
	"testing"
	"time"

	"github.com/coachloop/backend/cmd/svc/transcription/internal/progress"
	"github.com/coachloop/backend/libs/cfg"
	"github.com/coachloop/backend/libs/clock"
	"github.com/coachloop/backend/libs/stt"
	"github.com/coachloop/backend/libs/test"
	"github.com/coachloop/backend/libs/test/mock"
)

var _ stt.JobClient = &mockJobClient{}

type mockJobClient struct {
	*mock.Expector
}

func newMockJobClient(t *testing.T) *mockJobClient {
	return &mockJobClient{&mock.Expector{T: t}}
}

func (c *mockJobClient) Submit(mediaURL, language string) (string, error) {
	rets := c.Record(mediaURL, language)
	if len(rets) == 0 {
		return "", nil
	}
	return rets[0].(string), mock.SafeError(rets[1])
}

func (c *mockJobClient) Get(id string) (*stt.Job, error) {
	rets := c.Record(id)
	if len(rets) == 0 {
		return nil, nil
	}
	return rets[0].(*stt.Job), mock.SafeError(rets[1])
}

func (c *mockJobClient) Delete(id string) error {
	rets := c.Record(id)
	if len(rets) == 0 {
		return nil
	}
	return mock.SafeError(rets[0])
}

func testCfgStore(t *testing.T) cfg.Store {
	var defs []*cfg.ValueDef
	defs = append(defs, Defs()...)
	defs = append(defs, progress.Defs()...)
	store, err := cfg.NewLocalStore(defs)
	test.OK(t, err)
	return store
}

func testClock() *clock.ManagedClock {
	return clock.NewManaged(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
}
