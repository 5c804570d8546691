package mock

import (
	"testing"

	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/coachloop/backend/libs/test/mock"
)

// SQSAPI mocks the subset of the SQS API the services use. Calls to methods
// without expectations queued fall through to the embedded nil interface and
// panic, which surfaces unmocked usage immediately.
type SQSAPI struct {
	sqsiface.SQSAPI
	*mock.Expector
}

// NewSQSAPI returns a mock compatible SQSAPI instance.
func NewSQSAPI(t *testing.T) *SQSAPI {
	return &SQSAPI{Expector: &mock.Expector{T: t}}
}

func (s *SQSAPI) SendMessage(in *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
	rets := s.Record(in)
	if len(rets) == 0 {
		return &sqs.SendMessageOutput{}, nil
	}
	return rets[0].(*sqs.SendMessageOutput), mock.SafeError(rets[1])
}

func (s *SQSAPI) ReceiveMessage(in *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	rets := s.Record(in)
	if len(rets) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	return rets[0].(*sqs.ReceiveMessageOutput), mock.SafeError(rets[1])
}

func (s *SQSAPI) DeleteMessage(in *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	rets := s.Record(in)
	if len(rets) == 0 {
		return &sqs.DeleteMessageOutput{}, nil
	}
	return rets[0].(*sqs.DeleteMessageOutput), mock.SafeError(rets[1])
}
