package boot

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/samuel/go-metrics/metrics"

	"github.com/coachloop/backend/libs/conc"
	"github.com/coachloop/backend/libs/golog"
	"github.com/coachloop/backend/libs/ratelimit"
)

type snsLogHandler struct {
	sns         snsiface.SNSAPI
	topic       string
	subject     string
	wrapped     golog.Handler
	rateLimiter ratelimit.KeyedRateLimiter

	statPublished   *metrics.Counter
	statRateLimited *metrics.Counter
	statFailed      *metrics.Counter
}

// SNSLogHandler returns a log handler that forwards every entry to wrapped
// and additionally publishes ERROR and above to an SNS topic. Publishing is
// asynchronous and rate limited by log source so a hot error loop cannot
// flood the topic.
func SNSLogHandler(snsCli snsiface.SNSAPI, topic, subject string, wrapped golog.Handler, rateLimiter ratelimit.KeyedRateLimiter, statsRegistry metrics.Registry) golog.Handler {
	h := &snsLogHandler{
		sns:             snsCli,
		topic:           topic,
		subject:         subject,
		wrapped:         wrapped,
		rateLimiter:     rateLimiter,
		statPublished:   metrics.NewCounter(),
		statRateLimited: metrics.NewCounter(),
		statFailed:      metrics.NewCounter(),
	}
	statsRegistry.Add("published", h.statPublished)
	statsRegistry.Add("ratelimited", h.statRateLimited)
	statsRegistry.Add("failed", h.statFailed)
	return h
}

func (h *snsLogHandler) Log(e *golog.Entry) error {
	if e.Lvl <= golog.ERR {
		if ok, err := h.rateLimiter.Check(e.Src, 1); err != nil || ok {
			msg := e.Msg
			src := e.Src
			conc.Go(func() {
				_, err := h.sns.Publish(&sns.PublishInput{
					Message:  aws.String(src + ": " + msg),
					Subject:  aws.String(h.subject),
					TopicArn: aws.String(h.topic),
				})
				if err != nil {
					h.statFailed.Inc(1)
					return
				}
				h.statPublished.Inc(1)
			})
		} else {
			h.statRateLimited.Inc(1)
		}
	}
	return h.wrapped.Log(e)
}
