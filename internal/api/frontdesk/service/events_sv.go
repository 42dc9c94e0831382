package frontdeskService

import (
	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"
	contextPkg "frontdesk/pkg/context"
	"frontdesk/pkg/redis"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

// IEventPublisher announces help request lifecycle changes to supervisors.
// Publishing is best effort and never fails the caller.
type IEventPublisher interface {
	Publish(ctx context.Context, eventType string, hr entity.HelpRequest)
}

type redisEventPublisher struct {
	log   *logrus.Logger
	redis redis.IRedis
}

func NewEventPublisher(log *logrus.Logger, redisClient redis.IRedis) IEventPublisher {
	return &redisEventPublisher{
		log:   log,
		redis: redisClient,
	}
}

func (p *redisEventPublisher) Publish(ctx context.Context, eventType string, hr entity.HelpRequest) {
	if p.redis == nil {
		return
	}
	requestID := contextPkg.GetRequestID(ctx)

	payload, err := jsoniter.Marshal(frontdesk.HelpRequestEvent{
		Type:        eventType,
		HelpRequest: frontdesk.NewHelpRequestResponse(hr),
		At:          time.Now().UTC(),
	})
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode help request event")
		return
	}

	if err := p.redis.Publish(ctx, frontdesk.HelpRequestEventsChannel, payload); err != nil {
		p.log.WithFields(logrus.Fields{
			"request_id":      requestID,
			"help_request_id": hr.ID,
			"event":           eventType,
			"error":           err.Error(),
		}).Warn("Failed to publish help request event")
	}
}
