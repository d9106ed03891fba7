package service

import (
	"context"
	"time"

	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	Publish(ctx context.Context, payload []byte) error
}

// publisherService queues work on the in-process watermill channel. The
// default transport: consumer and publisher live in the same process.
type publisherService struct {
	topicName string
	pubSub    *gochannel.GoChannel
}

func NewPublisherService(topicName string, pubSub *gochannel.GoChannel) IPublisherService {
	return &publisherService{
		topicName: topicName,
		pubSub:    pubSub,
	}
}

func (p *publisherService) Publish(ctx context.Context, payload []byte) error {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubSub.Publish(p.topicName, msg)
}

// natsPublisherService queues work on JetStream instead, for deployments
// where ingestion workers run in separate processes.
type natsPublisherService struct {
	topicName string
	publisher *pktNats.Publisher
}

func NewNatsPublisherService(topicName string, publisher *pktNats.Publisher) IPublisherService {
	return &natsPublisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (p *natsPublisherService) Publish(ctx context.Context, payload []byte) error {
	return p.publisher.Publish(ctx, events.BaseEvent{
		Type:       p.topicName,
		Data:       map[string]interface{}{"payload": string(payload)},
		OccurredAt: time.Now(),
	})
}
