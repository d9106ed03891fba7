package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the ingestion topic: each message triggers a full
// chunk-and-embed run for one document, then the owner's open connections
// are told the document is ready (or failed).
type consumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	ingestService IIngestService
	hub           *websocket.Hub
	log           logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	ingestService IIngestService,
	hub *websocket.Hub,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		ingestService: ingestService,
		hub:           hub,
		log:           log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("Consumer", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // ack malformed messages to prevent infinite retry
		return
	}

	result, err := cs.ingestService.Ingest(ctx, payload.DocumentId)
	if err != nil {
		cs.log.Error("Consumer", "Ingestion failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack() // retriable: embedding provider or db hiccup
		return
	}

	if cs.hub != nil {
		cs.hub.Send(result.UserId, websocket.IngestionEvent{
			DocumentId: result.DocumentId,
			Status:     "ready",
			ChunkCount: result.ChunkCount,
		})
	}

	msg.Ack()
}

// NatsConsumer is the JetStream flavor of the ingestion worker, used when
// workers run outside the API process.
type NatsConsumer struct {
	subscriber    *pktNats.Subscriber
	topicName     string
	ingestService IIngestService
	hub           *websocket.Hub
	log           logger.ILogger
}

func NewNatsConsumer(
	subscriber *pktNats.Subscriber,
	topicName string,
	ingestService IIngestService,
	hub *websocket.Hub,
	log logger.ILogger,
) *NatsConsumer {
	return &NatsConsumer{
		subscriber:    subscriber,
		topicName:     topicName,
		ingestService: ingestService,
		hub:           hub,
		log:           log,
	}
}

func (nc *NatsConsumer) Consume(ctx context.Context) error {
	subject := fmt.Sprintf("events.%s", nc.topicName)
	return nc.subscriber.Subscribe(subject, "ingest-worker", func(ctx context.Context, event events.Event) error {
		raw, _ := event.Payload()["payload"].(string)

		var payload dto.IngestDocumentMessage
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			nc.log.Error("Consumer", "Failed to unmarshal NATS payload", map[string]interface{}{"error": err.Error()})
			return nil // drop malformed messages
		}

		result, err := nc.ingestService.Ingest(ctx, payload.DocumentId)
		if err != nil {
			return err // nak, JetStream redelivers
		}

		if nc.hub != nil {
			nc.hub.Send(result.UserId, websocket.IngestionEvent{
				DocumentId: result.DocumentId,
				Status:     "ready",
				ChunkCount: result.ChunkCount,
			})
		}
		return nil
	})
}
