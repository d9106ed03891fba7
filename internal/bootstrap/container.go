package bootstrap

import (
	"context"
	"log"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/controller"
	"ai-docchat-be/internal/handler"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/implementation"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/chunker"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/llm/factory"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/answercache"
	"ai-docchat-be/pkg/rag/retrieval"

	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService
	NatsConsumer    *service.NatsConsumer

	// WebSockets
	IngestionHandler *handler.IngestionHandler
	WebSocketHub     *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}
	batchedEmbedder := embedding.NewBatchClient(embeddingProvider, cfg.Ai.EmbeddingBatchSize)

	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. In-memory state
	sessionRepo := memory.NewSessionRepository()
	answerCache := answercache.New(cfg.Rag.CacheCapacity)

	// 5. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// 6. RAG pipeline
	splitter := chunker.NewSplitter(cfg.Rag.ChunkSizeTokens, cfg.Rag.ChunkOverlapTokens)
	retriever := retrieval.NewEngine(
		batchedEmbedder,
		implementation.NewChunkRepository(db),
		implementation.NewDocumentRepository(db),
		sysLogger,
	)
	orchestrator := rag.NewOrchestrator(retriever, llmProvider, sysLogger)

	// 7. Ingestion transport: in-process channel by default, JetStream when
	// workers run separately.
	var publisherService service.IPublisherService
	if cfg.App.EventTransport == "nats" && natsPub != nil {
		publisherService = service.NewNatsPublisherService(cfg.Keys.IngestTopic, natsPub)
		log.Printf("[INFO] Ingestion transport: NATS (%s)", cfg.Keys.IngestTopic)
	} else {
		publisherService = service.NewPublisherService(cfg.Keys.IngestTopic, pubSub)
		log.Printf("[INFO] Ingestion transport: in-process channel (%s)", cfg.Keys.IngestTopic)
	}

	ingestService := service.NewIngestService(uowFactory, splitter, batchedEmbedder, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Keys.IngestTopic, ingestService, wsHub, sysLogger)

	var natsConsumer *service.NatsConsumer
	if cfg.App.EventTransport == "nats" && natsSub != nil {
		natsConsumer = service.NewNatsConsumer(natsSub, cfg.Keys.IngestTopic, ingestService, wsHub, sysLogger)
	}

	// 8. Domain services
	documentService := service.NewDocumentService(
		uowFactory,
		publisherService,
		ingestService,
		retriever,
		orchestrator,
		answerCache,
		cfg.Rag.CacheTTL,
		cfg.Rag.DefaultLimit,
		cfg.Rag.DefaultThreshold,
		cfg.Rag.MaxSummaryChunks,
		natsPub,
		sysLogger,
	)

	chatService := service.NewChatService(
		uowFactory,
		orchestrator,
		answerCache,
		sessionRepo,
		cfg.Rag.DefaultLimit,
		cfg.Rag.DefaultThreshold,
		cfg.Rag.CacheTTL,
		sysLogger,
	)

	ingestionHandler := handler.NewIngestionHandler(wsHub, sysLogger)

	return &Container{
		DocumentController: controller.NewDocumentController(documentService),
		ChatController:     controller.NewChatController(chatService),

		ConsumerService: consumerService,
		NatsConsumer:    natsConsumer,

		IngestionHandler: ingestionHandler,
		WebSocketHub:     wsHub,
	}
}
