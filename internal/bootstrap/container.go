package bootstrap

import (
	"context"
	"log"
	"time"

	"docchat-be/internal/config"
	"docchat-be/internal/controller"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/memory"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/internal/repository/vectorstore"
	"docchat-be/internal/service"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/events"
	"docchat-be/pkg/llm/factory"
	"docchat-be/pkg/rag/answer"
	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/retriever"
	"docchat-be/pkg/rag/session"

	pktNats "docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	NotebookController controller.INotebookController
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background Services (Exposed for main.go to run)
	IngestionService service.IIngestionService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Audit trail: every domain event lands in the log file
	if natsSub != nil {
		auditLogger := logger.NewIsolatedLogger("logs/events.log")
		err := natsSub.Subscribe("events.>", "docchat-audit", func(ctx context.Context, event events.Event) error {
			auditLogger.Info("events", event.EventType(), event.Payload())
			return nil
		})
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to event audit: %v", err)
		}
	}

	// Redis
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
	}

	// 3. AI Providers
	embeddingTimeout := time.Duration(cfg.Ai.EmbeddingTimeoutSeconds) * time.Second
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
			embeddingTimeout,
			sysLogger,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, embeddingTimeout, sysLogger)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	// Redis lookaside cache keeps repeated queries off the embedding backend
	if cfg.Ai.EmbeddingCacheTTL > 0 {
		embeddingProvider = embedding.NewCachedProvider(
			embeddingProvider,
			rdb,
			time.Duration(cfg.Ai.EmbeddingCacheTTL)*time.Second,
		)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		time.Duration(cfg.Ai.LLMTimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Retrieval Stack
	var vectorIndex index.VectorIndex
	if cfg.Rag.VectorStore == "memory" {
		vectorIndex = index.NewMemory()
		log.Printf("[INFO] Using Vector Store: MEMORY")
	} else {
		vectorIndex = vectorstore.NewPgVectorIndex(db, uowFactory, cfg.Rag.ScoreThreshold)
		log.Printf("[INFO] Using Vector Store: PGVECTOR")
	}

	hydrator := vectorstore.NewChunkHydrator(uowFactory)
	ret := retriever.New(embeddingProvider, vectorIndex, hydrator, cfg.Rag.ScoreThreshold)
	composer := prompt.NewComposer(cfg.Rag.MaxContextWords, cfg.Rag.MaxHistoryTurns)
	synthesizer := answer.NewSynthesizer(llmProvider, sysLogger)
	sessionMemory := session.NewMemory()
	conversationLocks := memory.NewConversationLocks()

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Keys.IngestTopic, pubSub)
	ingestionService := service.NewIngestionService(
		pubSub,
		cfg.Keys.IngestTopic,
		uowFactory,
		embeddingProvider,
		vectorIndex,
		natsPub,
		sysLogger,
		cfg.Rag.ChunkTargetWords,
		cfg.Rag.ChunkOverlapWords,
	)

	notebookService := service.NewNotebookService(uowFactory, vectorIndex)
	documentService := service.NewDocumentService(uowFactory, publisherService, vectorIndex, sysLogger)
	chatService := service.NewChatService(
		uowFactory,
		ret,
		composer,
		synthesizer,
		sessionMemory,
		conversationLocks,
		natsPub,
		embeddingProvider,
		sysLogger,
		cfg.Rag.TopK,
	)

	// 6. Controllers
	return &Container{
		NotebookController: controller.NewNotebookController(notebookService),
		DocumentController: controller.NewDocumentController(documentService),
		ChatController:     controller.NewChatController(chatService, sysLogger),

		IngestionService: ingestionService,
	}
}
