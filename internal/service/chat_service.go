package service

import (
	"context"
	"errors"
	"time"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/repository/memory"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/embedding"
	"docchat-be/pkg/events"
	"docchat-be/pkg/llm"
	pktNats "docchat-be/pkg/nats"
	"docchat-be/pkg/rag/answer"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/ragerr"
	"docchat-be/pkg/rag/retriever"
	"docchat-be/pkg/rag/session"

	"github.com/google/uuid"
)

const (
	maxStoredCitations = 5
	maxTitleRunes      = 50
	citationPreviewLen = 200

	emptyScopeGuidance = "No documents are selected for this conversation. Select at least one document, or clear the selection to search everything, and ask again."
)

type IChatService interface {
	Send(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	// SendStream runs the same pipeline but emits StreamEvents as the answer
	// is generated. The emit callback owns the wire format.
	SendStream(ctx context.Context, req *dto.SendMessageRequest, emit func(dto.StreamEvent) error) error
	History(ctx context.Context, conversationId uuid.UUID) (*dto.ConversationHistoryResponse, error)
	DeleteConversation(ctx context.Context, conversationId uuid.UUID) error
	Stats(ctx context.Context) (*dto.ChatStatsResponse, error)
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	retriever      *retriever.Retriever
	composer       *prompt.Composer
	synthesizer    *answer.Synthesizer
	sessionMemory  *session.Memory
	locks          *memory.ConversationLocks
	eventPublisher *pktNats.Publisher
	embedder       embedding.EmbeddingProvider
	logger         logger.ILogger
	topK           int
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	ret *retriever.Retriever,
	composer *prompt.Composer,
	synthesizer *answer.Synthesizer,
	sessionMemory *session.Memory,
	locks *memory.ConversationLocks,
	eventPublisher *pktNats.Publisher,
	embedder embedding.EmbeddingProvider,
	logger logger.ILogger,
	topK int,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		retriever:      ret,
		composer:       composer,
		synthesizer:    synthesizer,
		sessionMemory:  sessionMemory,
		locks:          locks,
		eventPublisher: eventPublisher,
		embedder:       embedder,
		logger:         logger,
		topK:           topK,
	}
}

func (c *chatService) Send(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	return c.send(ctx, req, nil)
}

func (c *chatService) SendStream(ctx context.Context, req *dto.SendMessageRequest, emit func(dto.StreamEvent) error) error {
	_, err := c.send(ctx, req, emit)
	return err
}

// send is the shared pipeline. When emit is nil the answer is generated in
// one call, otherwise deltas are forwarded as they arrive and citations
// follow once the stream ends.
func (c *chatService) send(ctx context.Context, req *dto.SendMessageRequest, emit func(dto.StreamEvent) error) (*dto.SendMessageResponse, error) {
	conversation, created, err := c.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	// One send at a time per conversation keeps message order stable
	c.locks.Lock(conversation.Id)
	defer c.locks.Unlock(conversation.Id)

	// The user message is durable before any pipeline work, so a crash or
	// disconnect never loses what the user typed.
	uow := c.uowFactory.NewUnitOfWork(ctx)
	userMessage := entity.Message{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           entity.MessageRoleUser,
		Content:        req.Question,
		CreatedAt:      time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}

	if created {
		c.publishEvent(ctx, events.NewConversationCreated(conversation.Id, conversation.NotebookId))
	}

	history, err := c.loadHistory(ctx, conversation.Id, userMessage.Id)
	if err != nil {
		return nil, err
	}

	scope, err := c.resolveScope(ctx, req, conversation)
	if err != nil {
		return nil, err
	}

	chunks, err := c.retrieveWithSession(ctx, conversation.Id, req.Question, scope)
	if errors.Is(err, ragerr.ErrEmptyScope) {
		return c.respondGuidance(ctx, conversation, emit)
	}
	if err != nil {
		return nil, err
	}

	messages, citationMap := c.composer.Compose(req.Question, chunks, history)

	var result *answer.Result
	if emit == nil {
		result, err = c.synthesizer.Answer(ctx, messages, citationMap)
	} else {
		result, err = c.synthesizer.AnswerStream(ctx, messages, citationMap, func(delta string) error {
			if ctx.Err() != nil {
				return context.Canceled
			}
			return emit(dto.StreamEvent{Type: "delta", Delta: delta})
		})
	}

	interrupted := errors.Is(err, context.Canceled)
	if err != nil && !interrupted {
		return nil, err
	}

	// Client went away mid-stream: keep what was generated, flagged partial.
	// Persistence runs on a fresh context since the request one is dead.
	persistCtx := ctx
	if interrupted {
		persistCtx = context.Background()
	}

	assistantMessage, citations, err := c.persistAnswer(persistCtx, conversation.Id, result, interrupted)
	if err != nil {
		return nil, err
	}

	if !interrupted {
		c.sessionMemory.Update(conversation.Id, req.Question, chunks)
	}

	response := &dto.SendMessageResponse{
		ConversationId: conversation.Id,
		MessageId:      assistantMessage.Id,
		Answer:         result.Text,
		Citations:      citations,
		Fallback:       result.Fallback,
	}

	if interrupted {
		return response, context.Canceled
	}

	if emit != nil {
		if err := emit(dto.StreamEvent{
			Type:           "citations",
			ConversationId: &conversation.Id,
			MessageId:      &assistantMessage.Id,
			Citations:      citations,
			Fallback:       result.Fallback,
		}); err != nil {
			return response, err
		}
		if err := emit(dto.StreamEvent{
			Type:           "done",
			ConversationId: &conversation.Id,
			MessageId:      &assistantMessage.Id,
		}); err != nil {
			return response, err
		}
	}
	return response, nil
}

func (c *chatService) History(ctx context.Context, conversationId uuid.UUID) (*dto.ConversationHistoryResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, nil
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	messageIds := make([]uuid.UUID, len(messages))
	for i, m := range messages {
		messageIds[i] = m.Id
	}
	citations, err := uow.CitationRepository().FindAllByMessageIds(ctx, messageIds)
	if err != nil {
		return nil, err
	}

	citationsByMessage := make(map[uuid.UUID][]dto.CitationResponse)
	for _, cit := range citations {
		citationsByMessage[cit.MessageId] = append(citationsByMessage[cit.MessageId], dto.CitationResponse{
			Index:         cit.CitationIndex,
			DocumentId:    cit.DocumentId,
			DocumentTitle: cit.DocumentTitle,
			ChunkId:       cit.ChunkId,
			PageLabel:     cit.PageLabel,
			Preview:       cit.ChunkText,
			Score:         cit.Score,
		})
	}

	res := dto.ConversationHistoryResponse{
		ConversationId: conversation.Id,
		Title:          conversation.Title,
		Messages:       make([]dto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.Messages = append(res.Messages, dto.MessageResponse{
			Id:          m.Id,
			Role:        m.Role,
			Content:     m.Content,
			Interrupted: m.Interrupted,
			Citations:   citationsByMessage[m.Id],
			CreatedAt:   m.CreatedAt,
		})
	}
	return &res, nil
}

func (c *chatService) DeleteConversation(ctx context.Context, conversationId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: conversationId})
	if err != nil {
		return err
	}
	if conversation == nil {
		return nil
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByConversationId(ctx, conversationId); err != nil {
		return err
	}
	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *chatService) Stats(ctx context.Context) (*dto.ChatStatsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.MessageRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	documents, err := uow.DocumentRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := uow.DocumentChunkRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	conversations, err := uow.ConversationRepository().Count(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.ChatStatsResponse{
		Conversations:  conversations,
		Messages:       messages,
		Documents:      documents,
		Chunks:         chunks,
		EmbeddingModel: c.embedder.ModelID(),
		EmbeddingDim:   c.embedder.Dimension(),
	}, nil
}

// resolveConversation loads the requested conversation or opens a new one
// titled after the first question.
func (c *chatService) resolveConversation(ctx context.Context, req *dto.SendMessageRequest) (*entity.Conversation, bool, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if req.ConversationId != nil {
		conversation, err := uow.ConversationRepository().FindOne(ctx, specification.ByID{ID: *req.ConversationId})
		if err != nil {
			return nil, false, err
		}
		if conversation != nil {
			return conversation, false, nil
		}
	}

	conversation := entity.Conversation{
		Id:         uuid.New(),
		NotebookId: req.NotebookId,
		Title:      deriveTitle(req.Question),
		CreatedAt:  time.Now(),
	}
	if err := uow.ConversationRepository().Create(ctx, &conversation); err != nil {
		return nil, false, err
	}
	return &conversation, true, nil
}

// loadHistory returns the prior turns as chat messages, oldest first. The
// just-persisted user message is excluded, the composer appends the question
// itself.
func (c *chatService) loadHistory(ctx context.Context, conversationId uuid.UUID, currentMessageId uuid.UUID) ([]llm.Message, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Id == currentMessageId || m.Interrupted {
			continue
		}
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	return history, nil
}

// resolveScope decides which documents retrieval may search. An explicit
// document selection wins; otherwise a notebook-bound conversation searches
// its notebook, and an unbound one searches the whole corpus (nil).
func (c *chatService) resolveScope(ctx context.Context, req *dto.SendMessageRequest, conversation *entity.Conversation) ([]uuid.UUID, error) {
	if req.DocumentIds != nil {
		return req.DocumentIds, nil
	}

	notebookId := conversation.NotebookId
	if notebookId == nil {
		notebookId = req.NotebookId
	}
	if notebookId == nil {
		return nil, nil
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByNotebookID{NotebookID: *notebookId})
	if err != nil {
		return nil, err
	}

	scope := make([]uuid.UUID, 0, len(documents))
	for _, d := range documents {
		scope = append(scope, d.Id)
	}
	return scope, nil
}

func (c *chatService) retrieveWithSession(ctx context.Context, conversationId uuid.UUID, question string, scope []uuid.UUID) ([]retriever.RetrievedChunk, error) {
	chunks, err := c.retriever.Retrieve(ctx, question, scope, c.topK)
	if err != nil {
		return nil, err
	}

	// Follow-up questions reuse context from the previous turn so "tell me
	// more" still has something to stand on.
	if c.sessionMemory.IsFollowUp(conversationId, question) {
		chunks = session.MergeFollowUp(chunks, c.sessionMemory.PreviousChunks(conversationId))
	}
	return chunks, nil
}

// respondGuidance answers without touching the completion backend when the
// retrieval scope is empty.
func (c *chatService) respondGuidance(ctx context.Context, conversation *entity.Conversation, emit func(dto.StreamEvent) error) (*dto.SendMessageResponse, error) {
	result := &answer.Result{Text: emptyScopeGuidance}
	assistantMessage, _, err := c.persistAnswer(ctx, conversation.Id, result, false)
	if err != nil {
		return nil, err
	}

	response := &dto.SendMessageResponse{
		ConversationId: conversation.Id,
		MessageId:      assistantMessage.Id,
		Answer:         emptyScopeGuidance,
		Citations:      []dto.CitationResponse{},
	}

	if emit != nil {
		if err := emit(dto.StreamEvent{Type: "delta", Delta: emptyScopeGuidance}); err != nil {
			return response, err
		}
		if err := emit(dto.StreamEvent{
			Type:           "done",
			ConversationId: &conversation.Id,
			MessageId:      &assistantMessage.Id,
		}); err != nil {
			return response, err
		}
	}
	return response, nil
}

// persistAnswer stores the assistant message and up to five citations in one
// transaction.
func (c *chatService) persistAnswer(ctx context.Context, conversationId uuid.UUID, result *answer.Result, interrupted bool) (*entity.Message, []dto.CitationResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	assistantMessage := entity.Message{
		Id:             uuid.New(),
		ConversationId: conversationId,
		Role:           entity.MessageRoleAssistant,
		Content:        result.Text,
		Interrupted:    interrupted,
		CreatedAt:      time.Now(),
	}

	stored := result.Citations
	if len(stored) > maxStoredCitations {
		stored = stored[:maxStoredCitations]
	}

	citationEntities := make([]*entity.Citation, 0, len(stored))
	citationResponses := make([]dto.CitationResponse, 0, len(stored))
	for _, cit := range stored {
		// The stored index is the number the model wrote inline, so [3] in
		// the message text resolves to the row with citation_index = 3.
		citationEntities = append(citationEntities, &entity.Citation{
			Id:            uuid.New(),
			MessageId:     assistantMessage.Id,
			DocumentId:    cit.Chunk.DocumentId,
			ChunkId:       cit.Chunk.ChunkId,
			DocumentTitle: cit.Chunk.DocumentTitle,
			ChunkText:     truncateRunes(cit.Chunk.Text, citationPreviewLen),
			PageLabel:     cit.Chunk.PageLabel,
			Score:         cit.Chunk.Score,
			CitationIndex: cit.SourceNumber,
			CreatedAt:     time.Now(),
		})
		citationResponses = append(citationResponses, dto.CitationResponse{
			Index:         cit.SourceNumber,
			DocumentId:    cit.Chunk.DocumentId,
			DocumentTitle: cit.Chunk.DocumentTitle,
			ChunkId:       cit.Chunk.ChunkId,
			PageLabel:     cit.Chunk.PageLabel,
			Preview:       truncateRunes(cit.Chunk.Text, citationPreviewLen),
			Score:         cit.Chunk.Score,
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, nil, err
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, nil, err
	}
	if len(citationEntities) > 0 {
		if err := uow.CitationRepository().CreateBulk(ctx, citationEntities); err != nil {
			return nil, nil, err
		}
	}
	if err := uow.Commit(); err != nil {
		return nil, nil, err
	}

	return &assistantMessage, citationResponses, nil
}

func (c *chatService) publishEvent(ctx context.Context, event events.Event) {
	if c.eventPublisher == nil {
		return
	}
	if err := c.eventPublisher.Publish(ctx, event); err != nil {
		c.logger.Warn("chat", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func deriveTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= maxTitleRunes {
		return question
	}
	return string(runes[:maxTitleRunes]) + "…"
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
