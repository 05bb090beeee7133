package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"docchat-be/internal/dto"
	"docchat-be/internal/entity"
	"docchat-be/internal/repository/contract"
	"docchat-be/internal/repository/memory"
	"docchat-be/internal/repository/specification"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/llm"
	"docchat-be/pkg/rag/answer"
	"docchat-be/pkg/rag/index"
	"docchat-be/pkg/rag/prompt"
	"docchat-be/pkg/rag/retriever"
	"docchat-be/pkg/rag/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

type fakeLLM struct {
	text string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.text, nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onDelta llm.DeltaFunc, options ...llm.Option) (string, error) {
	if err := onDelta(f.text); err != nil {
		return "", err
	}
	return f.text, nil
}

func (f *fakeLLM) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	return f.text, nil
}

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, nil
}

func (f *fakeEmbedder) Dimension() int  { return len(f.vector) }
func (f *fakeEmbedder) ModelID() string { return "fake/embedder" }

type fakeHydrator struct {
	byChunk map[uuid.UUID]retriever.RetrievedChunk
}

func (f *fakeHydrator) Hydrate(ctx context.Context, hits []index.Hit) ([]retriever.RetrievedChunk, error) {
	var out []retriever.RetrievedChunk
	for _, h := range hits {
		c, ok := f.byChunk[h.ChunkId]
		if !ok {
			continue
		}
		c.Score = h.Score
		out = append(out, c)
	}
	return out, nil
}

// chatStore backs the repository fakes. A mutex guards it so concurrent
// sends exercise the real locking in the service, not data races in the test.
type chatStore struct {
	mu            sync.Mutex
	conversations []*entity.Conversation
	messages      []*entity.Message
	citations     []*entity.Citation
}

func (s *chatStore) snapshotMessages() []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

func (s *chatStore) snapshotCitations() []entity.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Citation, len(s.citations))
	for i, c := range s.citations {
		out[i] = *c
	}
	return out
}

type fakeUowFactory struct {
	store *chatStore
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *chatStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) NotebookRepository() contract.NotebookRepository {
	return &fakeNotebookRepo{}
}
func (u *fakeUow) DocumentRepository() contract.DocumentRepository {
	return &fakeDocumentRepo{}
}
func (u *fakeUow) DocumentChunkRepository() contract.DocumentChunkRepository {
	return &fakeChunkRepo{}
}
func (u *fakeUow) ConversationRepository() contract.ConversationRepository {
	return &fakeConversationRepo{store: u.store}
}
func (u *fakeUow) MessageRepository() contract.MessageRepository {
	return &fakeMessageRepo{store: u.store}
}
func (u *fakeUow) CitationRepository() contract.CitationRepository {
	return &fakeCitationRepo{store: u.store}
}

type fakeConversationRepo struct {
	store *chatStore
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *conversation
	r.store.conversations = append(r.store.conversations, &stored)
	return nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, conversation *entity.Conversation) error {
	return nil
}

func (r *fakeConversationRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeConversationRepo) DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error {
	return nil
}

func (r *fakeConversationRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			for _, c := range r.store.conversations {
				if c.Id == byID.ID {
					found := *c
					return &found, nil
				}
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	return nil, nil
}

func (r *fakeConversationRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.conversations)), nil
}

type fakeMessageRepo struct {
	store *chatStore
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored := *message
	r.store.messages = append(r.store.messages, &stored)
	return nil
}

func (r *fakeMessageRepo) MarkInterrupted(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeMessageRepo) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]*entity.Message, 0, len(r.store.messages))
	for _, m := range r.store.messages {
		found := *m
		out = append(out, &found)
	}
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.messages)), nil
}

type fakeCitationRepo struct {
	store *chatStore
}

func (r *fakeCitationRepo) CreateBulk(ctx context.Context, citations []*entity.Citation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range citations {
		stored := *c
		r.store.citations = append(r.store.citations, &stored)
	}
	return nil
}

func (r *fakeCitationRepo) DeleteByMessageId(ctx context.Context, messageId uuid.UUID) error {
	return nil
}

func (r *fakeCitationRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Citation, error) {
	return nil, nil
}

func (r *fakeCitationRepo) FindAllByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.Citation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(messageIds))
	for _, id := range messageIds {
		wanted[id] = true
	}
	var out []*entity.Citation
	for _, c := range r.store.citations {
		if wanted[c.MessageId] {
			found := *c
			out = append(out, &found)
		}
	}
	return out, nil
}

type fakeNotebookRepo struct{}

func (r *fakeNotebookRepo) Create(ctx context.Context, notebook *entity.Notebook) error { return nil }
func (r *fakeNotebookRepo) Update(ctx context.Context, notebook *entity.Notebook) error { return nil }
func (r *fakeNotebookRepo) Delete(ctx context.Context, id uuid.UUID) error              { return nil }
func (r *fakeNotebookRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Notebook, error) {
	return nil, nil
}
func (r *fakeNotebookRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Notebook, error) {
	return nil, nil
}
func (r *fakeNotebookRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

type fakeDocumentRepo struct{}

func (r *fakeDocumentRepo) Create(ctx context.Context, document *entity.Document) error { return nil }
func (r *fakeDocumentRepo) Update(ctx context.Context, document *entity.Document) error { return nil }
func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error              { return nil }
func (r *fakeDocumentRepo) DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error {
	return nil
}
func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	return nil, nil
}
func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return nil, nil
}
func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (r *fakeDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DocumentStatus, errorMessage string) error {
	return nil
}

type fakeChunkRepo struct{}

func (r *fakeChunkRepo) Create(ctx context.Context, chunk *entity.DocumentChunk) error { return nil }
func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	return nil
}
func (r *fakeChunkRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return nil
}
func (r *fakeChunkRepo) DeleteByNotebookId(ctx context.Context, notebookId uuid.UUID) error {
	return nil
}
func (r *fakeChunkRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error) {
	return nil, nil
}
func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	return nil, nil
}
func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (r *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, documentIds []uuid.UUID, threshold float64) ([]*contract.ScoredChunk, error) {
	return nil, nil
}

// newTestChatService wires the service over in-memory fakes with three
// distinct chunks of one document in the index.
func newTestChatService(t *testing.T, answerText string) (IChatService, *chatStore, []uuid.UUID) {
	t.Helper()

	store := &chatStore{}
	docId := uuid.New()
	chunkIds := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	texts := []string{
		"Quarterly revenue grew eleven percent across retail divisions.",
		"Shipping delays affected overseas warehouse operations badly.",
		"Board members approved a sustainability initiative yesterday.",
	}

	vec := []float32{1, 0, 0}
	idx := index.NewMemory()
	entries := make([]index.Entry, len(chunkIds))
	hydrated := make(map[uuid.UUID]retriever.RetrievedChunk, len(chunkIds))
	for i, id := range chunkIds {
		entries[i] = index.Entry{ChunkId: id, DocumentId: docId, Vector: vec}
		hydrated[id] = retriever.RetrievedChunk{
			ChunkId:       id,
			DocumentId:    docId,
			DocumentTitle: "Annual Report",
			Text:          texts[i],
			SeqIndex:      i,
		}
	}
	require.NoError(t, idx.Upsert(context.Background(), entries))

	ret := retriever.New(&fakeEmbedder{vector: vec}, idx, &fakeHydrator{byChunk: hydrated}, 0.5)

	svc := NewChatService(
		&fakeUowFactory{store: store},
		ret,
		prompt.NewComposer(2000, 6),
		answer.NewSynthesizer(&fakeLLM{text: answerText}, noopLogger{}),
		session.NewMemory(),
		memory.NewConversationLocks(),
		nil,
		&fakeEmbedder{vector: vec},
		noopLogger{},
		5,
	)
	return svc, store, chunkIds
}

func TestSendStoresInlineMarkerAsCitationIndex(t *testing.T) {
	// An answer citing only the third excerpt must persist citation_index 3,
	// the number written inline, not the citation's position in the list.
	svc, store, chunkIds := newTestChatService(t, "Only the final excerpt answers this [3].")

	res, err := svc.Send(context.Background(), &dto.SendMessageRequest{
		Question: "What did the board approve?",
	})

	require.NoError(t, err)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, 3, res.Citations[0].Index)
	assert.Equal(t, chunkIds[2], res.Citations[0].ChunkId)

	stored := store.snapshotCitations()
	require.Len(t, stored, 1)
	assert.Equal(t, 3, stored[0].CitationIndex)
	assert.Equal(t, chunkIds[2], stored[0].ChunkId)
	assert.Equal(t, res.MessageId, stored[0].MessageId)
}

func TestConcurrentSendsAppendOrderedPairs(t *testing.T) {
	svc, store, _ := newTestChatService(t, "All three excerpts agree [1].")

	conversationId := uuid.New()
	{
		factory := &fakeUowFactory{store: store}
		uow := factory.NewUnitOfWork(context.Background())
		require.NoError(t, uow.ConversationRepository().Create(context.Background(), &entity.Conversation{
			Id:    conversationId,
			Title: "Quarterly review",
		}))
	}

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Send(context.Background(), &dto.SendMessageRequest{
				ConversationId: &conversationId,
				Question:       fmt.Sprintf("sender %d wants its own answer", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	messages := store.snapshotMessages()
	require.Len(t, messages, 2*senders, "each send appends exactly one user and one assistant message")

	for i, m := range messages {
		assert.Equal(t, conversationId, m.ConversationId)
		if i%2 == 0 {
			assert.Equal(t, entity.MessageRoleUser, m.Role, "message %d", i)
		} else {
			assert.Equal(t, entity.MessageRoleAssistant, m.Role, "message %d", i)
			assert.Equal(t, "All three excerpts agree [1].", m.Content)
		}
	}
}
