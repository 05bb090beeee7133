package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"docchat-be/internal/entity"
	"docchat-be/internal/repository/unitofwork"
	"docchat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

// unitVector builds a 768-dim basis vector so similarity scores are exact.
func unitVector(hot int) []float32 {
	vec := make([]float32, 768)
	vec[hot%768] = 1
	return vec
}

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.NotebookRepository())
	assert.NotNil(t, uow.DocumentRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check Notebook Repository", func(t *testing.T) {
		count, err := uow.NotebookRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Notebook count: %d", count)
	})

	t.Run("Check Document Chunk Repository", func(t *testing.T) {
		// Count implies the table and the vector column exist
		count, err := uow.DocumentChunkRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("DocumentChunk count: %d", count)
	})

	t.Run("Check Transactional Document Ingestion", func(t *testing.T) {
		// Setup DB Data
		notebookId := uuid.New()
		notebook := &entity.Notebook{
			Id:   notebookId,
			Name: "Integration Notebook " + uuid.New().String(),
		}

		documentId := uuid.New()
		document := &entity.Document{
			Id:            documentId,
			NotebookId:    &notebookId,
			Title:         "Integration Document",
			SourceType:    "text",
			ExtractedText: "The quick brown fox jumps over the lazy dog.",
			WordCount:     9,
			Status:        entity.DocumentStatusPending,
		}

		err := uow.NotebookRepository().Create(context.Background(), notebook)
		assert.NoError(t, err)
		err = uow.DocumentRepository().Create(context.Background(), document)
		assert.NoError(t, err)

		// Transaction Test
		ctx := context.Background()
		err = uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		chunks := []*entity.DocumentChunk{
			{
				Id:             uuid.New(),
				DocumentId:     documentId,
				SeqIndex:       0,
				Text:           "The quick brown fox",
				EmbeddingValue: unitVector(1),
			},
			{
				Id:             uuid.New(),
				DocumentId:     documentId,
				SeqIndex:       1,
				Text:           "jumps over the lazy dog",
				EmbeddingValue: unitVector(2),
			},
		}

		err = uow.DocumentChunkRepository().CreateBulk(ctx, chunks)
		assert.NoError(t, err)

		err = uow.DocumentRepository().UpdateStatus(ctx, documentId, entity.DocumentStatusDone, "")
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		// Scoped similarity search should surface the chunks we just wrote
		hits, err := uow.DocumentChunkRepository().SearchSimilarWithScore(
			context.Background(),
			unitVector(1),
			5,
			[]uuid.UUID{documentId},
			0.5,
		)
		assert.NoError(t, err)
		if assert.NotEmpty(t, hits) {
			assert.Equal(t, "The quick brown fox", hits[0].Chunk.Text)
		}

		t.Log("Successfully ingested Document with Chunks in Transaction")
	})
}
