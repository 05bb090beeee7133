package mapper

import (
	"encoding/json"
	"time"

	"docchat-be/internal/entity"
	"docchat-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(d.Metadata) > 0 {
		// Malformed metadata is dropped rather than failing the read
		_ = json.Unmarshal(d.Metadata, &metadata)
	}

	return &entity.Document{
		Id:             d.Id,
		NotebookId:     d.NotebookId,
		Title:          d.Title,
		SourceType:     d.SourceType,
		ExtractedText:  d.ExtractedText,
		WordCount:      d.WordCount,
		Status:         entity.DocumentStatus(d.Status),
		ErrorMessage:   d.ErrorMessage,
		Metadata:       metadata,
		EmbeddingModel: d.EmbeddingModel,
		EmbeddingDim:   d.EmbeddingDim,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	var metadata datatypes.JSON
	if d.Metadata != nil {
		if raw, err := json.Marshal(d.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.Document{
		Id:             d.Id,
		NotebookId:     d.NotebookId,
		Title:          d.Title,
		SourceType:     d.SourceType,
		ExtractedText:  d.ExtractedText,
		WordCount:      d.WordCount,
		Status:         string(d.Status),
		ErrorMessage:   d.ErrorMessage,
		Metadata:       metadata,
		EmbeddingModel: d.EmbeddingModel,
		EmbeddingDim:   d.EmbeddingDim,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *DocumentMapper) ToEntities(documents []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(documents))
	for i, d := range documents {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
