package mapper

import (
	"docchat-be/internal/entity"
	"docchat-be/internal/model"
)

type CitationMapper struct{}

func NewCitationMapper() *CitationMapper {
	return &CitationMapper{}
}

func (m *CitationMapper) ToEntity(c *model.Citation) *entity.Citation {
	if c == nil {
		return nil
	}

	return &entity.Citation{
		Id:            c.Id,
		MessageId:     c.MessageId,
		DocumentId:    c.DocumentId,
		ChunkId:       c.ChunkId,
		DocumentTitle: c.DocumentTitle,
		ChunkText:     c.ChunkText,
		PageLabel:     c.PageLabel,
		Score:         c.Score,
		CitationIndex: c.CitationIndex,
		CreatedAt:     c.CreatedAt,
	}
}

func (m *CitationMapper) ToModel(c *entity.Citation) *model.Citation {
	if c == nil {
		return nil
	}

	return &model.Citation{
		Id:            c.Id,
		MessageId:     c.MessageId,
		DocumentId:    c.DocumentId,
		ChunkId:       c.ChunkId,
		DocumentTitle: c.DocumentTitle,
		ChunkText:     c.ChunkText,
		PageLabel:     c.PageLabel,
		Score:         c.Score,
		CitationIndex: c.CitationIndex,
		CreatedAt:     c.CreatedAt,
	}
}

func (m *CitationMapper) ToEntities(citations []*model.Citation) []*entity.Citation {
	entities := make([]*entity.Citation, len(citations))
	for i, c := range citations {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *CitationMapper) ToModels(citations []*entity.Citation) []*model.Citation {
	models := make([]*model.Citation, len(citations))
	for i, c := range citations {
		models[i] = m.ToModel(c)
	}
	return models
}
