package implementation

import (
	"context"

	"docchat-be/internal/entity"
	"docchat-be/internal/mapper"
	"docchat-be/internal/model"
	"docchat-be/internal/repository/contract"
	"docchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CitationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CitationMapper
}

func NewCitationRepository(db *gorm.DB) contract.CitationRepository {
	return &CitationRepositoryImpl{
		db:     db,
		mapper: mapper.NewCitationMapper(),
	}
}

func (r *CitationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CitationRepositoryImpl) CreateBulk(ctx context.Context, citations []*entity.Citation) error {
	if len(citations) == 0 {
		return nil
	}
	models := r.mapper.ToModels(citations)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*citations[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *CitationRepositoryImpl) DeleteByMessageId(ctx context.Context, messageId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("message_id = ?", messageId).Delete(&model.Citation{}).Error
}

func (r *CitationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Citation, error) {
	var models []*model.Citation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("citation_index ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *CitationRepositoryImpl) FindAllByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.Citation, error) {
	if len(messageIds) == 0 {
		return nil, nil
	}
	var models []*model.Citation
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIds).
		Order("citation_index ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
