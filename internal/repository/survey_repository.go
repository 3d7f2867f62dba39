// Package repository provides data persistence functionality using GORM
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// surveyColumns are rewritten when an existing survey is saved again.
// created_at is deliberately absent.
var surveyColumns = []string{
	"owner_id", "title", "description", "status", "settings",
	"is_template", "is_public", "category", "industry", "updated_at",
}

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
	now    func() time.Time
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Migrate creates or updates the surveys and questions tables
func (repo *Repository) Migrate(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).AutoMigrate(&surveyRow{}, &questionRow{}); err != nil {
		repo.logger.Error("error migrate schema", zap.Error(err))
		return entity.NewPersistenceError("migrate", err)
	}
	return nil
}

// Load retrieves a survey with its questions in presentation order
func (repo *Repository) Load(ctx context.Context, id uuid.UUID) (*entity.Survey, error) {
	var row surveyRow

	err := repo.db.WithContext(ctx).
		Preload("Questions", orderQuestions).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.NewNotFoundError("survey", id.String())
		}
		repo.logger.Error("error load survey",
			zap.String("survey_id", id.String()),
			zap.Error(err),
		)
		return nil, entity.NewPersistenceError("load survey", err)
	}

	return row.toEntity(), nil
}

// Save creates the survey when it has no id yet and replaces the stored copy
// otherwise. The questions are rewritten as a whole inside one transaction.
// Concurrent saves of the same survey are last-write-wins.
func (repo *Repository) Save(ctx context.Context, s *entity.Survey) (uuid.UUID, error) {
	doc := s.Clone()
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return uuid.Nil, err
	}

	if doc.IsNew() {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.Nil, entity.NewPersistenceError("generate id", err)
		}
		doc.ID = id
	}

	now := repo.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	row := toRow(doc)
	questions := row.Questions
	row.Questions = nil

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(surveyColumns),
		}).Create(&row).Error
		if err != nil {
			return err
		}

		if err := tx.Where("survey_id = ?", row.ID).Delete(&questionRow{}).Error; err != nil {
			return err
		}

		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
	if err != nil {
		repo.logger.Error("error save survey",
			zap.String("survey_id", doc.ID.String()),
			zap.Int("questions", len(questions)),
			zap.Error(err),
		)
		return uuid.Nil, entity.NewPersistenceError("save survey", err)
	}

	return doc.ID, nil
}

// ListTemplates returns the public templates, plus the private templates of
// filter.OwnerID, sorted by title
func (repo *Repository) ListTemplates(ctx context.Context, filter entity.TemplateFilter) ([]*entity.Survey, error) {
	query := repo.db.WithContext(ctx).
		Preload("Questions", orderQuestions).
		Where("is_template = ?", true)

	if filter.OwnerID != "" {
		query = query.Where(repo.db.Where("is_public = ?", true).Or("owner_id = ?", filter.OwnerID))
	} else {
		query = query.Where("is_public = ?", true)
	}

	if filter.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(filter.Category))
	}
	if filter.Industry != "" {
		query = query.Where("LOWER(industry) = ?", strings.ToLower(filter.Industry))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(repo.db.Where("LOWER(title) LIKE ?", like).Or("LOWER(description) LIKE ?", like))
	}

	var rows []surveyRow
	if err := query.Order("title").Find(&rows).Error; err != nil {
		repo.logger.Error("error list templates",
			zap.String("category", filter.Category),
			zap.String("industry", filter.Industry),
			zap.Error(err),
		)
		return nil, entity.NewPersistenceError("list templates", err)
	}

	out := make([]*entity.Survey, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntity()
	}
	return out, nil
}

func (repo *Repository) IsHealthy() bool {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func (repo *Repository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func orderQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("order_number")
}
