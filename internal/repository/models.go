package repository

import (
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/google/uuid"
)

type (
	// surveyRow is the storage shape of a survey in the surveys table
	surveyRow struct {
		ID          uuid.UUID       `gorm:"type:char(36);primaryKey"`
		OwnerID     string          `gorm:"size:128;index"`
		Title       string          `gorm:"size:512"`
		Description string          `gorm:"type:text"`
		Status      string          `gorm:"size:32"`
		Settings    entity.Settings `gorm:"serializer:json;type:text"`
		IsTemplate  bool            `gorm:"index"`
		IsPublic    bool
		Category    string        `gorm:"size:128;index"`
		Industry    string        `gorm:"size:128"`
		Questions   []questionRow `gorm:"foreignKey:SurveyID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// questionRow is one question. OrderNumber only exists in storage; the
	// document itself is ordered by slice position.
	questionRow struct {
		SurveyID    uuid.UUID `gorm:"type:char(36);primaryKey"`
		ID          string    `gorm:"size:64;primaryKey"`
		OrderNumber uint      `gorm:"index"`
		Type        string    `gorm:"size:64"`
		Title       string    `gorm:"type:text"`
		Description string    `gorm:"type:text"`
		Required    bool
		Fields      entity.Fields `gorm:"serializer:json;type:text"`
	}
)

func (surveyRow) TableName() string { return "surveys" }

func (questionRow) TableName() string { return "questions" }

func toRow(s *entity.Survey) surveyRow {
	row := surveyRow{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		Description: s.Description,
		Status:      string(s.Status),
		Settings:    s.Settings,
		IsTemplate:  s.IsTemplate,
		IsPublic:    s.IsPublic,
		Category:    s.Category,
		Industry:    s.Industry,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Questions:   make([]questionRow, len(s.Questions)),
	}

	for i, q := range s.Questions {
		row.Questions[i] = questionRow{
			SurveyID:    s.ID,
			ID:          q.ID,
			OrderNumber: uint(i),
			Type:        q.Type,
			Title:       q.Title,
			Description: q.Description,
			Required:    q.Required,
			Fields:      q.Fields,
		}
	}

	return row
}

// toEntity expects Questions to be sorted by OrderNumber already.
func (r *surveyRow) toEntity() *entity.Survey {
	s := &entity.Survey{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Status:      entity.SurveyStatus(r.Status),
		Settings:    r.Settings,
		IsTemplate:  r.IsTemplate,
		IsPublic:    r.IsPublic,
		Category:    r.Category,
		Industry:    r.Industry,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Questions:   make([]entity.Question, len(r.Questions)),
	}

	for i, q := range r.Questions {
		s.Questions[i] = entity.Question{
			ID:          q.ID,
			Type:        q.Type,
			Title:       q.Title,
			Description: q.Description,
			Required:    q.Required,
			Fields:      q.Fields,
		}
	}

	s.Normalize()
	return s
}
