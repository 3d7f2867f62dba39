// Package entity defines the core data structures used throughout the application
package entity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// UntitledSurvey is the placeholder title of a survey whose title is empty.
	UntitledSurvey = "Untitled Survey"

	// DefaultThankYouMessage is shown to respondents after the last question.
	DefaultThankYouMessage = "Thank you for completing this survey!"
)

// SurveyStatus tells whether a survey is reachable by respondents.
// Publishing itself is enforced by the persistence layer, not by the builder.
type SurveyStatus string

const (
	StatusDraft     SurveyStatus = "draft"
	StatusPublished SurveyStatus = "published"
)

// ParseStatus converts a textual status into a SurveyStatus.
func ParseStatus(s string) (SurveyStatus, error) {
	switch SurveyStatus(s) {
	case StatusDraft, StatusPublished:
		return SurveyStatus(s), nil
	case "":
		return StatusDraft, nil
	default:
		return "", NewValidationError("status", "unknown status %q", s)
	}
}

type (
	// Settings holds the per-survey options recognized by the builder.
	Settings struct {
		AllowAnonymous     bool   `json:"allowAnonymous"`
		ShowProgressBar    bool   `json:"showProgressBar"`
		OneQuestionPerPage bool   `json:"oneQuestionPerPage"`
		AllowBack          bool   `json:"allowBack"`
		RandomizeQuestions bool   `json:"randomizeQuestions"`
		RequireAll         bool   `json:"requireAll"`
		ThankYouMessage    string `json:"thankYouMessage"`
		EstimatedTime      string `json:"estimatedTime"`
	}

	// Survey is the persisted unit of authoring. Question order is the
	// presentation order; positions are never stored on the questions.
	// A Survey with IsTemplate set is a read-only template document.
	Survey struct {
		ID          uuid.UUID    `json:"id"`
		OwnerID     string       `json:"ownerId"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Questions   []Question   `json:"questions"`
		Settings    Settings     `json:"settings"`
		Status      SurveyStatus `json:"status"`
		IsTemplate  bool         `json:"isTemplate,omitempty"`
		IsPublic    bool         `json:"isPublic,omitempty"`
		Category    string       `json:"category,omitempty"`
		Industry    string       `json:"industry,omitempty"`
		CreatedAt   time.Time    `json:"createdAt"`
		UpdatedAt   time.Time    `json:"updatedAt"`
	}
)

// DefaultSettings returns the settings of a freshly created survey.
func DefaultSettings() Settings {
	return Settings{
		AllowAnonymous:  true,
		ShowProgressBar: true,
		AllowBack:       true,
		ThankYouMessage: DefaultThankYouMessage,
	}
}

// NewSurvey creates an empty, unsaved draft owned by ownerID.
func NewSurvey(ownerID string) *Survey {
	return &Survey{
		ID:        uuid.Nil,
		OwnerID:   ownerID,
		Title:     UntitledSurvey,
		Questions: []Question{},
		Settings:  DefaultSettings(),
		Status:    StatusDraft,
	}
}

// IsNew reports whether the survey has never been saved.
func (s *Survey) IsNew() bool {
	return s.ID == uuid.Nil
}

// Clone returns a deep copy sharing no references with s.
func (s *Survey) Clone() *Survey {
	out := *s
	out.Questions = make([]Question, len(s.Questions))
	for i := range s.Questions {
		out.Questions[i] = s.Questions[i].Clone()
	}
	return &out
}

// IndexOf returns the position of the question with the given id or -1.
func (s *Survey) IndexOf(questionID string) int {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return i
		}
	}
	return -1
}

// EstimatedTime returns the explicit estimate when set, otherwise one derived
// from the number of questions at thirty seconds each.
func (s *Survey) EstimatedTime() string {
	if s.Settings.EstimatedTime != "" {
		return s.Settings.EstimatedTime
	}
	minutes := int(math.Ceil(float64(len(s.Questions)) * 0.5))
	return fmt.Sprintf("%d min", minutes)
}

// Normalize fills the defaults a loaded document may lack.
func (s *Survey) Normalize() {
	if strings.TrimSpace(s.Title) == "" {
		s.Title = UntitledSurvey
	}
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	for i := range s.Questions {
		if s.Questions[i].Fields == nil {
			s.Questions[i].Fields = Fields{}
		}
	}
	if s.Status == "" {
		s.Status = StatusDraft
	}
}

// Validate checks the document invariants.
func (s *Survey) Validate() error {
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(s.Questions))
	for i, q := range s.Questions {
		if q.ID == "" {
			return NewValidationError(fmt.Sprintf("questions[%d].id", i), "id can not be empty")
		}
		if q.Type == "" {
			return NewValidationError(fmt.Sprintf("questions[%d].type", i), "type can not be empty")
		}
		if _, dup := seen[q.ID]; dup {
			return NewValidationError(fmt.Sprintf("questions[%d].id", i), "duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}

		for _, key := range ReservedQuestionKeys {
			if _, ok := q.Fields[key]; ok {
				return NewValidationError(fmt.Sprintf("questions[%d].%s", i, key), "reserved key in type-specific fields")
			}
		}
		for key, value := range q.Fields {
			if !IsFinite(value) {
				return NewValidationError(fmt.Sprintf("questions[%d].%s", i, key), "%v", ErrNonFinite)
			}
		}
	}

	return nil
}

// Owned reports whether the survey belongs to ownerID.
func (s *Survey) Owned(ownerID string) bool {
	return ownerID != "" && s.OwnerID == ownerID
}

// Preview is the summary shown in survey listings.
type Preview struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	QuestionCount int          `json:"questionCount"`
	EstimatedTime string       `json:"estimatedTime"`
	Status        SurveyStatus `json:"status"`
	LastModified  time.Time    `json:"lastModified"`
}

// ToPreview converts a Survey into its listing summary
func (s *Survey) ToPreview() Preview {
	return Preview{
		ID:            s.ID.String(),
		Title:         s.Title,
		Description:   s.Description,
		QuestionCount: len(s.Questions),
		EstimatedTime: s.EstimatedTime(),
		Status:        s.Status,
		LastModified:  s.UpdatedAt,
	}
}

// TemplateFilter narrows a template listing. Empty fields match everything.
// OwnerID additionally admits the private templates of that owner.
type TemplateFilter struct {
	Category string `json:"category,omitempty"`
	Industry string `json:"industry,omitempty"`
	Search   string `json:"search,omitempty"`
	OwnerID  string `json:"ownerId,omitempty"`
}
