package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the events this service publishes.
const (
	EventSurveySaved        = "survey.saved"
	EventSurveyInstantiated = "survey.instantiated"
)

// Event is the envelope carried over the message bus.
type Event struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(Type string, payload []byte) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Payload:   payload,
		Type:      Type,
		Timestamp: time.Now(),
	}
}

func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event_id is nil")
	}

	if e.Payload == nil {
		return errors.New("payload is nil")
	}

	if e.Type == "" {
		return errors.New("type is nil")
	}

	return nil
}

// SavedPayload is the body of a survey.saved event.
type SavedPayload struct {
	SurveyID      string       `json:"surveyId"`
	OwnerID       string       `json:"ownerId"`
	Status        SurveyStatus `json:"status"`
	QuestionCount int          `json:"questionCount"`
}

// InstantiatedPayload is the body of a survey.instantiated event.
type InstantiatedPayload struct {
	SurveyID   string `json:"surveyId"`
	TemplateID string `json:"templateId"`
	OwnerID    string `json:"ownerId"`
}
