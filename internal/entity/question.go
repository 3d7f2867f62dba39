package entity

import (
	"fmt"

	"github.com/Koyo-os/survey-service/pkg/codec"
)

// Keys of a question that live outside its type-specific fields.
const (
	KeyID          = "id"
	KeyType        = "type"
	KeyTitle       = "title"
	KeyDescription = "description"
	KeyRequired    = "required"
)

// ReservedQuestionKeys can never appear inside Question.Fields.
var ReservedQuestionKeys = []string{KeyID, KeyType, KeyTitle, KeyDescription, KeyRequired}

// IsReservedKey reports whether key is one of the common question keys.
func IsReservedKey(key string) bool {
	for _, k := range ReservedQuestionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Question is one item of a survey. Type is fixed at creation; changing the
// type of a question means deleting it and adding a new one.
//
// On the wire a question is a flat object: the common keys plus every key of
// Fields.
type Question struct {
	ID          string
	Type        string
	Title       string
	Description string
	Required    bool
	Fields      Fields
}

// Clone returns a deep copy of the question.
func (q Question) Clone() Question {
	q.Fields = q.Fields.Clone()
	return q
}

// MarshalJSON flattens the type-specific fields next to the common keys.
func (q Question) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(q.Fields)+len(ReservedQuestionKeys))
	for k, v := range q.Fields {
		out[k] = v
	}

	out[KeyID] = q.ID
	out[KeyType] = q.Type
	out[KeyTitle] = q.Title
	out[KeyDescription] = q.Description
	out[KeyRequired] = q.Required

	return codec.Marshal(out)
}

// UnmarshalJSON splits a flat question object into common keys and fields.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return err
	}

	var parsed Question
	parsed.Fields = Fields{}

	for key, value := range raw {
		var ok bool
		switch key {
		case KeyID:
			parsed.ID, ok = value.(string)
		case KeyType:
			parsed.Type, ok = value.(string)
		case KeyTitle:
			parsed.Title, ok = value.(string)
		case KeyDescription:
			if value == nil {
				ok = true
				break
			}
			parsed.Description, ok = value.(string)
		case KeyRequired:
			parsed.Required, ok = value.(bool)
		default:
			parsed.Fields[key] = value
			ok = true
		}

		if !ok {
			return fmt.Errorf("question key %q has unexpected type %T", key, value)
		}
	}

	*q = parsed
	return nil
}
