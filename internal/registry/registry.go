// Package registry is the static catalog of question types. It maps a type
// key to display metadata, the shape of the type-specific fields and the
// defaults a new question of that type starts with.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Koyo-os/survey-service/internal/entity"
)

// Kind is the value kind a type-specific field accepts.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindNumber
	KindInteger
	KindStringList
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindStringList:
		return "list of strings"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Plan is the subscription tier a question type requires.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

var planLevels = map[Plan]int{PlanFree: 0, PlanPro: 1, PlanEnterprise: 2}

type (
	// FieldSpec declares one type-specific field.
	FieldSpec struct {
		Kind     Kind
		Nullable bool
		Default  any // JSON-normal form
	}

	// QuestionType is one registry entry.
	QuestionType struct {
		Key         string
		DisplayName string
		Description string
		Category    string
		Icon        string
		Plan        Plan

		Fields map[string]FieldSpec
		check  func(entity.Fields) error
	}

	// Metadata is the presentation view of a QuestionType.
	Metadata struct {
		Key         string        `json:"key"`
		DisplayName string        `json:"displayName"`
		Description string        `json:"description"`
		Category    string        `json:"category"`
		Icon        string        `json:"icon"`
		Plan        Plan          `json:"plan"`
		Defaults    entity.Fields `json:"defaults"`
	}

	// Issue is a data-integrity problem found in a stored document.
	Issue struct {
		QuestionID string
		Type       string
		Problem    string
	}

	// Registry is an immutable catalog of question types.
	Registry struct {
		types []QuestionType
		index map[string]int
	}
)

// Defaults produces a fresh copy of the type's default fields.
func (t QuestionType) Defaults() entity.Fields {
	out := make(entity.Fields, len(t.Fields))
	for key, spec := range t.Fields {
		out[key] = spec.Default
	}
	return out.Clone()
}

// Metadata returns the presentation view of the type.
func (t QuestionType) Metadata() Metadata {
	return Metadata{
		Key:         t.Key,
		DisplayName: t.DisplayName,
		Description: t.Description,
		Category:    t.Category,
		Icon:        t.Icon,
		Plan:        t.Plan,
		Defaults:    t.Defaults(),
	}
}

// New builds a registry from the given entries. It panics on duplicate keys
// or on entries declaring a reserved question key, both programming errors
// in the compiled-in catalog.
func New(types ...QuestionType) *Registry {
	r := &Registry{
		types: make([]QuestionType, 0, len(types)),
		index: make(map[string]int, len(types)),
	}

	for _, t := range types {
		if _, dup := r.index[t.Key]; dup {
			panic("registry: duplicate question type " + t.Key)
		}
		for key := range t.Fields {
			if entity.IsReservedKey(key) {
				panic("registry: type " + t.Key + " declares reserved field " + key)
			}
		}
		r.index[t.Key] = len(r.types)
		r.types = append(r.types, t)
	}

	return r
}

var defaultRegistry = New(catalog()...)

// Default returns the compiled-in catalog.
func Default() *Registry {
	return defaultRegistry
}

// ListTypes returns every type in catalog order.
func (r *Registry) ListTypes() []QuestionType {
	out := make([]QuestionType, len(r.types))
	copy(out, r.types)
	return out
}

// GetQuestionType looks up a type by key.
func (r *Registry) GetQuestionType(key string) (QuestionType, error) {
	i, ok := r.index[key]
	if !ok {
		return QuestionType{}, entity.NewNotFoundError("question type", key)
	}
	return r.types[i], nil
}

// Has reports whether key names a known type.
func (r *Registry) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// GetDefaultQuestionSettings returns the default fields for key, or an empty
// bag when the key is unknown.
func (r *Registry) GetDefaultQuestionSettings(key string) entity.Fields {
	t, err := r.GetQuestionType(key)
	if err != nil {
		return entity.Fields{}
	}
	return t.Defaults()
}

// DisplayName returns the human name of a type, falling back to the raw key.
func (r *Registry) DisplayName(key string) string {
	t, err := r.GetQuestionType(key)
	if err != nil {
		return key
	}
	return t.DisplayName
}

// ByCategory returns the types whose category contains the given text,
// case-insensitively.
func (r *Registry) ByCategory(category string) []QuestionType {
	needle := strings.ToLower(category)

	var out []QuestionType
	for _, t := range r.types {
		if strings.Contains(strings.ToLower(t.Category), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func (r *Registry) Categories() []string {
	seen := map[string]struct{}{}
	for _, t := range r.types {
		seen[t.Category] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// AvailableFor returns the types usable on the given plan. Unknown plans are
// treated as free.
func (r *Registry) AvailableFor(plan Plan) []QuestionType {
	level := planLevels[plan]

	var out []QuestionType
	for _, t := range r.types {
		if planLevels[t.Plan] <= level {
			out = append(out, t)
		}
	}
	return out
}

// ValidatePatch checks a partial update of the type-specific fields of a
// question of type key whose current fields are current. Keys must be
// declared by the type and values must have the declared kind. The type's
// own rules run on the defaults overlaid with current and then patch.
func (r *Registry) ValidatePatch(key string, current, patch entity.Fields) error {
	t, err := r.GetQuestionType(key)
	if err != nil {
		return entity.NewValidationError(entity.KeyType, "unknown question type %q", key)
	}

	for name, value := range patch {
		spec, ok := t.Fields[name]
		if !ok {
			return entity.NewValidationError(name, "field is not defined for question type %q", key)
		}
		if err := spec.accepts(value); err != nil {
			return entity.NewValidationError(name, "%v", err)
		}
	}

	if t.check == nil {
		return nil
	}

	merged := t.Defaults()
	for name, value := range current {
		merged[name] = value
	}
	for name, value := range patch {
		merged[name] = value
	}
	if err := t.check(merged); err != nil {
		return entity.NewValidationError("", "%v", err)
	}

	return nil
}

// ValidateFields checks a bag of fields for a question of type key. Missing
// keys take the type's defaults, so documents saved by older catalogs that
// lack fields introduced later still pass.
func (r *Registry) ValidateFields(key string, fields entity.Fields) error {
	return r.ValidatePatch(key, entity.Fields{}, fields)
}

// Audit reports the questions of s that reference an unknown type or carry
// fields that do not match their type.
func (r *Registry) Audit(s *entity.Survey) []Issue {
	var issues []Issue
	for _, q := range s.Questions {
		if !r.Has(q.Type) {
			issues = append(issues, Issue{
				QuestionID: q.ID,
				Type:       q.Type,
				Problem:    "unknown question type",
			})
			continue
		}
		if err := r.ValidateFields(q.Type, q.Fields); err != nil {
			issues = append(issues, Issue{
				QuestionID: q.ID,
				Type:       q.Type,
				Problem:    err.Error(),
			})
		}
	}
	return issues
}

func (s FieldSpec) accepts(value any) error {
	if value == nil {
		if s.Nullable {
			return nil
		}
		return fmt.Errorf("must be a %s, got null", s.Kind)
	}

	ok := false
	switch s.Kind {
	case KindString:
		_, ok = value.(string)
	case KindBool:
		_, ok = value.(bool)
	case KindNumber:
		_, ok = value.(float64)
	case KindInteger:
		ok = entity.IsWholeNumber(value)
	case KindStringList:
		items, isList := value.([]any)
		ok = isList
		for _, item := range items {
			if _, isString := item.(string); !isString {
				ok = false
				break
			}
		}
	case KindList:
		_, ok = value.([]any)
	case KindObject:
		_, ok = value.(map[string]any)
	}

	if !ok {
		return fmt.Errorf("must be a %s, got %T", s.Kind, value)
	}
	if !entity.IsFinite(value) {
		return entity.ErrNonFinite
	}
	return nil
}
