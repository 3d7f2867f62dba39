// Package builder implements the mutation operations applied to a survey
// while it is open for editing.
//
// An Engine owns exactly one document. Every operation either applies fully
// or leaves the document untouched, and every successful operation can be
// undone. Engines are meant for a single editing session and are not safe
// for concurrent use.
package builder

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/google/uuid"
)

// HistoryLimit bounds the number of undo steps kept per engine.
const HistoryLimit = 50

// CopySuffix is appended to the title of a duplicated question.
const CopySuffix = " (Copy)"

type (
	// Engine applies builder operations to one survey document.
	Engine struct {
		survey   *entity.Survey
		registry *registry.Registry
		newID    func() string

		dirty bool
		undo  []*entity.Survey
		redo  []*entity.Survey
	}

	// Option customizes an Engine.
	Option func(*Engine)
)

// WithIDGenerator replaces the question id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New opens survey for editing. The engine works on its own copy; later
// changes to survey are not observed.
func New(survey *entity.Survey, reg *registry.Registry, opts ...Option) *Engine {
	doc := survey.Clone()
	doc.Normalize()

	e := &Engine{
		survey:   doc,
		registry: reg,
		newID:    newQuestionID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newQuestionID returns a time-ordered UUID.
func newQuestionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Survey returns a deep copy of the current document.
func (e *Engine) Survey() *entity.Survey {
	return e.survey.Clone()
}

// Len returns the number of questions.
func (e *Engine) Len() int {
	return len(e.survey.Questions)
}

// Has reports whether a question with the given id exists.
func (e *Engine) Has(id string) bool {
	return e.survey.IndexOf(id) >= 0
}

// Question returns a copy of the question with the given id.
func (e *Engine) Question(id string) (entity.Question, error) {
	i := e.survey.IndexOf(id)
	if i < 0 {
		return entity.Question{}, entity.NewNotFoundError("question", id)
	}
	return e.survey.Questions[i].Clone(), nil
}

// Dirty reports whether the document has unsaved changes.
func (e *Engine) Dirty() bool {
	return e.dirty
}

// MarkSaved records a successful save under id. A new document adopts the id,
// including the snapshots in its history, so that undoing past the first save
// never produces a second document.
func (e *Engine) MarkSaved(id uuid.UUID) {
	if e.survey.IsNew() {
		e.survey.ID = id
		for _, snapshot := range e.undo {
			snapshot.ID = id
		}
		for _, snapshot := range e.redo {
			snapshot.ID = id
		}
	}
	e.dirty = false
}

// AddQuestion appends a question of the given type populated with the
// registry defaults and returns its id.
func (e *Engine) AddQuestion(typeKey string) (string, error) {
	qt, err := e.registry.GetQuestionType(typeKey)
	if err != nil {
		return "", entity.NewValidationError(entity.KeyType, "unknown question type %q", typeKey)
	}

	next := e.survey.Clone()
	q := entity.Question{
		ID:       e.uniqueID(next),
		Type:     qt.Key,
		Title:    fmt.Sprintf("New %s Question", qt.DisplayName),
		Required: false,
		Fields:   qt.Defaults(),
	}
	next.Questions = append(next.Questions, q)

	e.commit(next)
	return q.ID, nil
}

// UpdateQuestion shallow-merges patch into the question with the given id.
// The id and type of a question are immutable. A patch that leaves the
// question as it was records no history and does not mark the engine dirty.
func (e *Engine) UpdateQuestion(id string, patch map[string]any) error {
	i := e.survey.IndexOf(id)
	if i < 0 {
		return entity.NewNotFoundError("question", id)
	}
	if len(patch) == 0 {
		return nil
	}

	next := e.survey.Clone()
	q := next.Questions[i]
	typed := entity.Fields{}

	for key, value := range patch {
		switch key {
		case entity.KeyID:
			if s, ok := value.(string); !ok || s != q.ID {
				return entity.NewValidationError(key, "question id is immutable")
			}
		case entity.KeyType:
			if s, ok := value.(string); !ok || s != q.Type {
				return entity.NewValidationError(key, "question type is immutable, delete the question and add a new one")
			}
		case entity.KeyTitle:
			s, ok := value.(string)
			if !ok {
				return entity.NewValidationError(key, "must be a string")
			}
			q.Title = s
		case entity.KeyDescription:
			if value == nil {
				q.Description = ""
				continue
			}
			s, ok := value.(string)
			if !ok {
				return entity.NewValidationError(key, "must be a string")
			}
			q.Description = s
		case entity.KeyRequired:
			b, ok := value.(bool)
			if !ok {
				return entity.NewValidationError(key, "must be a bool")
			}
			q.Required = b
		default:
			normalized, err := entity.Normalize(value)
			if err != nil {
				return entity.NewValidationError(key, "unsupported value: %v", err)
			}
			typed[key] = normalized
		}
	}

	if len(typed) > 0 {
		if !e.registry.Has(q.Type) {
			return entity.NewValidationError(entity.KeyType,
				"question type %q is unknown, only common fields can be edited", q.Type)
		}
		if err := e.registry.ValidatePatch(q.Type, q.Fields, typed); err != nil {
			return err
		}
		for key, value := range typed {
			q.Fields[key] = value
		}
	}

	if reflect.DeepEqual(q, e.survey.Questions[i].Clone()) {
		return nil
	}

	next.Questions[i] = q
	e.commit(next)
	return nil
}

// DeleteQuestion removes the question with the given id, keeping the order
// of the remaining questions.
func (e *Engine) DeleteQuestion(id string) error {
	i := e.survey.IndexOf(id)
	if i < 0 {
		return entity.NewNotFoundError("question", id)
	}

	next := e.survey.Clone()
	next.Questions = append(next.Questions[:i], next.Questions[i+1:]...)

	e.commit(next)
	return nil
}

// DuplicateQuestion appends a deep copy of the question with a new id and a
// suffixed title, and returns the new id.
func (e *Engine) DuplicateQuestion(id string) (string, error) {
	i := e.survey.IndexOf(id)
	if i < 0 {
		return "", entity.NewNotFoundError("question", id)
	}

	next := e.survey.Clone()
	dup := next.Questions[i].Clone()
	dup.ID = e.uniqueID(next)
	dup.Title += CopySuffix
	next.Questions = append(next.Questions, dup)

	e.commit(next)
	return dup.ID, nil
}

// ReorderQuestions moves the question at from to position to, shifting the
// questions in between by one.
func (e *Engine) ReorderQuestions(from, to int) error {
	n := len(e.survey.Questions)
	if from < 0 || from >= n {
		return entity.NewValidationError("from", "index %d out of range [0,%d)", from, n)
	}
	if to < 0 || to >= n {
		return entity.NewValidationError("to", "index %d out of range [0,%d)", to, n)
	}
	if from == to {
		return nil
	}

	next := e.survey.Clone()
	moved := next.Questions[from]
	rest := append(next.Questions[:from:from], next.Questions[from+1:]...)

	reordered := make([]entity.Question, 0, n)
	reordered = append(reordered, rest[:to]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, rest[to:]...)
	next.Questions = reordered

	e.commit(next)
	return nil
}

// ApplySettings shallow-merges partial into the survey settings. Only the
// recognized options are accepted.
func (e *Engine) ApplySettings(partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}

	next := e.survey.Clone()
	for key, value := range partial {
		set, ok := settingSetters[key]
		if !ok {
			return entity.NewValidationError(key, "unknown survey setting")
		}
		if err := set(&next.Settings, value); err != nil {
			return entity.NewValidationError(key, "%v", err)
		}
	}

	e.commit(next)
	return nil
}

// SetTitle changes the survey title. An empty title falls back to the
// placeholder.
func (e *Engine) SetTitle(title string) {
	next := e.survey.Clone()
	next.Title = title
	if strings.TrimSpace(title) == "" {
		next.Title = entity.UntitledSurvey
	}
	e.commit(next)
}

// SetDescription changes the survey description.
func (e *Engine) SetDescription(description string) {
	next := e.survey.Clone()
	next.Description = description
	e.commit(next)
}

// CanUndo reports whether there is an operation to undo.
func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }

// CanRedo reports whether there is an undone operation to reapply.
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// Undo reverts the last operation. It returns false when there is nothing to
// undo.
func (e *Engine) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}

	last := len(e.undo) - 1
	e.redo = append(e.redo, e.survey)
	e.survey = e.undo[last]
	e.undo = e.undo[:last]
	e.dirty = true
	return true
}

// Redo reapplies the last undone operation. It returns false when there is
// nothing to redo.
func (e *Engine) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}

	last := len(e.redo) - 1
	e.undo = append(e.undo, e.survey)
	e.survey = e.redo[last]
	e.redo = e.redo[:last]
	e.dirty = true
	return true
}

func (e *Engine) commit(next *entity.Survey) {
	e.undo = append(e.undo, e.survey)
	if len(e.undo) > HistoryLimit {
		e.undo = e.undo[len(e.undo)-HistoryLimit:]
	}
	e.redo = nil
	e.survey = next
	e.dirty = true
}

func (e *Engine) uniqueID(s *entity.Survey) string {
	for {
		id := e.newID()
		if id != "" && s.IndexOf(id) < 0 {
			return id
		}
	}
}

var settingSetters = map[string]func(*entity.Settings, any) error{
	"allowAnonymous":     boolSetting(func(s *entity.Settings, v bool) { s.AllowAnonymous = v }),
	"showProgressBar":    boolSetting(func(s *entity.Settings, v bool) { s.ShowProgressBar = v }),
	"oneQuestionPerPage": boolSetting(func(s *entity.Settings, v bool) { s.OneQuestionPerPage = v }),
	"allowBack":          boolSetting(func(s *entity.Settings, v bool) { s.AllowBack = v }),
	"randomizeQuestions": boolSetting(func(s *entity.Settings, v bool) { s.RandomizeQuestions = v }),
	"requireAll":         boolSetting(func(s *entity.Settings, v bool) { s.RequireAll = v }),
	"thankYouMessage":    stringSetting(func(s *entity.Settings, v string) { s.ThankYouMessage = v }),
	"estimatedTime":      stringSetting(func(s *entity.Settings, v string) { s.EstimatedTime = v }),
}

func boolSetting(set func(*entity.Settings, bool)) func(*entity.Settings, any) error {
	return func(s *entity.Settings, value any) error {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("must be a bool, got %T", value)
		}
		set(s, b)
		return nil
	}
}

func stringSetting(set func(*entity.Settings, string)) func(*entity.Settings, any) error {
	return func(s *entity.Settings, value any) error {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("must be a string, got %T", value)
		}
		set(s, str)
		return nil
	}
}
