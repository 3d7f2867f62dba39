package builder

import (
	"fmt"

	"github.com/Koyo-os/survey-service/internal/entity"
)

// OpKind names a builder operation carried over the wire.
type OpKind string

const (
	OpAddQuestion       OpKind = "addQuestion"
	OpUpdateQuestion    OpKind = "updateQuestion"
	OpDeleteQuestion    OpKind = "deleteQuestion"
	OpDuplicateQuestion OpKind = "duplicateQuestion"
	OpReorderQuestions  OpKind = "reorderQuestions"
	OpApplySettings     OpKind = "applySettings"
	OpSetTitle          OpKind = "setTitle"
	OpSetDescription    OpKind = "setDescription"
	OpUndo              OpKind = "undo"
	OpRedo              OpKind = "redo"
)

type (
	// Operation is the serialized form of one builder call.
	Operation struct {
		Op         OpKind         `json:"op"`
		Type       string         `json:"type,omitempty"`
		QuestionID string         `json:"questionId,omitempty"`
		Fields     map[string]any `json:"fields,omitempty"`
		Settings   map[string]any `json:"settings,omitempty"`
		From       *int           `json:"from,omitempty"`
		To         *int           `json:"to,omitempty"`
		Value      string         `json:"value,omitempty"`
	}

	// Result describes the outcome of one applied operation. QuestionID is
	// set for operations that create a question.
	Result struct {
		Op         OpKind `json:"op"`
		QuestionID string `json:"questionId,omitempty"`
		Changed    bool   `json:"changed"`
	}
)

// Apply runs ops in order. Either every operation succeeds or the engine is
// left exactly as it was, history included. The returned error names the
// index of the failing operation and keeps its kind for errors.Is.
func (e *Engine) Apply(ops []Operation) ([]Result, error) {
	saved := e.checkpoint()

	results := make([]Result, 0, len(ops))
	for i, op := range ops {
		res, err := e.apply(op)
		if err != nil {
			e.restore(saved)
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Op, err)
		}
		results = append(results, res)
	}

	return results, nil
}

func (e *Engine) apply(op Operation) (Result, error) {
	res := Result{Op: op.Op, Changed: true}

	switch op.Op {
	case OpAddQuestion:
		id, err := e.AddQuestion(op.Type)
		if err != nil {
			return res, err
		}
		res.QuestionID = id
	case OpUpdateQuestion:
		before := e.survey
		if err := e.UpdateQuestion(op.QuestionID, op.Fields); err != nil {
			return res, err
		}
		res.Changed = e.survey != before
	case OpDeleteQuestion:
		if err := e.DeleteQuestion(op.QuestionID); err != nil {
			return res, err
		}
	case OpDuplicateQuestion:
		id, err := e.DuplicateQuestion(op.QuestionID)
		if err != nil {
			return res, err
		}
		res.QuestionID = id
	case OpReorderQuestions:
		if op.From == nil || op.To == nil {
			return res, entity.NewValidationError("from", "reorder needs both from and to")
		}
		if err := e.ReorderQuestions(*op.From, *op.To); err != nil {
			return res, err
		}
		res.Changed = *op.From != *op.To
	case OpApplySettings:
		if err := e.ApplySettings(op.Settings); err != nil {
			return res, err
		}
		res.Changed = len(op.Settings) > 0
	case OpSetTitle:
		e.SetTitle(op.Value)
	case OpSetDescription:
		e.SetDescription(op.Value)
	case OpUndo:
		res.Changed = e.Undo()
	case OpRedo:
		res.Changed = e.Redo()
	default:
		return res, entity.NewValidationError("op", "unknown operation %q", op.Op)
	}

	return res, nil
}

type checkpoint struct {
	survey *entity.Survey
	dirty  bool
	undo   []*entity.Survey
	redo   []*entity.Survey
}

// Snapshots in the history are never mutated in place except by MarkSaved,
// so copying the slices is enough to roll back.
func (e *Engine) checkpoint() checkpoint {
	return checkpoint{
		survey: e.survey,
		dirty:  e.dirty,
		undo:   append([]*entity.Survey(nil), e.undo...),
		redo:   append([]*entity.Survey(nil), e.redo...),
	}
}

func (e *Engine) restore(c checkpoint) {
	e.survey = c.survey
	e.dirty = c.dirty
	e.undo = c.undo
	e.redo = c.redo
}
