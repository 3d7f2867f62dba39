package builder

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestEngine_Apply(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))

	results, err := e.Apply([]Operation{
		{Op: OpSetTitle, Value: "Onboarding"},
		{Op: OpAddQuestion, Type: "text"},
		{Op: OpAddQuestion, Type: "nps"},
		{Op: OpUpdateQuestion, QuestionID: "q2", Fields: map[string]any{"required": true}},
		{Op: OpReorderQuestions, From: intp(1), To: intp(0)},
		{Op: OpApplySettings, Settings: map[string]any{"requireAll": true}},
	})

	require.NoError(t, err)
	require.Len(t, results, 6)
	assert.Equal(t, "q1", results[1].QuestionID)
	assert.Equal(t, "q2", results[2].QuestionID)

	s := e.Survey()
	assert.Equal(t, "Onboarding", s.Title)
	assert.Equal(t, []string{"q2", "q1"}, questionIDs(s))
	assert.True(t, s.Questions[0].Required)
	assert.True(t, s.Settings.RequireAll)
}

func TestEngine_ApplyIsAllOrNothing(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
	_, err := e.AddQuestion("text")
	require.NoError(t, err)
	e.MarkSaved(e.Survey().ID)

	before := e.Survey()

	_, err = e.Apply([]Operation{
		{Op: OpAddQuestion, Type: "email"},
		{Op: OpSetTitle, Value: "Half done"},
		{Op: OpDeleteQuestion, QuestionID: "missing"},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
	assert.Contains(t, err.Error(), "operation 2")
	assert.Equal(t, before, e.Survey())
	assert.False(t, e.Dirty())

	require.True(t, e.Undo())
	assert.Empty(t, e.Survey().Questions, "history is rolled back with the document")
}

func TestEngine_ApplyRejectsMalformedOperations(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
	}{
		{"unknown op", Operation{Op: "explode"}},
		{"reorder without indexes", Operation{Op: OpReorderQuestions, From: intp(0)}},
		{"unknown type", Operation{Op: OpAddQuestion, Type: "hologram"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)

			_, err := e.Apply([]Operation{tt.op})

			assert.True(t, errors.Is(err, entity.ErrValidation))
		})
	}
}

func TestEngine_ApplyUndoRedo(t *testing.T) {
	e := newTestEngine(t)

	results, err := e.Apply([]Operation{
		{Op: OpUndo},
		{Op: OpSetTitle, Value: "One"},
		{Op: OpUndo},
		{Op: OpRedo},
	})

	require.NoError(t, err)
	assert.False(t, results[0].Changed)
	assert.True(t, results[2].Changed)
	assert.True(t, results[3].Changed)
	assert.Equal(t, "One", e.Survey().Title)
}

func TestEngine_ApplyUnchangedUpdate(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
	_, err := e.AddQuestion("text")
	require.NoError(t, err)
	q, err := e.Question("q1")
	require.NoError(t, err)

	results, err := e.Apply([]Operation{
		{Op: OpUpdateQuestion, QuestionID: "q1", Fields: map[string]any{"title": q.Title}},
		{Op: OpUpdateQuestion, QuestionID: "q1", Fields: map[string]any{"title": "Changed"}},
	})

	require.NoError(t, err)
	assert.False(t, results[0].Changed)
	assert.True(t, results[1].Changed)
}

func TestOperation_Decode(t *testing.T) {
	raw := `[
		{"op":"addQuestion","type":"rating"},
		{"op":"reorderQuestions","from":0,"to":0},
		{"op":"updateQuestion","questionId":"q1","fields":{"scale":7}}
	]`

	var ops []Operation
	require.NoError(t, json.Unmarshal([]byte(raw), &ops))

	require.Len(t, ops, 3)
	assert.Equal(t, OpAddQuestion, ops[0].Op)
	require.NotNil(t, ops[1].From)
	assert.Equal(t, 0, *ops[1].From)
	assert.Equal(t, 7.0, ops[2].Fields["scale"])
}

func TestSelection(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
	_, err := e.AddQuestion("text")
	require.NoError(t, err)

	var sel Selection
	_, ok := sel.Active()
	assert.False(t, ok)

	assert.True(t, errors.Is(sel.Select(e, "missing"), entity.ErrNotFound))

	require.NoError(t, sel.Select(e, "q1"))
	active, ok := sel.Active()
	assert.True(t, ok)
	assert.Equal(t, "q1", active)

	assert.False(t, sel.Reconcile(e))

	require.NoError(t, e.DeleteQuestion("q1"))
	assert.True(t, sel.Reconcile(e))
	_, ok = sel.Active()
	assert.False(t, ok)

	require.True(t, e.Undo())
	require.NoError(t, sel.Select(e, "q1"))
	sel.Clear()
	_, ok = sel.Active()
	assert.False(t, ok)
}
