package builder

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(entity.NewSurvey("owner-1"), registry.Default())
}

// seqIDs returns an id generator producing q1, q2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("q%d", n)
	}
}

func questionIDs(s *entity.Survey) []string {
	ids := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return ids
}

func TestEngine_AddQuestion(t *testing.T) {
	e := newTestEngine(t)

	id, err := e.AddQuestion("rating")
	require.NoError(t, err)

	q, err := e.Question(id)
	require.NoError(t, err)

	assert.Equal(t, "rating", q.Type)
	assert.Equal(t, "New Star Rating Question", q.Title)
	assert.False(t, q.Required)
	assert.True(t, e.Dirty())

	for key, value := range registry.Default().GetDefaultQuestionSettings("rating") {
		assert.Equal(t, value, q.Fields[key], "default %q", key)
	}

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestEngine_AddQuestionUnknownType(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.AddQuestion("hologram")

	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrValidation))
	assert.Zero(t, e.Len())
	assert.False(t, e.Dirty())
	assert.False(t, e.CanUndo())
}

func TestEngine_AddThenDuplicate(t *testing.T) {
	e := newTestEngine(t)

	first, err := e.AddQuestion("text")
	require.NoError(t, err)
	require.NoError(t, e.UpdateQuestion(first, map[string]any{"placeholder": "Your name"}))

	dup, err := e.DuplicateQuestion(first)
	require.NoError(t, err)

	s := e.Survey()
	require.Len(t, s.Questions, 2)
	assert.NotEqual(t, first, dup)
	assert.Equal(t, "New Short Text Question (Copy)", s.Questions[1].Title)
	assert.Equal(t, s.Questions[0].Fields, s.Questions[1].Fields)

	require.NoError(t, e.UpdateQuestion(dup, map[string]any{"placeholder": "Changed"}))

	original, err := e.Question(first)
	require.NoError(t, err)
	assert.Equal(t, "Your name", original.Fields["placeholder"], "duplicate must not share fields")
}

func TestEngine_IDsStayUnique(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(func() func() string {
		ids := []string{"a", "a", "", "b", "a", "c"}
		return func() string {
			id := ids[0]
			ids = ids[1:]
			return id
		}
	}()))

	for i := 0; i < 3; i++ {
		_, err := e.AddQuestion("text")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"a", "b", "c"}, questionIDs(e.Survey()))
	assert.NoError(t, e.Survey().Validate())
}

func TestEngine_UpdateQuestion(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
	id, err := e.AddQuestion("radio")
	require.NoError(t, err)

	t.Run("common and typed keys", func(t *testing.T) {
		err := e.UpdateQuestion(id, map[string]any{
			"title":    "Pick one",
			"required": true,
			"options":  []string{"Red", "Green", "Blue"},
		})
		require.NoError(t, err)

		q, _ := e.Question(id)
		assert.Equal(t, "Pick one", q.Title)
		assert.True(t, q.Required)
		assert.Equal(t, []any{"Red", "Green", "Blue"}, q.Fields["options"])
		assert.Contains(t, q.Fields, "allowOther", "untouched fields survive the merge")
	})

	t.Run("empty title is allowed while editing", func(t *testing.T) {
		require.NoError(t, e.UpdateQuestion(id, map[string]any{"title": ""}))
		q, _ := e.Question(id)
		assert.Empty(t, q.Title)
	})

	t.Run("same id and type are ignored", func(t *testing.T) {
		assert.NoError(t, e.UpdateQuestion(id, map[string]any{"id": id, "type": "radio"}))
	})

	tests := []struct {
		name  string
		patch map[string]any
	}{
		{"change type", map[string]any{"type": "checkbox"}},
		{"change id", map[string]any{"id": "other"}},
		{"title of wrong kind", map[string]any{"title": 3}},
		{"required of wrong kind", map[string]any{"required": "yes"}},
		{"undeclared field", map[string]any{"colour": "red"}},
		{"too few options", map[string]any{"options": []any{"Only"}}},
		{"valid key next to invalid one", map[string]any{"title": "Changed", "options": []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.Survey()

			err := e.UpdateQuestion(id, tt.patch)

			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrValidation))
			assert.Equal(t, before, e.Survey(), "failed update must leave the document untouched")
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		err := e.UpdateQuestion("missing", map[string]any{"title": "x"})
		assert.True(t, errors.Is(err, entity.ErrNotFound))
	})
}

func TestEngine_UpdateQuestionOfUnknownType(t *testing.T) {
	doc := entity.NewSurvey("owner-1")
	doc.Questions = []entity.Question{{ID: "legacy", Type: "hologram", Title: "Old", Fields: entity.Fields{"beam": "on"}}}
	e := New(doc, registry.Default())

	require.NoError(t, e.UpdateQuestion("legacy", map[string]any{"title": "Renamed"}))

	err := e.UpdateQuestion("legacy", map[string]any{"beam": "off"})
	assert.True(t, errors.Is(err, entity.ErrValidation))

	q, _ := e.Question("legacy")
	assert.Equal(t, "Renamed", q.Title)
	assert.Equal(t, "on", q.Fields["beam"])
}

func TestEngine_UpdateQuestionRejectsNonFiniteNumbers(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.AddQuestion("number")
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch map[string]any
	}{
		{"infinite step", map[string]any{"step": math.Inf(1)}},
		{"negative infinite min", map[string]any{"min": math.Inf(-1)}},
		{"NaN max", map[string]any{"max": math.NaN()}},
		{"NaN inside validation", map[string]any{"validation": map[string]any{"min": math.NaN(), "max": nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := e.Question(id)
			require.NoError(t, err)
			undo := len(e.undo)

			err = e.UpdateQuestion(id, tt.patch)

			assert.True(t, errors.Is(err, entity.ErrValidation))
			after, _ := e.Question(id)
			assert.Equal(t, before, after)
			assert.Len(t, e.undo, undo)
			assert.NoError(t, e.Survey().Validate())
		})
	}
}

func TestEngine_UpdateQuestionWithoutChanges(t *testing.T) {
	doc := entity.NewSurvey("owner-1")
	doc.Questions = []entity.Question{{ID: "q1", Type: "text", Title: "Name", Fields: entity.Fields{}}}
	e := New(doc, registry.Default())
	q, err := e.Question("q1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		patch map[string]any
	}{
		{"same id and type", map[string]any{"id": "q1", "type": "text"}},
		{"same title", map[string]any{"title": "Name"}},
		{"same required flag", map[string]any{"required": q.Required}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, e.UpdateQuestion("q1", tt.patch))

			assert.False(t, e.CanUndo())
			assert.False(t, e.Dirty())
		})
	}

	t.Run("a real change is still recorded", func(t *testing.T) {
		require.NoError(t, e.UpdateQuestion("q1", map[string]any{"title": "Full name"}))

		assert.True(t, e.CanUndo())
		assert.True(t, e.Dirty())
	})
}

func TestEngine_DeleteQuestion(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
	for i := 0; i < 3; i++ {
		_, err := e.AddQuestion("text")
		require.NoError(t, err)
	}

	t.Run("unknown id leaves the list unchanged", func(t *testing.T) {
		err := e.DeleteQuestion("missing")

		var notFound *entity.NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "missing", notFound.ID)
		assert.Equal(t, []string{"q1", "q2", "q3"}, questionIDs(e.Survey()))
	})

	t.Run("keeps relative order", func(t *testing.T) {
		require.NoError(t, e.DeleteQuestion("q2"))
		assert.Equal(t, []string{"q1", "q3"}, questionIDs(e.Survey()))
	})
}

func TestEngine_ReorderQuestions(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
		wantErr  bool
	}{
		{"first to last", 0, 2, []string{"q2", "q3", "q1"}, false},
		{"last to first", 2, 0, []string{"q3", "q1", "q2"}, false},
		{"adjacent", 1, 2, []string{"q1", "q3", "q2"}, false},
		{"same position", 1, 1, []string{"q1", "q2", "q3"}, false},
		{"from out of range", 3, 0, []string{"q1", "q2", "q3"}, true},
		{"negative to", 0, -1, []string{"q1", "q2", "q3"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
			for i := 0; i < 3; i++ {
				_, err := e.AddQuestion("text")
				require.NoError(t, err)
			}

			err := e.ReorderQuestions(tt.from, tt.to)

			if tt.wantErr {
				assert.True(t, errors.Is(err, entity.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, questionIDs(e.Survey()))
		})
	}
}

func TestEngine_ReorderRoundTrip(t *testing.T) {
	const n = 6

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			t.Run(fmt.Sprintf("%d to %d and back", i, j), func(t *testing.T) {
				e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))
				for k := 0; k < n; k++ {
					_, err := e.AddQuestion("text")
					require.NoError(t, err)
				}
				original := questionIDs(e.Survey())

				require.NoError(t, e.ReorderQuestions(i, j))
				assert.Equal(t, original[i], e.Survey().Questions[j].ID)
				require.NoError(t, e.ReorderQuestions(j, i))

				assert.Equal(t, original, questionIDs(e.Survey()))
			})
		}
	}
}

func TestEngine_ApplySettings(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.ApplySettings(map[string]any{
		"oneQuestionPerPage": true,
		"thankYouMessage":    "Cheers",
	}))

	s := e.Survey()
	assert.True(t, s.Settings.OneQuestionPerPage)
	assert.Equal(t, "Cheers", s.Settings.ThankYouMessage)
	assert.True(t, s.Settings.AllowAnonymous, "unmentioned settings are kept")

	err := e.ApplySettings(map[string]any{"allowBack": false, "darkMode": true})
	assert.True(t, errors.Is(err, entity.ErrValidation))
	assert.True(t, e.Survey().Settings.AllowBack, "rejected patch must not apply partially")

	err = e.ApplySettings(map[string]any{"allowBack": "no"})
	assert.True(t, errors.Is(err, entity.ErrValidation))
}

func TestEngine_Titles(t *testing.T) {
	e := newTestEngine(t)

	e.SetTitle("Customer pulse")
	e.SetDescription("Quarterly")
	assert.Equal(t, "Customer pulse", e.Survey().Title)
	assert.Equal(t, "Quarterly", e.Survey().Description)

	e.SetTitle("   ")
	assert.Equal(t, entity.UntitledSurvey, e.Survey().Title)
}

func TestEngine_UndoRedo(t *testing.T) {
	e := New(entity.NewSurvey("owner-1"), registry.Default(), WithIDGenerator(seqIDs()))

	assert.False(t, e.Undo())
	assert.False(t, e.Redo())

	_, err := e.AddQuestion("text")
	require.NoError(t, err)
	_, err = e.AddQuestion("email")
	require.NoError(t, err)

	require.True(t, e.Undo())
	assert.Equal(t, []string{"q1"}, questionIDs(e.Survey()))

	require.True(t, e.Redo())
	assert.Equal(t, []string{"q1", "q2"}, questionIDs(e.Survey()))

	require.True(t, e.Undo())
	_, err = e.AddQuestion("number")
	require.NoError(t, err)
	assert.False(t, e.CanRedo(), "a new operation clears the redo stack")

	failed := e.DeleteQuestion("missing")
	require.Error(t, failed)
	require.True(t, e.Undo())
	assert.Equal(t, []string{"q1"}, questionIDs(e.Survey()), "failed operations are not recorded")
}

func TestEngine_HistoryIsBounded(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < HistoryLimit+10; i++ {
		e.SetTitle(fmt.Sprintf("title %d", i))
	}

	undone := 0
	for e.Undo() {
		undone++
	}

	assert.Equal(t, HistoryLimit, undone)
	assert.Equal(t, "title 9", e.Survey().Title)
}

func TestEngine_SurveyIsASnapshot(t *testing.T) {
	e := newTestEngine(t)
	id, err := e.AddQuestion("radio")
	require.NoError(t, err)

	snapshot := e.Survey()
	snapshot.Questions[0].Fields["options"].([]any)[0] = "Hacked"
	snapshot.Title = "Hacked"

	q, _ := e.Question(id)
	assert.Equal(t, "Option 1", q.Fields["options"].([]any)[0])
	assert.Equal(t, entity.UntitledSurvey, e.Survey().Title)
}

func TestEngine_NewDoesNotAliasInput(t *testing.T) {
	doc := entity.NewSurvey("owner-1")
	doc.Questions = []entity.Question{{ID: "x", Type: "text", Fields: entity.Fields{"placeholder": "a"}}}

	e := New(doc, registry.Default())
	doc.Questions[0].Fields["placeholder"] = "b"

	q, _ := e.Question("x")
	assert.Equal(t, "a", q.Fields["placeholder"])
	assert.False(t, e.Dirty())
}

func TestEngine_MarkSaved(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.AddQuestion("text")
	require.NoError(t, err)

	id := uuid.New()
	e.MarkSaved(id)

	assert.False(t, e.Dirty())
	assert.Equal(t, id, e.Survey().ID)

	require.True(t, e.Undo())
	assert.True(t, e.Dirty())
	assert.Equal(t, id, e.Survey().ID, "history adopts the id of the first save")

	e.MarkSaved(uuid.New())
	assert.Equal(t, id, e.Survey().ID, "a saved survey keeps its id")
}
