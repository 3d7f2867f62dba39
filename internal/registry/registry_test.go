package registry

import (
	"errors"
	"math"
	"testing"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetQuestionType(t *testing.T) {
	reg := Default()

	t.Run("known type", func(t *testing.T) {
		qt, err := reg.GetQuestionType("rating")

		require.NoError(t, err)
		assert.Equal(t, "Star Rating", qt.DisplayName)
		assert.Equal(t, CategoryRating, qt.Category)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := reg.GetQuestionType("hologram")

		require.Error(t, err)
		assert.True(t, errors.Is(err, entity.ErrNotFound))
	})
}

func TestRegistry_GetDefaultQuestionSettings(t *testing.T) {
	reg := Default()

	t.Run("rating defaults", func(t *testing.T) {
		fields := reg.GetDefaultQuestionSettings("rating")

		assert.Equal(t, 5.0, fields["scale"])
		assert.Equal(t, "Excellent", fields["labels"].(map[string]any)["5"])
		assert.Contains(t, fields, "validation")
	})

	t.Run("unknown type yields empty bag", func(t *testing.T) {
		fields := reg.GetDefaultQuestionSettings("hologram")

		assert.NotNil(t, fields)
		assert.Empty(t, fields)
	})

	t.Run("each call returns an independent copy", func(t *testing.T) {
		first := reg.GetDefaultQuestionSettings("radio")
		first["options"].([]any)[0] = "Changed"

		second := reg.GetDefaultQuestionSettings("radio")
		assert.Equal(t, "Option 1", second["options"].([]any)[0])
	})

	t.Run("nullable fields are present with null", func(t *testing.T) {
		fields := reg.GetDefaultQuestionSettings("number")

		value, ok := fields["min"]
		assert.True(t, ok)
		assert.Nil(t, value)
	})
}

func TestRegistry_CatalogIsConsistent(t *testing.T) {
	reg := Default()

	for _, qt := range reg.ListTypes() {
		t.Run(qt.Key, func(t *testing.T) {
			assert.NotEmpty(t, qt.DisplayName)
			assert.NotEmpty(t, qt.Category)

			defaults := qt.Defaults()
			for _, key := range entity.ReservedQuestionKeys {
				assert.NotContains(t, defaults, key)
			}
			assert.NoError(t, reg.ValidateFields(qt.Key, defaults), "defaults must satisfy their own schema")
		})
	}
}

func TestRegistry_DisplayName(t *testing.T) {
	reg := Default()

	assert.Equal(t, "Short Text", reg.DisplayName("text"))
	assert.Equal(t, "hologram", reg.DisplayName("hologram"))
}

func TestRegistry_ByCategoryAndPlan(t *testing.T) {
	reg := Default()

	choice := reg.ByCategory("choice")
	require.NotEmpty(t, choice)
	for _, qt := range choice {
		assert.Equal(t, CategoryChoice, qt.Category)
	}

	free := reg.AvailableFor(PlanFree)
	enterprise := reg.AvailableFor(PlanEnterprise)
	assert.Less(t, len(free), len(enterprise))
	assert.Len(t, enterprise, len(reg.ListTypes()))

	for _, qt := range free {
		assert.Equal(t, PlanFree, qt.Plan)
	}

	assert.Len(t, reg.AvailableFor("unknown"), len(free))
	assert.Contains(t, reg.Categories(), CategoryAdvanced)
}

func TestRegistry_ValidatePatch(t *testing.T) {
	reg := Default()

	tests := []struct {
		name    string
		typ     string
		patch   entity.Fields
		wantErr bool
	}{
		{"valid scale", "rating", entity.Fields{"scale": 7.0}, false},
		{"scale out of range", "rating", entity.Fields{"scale": 11.0}, true},
		{"fractional scale", "rating", entity.Fields{"scale": 4.5}, true},
		{"unknown key", "rating", entity.Fields{"colour": "red"}, true},
		{"wrong kind", "text", entity.Fields{"placeholder": 12.0}, true},
		{"null on non nullable", "text", entity.Fields{"placeholder": nil}, true},
		{"null on nullable", "number", entity.Fields{"min": nil}, false},
		{"too few options", "radio", entity.Fields{"options": []any{"Only"}}, true},
		{"object options", "multiple_choice", entity.Fields{"options": []any{
			map[string]any{"value": "a", "label": "A"},
			map[string]any{"value": "b", "label": "B"},
		}}, false},
		{"min above max", "scale", entity.Fields{"min": 10.0, "max": 1.0}, true},
		{"matrix needs two columns", "matrix", entity.Fields{"columns": []any{"Only"}}, true},
		{"matrix columns must be strings", "matrix", entity.Fields{"columns": []any{"a", 1.0}}, true},
		{"file too large", "file", entity.Fields{"maxFileSize": 150.0}, true},
		{"emoji count follows scale", "emoji_quality", entity.Fields{"scale": 5.0}, true},
		{"unknown type", "hologram", entity.Fields{}, true},
		{"infinite step", "number", entity.Fields{"step": math.Inf(1)}, true},
		{"NaN max", "slider", entity.Fields{"max": math.NaN()}, true},
		{"negative infinite min", "number", entity.Fields{"min": math.Inf(-1)}, true},
		{"NaN inside an option", "radio", entity.Fields{"options": []any{
			"a", map[string]any{"value": math.NaN(), "label": "B"},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := reg.GetDefaultQuestionSettings(tt.typ)
			err := reg.ValidatePatch(tt.typ, current, tt.patch)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, entity.ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRegistry_ValidateFieldsUsesDefaultsForMissingKeys(t *testing.T) {
	reg := Default()

	for _, typ := range []string{"radio", "checkbox", "dropdown", "matrix", "ranking", "slider"} {
		t.Run(typ, func(t *testing.T) {
			assert.NoError(t, reg.ValidateFields(typ, entity.Fields{}))
		})
	}

	t.Run("explicit values still checked", func(t *testing.T) {
		err := reg.ValidateFields("radio", entity.Fields{"options": []any{"Only"}})
		assert.True(t, errors.Is(err, entity.ErrValidation))
	})

	t.Run("patch on a bag missing rows", func(t *testing.T) {
		current := entity.Fields{"columns": []any{"Bad", "Good"}}
		assert.NoError(t, reg.ValidatePatch("matrix", current, entity.Fields{"inputType": "checkbox"}))
	})
}

func TestRegistry_Audit(t *testing.T) {
	reg := Default()

	survey := entity.NewSurvey("owner")
	survey.Questions = []entity.Question{
		{ID: "a", Type: "text", Fields: reg.GetDefaultQuestionSettings("text")},
		{ID: "b", Type: "hologram", Fields: entity.Fields{}},
		{ID: "c", Type: "rating", Fields: entity.Fields{"scale": "five"}},
	}

	issues := reg.Audit(survey)

	require.Len(t, issues, 2)
	assert.Equal(t, "b", issues[0].QuestionID)
	assert.Equal(t, "unknown question type", issues[0].Problem)
	assert.Equal(t, "c", issues[1].QuestionID)
}

func TestNew_PanicsOnReservedField(t *testing.T) {
	assert.Panics(t, func() {
		New(QuestionType{Key: "bad", Fields: map[string]FieldSpec{"title": str("x")}})
	})
	assert.Panics(t, func() {
		New(QuestionType{Key: "dup"}, QuestionType{Key: "dup"})
	})
}
