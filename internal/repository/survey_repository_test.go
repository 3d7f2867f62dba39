package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ignoreTimestamps = cmpopts.IgnoreFields(entity.Survey{}, "CreatedAt", "UpdatedAt")

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	repo := Init(db, &logger.Logger{Logger: zap.NewNop()})
	require.NoError(t, repo.Migrate(context.Background()))

	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleSurvey() *entity.Survey {
	s := entity.NewSurvey("owner-1")
	s.Title = "Checkout experience"
	s.Description = "After purchase"
	s.Settings.OneQuestionPerPage = true
	s.Questions = []entity.Question{
		{ID: "q-b", Type: "rating", Title: "Stars", Required: true, Fields: entity.Fields{
			"scale":  5.0,
			"labels": map[string]any{"1": "Poor", "5": "Excellent"},
		}},
		{ID: "q-a", Type: "radio", Title: "Pick", Fields: entity.Fields{
			"options":    []any{"Yes", "No"},
			"allowOther": false,
		}},
		{ID: "q-c", Type: "number", Title: "Age", Description: "Years", Fields: entity.Fields{
			"min": nil,
			"max": 120.0,
		}},
	}
	return s
}

func TestRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	doc := sampleSurvey()

	id, err := repo.Save(ctx, doc)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, doc.IsNew(), "the input document is not modified")

	loaded, err := repo.Load(ctx, id)
	require.NoError(t, err)

	want := doc.Clone()
	want.ID = id
	if diff := cmp.Diff(want, loaded, ignoreTimestamps); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestRepository_SaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id, err := repo.Save(ctx, sampleSurvey())
	require.NoError(t, err)

	first, err := repo.Load(ctx, id)
	require.NoError(t, err)

	first.Title = "Renamed"
	first.Questions = []entity.Question{first.Questions[2], first.Questions[0]}

	repo.now = func() time.Time { return time.Now().Add(time.Hour) }
	again, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	second, err := repo.Load(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", second.Title)
	assert.Equal(t, []string{"q-c", "q-b"}, []string{second.Questions[0].ID, second.Questions[1].ID})
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Second)
}

func TestRepository_SaveUnknownIDCreates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	doc := sampleSurvey()
	doc.ID = uuid.New()

	id, err := repo.Save(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, id)

	_, err = repo.Load(ctx, id)
	assert.NoError(t, err)
}

func TestRepository_SaveRejectsInvalidDocument(t *testing.T) {
	repo := newTestRepository(t)

	doc := sampleSurvey()
	doc.Questions[1].ID = doc.Questions[0].ID

	_, err := repo.Save(context.Background(), doc)

	assert.True(t, errors.Is(err, entity.ErrValidation))
	assert.False(t, entity.IsRetryable(err))
}

func TestRepository_SaveRejectsNonFiniteField(t *testing.T) {
	repo := newTestRepository(t)

	for _, value := range []any{math.NaN(), math.Inf(1), []any{1.0, math.Inf(-1)}} {
		doc := sampleSurvey()
		doc.Questions[2].Fields["step"] = value

		_, err := repo.Save(context.Background(), doc)

		assert.True(t, errors.Is(err, entity.ErrValidation), "value %v", value)
		assert.False(t, entity.IsRetryable(err), "value %v", value)
	}
}

func TestRepository_LoadMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Load(context.Background(), uuid.New())

	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestRepository_ClosedDatabaseIsRetryable(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Close())

	_, err := repo.Load(context.Background(), uuid.New())

	assert.True(t, entity.IsRetryable(err))
	assert.False(t, repo.IsHealthy())
}

func TestRepository_ListTemplates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	add := func(title, owner, category, industry string, template, public bool) {
		s := entity.NewSurvey(owner)
		s.Title = title
		s.Description = title + " description"
		s.Category = category
		s.Industry = industry
		s.IsTemplate = template
		s.IsPublic = public
		_, err := repo.Save(ctx, s)
		require.NoError(t, err)
	}

	add("NPS", "system", "Customer Satisfaction", "General", true, true)
	add("CSAT", "system", "Customer Satisfaction", "Retail", true, true)
	add("Exit interview", "system", "Employee", "Human Resources", true, true)
	add("Team private", "owner-1", "Employee", "Human Resources", true, false)
	add("Other private", "owner-2", "Employee", "Human Resources", true, false)
	add("Just a survey", "owner-1", "Employee", "", false, false)

	titles := func(list []*entity.Survey) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.Title
		}
		return out
	}

	tests := []struct {
		name   string
		filter entity.TemplateFilter
		want   []string
	}{
		{"public only", entity.TemplateFilter{}, []string{"CSAT", "Exit interview", "NPS"}},
		{"owner sees own private", entity.TemplateFilter{OwnerID: "owner-1"}, []string{"CSAT", "Exit interview", "NPS", "Team private"}},
		{"category ignores case", entity.TemplateFilter{Category: "customer satisfaction"}, []string{"CSAT", "NPS"}},
		{"industry", entity.TemplateFilter{Industry: "Retail"}, []string{"CSAT"}},
		{"search in title", entity.TemplateFilter{Search: "exit"}, []string{"Exit interview"}},
		{"search in description", entity.TemplateFilter{Search: "PRIVATE DESC", OwnerID: "owner-2"}, []string{"Other private"}},
		{"combined", entity.TemplateFilter{Category: "Employee", OwnerID: "owner-1"}, []string{"Exit interview", "Team private"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTemplates(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}
}

func TestMongoDocumentRoundTrip(t *testing.T) {
	doc := sampleSurvey()
	doc.ID = uuid.New()

	stored, err := toDoc(doc)
	require.NoError(t, err)
	assert.Equal(t, doc.ID.String(), stored.ID)
	assert.JSONEq(t, `{"allowOther":false,"options":["Yes","No"]}`, stored.Questions[1].Fields)

	back, err := stored.toEntity()
	require.NoError(t, err)

	if diff := cmp.Diff(doc, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMongoTemplateQuery(t *testing.T) {
	q := templateQuery(entity.TemplateFilter{})
	assert.Equal(t, true, q["is_template"])
	assert.Equal(t, true, q["is_public"])
	assert.NotContains(t, q, "$and")

	q = templateQuery(entity.TemplateFilter{OwnerID: "owner-1", Search: "a.b", Category: "HR"})
	assert.NotContains(t, q, "is_public")
	assert.Contains(t, q, "category")
	assert.Len(t, q["$and"], 2)
}
