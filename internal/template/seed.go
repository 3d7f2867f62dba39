package template

import (
	"fmt"

	"github.com/Koyo-os/survey-service/internal/builder"
	"github.com/Koyo-os/survey-service/internal/entity"
	"github.com/Koyo-os/survey-service/internal/registry"
	"github.com/google/uuid"
)

// seedNamespace keeps built-in template ids stable across seed runs, so
// seeding twice updates the templates instead of duplicating them.
var seedNamespace = uuid.MustParse("6f1c2a1e-5d0b-4c7e-9a51-3b1f0f8e2d47")

type (
	blueprint struct {
		key         string
		title       string
		description string
		category    string
		industry    string
		questions   []questionBlueprint
	}

	questionBlueprint struct {
		typ      string
		title    string
		required bool
		fields   map[string]any
	}
)

// SeedID returns the stable id of the built-in template with the given key.
func SeedID(key string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(key))
}

// Seed builds the built-in public templates. Every question is created and
// edited through the builder, so the templates always match the registry.
func Seed(reg *registry.Registry) ([]*entity.Survey, error) {
	out := make([]*entity.Survey, 0, len(blueprints))

	for _, bp := range blueprints {
		s, err := bp.build(reg)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", bp.key, err)
		}
		out = append(out, s)
	}

	return out, nil
}

func (bp blueprint) build(reg *registry.Registry) (*entity.Survey, error) {
	e := builder.New(entity.NewSurvey(""), reg)
	e.SetTitle(bp.title)
	e.SetDescription(bp.description)

	for _, qb := range bp.questions {
		id, err := e.AddQuestion(qb.typ)
		if err != nil {
			return nil, err
		}

		patch := map[string]any{"title": qb.title, "required": qb.required}
		for k, v := range qb.fields {
			patch[k] = v
		}
		if err := e.UpdateQuestion(id, patch); err != nil {
			return nil, err
		}
	}

	s := e.Survey()
	s.ID = SeedID(bp.key)
	s.IsTemplate = true
	s.IsPublic = true
	s.Category = bp.category
	s.Industry = bp.industry
	s.Status = entity.StatusPublished
	return s, nil
}

type emoji struct {
	label, face string
}

// emojiScale builds the fields of an emoji_scale question whose values start
// at first.
func emojiScale(first int, items ...emoji) map[string]any {
	options := make([]any, len(items))
	for i, item := range items {
		options[i] = map[string]any{
			"value": float64(first + i),
			"label": item.label,
			"emoji": item.face,
		}
	}
	return map[string]any{"scale": len(items), "options": options}
}

type choice struct {
	value, label string
}

func choices(items ...choice) map[string]any {
	options := make([]any, len(items))
	for i, item := range items {
		options[i] = map[string]any{"value": item.value, "label": item.label}
	}
	return map[string]any{"options": options}
}

var (
	satisfactionFaces = []emoji{
		{"Very Unsatisfied", "😠"}, {"Unsatisfied", "😞"}, {"Neutral", "😐"},
		{"Satisfied", "🙂"}, {"Very Satisfied", "🥰"},
	}
	qualityStars = []emoji{
		{"Poor", "⭐"}, {"Fair", "⭐⭐"}, {"Good", "⭐⭐⭐"},
		{"Very Good", "⭐⭐⭐⭐"}, {"Excellent", "⭐⭐⭐⭐⭐"},
	}
)

func npsFaces() []emoji {
	faces := []string{"😠", "😠", "😞", "😞", "😞", "😐", "😐", "😐", "😊", "😊", "🥰"}
	out := make([]emoji, len(faces))
	for i, face := range faces {
		out[i] = emoji{fmt.Sprint(i), face}
	}
	return out
}

func recommendFaces() []emoji {
	out := make([]emoji, 10)
	for i := range out {
		face := "😞"
		switch {
		case i >= 8:
			face = "😊"
		case i >= 6:
			face = "😐"
		}
		out[i] = emoji{fmt.Sprint(i + 1), face}
	}
	return out
}

var blueprints = []blueprint{
	{
		key:         "csat",
		title:       "CSAT (Customer Satisfaction Score) Survey",
		description: "Measure overall customer satisfaction with your service",
		category:    "Customer Satisfaction",
		industry:    "General",
		questions: []questionBlueprint{
			{"emoji_scale", "How satisfied are you with our overall service?", true, emojiScale(1, satisfactionFaces...)},
			{"emoji_scale", "How likely are you to recommend us to others?", true, emojiScale(1, recommendFaces()...)},
			{"text", "What could we do to improve your experience?", false, nil},
		},
	},
	{
		key:         "nps",
		title:       "NPS (Net Promoter Score) Survey",
		description: "Measure customer loyalty and likelihood to recommend",
		category:    "Customer Satisfaction",
		industry:    "General",
		questions: []questionBlueprint{
			{"emoji_scale", "How likely are you to recommend our company to a friend or colleague?", true, emojiScale(0, npsFaces()...)},
			{"text", "What is the primary reason for your score?", false, nil},
		},
	},
	{
		key:         "ces",
		title:       "CES (Customer Effort Score) Survey",
		description: "Measure how easy it is for customers to interact with your service",
		category:    "Customer Satisfaction",
		industry:    "Customer Service",
		questions: []questionBlueprint{
			{"emoji_scale", "How easy was it to resolve your issue with us today?", true, emojiScale(1,
				emoji{"Very Difficult", "😠"}, emoji{"Difficult", "😞"}, emoji{"Moderate", "😐"},
				emoji{"Easy", "🙂"}, emoji{"Very Easy", "🥰"},
			)},
			{"multiple_choice", "What made this experience easy or difficult?", false, choices(
				choice{"staff", "Helpful Staff"},
				choice{"process", "Simple Process"},
				choice{"technology", "Good Technology"},
				choice{"communication", "Clear Communication"},
				choice{"wait_time", "Long Wait Times"},
				choice{"complexity", "Complex Process"},
			)},
		},
	},
	{
		key:         "product_feedback",
		title:       "Product Feedback Survey",
		description: "Collect feedback about your products or services",
		category:    "Market Research",
		industry:    "Technology",
		questions: []questionBlueprint{
			{"emoji_scale", "How would you rate the overall quality of our product?", true, emojiScale(1, qualityStars...)},
			{"multiple_choice", "What features do you use most often?", false, choices(
				choice{"core", "Core Features"},
				choice{"advanced", "Advanced Features"},
				choice{"mobile", "Mobile App"},
				choice{"web", "Web Interface"},
				choice{"api", "API Integration"},
			)},
			{"text", "What features would you like to see added?", false, nil},
		},
	},
	{
		key:         "employee_engagement",
		title:       "Employee Engagement Survey",
		description: "Measure employee engagement and satisfaction",
		category:    "Employee",
		industry:    "Human Resources",
		questions: []questionBlueprint{
			{"emoji_scale", "How satisfied are you with your current role?", true, emojiScale(1, satisfactionFaces...)},
			{"emoji_scale", "How would you rate the work-life balance?", true, emojiScale(1, qualityStars...)},
			{"multiple_choice", "What would you like to see improved?", false, choices(
				choice{"communication", "Communication"},
				choice{"training", "Training & Development"},
				choice{"benefits", "Benefits & Compensation"},
				choice{"culture", "Company Culture"},
				choice{"tools", "Tools & Resources"},
			)},
		},
	},
}
