package registry

import (
	"errors"
	"fmt"

	"github.com/Koyo-os/survey-service/internal/entity"
)

// Categories of the compiled-in catalog.
const (
	CategoryText        = "Text Input"
	CategoryChoice      = "Choice"
	CategoryRating      = "Rating & Scale"
	CategoryEmoji       = "Emoji & Visual"
	CategoryInteractive = "Interactive"
	CategoryAdvanced    = "Advanced"
)

func str(v string) FieldSpec { return FieldSpec{Kind: KindString, Default: v} }

func flag(v bool) FieldSpec { return FieldSpec{Kind: KindBool, Default: v} }

func integer(v float64) FieldSpec { return FieldSpec{Kind: KindInteger, Default: v} }

func optInteger() FieldSpec { return FieldSpec{Kind: KindInteger, Nullable: true} }

func optString() FieldSpec { return FieldSpec{Kind: KindString, Nullable: true} }

func object(v map[string]any) FieldSpec { return FieldSpec{Kind: KindObject, Default: v} }

func stringList(items ...string) FieldSpec {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item
	}
	return FieldSpec{Kind: KindStringList, Default: list}
}

func list(items ...any) FieldSpec {
	return FieldSpec{Kind: KindList, Default: items}
}

func labels(items ...string) FieldSpec {
	m := make(map[string]any, len(items))
	for i, item := range items {
		m[fmt.Sprint(i+1)] = item
	}
	return object(m)
}

func validation(extra map[string]any) FieldSpec {
	m := map[string]any{"required": false}
	for k, v := range extra {
		m[k] = v
	}
	return object(m)
}

func defaultOptions() FieldSpec {
	return list("Option 1", "Option 2", "Option 3")
}

func catalog() []QuestionType {
	return []QuestionType{
		// text input
		{
			Key: "text", DisplayName: "Short Text", Category: CategoryText, Icon: "📝", Plan: PlanFree,
			Description: "Single line text input",
			Fields: map[string]FieldSpec{
				"placeholder": str("Enter your answer..."),
				"maxLength":   integer(255),
				"validation":  validation(map[string]any{"minLength": 0.0, "maxLength": 255.0}),
			},
			check: checkLength,
		},
		{
			Key: "textarea", DisplayName: "Long Text", Category: CategoryText, Icon: "📄", Plan: PlanFree,
			Description: "Multi-line text input",
			Fields: map[string]FieldSpec{
				"placeholder": str("Enter your detailed answer..."),
				"rows":        integer(4),
				"maxLength":   integer(2000),
				"validation":  validation(map[string]any{"minLength": 0.0, "maxLength": 2000.0}),
			},
			check: checkLength,
		},
		{
			Key: "email", DisplayName: "Email Address", Category: CategoryText, Icon: "📧", Plan: PlanFree,
			Description: "Email input with validation",
			Fields: map[string]FieldSpec{
				"placeholder": str("example@email.com"),
				"validation":  validation(map[string]any{"format": "email"}),
			},
		},
		{
			Key: "number", DisplayName: "Number", Category: CategoryText, Icon: "🔢", Plan: PlanFree,
			Description: "Numeric input",
			Fields: map[string]FieldSpec{
				"placeholder": str("Enter a number..."),
				"min":         {Kind: KindNumber, Nullable: true},
				"max":         {Kind: KindNumber, Nullable: true},
				"step":        {Kind: KindNumber, Default: 1.0},
				"validation":  validation(map[string]any{"min": nil, "max": nil}),
			},
			check: checkRange,
		},

		// choice
		{
			Key: "radio", DisplayName: "Single Choice", Category: CategoryChoice, Icon: "🔘", Plan: PlanFree,
			Description: "Select one option from multiple choices",
			Fields: map[string]FieldSpec{
				"options":    defaultOptions(),
				"allowOther": flag(false),
				"otherText":  str("Other"),
				"randomize":  flag(false),
				"validation": validation(nil),
			},
			check: checkOptions(2),
		},
		{
			Key: "multiple_choice", DisplayName: "Multiple Choice", Category: CategoryChoice, Icon: "🔘", Plan: PlanFree,
			Description: "Select one option from a list of labelled choices",
			Fields: map[string]FieldSpec{
				"options":    defaultOptions(),
				"allowOther": flag(false),
				"otherText":  str("Other"),
				"randomize":  flag(false),
				"validation": validation(nil),
			},
			check: checkOptions(2),
		},
		{
			Key: "checkbox", DisplayName: "Checkboxes", Category: CategoryChoice, Icon: "☑️", Plan: PlanFree,
			Description: "Select multiple options",
			Fields: map[string]FieldSpec{
				"options":       defaultOptions(),
				"allowOther":    flag(false),
				"otherText":     str("Other"),
				"randomize":     flag(false),
				"minSelections": integer(1),
				"maxSelections": optInteger(),
				"validation":    validation(map[string]any{"minSelections": 1.0, "maxSelections": nil}),
			},
			check: all(checkOptions(2), checkSelections),
		},
		{
			Key: "dropdown", DisplayName: "Dropdown", Category: CategoryChoice, Icon: "📋", Plan: PlanFree,
			Description: "Select from dropdown menu",
			Fields: map[string]FieldSpec{
				"options":     defaultOptions(),
				"placeholder": str("Select an option..."),
				"allowSearch": flag(false),
				"validation":  validation(nil),
			},
			check: checkOptions(2),
		},
		{
			Key: "yes_no", DisplayName: "Yes / No", Category: CategoryChoice, Icon: "✅", Plan: PlanFree,
			Description: "Binary yes or no answer",
			Fields: map[string]FieldSpec{
				"options":    list("Yes", "No"),
				"validation": validation(nil),
			},
			check: checkOptions(2),
		},

		// rating & scale
		{
			Key: "rating", DisplayName: "Star Rating", Category: CategoryRating, Icon: "⭐", Plan: PlanFree,
			Description: "Rate using stars (1-5)",
			Fields: map[string]FieldSpec{
				"scale":      integer(5),
				"labels":     labels("Poor", "Fair", "Good", "Very Good", "Excellent"),
				"validation": validation(nil),
			},
			check: checkScale(1, 10),
		},
		{
			Key: "scale", DisplayName: "Likert Scale", Category: CategoryRating, Icon: "📊", Plan: PlanPro,
			Description: "Rate on a scale (1-10)",
			Fields: map[string]FieldSpec{
				"min":        integer(1),
				"max":        integer(10),
				"minLabel":   str("Strongly Disagree"),
				"maxLabel":   str("Strongly Agree"),
				"step":       integer(1),
				"validation": validation(nil),
			},
			check: checkRange,
		},
		{
			Key: "nps", DisplayName: "NPS Score", Category: CategoryRating, Icon: "📈", Plan: PlanPro,
			Description: "Net Promoter Score (0-10)",
			Fields: map[string]FieldSpec{
				"minLabel":   str("Not at all likely"),
				"maxLabel":   str("Extremely likely"),
				"question":   str("How likely are you to recommend this to a friend?"),
				"validation": validation(nil),
			},
		},

		// emoji & visual
		emojiType("emoji_satisfaction", "Emoji Satisfaction", "Rate satisfaction using emoji faces", "😊", PlanFree,
			[]string{"😞", "😐", "🙂", "😊", "😍"},
			[]string{"Very Dissatisfied", "Dissatisfied", "Neutral", "Satisfied", "Very Satisfied"}),
		emojiType("emoji_agreement", "Emoji Agreement", "Show agreement level with emojis", "👍", PlanFree,
			[]string{"👎", "😕", "😐", "👍", "💯"},
			[]string{"Strongly Disagree", "Disagree", "Neutral", "Agree", "Strongly Agree"}),
		emojiType("emoji_quality", "Emoji Quality", "Rate quality with fun emojis", "⭐", PlanFree,
			[]string{"💩", "👎", "👍", "⭐"},
			[]string{"Poor", "Fair", "Good", "Excellent"}),
		emojiType("emoji_mood", "Emoji Mood", "Capture mood with expressive emojis", "😄", PlanFree,
			[]string{"😭", "😢", "😔", "😐", "🙂", "😊", "😄"},
			[]string{"Very Sad", "Sad", "Disappointed", "Neutral", "Happy", "Very Happy", "Ecstatic"}),
		emojiType("emoji_difficulty", "Emoji Difficulty", "Rate difficulty level with emojis", "🤯", PlanFree,
			[]string{"😴", "😌", "😰", "🤯"},
			[]string{"Very Easy", "Easy", "Hard", "Very Hard"}),
		emojiType("emoji_likelihood", "Emoji Likelihood", "Show likelihood with visual emojis", "✅", PlanPro,
			[]string{"❌", "🤔", "✅", "💯"},
			[]string{"Never", "Maybe", "Likely", "Definitely"}),
		{
			Key: "emoji_scale", DisplayName: "Emoji Scale", Category: CategoryEmoji, Icon: "😊", Plan: PlanFree,
			Description: "Rate using emoji expressions",
			Fields: map[string]FieldSpec{
				"scale":      integer(5),
				"showLabels": flag(true),
				"options": list(
					emojiOption(1, "Very Unsatisfied", "😠"),
					emojiOption(2, "Unsatisfied", "😞"),
					emojiOption(3, "Neutral", "😐"),
					emojiOption(4, "Satisfied", "🙂"),
					emojiOption(5, "Very Satisfied", "😊"),
				),
				"validation": validation(nil),
			},
			// NPS style scales run 0-10, eleven points
			check: all(checkScale(2, 11), checkOptions(2)),
		},
		{
			Key: "emoji_custom", DisplayName: "Custom Emoji Scale", Category: CategoryEmoji, Icon: "🎨", Plan: PlanPro,
			Description: "Create your own emoji rating scale with SVG emojis",
			Fields: map[string]FieldSpec{
				"scale":             integer(5),
				"useSVGEmojis":      flag(true),
				"svgEmojiType":      str("satisfaction"),
				"emojiSize":         str("md"),
				"showLabels":        flag(true),
				"allowCustomEmojis": flag(true),
				"validation":        validation(nil),
			},
			check: checkScale(2, 10),
		},
		svgEmojiType("svg_emoji_satisfaction", "SVG Emoji Satisfaction", "Beautiful SVG emoji satisfaction scale", "😊", "satisfaction"),
		svgEmojiType("svg_emoji_mood", "SVG Emoji Mood", "Interactive SVG emoji mood tracker", "😄", "mood"),

		// advanced
		{
			Key: "matrix", DisplayName: "Matrix Question", Category: CategoryAdvanced, Icon: "📋", Plan: PlanEnterprise,
			Description: "Rate multiple items on the same scale",
			Fields: map[string]FieldSpec{
				"rows":       stringList("Item 1", "Item 2", "Item 3"),
				"columns":    stringList("Poor", "Fair", "Good", "Very Good", "Excellent"),
				"inputType":  str("radio"),
				"validation": validation(nil),
			},
			check: checkMatrix,
		},
		{
			Key: "ranking", DisplayName: "Ranking", Category: CategoryAdvanced, Icon: "🏆", Plan: PlanEnterprise,
			Description: "Rank items in order of preference",
			Fields: map[string]FieldSpec{
				"options":    list("Option 1", "Option 2", "Option 3", "Option 4"),
				"validation": validation(nil),
			},
			check: checkOptions(2),
		},
		{
			Key: "slider", DisplayName: "Slider", Category: CategoryAdvanced, Icon: "🎚️", Plan: PlanEnterprise,
			Description: "Select value using a slider",
			Fields: map[string]FieldSpec{
				"min":        {Kind: KindNumber, Default: 0.0},
				"max":        {Kind: KindNumber, Default: 100.0},
				"step":       {Kind: KindNumber, Default: 1.0},
				"minLabel":   str("Minimum"),
				"maxLabel":   str("Maximum"),
				"showValue":  flag(true),
				"validation": validation(nil),
			},
			check: checkRange,
		},
		{
			Key: "file", DisplayName: "File Upload", Category: CategoryAdvanced, Icon: "📎", Plan: PlanEnterprise,
			Description: "Upload files or images",
			Fields: map[string]FieldSpec{
				"acceptedTypes": stringList("image/*", ".pdf", ".doc", ".docx"),
				"maxFileSize":   {Kind: KindNumber, Default: 10.0},
				"maxFiles":      integer(1),
				"validation":    validation(nil),
			},
			check: checkFile,
		},
		{
			Key: "date", DisplayName: "Date", Category: CategoryAdvanced, Icon: "📅", Plan: PlanEnterprise,
			Description: "Select a date",
			Fields: map[string]FieldSpec{
				"minDate":    optString(),
				"maxDate":    optString(),
				"format":     str("YYYY-MM-DD"),
				"validation": validation(nil),
			},
		},
		{
			Key: "time", DisplayName: "Time", Category: CategoryAdvanced, Icon: "⏰", Plan: PlanEnterprise,
			Description: "Select a time",
			Fields: map[string]FieldSpec{
				"format":     str("24h"),
				"step":       integer(15),
				"validation": validation(nil),
			},
			check: checkTimeFormat,
		},
		{
			Key: "datetime", DisplayName: "Date & Time", Category: CategoryAdvanced, Icon: "📅", Plan: PlanEnterprise,
			Description: "Select date and time",
			Fields: map[string]FieldSpec{
				"minDate":    optString(),
				"maxDate":    optString(),
				"format":     str("YYYY-MM-DD HH:mm"),
				"validation": validation(nil),
			},
		},
	}
}

func emojiType(key, name, description, icon string, plan Plan, emojis, names []string) QuestionType {
	return QuestionType{
		Key: key, DisplayName: name, Category: CategoryEmoji, Icon: icon, Plan: plan,
		Description: description,
		Fields: map[string]FieldSpec{
			"scale":      integer(float64(len(emojis))),
			"emojis":     stringList(emojis...),
			"labels":     labels(names...),
			"validation": validation(nil),
		},
		check: all(checkScale(2, 10), checkEmojis),
	}
}

func svgEmojiType(key, name, description, icon, kind string) QuestionType {
	return QuestionType{
		Key: key, DisplayName: name, Category: CategoryInteractive, Icon: icon, Plan: PlanPro,
		Description: description,
		Fields: map[string]FieldSpec{
			"scale":        integer(5),
			"useSVGEmojis": flag(true),
			"svgEmojiType": str(kind),
			"emojiSize":    str("lg"),
			"showLabels":   flag(true),
			"validation":   validation(nil),
		},
		check: checkScale(2, 10),
	}
}

func emojiOption(value float64, label, emoji string) map[string]any {
	return map[string]any{"value": value, "label": label, "emoji": emoji}
}

func all(checks ...func(entity.Fields) error) func(entity.Fields) error {
	return func(f entity.Fields) error {
		for _, check := range checks {
			if err := check(f); err != nil {
				return err
			}
		}
		return nil
	}
}

func checkOptions(min int) func(entity.Fields) error {
	return func(f entity.Fields) error {
		options, _ := f["options"].([]any)
		if len(options) < min {
			return fmt.Errorf("at least %d options are required", min)
		}
		for i, option := range options {
			switch option.(type) {
			case string, map[string]any:
			default:
				return fmt.Errorf("option %d must be a label or an object", i)
			}
		}
		return nil
	}
}

func checkScale(min, max float64) func(entity.Fields) error {
	return func(f entity.Fields) error {
		scale, ok := f["scale"].(float64)
		if !ok {
			return nil
		}
		if scale < min || scale > max {
			return fmt.Errorf("scale must be between %v and %v", min, max)
		}
		return nil
	}
}

func checkRange(f entity.Fields) error {
	min, minOK := f["min"].(float64)
	max, maxOK := f["max"].(float64)
	if minOK && maxOK && min >= max {
		return errors.New("minimum value must be less than maximum value")
	}
	if step, ok := f["step"].(float64); ok && step <= 0 {
		return errors.New("step must be positive")
	}
	return nil
}

func checkLength(f entity.Fields) error {
	if max, ok := f["maxLength"].(float64); ok && max < 1 {
		return errors.New("maxLength must be positive")
	}
	return nil
}

func checkSelections(f entity.Fields) error {
	min, minOK := f["minSelections"].(float64)
	max, maxOK := f["maxSelections"].(float64)
	if minOK && min < 0 {
		return errors.New("minSelections can not be negative")
	}
	if minOK && maxOK && min > max {
		return errors.New("minSelections can not exceed maxSelections")
	}
	return nil
}

func checkEmojis(f entity.Fields) error {
	emojis, ok := f["emojis"].([]any)
	scale, scaleOK := f["scale"].(float64)
	if ok && scaleOK && len(emojis) != int(scale) {
		return fmt.Errorf("scale of %v needs %v emojis, got %d", scale, scale, len(emojis))
	}
	return nil
}

func checkMatrix(f entity.Fields) error {
	rows, _ := f["rows"].([]any)
	if len(rows) < 1 {
		return errors.New("at least 1 row is required for matrix questions")
	}
	columns, _ := f["columns"].([]any)
	if len(columns) < 2 {
		return errors.New("at least 2 columns are required for matrix questions")
	}
	switch f["inputType"] {
	case "radio", "checkbox", nil:
		return nil
	default:
		return errors.New("inputType must be radio or checkbox")
	}
}

func checkFile(f entity.Fields) error {
	if size, ok := f["maxFileSize"].(float64); ok && (size <= 0 || size > 100) {
		return errors.New("maximum file size must be between 0 and 100MB")
	}
	if n, ok := f["maxFiles"].(float64); ok && n < 1 {
		return errors.New("maxFiles must be at least 1")
	}
	return nil
}

func checkTimeFormat(f entity.Fields) error {
	switch f["format"] {
	case "12h", "24h", nil:
		return nil
	default:
		return errors.New("format must be 12h or 24h")
	}
}
