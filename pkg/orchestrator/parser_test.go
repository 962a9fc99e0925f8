package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/models"
)

const validMCQ = `{"question_text": "What is 2+2?", "option1": "3", "option2": "4", "option3": "5", "option4": "6", "answer": "4", "explanation": "basic arithmetic"}`

func TestParseGeneratedMCQ(t *testing.T) {
	q, err := parseGenerated(validMCQ, slotMCQ)
	require.NoError(t, err)

	assert.Equal(t, "What is 2+2?", q.QuestionText)
	require.Len(t, q.Options, 4)
	assert.Equal(t, "a", q.Options[0].Label)
	assert.Equal(t, "b", q.Answer) // resolved from option text "4"
	assert.Equal(t, "basic arithmetic", q.Explanation)
}

func TestParseGeneratedStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validMCQ + "\n```"
	q, err := parseGenerated(fenced, slotMCQ)
	require.NoError(t, err)
	assert.Equal(t, "What is 2+2?", q.QuestionText)
}

func TestParseGeneratedTITA(t *testing.T) {
	raw := `{"question_text": "Type the value of 7*8.", "answer": "56", "explanation": ""}`
	q, err := parseGenerated(raw, slotTITA)
	require.NoError(t, err)
	assert.Empty(t, q.Options)
	assert.Equal(t, "56", q.Answer)
}

func TestParseGeneratedRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind slotKind
	}{
		{"not json", "the model rambled instead of answering", slotMCQ},
		{"empty question", `{"question_text": "", "option1": "a", "option2": "b", "option3": "c", "option4": "d", "answer": "a"}`, slotMCQ},
		{"missing option", `{"question_text": "q?", "option1": "a", "option2": "b", "option3": "c", "answer": "a"}`, slotMCQ},
		{"answer matches nothing", `{"question_text": "q?", "option1": "w", "option2": "x", "option3": "y", "option4": "z", "answer": "seven"}`, slotMCQ},
		{"empty answer", `{"question_text": "q?", "answer": ""}`, slotTITA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseGenerated(tt.raw, tt.kind)
			assert.Error(t, err)
		})
	}
}

func TestResolveAnswerLabelForms(t *testing.T) {
	options := []models.Option{
		{Label: "a", Text: "first"},
		{Label: "b", Text: "second"},
		{Label: "c", Text: "third"},
		{Label: "d", Text: "fourth"},
	}

	for _, answer := range []string{"second", "b", "B", "b)", "option2", "B."} {
		label, err := resolveAnswerLabel(answer, options)
		require.NoError(t, err, "answer form %q", answer)
		assert.Equal(t, "b", label)
	}
}

func TestBuildPromptMCQ(t *testing.T) {
	seeds := []models.StructuredQuestion{
		{
			QuestionText:   "Pick the synonym of 'terse'.",
			PassageContext: "The passage below discusses brevity in writing.",
			Options: []models.Option{
				{Label: "a", Text: "verbose"},
				{Label: "b", Text: "curt"},
			},
		},
		{QuestionText: "Identify the odd one out."},
	}

	prompt := buildPrompt("CAT", "VARC", slotMCQ, seeds)

	assert.Contains(t, prompt, "CAT exam")
	assert.Contains(t, prompt, "'VARC' section")
	assert.Contains(t, prompt, "Pick the synonym of 'terse'.")
	assert.Contains(t, prompt, "The passage below discusses brevity in writing.")
	assert.Contains(t, prompt, "a) verbose")
	assert.Contains(t, prompt, "\n---\n", "seed examples are separated")
	assert.Contains(t, prompt, `"option4"`)
	assert.NotContains(t, prompt, "TITA")
}

func TestBuildPromptTITA(t *testing.T) {
	seeds := []models.StructuredQuestion{{QuestionText: "Find the remainder of 17 mod 5."}}

	prompt := buildPrompt("GATE", "Technical", slotTITA, seeds)

	assert.Contains(t, prompt, "TITA")
	assert.Contains(t, prompt, "no options")
	assert.NotContains(t, prompt, `"option1"`)
}

func TestCheckAgainstSeeds(t *testing.T) {
	seeds := []models.StructuredQuestion{
		{
			ID:           "cat_2024_s1_quant_001",
			QuestionText: "What is the cube root of 27?",
			Options: []models.Option{
				{Label: "a", Text: "2"}, {Label: "b", Text: "3"},
				{Label: "c", Text: "4"}, {Label: "d", Text: "9"},
			},
		},
	}

	copied := models.GeneratedQuestion{QuestionText: "what is the cube  root of 27?"}
	assert.Error(t, checkAgainstSeeds(copied, seeds))

	copiedOptions := models.GeneratedQuestion{
		QuestionText: "A fresh question?",
		Options: []models.Option{
			{Label: "a", Text: "2"}, {Label: "b", Text: "3"},
			{Label: "c", Text: "4"}, {Label: "d", Text: "9"},
		},
	}
	assert.Error(t, checkAgainstSeeds(copiedOptions, seeds))

	fresh := models.GeneratedQuestion{
		QuestionText: "A fresh question?",
		Options: []models.Option{
			{Label: "a", Text: "10"}, {Label: "b", Text: "20"},
			{Label: "c", Text: "30"}, {Label: "d", Text: "40"},
		},
	}
	assert.NoError(t, checkAgainstSeeds(fresh, seeds))
}
