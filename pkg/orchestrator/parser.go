package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/examforge/examforge/internal/models"
)

// generatedPayload is the wire shape the prompt requests from the backend.
type generatedPayload struct {
	QuestionText string `json:"question_text"`
	Option1      string `json:"option1"`
	Option2      string `json:"option2"`
	Option3      string `json:"option3"`
	Option4      string `json:"option4"`
	Answer       string `json:"answer"`
	Explanation  string `json:"explanation"`
}

var optionLabels = []string{"a", "b", "c", "d"}

// parseGenerated validates raw backend output into a GeneratedQuestion.
// Anything that fails here is a validation failure eligible for retry.
func parseGenerated(raw string, kind slotKind) (models.GeneratedQuestion, error) {
	cleaned := stripCodeFences(raw)

	var payload generatedPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return models.GeneratedQuestion{}, fmt.Errorf("response is not valid JSON: %v", err)
	}

	text := strings.TrimSpace(payload.QuestionText)
	if text == "" {
		return models.GeneratedQuestion{}, fmt.Errorf("empty question_text")
	}
	if strings.TrimSpace(payload.Answer) == "" {
		return models.GeneratedQuestion{}, fmt.Errorf("empty answer")
	}

	question := models.GeneratedQuestion{
		QuestionText: text,
		Answer:       strings.TrimSpace(payload.Answer),
		Explanation:  strings.TrimSpace(payload.Explanation),
	}

	if kind == slotTITA {
		return question, nil
	}

	optionTexts := []string{payload.Option1, payload.Option2, payload.Option3, payload.Option4}
	for i, opt := range optionTexts {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return models.GeneratedQuestion{}, fmt.Errorf("option%d is empty", i+1)
		}
		question.Options = append(question.Options, models.Option{
			Label: optionLabels[i],
			Text:  opt,
		})
	}

	label, err := resolveAnswerLabel(question.Answer, question.Options)
	if err != nil {
		return models.GeneratedQuestion{}, err
	}
	question.Answer = label

	return question, nil
}

// resolveAnswerLabel maps whatever form the backend used for the correct
// answer (option text, "option2", "b", "b)") onto a stable label.
func resolveAnswerLabel(answer string, options []models.Option) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(answer))
	normalized = strings.TrimSuffix(normalized, ")")
	normalized = strings.TrimSuffix(normalized, ".")

	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(answer), opt.Text) {
			return opt.Label, nil
		}
		if normalized == opt.Label || normalized == fmt.Sprintf("option%d", i+1) {
			return opt.Label, nil
		}
	}

	return "", fmt.Errorf("answer %q does not match any option", answer)
}

// checkAgainstSeeds rejects output copied from the retrieval context: a
// question text identical to a seed's, or an MCQ whose options match a
// seed's verbatim.
func checkAgainstSeeds(q models.GeneratedQuestion, seeds []models.StructuredQuestion) error {
	text := normalizeText(q.QuestionText)

	for _, seed := range seeds {
		if text == normalizeText(seed.QuestionText) {
			return fmt.Errorf("question text copied verbatim from seed %s", seed.ID)
		}
		if len(q.Options) > 0 && len(q.Options) == len(seed.Options) {
			same := true
			for i := range q.Options {
				if normalizeText(q.Options[i].Text) != normalizeText(seed.Options[i].Text) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("options copied verbatim from seed %s", seed.ID)
			}
		}
	}

	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
