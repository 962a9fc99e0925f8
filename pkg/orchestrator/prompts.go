package orchestrator

import (
	"fmt"
	"strings"

	"github.com/examforge/examforge/internal/models"
)

type slotKind int

const (
	slotMCQ slotKind = iota
	slotTITA
)

const mcqInstruction = "an MCQ (multiple choice question) with exactly four options labeled 'option1' to 'option4'"

const titaInstruction = "a TITA (type in the answer) question with no options, where the answer is a numerical value or short text"

// buildPrompt asks the generative backend for one new question matching the
// format and register of the retrieved seed questions. The response must be
// a single JSON object.
func buildPrompt(examType, sectionName string, kind slotKind, seeds []models.StructuredQuestion) string {
	instruction := mcqInstruction
	shape := `{"question_text": "...", "option1": "...", "option2": "...", "option3": "...", "option4": "...", "answer": "the correct option text", "explanation": "a brief explanation"}`
	if kind == slotTITA {
		instruction = titaInstruction
		shape = `{"question_text": "...", "answer": "the numerical or short text answer", "explanation": "a brief explanation"}`
	}

	var context strings.Builder
	for i, seed := range seeds {
		if i > 0 {
			context.WriteString("\n---\n")
		}
		if seed.PassageContext != "" {
			context.WriteString(seed.PassageContext)
			context.WriteString("\n")
		}
		context.WriteString(seed.QuestionText)
		for _, opt := range seed.Options {
			context.WriteString(fmt.Sprintf("\n%s) %s", opt.Label, opt.Text))
		}
	}

	return fmt.Sprintf(`You are an expert question setter for the %s exam.
Your task is to generate a new, original question for the '%s' section.
The question must be %s.
It should be of a similar style, topic, and difficulty level to the following examples:
---
%s
---
Your entire response MUST be a single, valid JSON object. Do not include any other text, markdown, or explanation outside the JSON.
The JSON object must have this structure:
%s`, examType, sectionName, instruction, context.String(), shape)
}
