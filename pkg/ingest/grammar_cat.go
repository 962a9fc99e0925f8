package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/examforge/examforge/internal/models"
)

// CAT papers mark questions with a parenthesis-closed index ("Q. 12)"),
// options with "a)".."d)", sections with "Section: <name>" headers and carry
// per-section answer key tables at the end of the document.
type catGrammar struct{}

var (
	catSectionRe   = regexp.MustCompile(`Section:\s*(VARC|DILR|Quant)`)
	catQuestionRe  = regexp.MustCompile(`Q\.\s*(\d+)\)`)
	catOptionRe    = regexp.MustCompile(`(?m)^\s*([a-d])\)`)
	catAnswerKeyRe = regexp.MustCompile(`Answer Key:\s*(VARC|DILR|Quant) Section`)
	catKeyQuotedRe = regexp.MustCompile(`"(\d+)\s*","\s*([a-zA-Z0-9\.]+)\s*"`)
	catKeyPlainRe  = regexp.MustCompile(`(?m)^\s*(\d+)\s*,\s*([a-zA-Z0-9\.]+)`)
	catFilenameRe  = regexp.MustCompile(`(\d{4}).*Slot-(\d{1,2})`)
	pageNoiseRe    = regexp.MustCompile(`(?im)^\s*(page\s+\d+(\s+of\s+\d+)?|\d+\s*/\s*\d+)\s*$`)

	catSectionNames = map[string]string{
		"VARC":  models.CategoryVARC,
		"DILR":  models.CategoryDILR,
		"Quant": models.CategoryQuant,
	}
)

func (catGrammar) parse(doc Document) ([]models.StructuredQuestion, Report) {
	report := Report{Document: doc.Name, ExamType: models.ExamCAT}

	year, slot := catYearSlot(doc.Name)
	content := pageNoiseRe.ReplaceAllString(doc.Content, "")
	answers := parseCATAnswerKeys(content)

	// Strip the answer-key tables so they are not parsed as question text.
	if loc := catAnswerKeyRe.FindStringIndex(content); loc != nil {
		content = content[:loc[0]]
	}

	var questions []models.StructuredQuestion

	sectionMarks := catSectionRe.FindAllStringSubmatchIndex(content, -1)
	for i, mark := range sectionMarks {
		sectionName := content[mark[2]:mark[3]]
		category := catSectionNames[sectionName]

		end := len(content)
		if i+1 < len(sectionMarks) {
			end = sectionMarks[i+1][0]
		}
		body := content[mark[1]:end]

		qs, drops := parseCATSection(body, sectionName, category, year, slot, answers[sectionName])
		questions = append(questions, qs...)
		report.Dropped = append(report.Dropped, drops...)
	}

	report.Parsed = len(questions)
	return questions, report
}

func parseCATSection(body, sectionName, category string, year, slot int, key map[int]string) ([]models.StructuredQuestion, []Drop) {
	var questions []models.StructuredQuestion
	var drops []Drop

	marks := catQuestionRe.FindAllStringSubmatchIndex(body, -1)
	passage := ""

	if len(marks) > 0 {
		// Text before the first question may be a shared passage or chart.
		lead := strings.TrimSpace(body[:marks[0][0]])
		if strings.HasPrefix(lead, "The passage below") || strings.HasPrefix(lead, "The chart below") {
			passage = collapseSpace(lead)
		}
	}

	for i, mark := range marks {
		num, err := strconv.Atoi(body[mark[2]:mark[3]])
		if err != nil {
			continue
		}

		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		block := body[mark[1]:end]

		text, options := splitOptions(block, catOptionRe)
		text = collapseSpace(text)

		marker := fmt.Sprintf("Q. %d)", num)
		if text == "" {
			drops = append(drops, Drop{Marker: marker, Reason: "empty question text"})
			continue
		}
		if n := len(options); n > 0 && n != 4 {
			drops = append(drops, Drop{Marker: marker, Reason: fmt.Sprintf("expected 4 options, found %d", n)})
			continue
		}

		q := models.StructuredQuestion{
			ID:              fmt.Sprintf("cat_%d_s%d_%s_%03d", year, slot, strings.ToLower(sectionName), num),
			ExamType:        models.ExamCAT,
			SectionCategory: category,
			Year:            year,
			Slot:            slot,
			QuestionText:    text,
			Options:         options,
			Answer:          normalizeAnswer(key[num]),
		}
		if category == models.CategoryVARC {
			q.PassageContext = passage
		}
		questions = append(questions, q)
	}

	return questions, drops
}

// splitOptions cuts a question block into body text and labelled options
// using the given option-marker pattern.
func splitOptions(block string, optionRe *regexp.Regexp) (string, []models.Option) {
	marks := optionRe.FindAllStringSubmatchIndex(block, -1)
	if len(marks) == 0 {
		return block, nil
	}

	text := block[:marks[0][0]]
	options := make([]models.Option, 0, len(marks))

	for i, mark := range marks {
		end := len(block)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		options = append(options, models.Option{
			Label: strings.ToLower(block[mark[2]:mark[3]]),
			Text:  collapseSpace(block[mark[1]:end]),
		})
	}

	return text, options
}

func parseCATAnswerKeys(content string) map[string]map[int]string {
	answers := map[string]map[int]string{
		"VARC": {}, "DILR": {}, "Quant": {},
	}

	marks := catAnswerKeyRe.FindAllStringSubmatchIndex(content, -1)
	for i, mark := range marks {
		section := content[mark[2]:mark[3]]
		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		block := content[mark[1]:end]

		pairs := catKeyQuotedRe.FindAllStringSubmatch(block, -1)
		if len(pairs) == 0 {
			pairs = catKeyPlainRe.FindAllStringSubmatch(block, -1)
		}

		for _, pair := range pairs {
			num, err := strconv.Atoi(pair[1])
			if err != nil {
				continue
			}
			answers[section][num] = strings.TrimSpace(pair[2])
		}
	}

	return answers
}

func catYearSlot(name string) (int, int) {
	if m := catFilenameRe.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[1])
		slot, _ := strconv.Atoi(m[2])
		return year, slot
	}
	return 2024, 1
}

func normalizeAnswer(answer string) string {
	if answer == "" || strings.EqualFold(answer, "N/A") {
		return ""
	}
	return answer
}
