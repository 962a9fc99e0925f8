package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/examforge/examforge/internal/models"
)

// GATE papers mark questions with a period-terminated index ("Q.12.") and
// parenthesized letter options ("(A)".."(D)"). The first ten questions form
// the General Aptitude section; the stream code comes from the filename
// (GATE-2024-CS-Session-1).
type gateGrammar struct{}

var (
	gateQuestionRe = regexp.MustCompile(`Q\.\s*(\d+)\.`)
	gateOptionRe   = regexp.MustCompile(`(?m)^\s*\(([A-D])\)`)
	gateGAHeaderRe = regexp.MustCompile(`(?i)General Aptitude`)
	gateTechRe     = regexp.MustCompile(`(?i)(Technical Section|End of General Aptitude)`)
	gateKeyRe      = regexp.MustCompile(`(?i)Answer Key`)
	gateKeyPairRe  = regexp.MustCompile(`(?m)^\s*(\d+)\s*[\.:\)]?\s*\(?([A-D])\)?\s*$`)
	gateFilenameRe = regexp.MustCompile(`(?i)GATE[-_](\d{4})[-_]([A-Z]{2})(?:[-_]Session[-_](\d+))?`)
)

func (gateGrammar) parse(doc Document) ([]models.StructuredQuestion, Report) {
	report := Report{Document: doc.Name, ExamType: models.ExamGATE}

	year, stream, session := gateFileInfo(doc.Name)
	if stream == "" {
		report.Err = fmt.Errorf("cannot infer GATE stream from filename %q", doc.Name)
		return nil, report
	}

	content := pageNoiseRe.ReplaceAllString(doc.Content, "")
	answers := parseGATEAnswerKey(content)

	if loc := gateKeyRe.FindStringIndex(content); loc != nil {
		content = content[:loc[0]]
	}

	gaStart, techStart := -1, -1
	if loc := gateGAHeaderRe.FindStringIndex(content); loc != nil {
		gaStart = loc[0]
		if tech := gateTechRe.FindStringIndex(content[loc[1]:]); tech != nil {
			techStart = loc[1] + tech[0]
		}
	}

	var questions []models.StructuredQuestion

	marks := gateQuestionRe.FindAllStringSubmatchIndex(content, -1)
	for i, mark := range marks {
		num, err := strconv.Atoi(content[mark[2]:mark[3]])
		if err != nil {
			continue
		}

		end := len(content)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		block := content[mark[1]:end]

		text, options := splitOptions(block, gateOptionRe)
		text = collapseSpace(text)

		marker := fmt.Sprintf("Q.%d.", num)
		if text == "" {
			report.Dropped = append(report.Dropped, Drop{Marker: marker, Reason: "empty question text"})
			continue
		}
		if n := len(options); n > 0 && n != 4 {
			report.Dropped = append(report.Dropped, Drop{Marker: marker, Reason: fmt.Sprintf("expected 4 options, found %d", n)})
			continue
		}

		category := gateCategory(mark[0], num, gaStart, techStart)
		abbrev := "tech"
		if category == models.CategoryGeneralAptitude {
			abbrev = "ga"
		}

		questions = append(questions, models.StructuredQuestion{
			ID:              fmt.Sprintf("gate_%d_%s_s%d_%s_%03d", year, strings.ToLower(stream), session, abbrev, num),
			ExamType:        models.ExamGATE,
			Stream:          stream,
			SectionCategory: category,
			Year:            year,
			Slot:            session,
			QuestionText:    text,
			Options:         options,
			Answer:          normalizeAnswer(answers[num]),
		})
	}

	report.Parsed = len(questions)
	return questions, report
}

// gateCategory classifies a question as general aptitude or technical. The
// section headers decide when both are present; question numbering is the
// fallback (GA is always Q.1-Q.10).
func gateCategory(pos, num, gaStart, techStart int) string {
	if gaStart >= 0 && techStart >= 0 {
		if pos > gaStart && pos < techStart {
			return models.CategoryGeneralAptitude
		}
		return models.CategoryTechnical
	}
	if num <= 10 {
		return models.CategoryGeneralAptitude
	}
	return models.CategoryTechnical
}

func parseGATEAnswerKey(content string) map[int]string {
	answers := make(map[int]string)

	loc := gateKeyRe.FindStringIndex(content)
	if loc == nil {
		return answers
	}

	for _, pair := range gateKeyPairRe.FindAllStringSubmatch(content[loc[1]:], -1) {
		num, err := strconv.Atoi(pair[1])
		if err != nil {
			continue
		}
		answers[num] = strings.ToUpper(pair[2])
	}

	return answers
}

func gateFileInfo(name string) (year int, stream string, session int) {
	year, session = 2024, 1
	if m := gateFilenameRe.FindStringSubmatch(name); m != nil {
		year, _ = strconv.Atoi(m[1])
		stream = strings.ToUpper(m[2])
		if m[3] != "" {
			session, _ = strconv.Atoi(m[3])
		}
	}
	return year, stream, session
}
