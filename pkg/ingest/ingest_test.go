package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examforge/examforge/internal/models"
)

const catSample = `CAT Mock Paper
Section: VARC
The passage below is followed by a question based on its content.
Q. 1) What is the central idea of the passage?
a) The first option
b) The second option
c) The third option
d) The fourth option
Q. 2) Type the missing number in the sequence described above.
Section: Quant
Q. 1) What is the value of 2 + 2?
a) Three
b) Four
c) Five
d) Six
Answer Key: VARC Section
"1","a"
Answer Key: Quant Section
"1","b"
`

func TestCATGrammar(t *testing.T) {
	questions, report := Normalize(Document{
		Name:     "CAT-2023-Slot-2.txt",
		ExamType: "CAT",
		Content:  catSample,
	})

	require.NoError(t, report.Err)
	require.Len(t, questions, 3)
	assert.Equal(t, 3, report.Parsed)
	assert.Empty(t, report.Dropped)

	varc := questions[0]
	assert.Equal(t, "cat_2023_s2_varc_001", varc.ID)
	assert.Equal(t, models.ExamCAT, varc.ExamType)
	assert.Equal(t, models.CategoryVARC, varc.SectionCategory)
	assert.Equal(t, 2023, varc.Year)
	assert.Equal(t, 2, varc.Slot)
	assert.Equal(t, "What is the central idea of the passage?", varc.QuestionText)
	assert.Contains(t, varc.PassageContext, "The passage below")
	require.Len(t, varc.Options, 4)
	assert.Equal(t, "a", varc.Options[0].Label)
	assert.Equal(t, "The first option", varc.Options[0].Text)
	assert.Equal(t, "a", varc.Answer)
	assert.True(t, varc.IsMCQ())

	// Second VARC question has no options: TITA.
	tita := questions[1]
	assert.Empty(t, tita.Options)
	assert.False(t, tita.IsMCQ())
	assert.Empty(t, tita.Answer)

	quant := questions[2]
	assert.Equal(t, models.CategoryQuant, quant.SectionCategory)
	assert.Equal(t, "b", quant.Answer)
	assert.Empty(t, quant.PassageContext)
}

func TestCATGrammarDropsMalformedQuestion(t *testing.T) {
	content := `Section: DILR
Q. 1) A question with too few options.
a) only
b) two
Q. 2) A well formed question.
a) one
b) two
c) three
d) four
`
	questions, report := Normalize(Document{
		Name:     "CAT-2024-Slot-1.txt",
		ExamType: "CAT",
		Content:  content,
	})

	require.NoError(t, report.Err)
	require.Len(t, questions, 1)
	assert.Equal(t, "A well formed question.", questions[0].QuestionText)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, "Q. 1)", report.Dropped[0].Marker)
	assert.Contains(t, report.Dropped[0].Reason, "expected 4 options")
}

func TestCATGrammarStripsPageNoise(t *testing.T) {
	content := `Section: Quant
Q. 1) What is seven times
Page 3 of 12
eight?
a) 54
b) 56
c) 63
d) 64
`
	questions, report := Normalize(Document{
		Name:     "CAT-2024-Slot-1.txt",
		ExamType: "CAT",
		Content:  content,
	})

	require.NoError(t, report.Err)
	require.Len(t, questions, 1)
	assert.Equal(t, "What is seven times eight?", questions[0].QuestionText)
}

const gateSample = `GATE 2024 Question Paper
General Aptitude
Q.1. Choose the most appropriate word to complete the sentence.
(A) alpha
(B) beta
(C) gamma
(D) delta
Technical Section
Q.11. Which data structure gives O(1) amortized insertion at both ends?
(A) stack
(B) singly linked list
(C) deque
(D) binary heap
Answer Key
1 A
11 C
`

func TestGATEGrammar(t *testing.T) {
	questions, report := Normalize(Document{
		Name:     "GATE-2024-CS-Session-1.txt",
		ExamType: "GATE",
		Content:  gateSample,
	})

	require.NoError(t, report.Err)
	require.Len(t, questions, 2)

	ga := questions[0]
	assert.Equal(t, "gate_2024_cs_s1_ga_001", ga.ID)
	assert.Equal(t, models.ExamGATE, ga.ExamType)
	assert.Equal(t, "CS", ga.Stream)
	assert.Equal(t, models.CategoryGeneralAptitude, ga.SectionCategory)
	require.Len(t, ga.Options, 4)
	assert.Equal(t, "a", ga.Options[0].Label)
	assert.Equal(t, "A", ga.Answer)

	tech := questions[1]
	assert.Equal(t, "gate_2024_cs_s1_tech_011", tech.ID)
	assert.Equal(t, models.CategoryTechnical, tech.SectionCategory)
	assert.Equal(t, "C", tech.Answer)

	// The two questions land in two distinct collections.
	gaKey := models.CollectionKey{ExamType: ga.ExamType, Stream: ga.Stream, Category: ga.SectionCategory}
	techKey := models.CollectionKey{ExamType: tech.ExamType, Stream: tech.Stream, Category: tech.SectionCategory}
	assert.Equal(t, "gate_cs_general_aptitude", gaKey.String())
	assert.Equal(t, "gate_cs_technical", techKey.String())
	assert.NotEqual(t, gaKey, techKey)
}

func TestGATEGrammarFallsBackToNumbering(t *testing.T) {
	content := `Q.3. An aptitude question without section headers.
(A) w
(B) x
(C) y
(D) z
Q.42. A technical question.
(A) w
(B) x
(C) y
(D) z
`
	questions, report := Normalize(Document{
		Name:     "GATE-2023-EE-Session-2.txt",
		ExamType: "GATE",
		Content:  content,
	})

	require.NoError(t, report.Err)
	require.Len(t, questions, 2)
	assert.Equal(t, models.CategoryGeneralAptitude, questions[0].SectionCategory)
	assert.Equal(t, models.CategoryTechnical, questions[1].SectionCategory)
	assert.Equal(t, "EE", questions[0].Stream)
	assert.Equal(t, 2, questions[0].Slot)
}

func TestGATEGrammarRequiresStream(t *testing.T) {
	_, report := Normalize(Document{
		Name:     "notes.txt",
		ExamType: "GATE",
		Content:  gateSample,
	})
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "stream")
}

func TestNormalizeEmptyDocumentIsNonFatal(t *testing.T) {
	docs := []Document{
		{Name: "empty.txt", ExamType: "CAT", Content: "no questions here at all"},
		{Name: "CAT-2024-Slot-1.txt", ExamType: "CAT", Content: catSample},
	}

	questions, batch := NormalizeBatch(docs)

	// The empty document is skipped; the batch continues.
	assert.Len(t, questions, 3)
	require.Len(t, batch.Documents, 2)
	assert.Error(t, batch.Documents[0].Err)
	assert.NoError(t, batch.Documents[1].Err)
	assert.Equal(t, 1, batch.Failed())
}

func TestNormalizeUnknownExamType(t *testing.T) {
	_, report := Normalize(Document{Name: "x.txt", ExamType: "NEET", Content: "Q. 1) ?"})
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "no ingestion grammar")
}
