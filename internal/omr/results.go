package omr

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/maxslarsson/exam-grading/internal/bubble"
)

// pageTable accumulates per-sheet bubble intensities for one page
// directory. Rows keep first-seen student order and columns are fixed at
// construction, so output is deterministic for a given input tree.
type pageTable struct {
	columns  []string
	students []string
	rows     map[string]map[string]float64
}

func newPageTable(columns []string) *pageTable {
	return &pageTable{
		columns: columns,
		rows:    map[string]map[string]float64{},
	}
}

// Set records one cell, registering the student on first use.
func (t *pageTable) Set(student, column string, v float64) {
	row, ok := t.rows[student]
	if !ok {
		row = map[string]float64{}
		t.rows[student] = row
		t.students = append(t.students, student)
	}
	row[column] = v
}

// Write saves the table as CSV with a student_id index column.
func (t *pageTable) Write(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(append([]string{"student_id"}, t.columns...)); err != nil {
		return err
	}
	for _, student := range t.students {
		rec := make([]string, 0, len(t.columns)+1)
		rec = append(rec, student)
		for _, col := range t.columns {
			if v, ok := t.rows[student][col]; ok {
				rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				rec = append(rec, "")
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// AnswerTable is the consolidated student×question answer table built up
// over a whole recognition run.
type AnswerTable struct {
	answers map[string]map[bubble.AnswerKey][]string
}

// NewAnswerTable creates an empty table.
func NewAnswerTable() *AnswerTable {
	return &AnswerTable{answers: map[string]map[bubble.AnswerKey][]string{}}
}

// Merge folds one sheet's answers into the student's accumulated answers.
// A student appearing on several pages (or resubmitting a page) keeps
// every token. A sheet with no answers still registers the student, so a
// blank page shows up as an empty row rather than a missing one.
func (t *AnswerTable) Merge(student string, pageAnswers map[bubble.AnswerKey][]string) {
	row := t.answers[student]
	if row == nil {
		row = map[bubble.AnswerKey][]string{}
		t.answers[student] = row
	}
	for key, tokens := range pageAnswers {
		row[key] = append(row[key], tokens...)
	}
}

// Empty returns true if no answers were recorded.
func (t *AnswerTable) Empty() bool {
	return len(t.answers) == 0
}

// Students returns the sorted student IDs.
func (t *AnswerTable) Students() []string {
	students := make([]string, 0, len(t.answers))
	for s := range t.answers {
		students = append(students, s)
	}
	sort.Strings(students)
	return students
}

// Questions returns every answered question part, sorted by problem
// number then subquestion.
func (t *AnswerTable) Questions() []bubble.AnswerKey {
	seen := map[bubble.AnswerKey]bool{}
	for _, row := range t.answers {
		for key := range row {
			seen[key] = true
		}
	}
	keys := make([]bubble.AnswerKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Problem != keys[j].Problem {
			return keys[i].Problem < keys[j].Problem
		}
		return keys[i].Subquestion < keys[j].Subquestion
	})
	return keys
}

// Get returns the cell value for one student and question: the sorted,
// comma-joined answer tokens.
func (t *AnswerTable) Get(student string, key bubble.AnswerKey) string {
	tokens := t.answers[student][key]
	if len(tokens) == 0 {
		return ""
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// WriteCSV saves the consolidated table.
func (t *AnswerTable) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	questions := t.Questions()

	w := csv.NewWriter(file)
	header := make([]string, 0, len(questions)+1)
	header = append(header, "student_id")
	for _, q := range questions {
		header = append(header, q.String())
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, student := range t.Students() {
		rec := make([]string, 0, len(questions)+1)
		rec = append(rec, student)
		for _, q := range questions {
			rec = append(rec, t.Get(student, q))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
