package omr

import (
	"sort"

	"github.com/maxslarsson/exam-grading/internal/bubble"
)

// AssemblePage converts one sheet's readings into answer tokens per
// question part. Multiple-choice answers are the marked choice letters;
// numeric grids become a single digit string. Multi-mark ambiguity is
// preserved, not resolved: a reviewer downstream sees every token.
func AssemblePage(readings []Reading, threshold float64, page int, table *bubble.Table, p Params) map[bubble.AnswerKey][]string {
	// First-wins per position mirrors the sheet layout: a student who
	// somehow marks two digits in one column gets the table-order first.
	numeric := map[bubble.AnswerKey]map[int]bubble.Bubble{}
	choices := map[bubble.AnswerKey][]string{}

	for _, r := range readings {
		if !r.Marked(threshold, p) {
			continue
		}
		b := r.Bubble
		key := b.Answer()
		if b.Kind == bubble.DigitCell {
			cells := numeric[key]
			if cells == nil {
				cells = map[int]bubble.Bubble{}
				numeric[key] = cells
			}
			if _, taken := cells[b.Position]; !taken {
				cells[b.Position] = b
			}
		} else {
			choices[key] = append(choices[key], b.Choice)
		}
	}

	answers := map[bubble.AnswerKey][]string{}

	for key, cells := range numeric {
		if s, ok := numericString(cells); ok {
			answers[key] = append(answers[key], s)
		}
	}

	for key, letters := range choices {
		// A numeric answer and its linked "Other" choice describe the
		// same response; reporting both would double-count it.
		other, hasOther := table.OtherChoice(page, key)
		suppress := hasOther && len(answers[key]) > 0
		for _, letter := range letters {
			if suppress && letter == other {
				continue
			}
			answers[key] = append(answers[key], letter)
		}
	}

	return answers
}

// numericString concatenates a numeric grid's marked cells in position
// order. Sentinel-only groups yield nothing: a decimal point with no
// digits is not an answer.
func numericString(cells map[int]bubble.Bubble) (string, bool) {
	hasDigit := false
	positions := make([]int, 0, len(cells))
	for pos, b := range cells {
		positions = append(positions, pos)
		if !b.Sentinel() {
			hasDigit = true
		}
	}
	if !hasDigit {
		return "", false
	}
	sort.Ints(positions)

	out := make([]byte, 0, len(positions))
	for _, pos := range positions {
		out = append(out, cells[pos].Symbol())
	}
	return string(out), true
}
