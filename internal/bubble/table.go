package bubble

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Table holds all bubble definitions for an exam, indexed by page.
type Table struct {
	bubbles []Bubble
	byPage  map[int][]Bubble
	other   map[AnswerKey3]string
}

// AnswerKey3 scopes an AnswerKey to a page, for the Other-choice index.
type AnswerKey3 struct {
	Page int
	Key  AnswerKey
}

// Len returns the total number of bubbles.
func (t *Table) Len() int {
	return len(t.bubbles)
}

// ForPage returns the bubbles on a page in table order. The order is
// load-bearing: per-page CSV columns follow it.
func (t *Table) ForPage(page int) []Bubble {
	return t.byPage[page]
}

// Pages returns the sorted page numbers that have bubbles.
func (t *Table) Pages() []int {
	pages := make([]int, 0, len(t.byPage))
	for p := range t.byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// OtherChoice returns the multiple-choice letter whose selection means
// "see the numeric grid" for the given question part, if the part has a
// numeric grid at all.
func (t *Table) OtherChoice(page int, key AnswerKey) (string, bool) {
	choice, ok := t.other[AnswerKey3{Page: page, Key: key}]
	return choice, ok
}

// LoadTable reads a bubble definition CSV with columns
// page,question,subquestion,choice,Xpos,Ypos. Composite question codes
// "<base>-<position>-<digit>" define numeric grid cells; anything else is a
// multiple-choice bubble. Duplicate bubble identities and numeric grids
// linked to more than one choice letter are configuration errors.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bubble table: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse bubble table %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("bubble table %s is empty", path)
	}

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"page", "question", "subquestion", "choice", "Xpos", "Ypos"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("bubble table %s is missing column %q", path, name)
		}
	}

	t := &Table{
		byPage: map[int][]Bubble{},
		other:  map[AnswerKey3]string{},
	}
	seen := map[string]bool{}

	for line, rec := range records[1:] {
		b, err := parseRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("bubble table %s line %d: %w", path, line+2, err)
		}

		identity := fmt.Sprintf("%d|%s|%s", b.Page, b.Column(), b.Choice)
		if seen[identity] {
			return nil, fmt.Errorf("bubble table %s line %d: duplicate bubble %s on page %d",
				path, line+2, b.Column(), b.Page)
		}
		seen[identity] = true

		if b.Kind == DigitCell && b.Choice != "" {
			key := AnswerKey3{Page: b.Page, Key: b.Answer()}
			if prev, ok := t.other[key]; ok && prev != b.Choice {
				return nil, fmt.Errorf("bubble table %s line %d: numeric grid %s links two choices (%q and %q)",
					path, line+2, b.Answer(), prev, b.Choice)
			}
			t.other[key] = b.Choice
		}

		t.bubbles = append(t.bubbles, b)
		t.byPage[b.Page] = append(t.byPage[b.Page], b)
	}

	return t, nil
}

func parseRow(rec []string, col map[string]int) (Bubble, error) {
	get := func(name string) string {
		return strings.TrimSpace(rec[col[name]])
	}

	page, err := strconv.Atoi(get("page"))
	if err != nil {
		return Bubble{}, fmt.Errorf("invalid page %q", get("page"))
	}
	x, err := strconv.ParseFloat(get("Xpos"), 64)
	if err != nil {
		return Bubble{}, fmt.Errorf("invalid Xpos %q", get("Xpos"))
	}
	y, err := strconv.ParseFloat(get("Ypos"), 64)
	if err != nil {
		return Bubble{}, fmt.Errorf("invalid Ypos %q", get("Ypos"))
	}

	b := Bubble{
		Page:        page,
		Subquestion: get("subquestion"),
		Choice:      get("choice"),
		X:           x,
		Y:           y,
	}

	question := get("question")
	if parts := strings.Split(question, "-"); len(parts) >= 3 {
		problem, err := strconv.Atoi(parts[0])
		if err != nil {
			return Bubble{}, fmt.Errorf("invalid numeric question base in %q", question)
		}
		position, err := strconv.Atoi(parts[1])
		if err != nil {
			return Bubble{}, fmt.Errorf("invalid numeric question position in %q", question)
		}
		digit := parts[2]
		if len(digit) != 1 || !strings.ContainsAny(digit, "0123456789DS") {
			return Bubble{}, fmt.Errorf("invalid digit code %q in question %q", digit, question)
		}
		b.Kind = DigitCell
		b.Problem = problem
		b.Position = position
		b.Digit = digit[0]
		return b, nil
	}

	problem, err := strconv.Atoi(question)
	if err != nil {
		return Bubble{}, fmt.Errorf("invalid question %q: must be a number or <base>-<position>-<digit>", question)
	}
	b.Kind = Choice
	b.Problem = problem
	if b.Choice == "" {
		return Bubble{}, fmt.Errorf("multiple-choice bubble %d.%s has no choice letter", problem, b.Subquestion)
	}
	return b, nil
}
