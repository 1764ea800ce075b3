// Package bubble models the answer-sheet bubble table: where every
// fillable circle sits on each page and what marking it means.
package bubble

import (
	"fmt"
)

// Kind distinguishes the two bubble variants on a sheet.
type Kind int

const (
	// Choice is one selectable letter of a multiple-choice question.
	Choice Kind = iota
	// DigitCell is one slot of a numeric answer grid. A marked slot
	// contributes a digit, decimal point or fraction slash to the
	// assembled answer string.
	DigitCell
)

// Digit codes used by DigitCell bubbles in addition to '0'-'9'.
const (
	DecimalPoint  = 'D' // rendered as '.' in assembled answers
	FractionSlash = 'S' // rendered as '/' in assembled answers
)

// Bubble is one circular mark position. Page plus Column() uniquely
// identify a bubble; all bubbles on a page share the coordinate frame
// established by that page's corner markers.
type Bubble struct {
	Page        int
	Problem     int    // base question number
	Subquestion string // e.g. "i", "ii"
	Kind        Kind

	// Choice is the selectable letter for Choice bubbles. For DigitCell
	// bubbles it carries the letter of the multiple-choice option the
	// numeric grid is attached to (the "Other" choice), which drives
	// answer suppression.
	Choice string

	// Position and Digit apply to DigitCell bubbles only.
	Position int
	Digit    byte

	// Center in LaTeX points within the page frame.
	X float64
	Y float64
}

// AnswerKey identifies one answerable question part, e.g. "3.i".
type AnswerKey struct {
	Problem     int
	Subquestion string
}

func (k AnswerKey) String() string {
	return fmt.Sprintf("%d.%s", k.Problem, k.Subquestion)
}

// Answer returns the question part this bubble belongs to.
func (b Bubble) Answer() AnswerKey {
	return AnswerKey{Problem: b.Problem, Subquestion: b.Subquestion}
}

// Sentinel returns true for decimal-point and fraction-slash cells. They
// have no printed circle to sample, are excluded from threshold
// calculation, and count as always marked during assembly.
func (b Bubble) Sentinel() bool {
	return b.Kind == DigitCell && (b.Digit == DecimalPoint || b.Digit == FractionSlash)
}

// Symbol returns the character a marked DigitCell contributes to a numeric
// answer string.
func (b Bubble) Symbol() byte {
	switch b.Digit {
	case DecimalPoint:
		return '.'
	case FractionSlash:
		return '/'
	default:
		return b.Digit
	}
}

// Column returns the bubble's column name in per-page CSV output,
// "problem.subquestion_choice" for choices and
// "problem.subquestion_problem-position-digit" for digit cells. The format
// is shared with the sheet layout tooling and must not change.
func (b Bubble) Column() string {
	if b.Kind == DigitCell {
		return fmt.Sprintf("%d.%s_%d-%d-%c", b.Problem, b.Subquestion, b.Problem, b.Position, b.Digit)
	}
	return fmt.Sprintf("%d.%s_%s", b.Problem, b.Subquestion, b.Choice)
}
