package model

import "strings"

// Label is a confidence tier.
type Label string

const (
	LabelLow    Label = "low"
	LabelMedium Label = "medium"
	LabelHigh   Label = "high"
)

// Rank orders labels: low < medium < high. Unknown labels rank below low.
func (l Label) Rank() int {
	switch l {
	case LabelLow:
		return 0
	case LabelMedium:
		return 1
	case LabelHigh:
		return 2
	default:
		return -1
	}
}

// Valid reports whether l is a known label.
func (l Label) Valid() bool { return l.Rank() >= 0 }

// ParseLabel lower-cases raw and returns it when it names a known label.
func ParseLabel(raw string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	return l, l.Valid()
}

// LabelFromRank is the inverse of Rank, clamped to [low, high].
func LabelFromRank(r int) Label {
	switch {
	case r <= 0:
		return LabelLow
	case r == 1:
		return LabelMedium
	default:
		return LabelHigh
	}
}

// MinLabel returns the lower of two labels.
func MinLabel(a, b Label) Label {
	if a.Rank() <= b.Rank() {
		return a
	}
	return b
}

// Verdict is a confidence label with a short explanation.
type Verdict struct {
	Label     Label  `json:"label"`
	Rationale string `json:"rationale"`
}
