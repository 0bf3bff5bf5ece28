package question

import (
	"math/rand"
	"strings"
	"unicode"
)

// Record is one multiple-choice question as stored in the corpus. Records are
// immutable once loaded; presentation copies carry shuffled options with the
// correct index recomputed. JSON field names follow the corpus file format.
type Record struct {
	Text        string   `json:"soru"`
	Subject     string   `json:"ders"`
	Options     []string `json:"siklar"`
	Correct     int      `json:"dogru"`
	Difficulty  string   `json:"zorluk,omitempty"`
	Source      string   `json:"deneme,omitempty"`
	Image       string   `json:"resim,omitempty"`
	Explanation string   `json:"cozum,omitempty"`
}

const (
	// DefaultSubject labels questions that carry no subject of their own.
	DefaultSubject = "GENEL"
	// DefaultDifficulty labels questions that carry no difficulty tag.
	DefaultDifficulty = "ORTA"
)

// NormalizeLabel trims a subject/difficulty/source label and upper-cases it
// with Turkish casing rules, so "tarih " and "TARİH" compare equal.
func NormalizeLabel(s string) string {
	return strings.ToUpperSpecial(unicode.TurkishCase, strings.TrimSpace(s))
}

// SubjectLabel returns the normalized subject, falling back to DefaultSubject.
func (r Record) SubjectLabel() string {
	label := NormalizeLabel(r.Subject)
	if label == "" {
		return DefaultSubject
	}
	return label
}

// DifficultyLabel returns the normalized difficulty, falling back to
// DefaultDifficulty.
func (r Record) DifficultyLabel() string {
	label := NormalizeLabel(r.Difficulty)
	if label == "" {
		return DefaultDifficulty
	}
	return label
}

// WithShuffledOptions returns a copy of the record with its options uniformly
// permuted and Correct pointing at the relocated correct option. The correct
// index is tracked through the swaps rather than re-located by text, so
// duplicate option texts cannot misplace it.
func (r Record) WithShuffledOptions(rng *rand.Rand) Record {
	out := r
	out.Options = make([]string, len(r.Options))
	copy(out.Options, r.Options)

	correct := r.Correct
	rng.Shuffle(len(out.Options), func(i, j int) {
		out.Options[i], out.Options[j] = out.Options[j], out.Options[i]
		switch correct {
		case i:
			correct = j
		case j:
			correct = i
		}
	})
	out.Correct = correct
	return out
}

// Placeholder builds the synthetic single-option question substituted when a
// selection or corpus load comes up empty, keeping the room engine from
// stalling on a zero-length sequence.
func Placeholder(text string) Record {
	return Record{
		Text:    text,
		Subject: "UYARI",
		Options: []string{"Tamam"},
		Correct: 0,
	}
}
