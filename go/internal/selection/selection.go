// Package selection turns the question corpus into one session's ordered
// question sequence: filtering, subject-priority grouping, balanced
// distribution, and uniform shuffling. Everything here is pure with respect
// to its inputs except for the caller-supplied random source.
package selection

import (
	"math/rand"
	"strings"

	"github.com/mertyk/kpss-arena/go/internal/question"
)

const (
	// SentinelAll disables a filter ("all subjects", "all difficulties"...).
	SentinelAll = "HEPSI"
	// SourceOriginals is the pseudo-source selecting every question not
	// tagged as a previously-administered exam reuse.
	SourceOriginals = "OZGUN_SORULAR"

	// DefaultCount is the question count used when a request names none.
	DefaultCount = 20
)

// subjectPriority is the fixed pedagogical ordering. A question joins the
// first group whose keyword its normalized subject contains, so
// "İNKILAP TARİHİ" lands in the TARİH group.
var subjectPriority = []string{
	"TARİH",
	"COĞRAFYA",
	"VATANDAŞLIK",
	"GÜNCEL BİLGİLER",
	"EĞİTİM BİLİMLERİ",
}

// Config is a resolved set of selection filters for one session.
type Config struct {
	Count       int
	Subjects    []string // empty or containing SentinelAll means no filter
	Difficulty  string   // empty or SentinelAll means no filter
	OptionCount int      // 0 means no filter
	MistakeMode bool
	MistakeList []string // exact question texts, compared trim-insensitively
	Sources     []string // empty or containing SentinelAll means no filter
}

// Select produces the ordered, option-shuffled question sequence for one
// session. Mistake sessions get a pure full shuffle; everything else gets
// balanced subject distribution. An empty result is returned as-is — the
// caller substitutes a placeholder.
func Select(pool []question.Record, cfg Config, rng *rand.Rand) []question.Record {
	count := cfg.Count
	if count <= 0 {
		count = DefaultCount
	}

	if cfg.MistakeMode {
		if len(cfg.MistakeList) == 0 {
			return nil
		}
		matched := FilterByMistakes(pool, cfg.MistakeList)
		matched = FilterBySubject(matched, cfg.Subjects)
		return shuffleOptions(Shuffled(matched, count, rng), rng)
	}

	filtered := FilterBySources(pool, cfg.Sources)
	filtered = FilterBySubject(filtered, cfg.Subjects)
	filtered = FilterByDifficulty(filtered, cfg.Difficulty)
	filtered = FilterByOptionCount(filtered, cfg.OptionCount)
	return shuffleOptions(Balanced(filtered, count, rng), rng)
}

func shuffleOptions(records []question.Record, rng *rand.Rand) []question.Record {
	for i, r := range records {
		records[i] = r.WithShuffledOptions(rng)
	}
	return records
}

// FilterBySubject keeps questions whose normalized subject matches one of the
// requested labels. An empty set or the SentinelAll label keeps everything.
func FilterBySubject(pool []question.Record, subjects []string) []question.Record {
	if len(subjects) == 0 {
		return pool
	}
	targets := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		label := question.NormalizeLabel(s)
		if label == SentinelAll {
			return pool
		}
		targets[label] = struct{}{}
	}

	var out []question.Record
	for _, r := range pool {
		if _, ok := targets[r.SubjectLabel()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterByDifficulty keeps questions whose difficulty (defaulting to ORTA)
// matches the requested label exactly.
func FilterByDifficulty(pool []question.Record, difficulty string) []question.Record {
	target := question.NormalizeLabel(difficulty)
	if target == "" || target == SentinelAll {
		return pool
	}
	var out []question.Record
	for _, r := range pool {
		if r.DifficultyLabel() == target {
			out = append(out, r)
		}
	}
	return out
}

// FilterByOptionCount keeps questions with exactly n options; n <= 0 keeps
// everything.
func FilterByOptionCount(pool []question.Record, n int) []question.Record {
	if n <= 0 {
		return pool
	}
	var out []question.Record
	for _, r := range pool {
		if len(r.Options) == n {
			out = append(out, r)
		}
	}
	return out
}

// FilterByMistakes keeps questions whose text matches one of the stored
// mistake texts. Both sides are compared with surrounding whitespace
// trimmed; clients persist texts with stray padding, and a naive exact
// match silently drops valid mistakes.
func FilterByMistakes(pool []question.Record, mistakes []string) []question.Record {
	targets := make(map[string]struct{}, len(mistakes))
	for _, m := range mistakes {
		targets[strings.TrimSpace(m)] = struct{}{}
	}
	var out []question.Record
	for _, r := range pool {
		if _, ok := targets[strings.TrimSpace(r.Text)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterBySources keeps questions from the named source sets. The
// SourceOriginals pseudo-source contributes every question not tagged as a
// retired exam question; the union with concretely named sources is
// deduplicated while preserving pool order.
func FilterBySources(pool []question.Record, sources []string) []question.Record {
	if len(sources) == 0 {
		return pool
	}
	named := make(map[string]struct{}, len(sources))
	originals := false
	for _, s := range sources {
		if s == SentinelAll {
			return pool
		}
		if s == SourceOriginals {
			originals = true
			continue
		}
		named[s] = struct{}{}
	}

	var out []question.Record
	for _, r := range pool {
		_, fromNamed := named[r.Source]
		fromOriginals := originals && question.NormalizeLabel(r.Difficulty) != question.RetiredDifficulty
		if fromNamed || fromOriginals {
			out = append(out, r)
		}
	}
	return out
}
