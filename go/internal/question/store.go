package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// RetiredDifficulty tags previously-administered exam questions. The
// OZGUN_SORULAR pseudo-source selects everything not tagged with it.
const RetiredDifficulty = "ÇIKMIŞ"

// Store holds the question corpus loaded once at startup. Reads are served
// from memory; appends persist write-behind so no room-event handler ever
// waits on disk.
type Store struct {
	path string

	mu      sync.RWMutex
	records []Record
}

var (
	objectPattern = regexp.MustCompile(`(?s)\{.*?\}`)
	arraySeam     = regexp.MustCompile(`\]\s*,?\s*\[`)
)

// Load reads the corpus file, repairing the common corruption patterns the
// file accumulates (concatenated arrays, doubled brackets). A file damaged
// beyond repair degrades to a single system-error record; a missing file
// yields a sample record. Load never fails the process.
func Load(path string) *Store {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("question file not found, using sample record")
		s.records = []Record{{
			Text:    "Örnek Soru",
			Subject: DefaultSubject,
			Options: []string{"A", "B"},
			Correct: 0,
		}}
		return s
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("question file unreadable")
		s.records = []Record{Placeholder("SİSTEM HATASI: Sorular yüklenemedi.")}
		return s
	}

	records, err := parseCorpus(raw)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("question file unrecoverable")
		s.records = []Record{Placeholder("SİSTEM HATASI: Sorular yüklenemedi.")}
		return s
	}

	s.records = records
	log.Info().Int("count", len(records)).Str("path", path).Msg("question corpus loaded")
	return s
}

// parseCorpus decodes the corpus, first repairing bracket damage, then as a
// last resort re-extracting individual objects from the raw text.
func parseCorpus(raw []byte) ([]Record, error) {
	text := strings.TrimSpace(string(raw))
	text = arraySeam.ReplaceAllString(text, ",")
	for strings.HasPrefix(text, "[[") {
		text = strings.Replace(text, "[[", "[", 1)
	}
	for strings.HasSuffix(text, "]]") {
		text = text[:len(text)-1]
	}

	var records []Record
	if err := json.Unmarshal([]byte(text), &records); err == nil {
		return records, nil
	}

	log.Warn().Msg("question file corrupt, attempting object recovery")
	objects := objectPattern.FindAllString(text, -1)
	if len(objects) == 0 {
		return nil, fmt.Errorf("no recoverable objects in corpus")
	}
	repaired := "[" + strings.Join(objects, ",") + "]"
	if err := json.Unmarshal([]byte(repaired), &records); err != nil {
		return nil, fmt.Errorf("recovery parse failed: %w", err)
	}
	log.Info().Int("count", len(records)).Msg("question corpus recovered")
	return records, nil
}

// All returns a copy of the corpus in load order.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Append adds a record in memory and persists the corpus write-behind. The
// in-memory state is authoritative; a failed write is logged and never
// reverted.
func (s *Store) Append(r Record) {
	s.mu.Lock()
	s.records = append(s.records, r)
	snapshot := make([]Record, len(s.records))
	copy(snapshot, s.records)
	s.mu.Unlock()

	go func() {
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal question corpus")
			return
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			log.Error().Err(err).Str("path", s.path).Msg("failed to persist question corpus")
		}
	}()
}

// Subjects returns the sorted set of normalized subject labels present in
// the corpus.
func (s *Store) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var subjects []string
	for _, r := range s.records {
		label := NormalizeLabel(r.Subject)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		subjects = append(subjects, label)
	}
	sort.Strings(subjects)
	return subjects
}

// SourceCounts returns the per-source question counts and the number of
// original (non-retired) questions, for the connect-time set list.
func (s *Store) SourceCounts() (map[string]int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	originals := 0
	for _, r := range s.records {
		if r.Source != "" {
			counts[r.Source]++
		}
		if NormalizeLabel(r.Difficulty) != RetiredDifficulty {
			originals++
		}
	}
	return counts, originals
}
