// Package reports records user complaints about broken questions. Writes
// are write-behind: the submit call returns immediately and a failed disk
// write is logged, never surfaced.
package reports

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Report is one complaint entry as persisted to the reports file.
type Report struct {
	Time     string `json:"tarih"`
	Reporter string `json:"raporlayan"`
	Question string `json:"soru"`
	Source   string `json:"deneme,omitempty"`
	Reason   string `json:"mesaj"`
}

// Recorder appends reports to a JSON file.
type Recorder struct {
	path string
	mu   sync.Mutex
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Submit stamps and persists a report asynchronously.
func (r *Recorder) Submit(rep Report) {
	rep.Time = time.Now().Format("02.01.2006 15:04:05")
	go r.persist(rep)
}

func (r *Recorder) persist(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing []Report
	if raw, err := os.ReadFile(r.path); err == nil {
		// A corrupt reports file starts over; reports are best-effort.
		if err := json.Unmarshal(raw, &existing); err != nil {
			log.Warn().Err(err).Str("path", r.path).Msg("reports file corrupt, starting fresh")
			existing = nil
		}
	}
	existing = append(existing, rep)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal reports")
		return
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		log.Error().Err(err).Str("path", r.path).Msg("failed to persist report")
	}
}
