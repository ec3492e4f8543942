package internal

import (
	"sort"
	"time"
)

// ScoreParams are the tunables for timestamp selection.
type ScoreParams struct {
	// MinYear rejects candidates before this year (epoch defaults,
	// firmware-bug dates).
	MinYear int
	// AgreementTolerance is the window within which two candidates are
	// considered to agree on the capture time.
	AgreementTolerance time.Duration
	// ReliableWeight is the minimum source weight treated as an
	// original-capture-class source.
	ReliableWeight int
}

// ScoreTimestamp picks the most plausible capture timestamp from the
// candidates a file carries and rates how much it can be trusted.
//
// Candidates older than MinYear are dropped. Of the survivors the earliest
// wins: export, edit and burst timestamps tend to be later than the true
// capture time, so the earliest plausible value is the least corrupted
// estimate. The returned slice is the full original candidate list so the
// caller can present a side-by-side comparison for manual override; it is
// empty only when no candidate survived the year floor.
func ScoreTimestamp(candidates []Candidate, params ScoreParams) (time.Time, Confidence, []Candidate) {
	valid := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Value.Year() >= params.MinYear {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return time.Time{}, ConfidenceNone, nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Value.Before(valid[j].Value)
	})
	selected := valid[0]

	// Agreement set: everything within tolerance of the selected value.
	// Only a different source counts as corroboration.
	agrees := false
	for _, c := range valid[1:] {
		if c.Source == selected.Source {
			continue
		}
		gap := c.Value.Sub(selected.Value)
		if gap < 0 {
			gap = -gap
		}
		if gap <= params.AgreementTolerance {
			agrees = true
			break
		}
	}

	reliable := selected.Weight >= params.ReliableWeight

	var confidence Confidence
	switch {
	case reliable && agrees:
		confidence = ConfidenceHigh
	case reliable || agrees:
		confidence = ConfidenceMedium
	default:
		confidence = ConfidenceLow
	}

	return selected.Value, confidence, candidates
}

// scoreBatchTimestamps runs the scorer over every file in the arena.
func scoreBatchTimestamps(b *Batch, params ScoreParams) {
	for _, f := range b.FilesInOrder() {
		selected, confidence, kept := ScoreTimestamp(f.Candidates, params)
		f.SelectedAt = selected
		f.TimestampConfidence = confidence
		if kept == nil {
			f.Candidates = nil
		}
	}
}
