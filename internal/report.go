package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// BatchReport is the review-oriented view of a batch: what the scorer
// decided, what the grouping passes found and what still needs a human.
type BatchReport struct {
	BatchID   string    `json:"batch_id"`
	SourceDir string    `json:"source_dir"`
	CreatedAt time.Time `json:"created_at"`

	TotalFiles   int `json:"total_files"`
	FlaggedFiles int `json:"flagged_files"`

	TimestampConfidence map[string]int `json:"timestamp_confidence"`

	ExactGroups   []GroupReport `json:"exact_groups"`
	SimilarGroups []GroupReport `json:"similar_groups"`

	SimilarKinds map[string]int `json:"similar_kinds"`

	UnresolvedExactFiles int `json:"unresolved_exact_files"`
	UnresolvedSimilar    int `json:"unresolved_similar_files"`

	Flagged []FlaggedFile `json:"flagged,omitempty"`
}

// GroupReport is one group in the review listing.
type GroupReport struct {
	ID         string   `json:"id"`
	Members    []string `json:"members"`
	Confidence string   `json:"confidence"`
	Kind       string   `json:"kind,omitempty"`
	State      string   `json:"state"`
}

// FlaggedFile is one excluded file with its reason.
type FlaggedFile struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BuildReport assembles the report for a detected batch.
func BuildReport(b *Batch) *BatchReport {
	r := &BatchReport{
		BatchID:             b.ID,
		SourceDir:           b.SourceDir,
		CreatedAt:           b.CreatedAt,
		TotalFiles:          len(b.Files),
		TimestampConfidence: make(map[string]int),
		SimilarKinds:        make(map[string]int),
	}

	for _, f := range b.FilesInOrder() {
		if f.Flagged {
			r.FlaggedFiles++
			r.Flagged = append(r.Flagged, FlaggedFile{ID: f.ID, Reason: f.FlagReason})
			continue
		}
		r.TimestampConfidence[f.TimestampConfidence.String()]++
	}

	r.ExactGroups = groupReports(b.ExactGroups)
	r.SimilarGroups = groupReports(b.SimilarGroups)

	for _, g := range b.SimilarGroups {
		if g.Kind != SimilarKindNone {
			r.SimilarKinds[g.Kind.String()]++
		}
	}

	s := b.Summarize()
	r.UnresolvedExactFiles = s.UnresolvedExactFiles
	r.UnresolvedSimilar = s.UnresolvedSimilar

	return r
}

func groupReports(groups map[string]*Group) []GroupReport {
	out := make([]GroupReport, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupReport{
			ID:         g.ID,
			Members:    g.Members,
			Confidence: g.Confidence.String(),
			Kind:       g.Kind.String(),
			State:      g.State.String(),
		})
	}
	// Group ids are random, so order by first member for a stable listing
	sort.Slice(out, func(i, j int) bool {
		var a, b string
		if len(out[i].Members) > 0 {
			a = out[i].Members[0]
		}
		if len(out[j].Members) > 0 {
			b = out[j].Members[0]
		}
		return a < b
	})
	return out
}

// WriteJSON renders the report as indented JSON.
func (r *BatchReport) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// WriteText renders the report for a terminal.
func (r *BatchReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "=== Batch %s ===\n", r.BatchID)
	fmt.Fprintf(w, "Source:  %s\n", r.SourceDir)
	fmt.Fprintf(w, "Created: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "📊 Overview:\n")
	fmt.Fprintf(w, "  - %d files", r.TotalFiles)
	if r.FlaggedFiles > 0 {
		fmt.Fprintf(w, " (%d flagged)", r.FlaggedFiles)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "\n🕐 Timestamp confidence:\n")
	for _, level := range []Confidence{ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceNone} {
		if count := r.TimestampConfidence[level.String()]; count > 0 {
			fmt.Fprintf(w, "  - %-6s %d\n", level.String()+":", count)
		}
	}

	fmt.Fprintf(w, "\n🔍 Duplicate groups:\n")
	fmt.Fprintf(w, "  - exact:   %d groups, %d files unresolved\n", len(r.ExactGroups), r.UnresolvedExactFiles)
	fmt.Fprintf(w, "  - similar: %d groups, %d files unresolved\n", len(r.SimilarGroups), r.UnresolvedSimilar)
	if len(r.SimilarKinds) > 0 {
		var kinds []string
		for _, k := range []SimilarKind{SimilarKindBurst, SimilarKindPanorama, SimilarKindGeneric} {
			if count := r.SimilarKinds[k.String()]; count > 0 {
				kinds = append(kinds, fmt.Sprintf("%d %s", count, k.String()))
			}
		}
		fmt.Fprintf(w, "    (%s)\n", strings.Join(kinds, ", "))
	}

	if len(r.Flagged) > 0 {
		fmt.Fprintf(w, "\n⚠️  Flagged files:\n")
		for _, f := range r.Flagged {
			fmt.Fprintf(w, "  - %s: %s\n", f.ID, f.Reason)
		}
	}

	if r.UnresolvedExactFiles+r.UnresolvedSimilar > 0 {
		fmt.Fprintf(w, "\n💡 Run: shoebox review list\n")
	}

	return nil
}
