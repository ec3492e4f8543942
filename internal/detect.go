package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DetectParams are the empirically tuned constants driving the detection
// passes. Values come from configuration; see DefaultDetectParams.
type DetectParams struct {
	MinYear            int
	AgreementTolerance time.Duration
	ReliableWeight     int

	ClusterWindow time.Duration

	ExactDistanceMax   int // Hamming distance ceiling for the exact band
	SimilarDistanceMax int // Hamming distance ceiling for the similar band

	BurstGap    time.Duration
	PanoramaGap time.Duration
}

// DefaultDetectParams returns the tuned defaults. They hold up on typical
// phone and camera imports but should be validated against a labeled set
// before being trusted on a new corpus.
func DefaultDetectParams() DetectParams {
	return DetectParams{
		MinYear:            2000,
		AgreementTolerance: time.Second,
		ReliableWeight:     8,
		ClusterWindow:      5 * time.Second,
		ExactDistanceMax:   5,
		SimilarDistanceMax: 20,
		BurstGap:           2 * time.Second,
		PanoramaGap:        30 * time.Second,
	}
}

func (d DetectParams) scoreParams() ScoreParams {
	return ScoreParams{
		MinYear:            d.MinYear,
		AgreementTolerance: d.AgreementTolerance,
		ReliableWeight:     d.ReliableWeight,
	}
}

// Detector runs the full post-processing pass over one batch: timestamp
// scoring, exact-hash grouping, temporal clustering and perceptual
// similarity analysis. The pass is single threaded and deterministic:
// the same files always yield the same groups and confidences.
type Detector struct {
	params DetectParams
	log    zerolog.Logger
}

// NewDetector creates a detector with the given tunables.
func NewDetector(params DetectParams, log zerolog.Logger) *Detector {
	return &Detector{params: params, log: log}
}

// Run executes all detection passes over the batch arena and returns the
// resulting summary. A failure on one file flags that file and excludes it
// from grouping; it never aborts the batch. The context is checked at
// cluster boundaries, the natural suspension points, so very large batches
// can be cancelled between independent chunks of work.
func (d *Detector) Run(ctx context.Context, batch *Batch) (Summary, error) {
	if resolutionBegun(batch) {
		return Summary{}, ErrResolutionBegun
	}
	files := batch.FilesInOrder()

	for _, f := range files {
		if f.ContentHash != "" && !isHexDigest(f.ContentHash) {
			f.Flagged = true
			f.FlagReason = fmt.Sprintf("corrupt content hash %q", f.ContentHash)
			f.ContentHash = ""
			d.log.Warn().Str("file", f.ID).Msg("excluding file with corrupt hash from grouping")
		}
	}

	scoreBatchTimestamps(batch, d.params.scoreParams())

	exactUF := newUnionFind()
	similarUF := newUnionFind()

	// Pass 1: cryptographic equality, the strongest possible evidence.
	for _, members := range groupByContentHash(files) {
		anchor := members[0]
		for _, f := range members[1:] {
			exactUF.union(anchor.ID, f.ID, ConfidenceHigh, SimilarKindNone)
		}
	}

	// Pass 2 + 3: temporal clustering bounds the perceptual comparisons.
	for _, cluster := range clusterByTime(files, d.params.ClusterWindow) {
		if err := ctx.Err(); err != nil {
			return Summary{}, fmt.Errorf("detection cancelled: %w", err)
		}
		comparePairs(cluster, d.params, exactUF, similarUF)
	}

	flattenGroups(batch, exactUF, similarUF)
	batch.DetectionDone = true

	summary := batch.Summarize()
	d.log.Info().
		Str("batch", batch.ID).
		Int("files", summary.FileCount).
		Int("exact_groups", summary.ExactGroupCount).
		Int("similar_groups", summary.SimilarGroupCount).
		Int("flagged", summary.FlaggedCount).
		Msg("detection pass complete")
	return summary, nil
}

// flattenGroups converts union-find sets into final group ids and writes
// membership onto the files and the batch side tables. Sets are flattened
// in batch order, so reruns over an unchanged batch produce identical
// groups up to id renaming.
func flattenGroups(batch *Batch, exactUF, similarUF *unionFind) {
	batch.ExactGroups = make(map[string]*Group)
	batch.SimilarGroups = make(map[string]*Group)

	for _, f := range batch.Files {
		f.ExactGroupID = ""
		f.ExactGroupConfidence = ConfidenceNone
		f.SimilarGroupID = ""
		f.SimilarGroupConfidence = ConfidenceNone
		f.SimilarGroupKind = SimilarKindNone
	}

	for _, set := range exactUF.sets(batch.Order) {
		if len(set.Members) < 2 {
			continue
		}
		g := &Group{
			ID:      uuid.NewString(),
			Members: set.Members,
			// Exact evidence is never diluted: cryptographic matches and
			// temporally corroborated perceptual matches both rate high.
			Confidence: ConfidenceHigh,
			State:      GroupOpen,
		}
		batch.ExactGroups[g.ID] = g
		for _, id := range set.Members {
			f := batch.Files[id]
			f.ExactGroupID = g.ID
			f.ExactGroupConfidence = g.Confidence
		}
	}

	for _, set := range similarUF.sets(batch.Order) {
		if len(set.Members) < 2 {
			continue
		}
		g := &Group{
			ID:         uuid.NewString(),
			Members:    set.Members,
			Confidence: set.Confidence,
			Kind:       set.Kind,
			State:      GroupOpen,
		}
		batch.SimilarGroups[g.ID] = g
		for _, id := range set.Members {
			f := batch.Files[id]
			f.SimilarGroupID = g.ID
			f.SimilarGroupConfidence = g.Confidence
			f.SimilarGroupKind = g.Kind
		}
	}
}

// isHexDigest reports whether s looks like a SHA-256 hex digest.
func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
