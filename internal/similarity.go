package internal

import "time"

// pairClass is the outcome of comparing one pair of perceptual hashes.
type pairClass int

const (
	pairUnrelated pairClass = iota
	pairExact               // re-encode, resize, light recompression
	pairSimilar             // burst frame, panorama fragment, near match
)

// classifyDistance maps a Hamming distance onto a relationship band.
func classifyDistance(distance int, params DetectParams) pairClass {
	switch {
	case distance <= params.ExactDistanceMax:
		return pairExact
	case distance <= params.SimilarDistanceMax:
		return pairSimilar
	default:
		return pairUnrelated
	}
}

// similarConfidence rates a similar-band distance. The band is split into
// thirds: the closer the hashes, the stronger the evidence.
func similarConfidence(distance int, params DetectParams) Confidence {
	span := params.SimilarDistanceMax - params.ExactDistanceMax
	third := span / 3
	switch {
	case distance <= params.ExactDistanceMax+third:
		return ConfidenceHigh
	case distance <= params.ExactDistanceMax+2*third:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// similarKindForGap sub-classifies a similar pair by capture-time distance.
func similarKindForGap(gap time.Duration, params DetectParams) SimilarKind {
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap < params.BurstGap:
		return SimilarKindBurst
	case gap < params.PanoramaGap:
		return SimilarKindPanorama
	default:
		return SimilarKindGeneric
	}
}

// comparePairs runs the pairwise perceptual comparison inside one temporal
// cluster and records merges into the two union-finds. Exact-band pairs go
// to the exact structure so they coalesce with cryptographic-hash groups;
// similar-band pairs carry banded confidence and a gap-derived kind.
// Clusters are small in practice, so the quadratic inner loop is bounded.
func comparePairs(cluster []*MediaFile, params DetectParams, exact, similar *unionFind) {
	for i := 0; i < len(cluster); i++ {
		for j := i + 1; j < len(cluster); j++ {
			a, b := cluster[i], cluster[j]
			distance := HammingDistance(*a.PerceptualHash, *b.PerceptualHash)
			switch classifyDistance(distance, params) {
			case pairExact:
				// Temporal co-location corroborates the visual match, so
				// perceptually merged exact pairs rate the same as
				// cryptographic ones.
				exact.union(a.ID, b.ID, ConfidenceHigh, SimilarKindNone)
			case pairSimilar:
				kind := similarKindForGap(b.SelectedAt.Sub(a.SelectedAt), params)
				similar.union(a.ID, b.ID, similarConfidence(distance, params), kind)
			}
		}
	}
}
