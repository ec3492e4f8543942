package internal

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(id string, hash string, at time.Time) *MediaFile {
	f := &MediaFile{
		ID:          id,
		Path:        "/media/" + id,
		ContentHash: hash,
	}
	if !at.IsZero() {
		f.Candidates = []Candidate{{
			Value:  at,
			Source: SourceExifOriginal,
			Weight: SourceExifOriginal.DefaultWeight(),
		}}
	}
	return f
}

func withPerceptual(f *MediaFile, hash uint64) *MediaFile {
	f.PerceptualHash = &hash
	return f
}

func detect(t *testing.T, files ...*MediaFile) *Batch {
	t.Helper()
	batch := NewBatch("test-batch", "/media")
	for _, f := range files {
		require.NoError(t, batch.Add(f))
	}
	detector := NewDetector(DefaultDetectParams(), zerolog.Nop())
	_, err := detector.Run(context.Background(), batch)
	require.NoError(t, err)
	return batch
}

func TestDetector_ExactByContentHash(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		testFile("a.jpg", hashOf('1'), at),
		testFile("b.jpg", hashOf('2'), at.Add(time.Hour)),
		testFile("c.jpg", hashOf('1'), at.Add(2*time.Hour)),
	)

	require.Len(t, batch.ExactGroups, 1)
	for _, g := range batch.ExactGroups {
		assert.Equal(t, []string{"a.jpg", "c.jpg"}, g.Members)
		assert.Equal(t, ConfidenceHigh, g.Confidence)
		assert.Equal(t, GroupOpen, g.State)
		assert.Equal(t, g.ID, batch.Files["a.jpg"].ExactGroupID)
		assert.Equal(t, g.ID, batch.Files["c.jpg"].ExactGroupID)
	}
	assert.Empty(t, batch.Files["b.jpg"].ExactGroupID)
	assert.Empty(t, batch.SimilarGroups)
	assert.True(t, batch.DetectionDone)
}

func TestDetector_ReencodeDetectedPerceptually(t *testing.T) {
	// Same scene saved twice with different bytes: the content hashes
	// differ but the perceptual hashes are nearly identical.
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		withPerceptual(testFile("orig.jpg", hashOf('1'), at), 0xABCD),
		withPerceptual(testFile("export.jpg", hashOf('2'), at.Add(2*time.Second)), 0xABCD^0b111),
	)

	require.Len(t, batch.ExactGroups, 1)
	for _, g := range batch.ExactGroups {
		assert.Equal(t, []string{"orig.jpg", "export.jpg"}, g.Members)
		assert.Equal(t, ConfidenceHigh, g.Confidence)
	}
	assert.Empty(t, batch.SimilarGroups)
}

func TestDetector_BurstSequence(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	// Disjoint nibbles keep every pairwise distance at 8, inside the
	// strongest third of the similar band.
	files := make([]*MediaFile, 5)
	for i := range files {
		id := string(rune('a'+i)) + ".jpg"
		f := testFile(id, hashOf(byte('1'+i)), at.Add(time.Duration(i)*200*time.Millisecond))
		files[i] = withPerceptual(f, uint64(0xF)<<(4*i))
	}
	batch := detect(t, files...)

	assert.Empty(t, batch.ExactGroups)
	require.Len(t, batch.SimilarGroups, 1)
	for _, g := range batch.SimilarGroups {
		assert.Len(t, g.Members, 5)
		assert.Equal(t, ConfidenceHigh, g.Confidence)
		assert.Equal(t, SimilarKindBurst, g.Kind)
	}
}

func TestDetector_PanoramaKind(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		withPerceptual(testFile("p1.jpg", hashOf('1'), at), uint64(0xF)),
		withPerceptual(testFile("p2.jpg", hashOf('2'), at.Add(3*time.Second)), uint64(0xF0)),
		withPerceptual(testFile("p3.jpg", hashOf('3'), at.Add(6*time.Second)), uint64(0xF00)),
	)

	require.Len(t, batch.SimilarGroups, 1)
	for _, g := range batch.SimilarGroups {
		assert.Len(t, g.Members, 3)
		assert.Equal(t, SimilarKindPanorama, g.Kind)
	}
}

func TestDetector_UnrelatedBeyondBand(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		withPerceptual(testFile("a.jpg", hashOf('1'), at), 0),
		withPerceptual(testFile("b.jpg", hashOf('2'), at.Add(time.Second)), 1<<25-1),
	)

	assert.Empty(t, batch.ExactGroups)
	assert.Empty(t, batch.SimilarGroups)
}

func TestDetector_TransitiveExactMerge(t *testing.T) {
	// a and b share bytes; b and c share pixels. All three belong in one
	// exact group.
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		testFile("a.jpg", hashOf('1'), at),
		withPerceptual(testFile("b.jpg", hashOf('1'), at.Add(time.Second)), 0xFF),
		withPerceptual(testFile("c.jpg", hashOf('2'), at.Add(2*time.Second)), 0xFF^0b11),
	)

	require.Len(t, batch.ExactGroups, 1)
	for _, g := range batch.ExactGroups {
		assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, g.Members)
		assert.Equal(t, ConfidenceHigh, g.Confidence)
	}
}

func TestDetector_FlagsCorruptHash(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	corrupt := testFile("bad.jpg", "not-a-digest", at)
	batch := NewBatch("test-batch", "/media")
	require.NoError(t, batch.Add(corrupt))
	require.NoError(t, batch.Add(testFile("good.jpg", hashOf('1'), at)))

	detector := NewDetector(DefaultDetectParams(), zerolog.Nop())
	summary, err := detector.Run(context.Background(), batch)
	require.NoError(t, err)

	assert.True(t, corrupt.Flagged)
	assert.Empty(t, corrupt.ContentHash)
	assert.NotEmpty(t, corrupt.FlagReason)
	assert.Equal(t, 1, summary.FlaggedCount)
	assert.Empty(t, batch.ExactGroups)
}

func TestDetector_Idempotent(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		testFile("a.jpg", hashOf('1'), at),
		testFile("b.jpg", hashOf('1'), at.Add(time.Hour)),
		withPerceptual(testFile("c.jpg", hashOf('2'), at.Add(2*time.Hour)), 0xF),
		withPerceptual(testFile("d.jpg", hashOf('3'), at.Add(2*time.Hour+time.Second)), 0xF0),
	)
	first := memberSets(batch)

	detector := NewDetector(DefaultDetectParams(), zerolog.Nop())
	_, err := detector.Run(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, first, memberSets(batch), "rerun changed group membership")
}

func TestDetector_RerunAfterResolutionRejected(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := detect(t,
		testFile("a.jpg", hashOf('1'), at),
		testFile("b.jpg", hashOf('1'), at.Add(time.Second)),
	)

	resolver, err := NewResolver(batch, DefaultDetectParams(), zerolog.Nop())
	require.NoError(t, err)
	var groupID string
	for id := range batch.ExactGroups {
		groupID = id
	}
	require.NoError(t, resolver.ResolveExact(groupID, "a.jpg"))

	detector := NewDetector(DefaultDetectParams(), zerolog.Nop())
	_, err = detector.Run(context.Background(), batch)
	assert.ErrorIs(t, err, ErrResolutionBegun)
}

func TestDetector_Cancellation(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	batch := NewBatch("test-batch", "/media")
	require.NoError(t, batch.Add(withPerceptual(testFile("a.jpg", hashOf('1'), at), 0xF)))
	require.NoError(t, batch.Add(withPerceptual(testFile("b.jpg", hashOf('2'), at.Add(time.Second)), 0xF0)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	detector := NewDetector(DefaultDetectParams(), zerolog.Nop())
	_, err := detector.Run(ctx, batch)
	assert.ErrorIs(t, err, context.Canceled)
}

// memberSets extracts group memberships independent of the random ids.
func memberSets(batch *Batch) [][]string {
	var out [][]string
	for _, g := range batch.ExactGroups {
		out = append(out, append([]string{"exact"}, g.Members...))
	}
	for _, g := range batch.SimilarGroups {
		out = append(out, append([]string{"similar"}, g.Members...))
	}
	sort.Slice(out, func(i, j int) bool {
		for k := 0; k < len(out[i]) && k < len(out[j]); k++ {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return len(out[i]) < len(out[j])
	})
	return out
}
