package internal

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BuildBatch reads hashes and candidate timestamps for every scanned file
// and assembles the batch arena the detection pass runs over. File ids are
// paths relative to the source directory, which keeps ids stable across
// repeated imports of the same tree.
//
// Per-file failures never abort the batch: a file whose bytes cannot be
// hashed is flagged and excluded from grouping, and a file whose image
// cannot be decoded simply has no perceptual hash. The categorized
// failures are returned alongside the batch for audit logging.
func BuildBatch(ctx context.Context, sourceDir string, entries []ScanEntry, ex *Extractor, log zerolog.Logger) (*Batch, []*ProcessError, error) {
	batch := NewBatch(uuid.NewString(), sourceDir)
	var failures []*ProcessError

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("ingest cancelled: %w", err)
		}

		id, err := filepath.Rel(sourceDir, entry.Path)
		if err != nil {
			id = entry.Path
		}

		f := &MediaFile{
			ID:   id,
			Path: entry.Path,
			Size: entry.Size,
		}

		if hash, err := ContentHash(entry.Path); err != nil {
			procErr := CategorizeError(entry.Path, err)
			f.Flagged = true
			f.FlagReason = procErr.Error()
			failures = append(failures, procErr)
			log.Warn().Str("file", id).Err(err).Msg("cannot hash file, excluded from grouping")
		} else {
			f.ContentHash = hash
		}

		if entry.IsImage && !f.Flagged {
			if hash, err := FileDifferenceHash(entry.Path); err != nil {
				// Not an error: the file just has no perceptual hash and
				// will be skipped by the similarity pass.
				log.Debug().Str("file", id).Err(err).Msg("no perceptual hash")
			} else {
				f.PerceptualHash = &hash
			}
		}

		f.Candidates = ex.Candidates(entry.Path)

		if err := batch.Add(f); err != nil {
			return nil, nil, err
		}
	}

	log.Info().Str("batch", batch.ID).Int("files", len(batch.Files)).Msg("batch ingested")
	return batch, failures, nil
}
