package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest is an append-only JSONL audit log for one batch. Every
// detection run and every review decision lands here, so a batch's
// current state can always be explained from its manifest.
type Manifest struct {
	BatchID string
	Path    string
	file    *os.File
}

// ManifestEvent is a single line of the manifest log.
type ManifestEvent struct {
	Event   string `json:"event"`
	Ts      string `json:"ts"`
	BatchID string `json:"batch_id,omitempty"`
	FileID  string `json:"file_id,omitempty"`
	GroupID string `json:"group_id,omitempty"`

	SourceDir string `json:"source_dir,omitempty"`
	Hash      string `json:"hash,omitempty"`
	Error     string `json:"error,omitempty"`

	// Error details (for categorized errors)
	ErrorCategory   string `json:"error_category,omitempty"`
	ErrorSeverity   string `json:"error_severity,omitempty"`
	ErrorSuggestion string `json:"error_suggestion,omitempty"`

	// Resolution fields
	KeptIDs      []string `json:"kept_ids,omitempty"`
	DiscardedIDs []string `json:"discarded_ids,omitempty"`

	// Batch start/end fields
	TotalFiles        int `json:"total_files,omitempty"`
	FlaggedCount      int `json:"flagged_count,omitempty"`
	ExactGroupCount   int `json:"exact_group_count,omitempty"`
	SimilarGroupCount int `json:"similar_group_count,omitempty"`
}

// OpenManifest opens (creating if needed) the manifest for a batch under
// libraryPath/batches/<batch-id>/manifest.jsonl.
func OpenManifest(libraryPath, batchID string) (*Manifest, error) {
	batchDir := filepath.Join(libraryPath, "batches", batchID)
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch directory: %w", err)
	}

	manifestPath := filepath.Join(batchDir, "manifest.jsonl")
	file, err := os.OpenFile(manifestPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest file: %w", err)
	}

	return &Manifest{
		BatchID: batchID,
		Path:    manifestPath,
		file:    file,
	}, nil
}

// LogBatchStart records the beginning of an import run.
func (m *Manifest) LogBatchStart(sourceDir string, totalFiles int) error {
	return m.writeEvent(ManifestEvent{
		Event:      "batch_start",
		Ts:         time.Now().UTC().Format(time.RFC3339),
		BatchID:    m.BatchID,
		SourceDir:  sourceDir,
		TotalFiles: totalFiles,
	})
}

// LogFileFlagged records a file excluded from grouping with its categorized error.
func (m *Manifest) LogFileFlagged(fileID string, procErr *ProcessError) error {
	return m.writeEvent(ManifestEvent{
		Event:           "file_flagged",
		Ts:              time.Now().UTC().Format(time.RFC3339),
		FileID:          fileID,
		Error:           procErr.OriginalErr.Error(),
		ErrorCategory:   string(procErr.Category),
		ErrorSeverity:   string(procErr.Severity),
		ErrorSuggestion: procErr.Suggestion,
	})
}

// LogDetection records the outcome of a detection run.
func (m *Manifest) LogDetection(s Summary) error {
	return m.writeEvent(ManifestEvent{
		Event:             "detection_done",
		Ts:                time.Now().UTC().Format(time.RFC3339),
		BatchID:           s.BatchID,
		TotalFiles:        s.FileCount,
		FlaggedCount:      s.FlaggedCount,
		ExactGroupCount:   s.ExactGroupCount,
		SimilarGroupCount: s.SimilarGroupCount,
	})
}

// LogResolved records a group resolution with what was kept and dropped.
func (m *Manifest) LogResolved(groupID string, kept, discarded []string) error {
	return m.writeEvent(ManifestEvent{
		Event:        "group_resolved",
		Ts:           time.Now().UTC().Format(time.RFC3339),
		GroupID:      groupID,
		KeptIDs:      kept,
		DiscardedIDs: discarded,
	})
}

// LogKeepAll records a group being dissolved with all members kept.
func (m *Manifest) LogKeepAll(groupID string, kept []string) error {
	return m.writeEvent(ManifestEvent{
		Event:   "group_keep_all",
		Ts:      time.Now().UTC().Format(time.RFC3339),
		GroupID: groupID,
		KeptIDs: kept,
	})
}

// LogUndiscard records a file being restored to the active set.
func (m *Manifest) LogUndiscard(fileID string) error {
	return m.writeEvent(ManifestEvent{
		Event:  "undiscard",
		Ts:     time.Now().UTC().Format(time.RFC3339),
		FileID: fileID,
	})
}

// LogBatchEnd records the final tallies of an import run.
func (m *Manifest) LogBatchEnd(s Summary) error {
	return m.writeEvent(ManifestEvent{
		Event:             "batch_end",
		Ts:                time.Now().UTC().Format(time.RFC3339),
		BatchID:           s.BatchID,
		TotalFiles:        s.FileCount,
		FlaggedCount:      s.FlaggedCount,
		ExactGroupCount:   s.ExactGroupCount,
		SimilarGroupCount: s.SimilarGroupCount,
	})
}

// Close closes the manifest file.
func (m *Manifest) Close() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

// writeEvent writes one event as a JSON line and flushes it.
func (m *Manifest) writeEvent(event ManifestEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write to manifest: %w", err)
	}

	return m.file.Sync()
}
