package internal

import (
	"fmt"
	"time"
)

// Confidence is the qualitative trust rating attached to a timestamp
// selection or a duplicate-group classification. Values are ordered so the
// most conservative rating of a set can be taken with a comparison.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var confidenceNames = map[Confidence]string{
	ConfidenceNone:   "none",
	ConfidenceLow:    "low",
	ConfidenceMedium: "medium",
	ConfidenceHigh:   "high",
}

func (c Confidence) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return fmt.Sprintf("confidence(%d)", int(c))
}

// ParseConfidence converts a stored string back into a Confidence.
func ParseConfidence(value string) (Confidence, error) {
	for c, name := range confidenceNames {
		if name == value {
			return c, nil
		}
	}
	return ConfidenceNone, fmt.Errorf("invalid confidence %q", value)
}

// minConfidence returns the more conservative of two ratings.
func minConfidence(a, b Confidence) Confidence {
	if a < b {
		return a
	}
	return b
}

// SimilarKind classifies what a similar-group most likely is.
type SimilarKind int

const (
	SimilarKindNone SimilarKind = iota
	SimilarKindBurst
	SimilarKindPanorama
	SimilarKindGeneric
)

var similarKindNames = map[SimilarKind]string{
	SimilarKindNone:     "",
	SimilarKindBurst:    "burst",
	SimilarKindPanorama: "panorama",
	SimilarKindGeneric:  "generic",
}

func (k SimilarKind) String() string {
	if name, ok := similarKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("similarkind(%d)", int(k))
}

// ParseSimilarKind converts a stored string back into a SimilarKind.
func ParseSimilarKind(value string) (SimilarKind, error) {
	for k, name := range similarKindNames {
		if name == value {
			return k, nil
		}
	}
	return SimilarKindNone, fmt.Errorf("invalid similar kind %q", value)
}

// TimestampSource labels where a candidate timestamp came from.
type TimestampSource string

const (
	SourceExifOriginal  TimestampSource = "exif_original"
	SourceExifDigitized TimestampSource = "exif_digitized"
	SourceExifModified  TimestampSource = "exif_modified"
	SourceFilename      TimestampSource = "filename"
	SourceFilesystem    TimestampSource = "filesystem"
)

// DefaultWeight returns the trust weight assigned to a source by the
// extraction step. Callers may override per candidate.
func (s TimestampSource) DefaultWeight() int {
	switch s {
	case SourceExifOriginal:
		return 10
	case SourceExifDigitized:
		return 8
	case SourceExifModified:
		return 5
	case SourceFilename:
		return 2
	case SourceFilesystem:
		return 1
	}
	return 0
}

// Candidate is one discovered timestamp for a file.
type Candidate struct {
	Value  time.Time       `json:"value"`
	Source TimestampSource `json:"source"`
	Weight int             `json:"weight"`
}

// MediaFile is one imported file in a batch arena. Group membership lives
// in the single nullable id fields here plus the side tables on Batch, so
// merges are pointer reassignment rather than graph surgery.
type MediaFile struct {
	ID   string
	Path string
	Size int64

	ContentHash    string  // hex SHA-256, empty if the file was unreadable
	PerceptualHash *uint64 // nil for videos and undecodable images

	Candidates          []Candidate
	SelectedAt          time.Time // zero when no candidate survived
	TimestampConfidence Confidence

	ExactGroupID         string
	ExactGroupConfidence Confidence

	SimilarGroupID         string
	SimilarGroupConfidence Confidence
	SimilarGroupKind       SimilarKind

	Discarded  bool
	Flagged    bool
	FlagReason string
}

// HasSelectedTimestamp reports whether the scorer picked a timestamp.
func (f *MediaFile) HasSelectedTimestamp() bool {
	return !f.SelectedAt.IsZero()
}

// GroupState is the lifecycle state of a duplicate group.
type GroupState int

const (
	GroupOpen GroupState = iota
	GroupResolved
)

var groupStateNames = map[GroupState]string{
	GroupOpen:     "open",
	GroupResolved: "resolved",
}

func (s GroupState) String() string {
	if name, ok := groupStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("groupstate(%d)", int(s))
}

// ParseGroupState converts a stored string back into a GroupState.
func ParseGroupState(value string) (GroupState, error) {
	for s, name := range groupStateNames {
		if name == value {
			return s, nil
		}
	}
	return GroupOpen, fmt.Errorf("invalid group state %q", value)
}

// Group is one exact- or similar-group side-table entry.
type Group struct {
	ID         string
	Members    []string // file ids, in batch order
	Confidence Confidence
	Kind       SimilarKind // set for similar-groups only
	State      GroupState
}

// Batch is the arena of files for one import job plus the two group side
// tables. Detection fills the group tables; the resolver mutates them.
type Batch struct {
	ID        string
	SourceDir string
	CreatedAt time.Time

	Files map[string]*MediaFile
	Order []string // file ids in ingest order, for deterministic iteration

	ExactGroups   map[string]*Group
	SimilarGroups map[string]*Group

	DetectionDone bool
}

// NewBatch creates an empty batch arena.
func NewBatch(id, sourceDir string) *Batch {
	return &Batch{
		ID:            id,
		SourceDir:     sourceDir,
		CreatedAt:     time.Now().UTC(),
		Files:         make(map[string]*MediaFile),
		ExactGroups:   make(map[string]*Group),
		SimilarGroups: make(map[string]*Group),
	}
}

// Add appends a file to the arena. Duplicate ids are a caller bug.
func (b *Batch) Add(f *MediaFile) error {
	if _, exists := b.Files[f.ID]; exists {
		return fmt.Errorf("duplicate file id %q in batch %s", f.ID, b.ID)
	}
	b.Files[f.ID] = f
	b.Order = append(b.Order, f.ID)
	return nil
}

// FilesInOrder returns the arena contents in ingest order.
func (b *Batch) FilesInOrder() []*MediaFile {
	out := make([]*MediaFile, 0, len(b.Order))
	for _, id := range b.Order {
		out = append(out, b.Files[id])
	}
	return out
}

// Summary is the per-batch counts the caller uses to gate review modes.
type Summary struct {
	BatchID              string `json:"batch_id"`
	FileCount            int    `json:"file_count"`
	FlaggedCount         int    `json:"flagged_count"`
	ExactGroupCount      int    `json:"exact_group_count"`
	SimilarGroupCount    int    `json:"similar_group_count"`
	UnresolvedExactFiles int    `json:"unresolved_exact_files"`
	UnresolvedSimilar    int    `json:"unresolved_similar_files"`
}

// Summarize computes the current batch summary. Unresolved counts are
// non-discarded members of groups still in the open state.
func (b *Batch) Summarize() Summary {
	s := Summary{
		BatchID:           b.ID,
		FileCount:         len(b.Files),
		ExactGroupCount:   len(b.ExactGroups),
		SimilarGroupCount: len(b.SimilarGroups),
	}
	for _, f := range b.Files {
		if f.Flagged {
			s.FlaggedCount++
		}
	}
	for _, g := range b.ExactGroups {
		if g.State != GroupOpen {
			continue
		}
		for _, id := range g.Members {
			if f, ok := b.Files[id]; ok && !f.Discarded {
				s.UnresolvedExactFiles++
			}
		}
	}
	for _, g := range b.SimilarGroups {
		if g.State != GroupOpen {
			continue
		}
		for _, id := range g.Members {
			if f, ok := b.Files[id]; ok && !f.Discarded {
				s.UnresolvedSimilar++
			}
		}
	}
	return s
}
