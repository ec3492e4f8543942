package internal

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrDetectionIncomplete rejects resolution actions on a batch whose
	// detection pass has not finished.
	ErrDetectionIncomplete = errors.New("detection has not completed for batch")
	// ErrResolutionBegun rejects a detection rerun once any group has been
	// resolved or any file discarded.
	ErrResolutionBegun = errors.New("resolution already begun for batch")
	// ErrUnknownGroup means the group id is not in the batch side tables.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrUnknownFile means the file id is not in the batch arena.
	ErrUnknownFile = errors.New("unknown file")
	// ErrGroupResolved rejects a second resolution of the same group.
	ErrGroupResolved = errors.New("group already resolved")
	// ErrNotGroupMember means a keeper id is not part of the group.
	ErrNotGroupMember = errors.New("file is not a member of group")
	// ErrNoKeepers rejects a similar-group resolution keeping nothing.
	ErrNoKeepers = errors.New("at least one keeper required")
	// ErrFileNotDiscarded rejects undiscarding a live file.
	ErrFileNotDiscarded = errors.New("file is not discarded")
	// ErrInvariant marks internal group-state corruption. It is never
	// recoverable locally: silently wrong groupings risk data loss in the
	// caller's deletion workflow, so these fail loudly.
	ErrInvariant = errors.New("group state invariant violated")
)

// resolutionBegun reports whether any resolution action has touched the
// batch. Detection passes must not run again after this point.
func resolutionBegun(b *Batch) bool {
	for _, g := range b.ExactGroups {
		if g.State == GroupResolved {
			return true
		}
	}
	for _, g := range b.SimilarGroups {
		if g.State == GroupResolved {
			return true
		}
	}
	for _, f := range b.Files {
		if f.Discarded {
			return true
		}
	}
	return false
}

// Resolver owns the lifecycle of a batch's duplicate groups: open groups
// are resolved into keepers and discards, and discarded files can be
// restored, which re-evaluates them against the current population.
type Resolver struct {
	batch  *Batch
	params DetectParams
	log    zerolog.Logger
}

// NewResolver wraps a batch for resolution. Detection must have fully
// completed first; partial detection state would race the re-evaluation
// that undiscard performs.
func NewResolver(batch *Batch, params DetectParams, log zerolog.Logger) (*Resolver, error) {
	if !batch.DetectionDone {
		return nil, ErrDetectionIncomplete
	}
	return &Resolver{batch: batch, params: params, log: log}, nil
}

// ResolveExact resolves an exact-group by keeping exactly one file and
// discarding every other member.
func (r *Resolver) ResolveExact(groupID, keepID string) error {
	g, ok := r.batch.ExactGroups[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if g.State == GroupResolved {
		return fmt.Errorf("%w: %s", ErrGroupResolved, groupID)
	}
	if !contains(g.Members, keepID) {
		return fmt.Errorf("%w: %s not in %s", ErrNotGroupMember, keepID, groupID)
	}

	// Resolve before discarding so the shrinking membership does not
	// trip the open-group pruning in removeMember.
	g.State = GroupResolved
	for _, id := range append([]string(nil), g.Members...) {
		if id == keepID {
			continue
		}
		if err := r.discard(id); err != nil {
			return err
		}
	}
	g.Members = []string{keepID}
	r.log.Info().Str("group", groupID).Str("kept", keepID).Msg("exact group resolved")
	return nil
}

// ResolveSimilar resolves a similar-group by keeping any non-empty subset
// of its members and discarding the rest. Keeping every member is a valid
// outcome for burst sequences where all frames are wanted.
func (r *Resolver) ResolveSimilar(groupID string, keepIDs []string) error {
	g, ok := r.batch.SimilarGroups[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if g.State == GroupResolved {
		return fmt.Errorf("%w: %s", ErrGroupResolved, groupID)
	}
	if len(keepIDs) == 0 {
		return ErrNoKeepers
	}
	keep := make(map[string]bool, len(keepIDs))
	for _, id := range keepIDs {
		if !contains(g.Members, id) {
			return fmt.Errorf("%w: %s not in %s", ErrNotGroupMember, id, groupID)
		}
		keep[id] = true
	}

	g.State = GroupResolved
	var kept []string
	for _, id := range append([]string(nil), g.Members...) {
		if keep[id] {
			kept = append(kept, id)
			continue
		}
		if err := r.discard(id); err != nil {
			return err
		}
	}
	g.Members = kept
	r.log.Info().Str("group", groupID).Int("kept", len(kept)).Msg("similar group resolved")
	return nil
}

// KeepAll declares a group a false positive: the group id is cleared from
// every member and the group is dropped, with nothing discarded. Works for
// both exact- and similar-groups.
func (r *Resolver) KeepAll(groupID string) error {
	if g, ok := r.batch.ExactGroups[groupID]; ok {
		if g.State == GroupResolved {
			return fmt.Errorf("%w: %s", ErrGroupResolved, groupID)
		}
		for _, id := range g.Members {
			f := r.batch.Files[id]
			f.ExactGroupID = ""
			f.ExactGroupConfidence = ConfidenceNone
		}
		delete(r.batch.ExactGroups, groupID)
		r.log.Info().Str("group", groupID).Msg("exact group dismissed, all members kept")
		return nil
	}
	if g, ok := r.batch.SimilarGroups[groupID]; ok {
		if g.State == GroupResolved {
			return fmt.Errorf("%w: %s", ErrGroupResolved, groupID)
		}
		for _, id := range g.Members {
			f := r.batch.Files[id]
			f.SimilarGroupID = ""
			f.SimilarGroupConfidence = ConfidenceNone
			f.SimilarGroupKind = SimilarKindNone
		}
		delete(r.batch.SimilarGroups, groupID)
		r.log.Info().Str("group", groupID).Msg("similar group dismissed, all members kept")
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
}

// Undiscard restores a discarded file and re-evaluates its duplicate
// relationships from scratch against the current non-discarded population.
// The batch may have changed since the file was discarded, so the former
// group is not assumed to exist: hash matching reruns in full, and the
// cluster/similarity passes rerun scoped to the restored file. Finding no
// match leaves the file with no group, which is not an error.
func (r *Resolver) Undiscard(fileID string) error {
	f, ok := r.batch.Files[fileID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, fileID)
	}
	if !f.Discarded {
		return fmt.Errorf("%w: %s", ErrFileNotDiscarded, fileID)
	}
	if f.ExactGroupID != "" || f.SimilarGroupID != "" {
		return fmt.Errorf("%w: discarded file %s still carries a group id", ErrInvariant, fileID)
	}

	f.Discarded = false

	if err := r.rematchExact(f); err != nil {
		return err
	}
	if err := r.rematchPerceptual(f); err != nil {
		return err
	}
	r.log.Info().
		Str("file", fileID).
		Str("exact_group", f.ExactGroupID).
		Str("similar_group", f.SimilarGroupID).
		Msg("file restored and re-evaluated")
	return nil
}

// discard removes a file from the live population: the flag is set and
// every group membership is released so no discarded file carries a group
// id. Groups shrunk below two live members are dropped entirely.
func (r *Resolver) discard(fileID string) error {
	f, ok := r.batch.Files[fileID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, fileID)
	}
	f.Discarded = true
	if f.ExactGroupID != "" {
		r.removeMember(r.batch.ExactGroups, f.ExactGroupID, fileID)
		f.ExactGroupID = ""
		f.ExactGroupConfidence = ConfidenceNone
	}
	if f.SimilarGroupID != "" {
		r.removeMember(r.batch.SimilarGroups, f.SimilarGroupID, fileID)
		f.SimilarGroupID = ""
		f.SimilarGroupConfidence = ConfidenceNone
		f.SimilarGroupKind = SimilarKindNone
	}
	return nil
}

// removeMember drops a file from a group's member list and prunes groups
// left with fewer than two members, clearing the survivor's fields.
func (r *Resolver) removeMember(table map[string]*Group, groupID, fileID string) {
	g, ok := table[groupID]
	if !ok {
		return
	}
	members := g.Members[:0]
	for _, id := range g.Members {
		if id != fileID {
			members = append(members, id)
		}
	}
	g.Members = members
	if g.State == GroupOpen && len(g.Members) < 2 {
		for _, id := range g.Members {
			f := r.batch.Files[id]
			if f.ExactGroupID == groupID {
				f.ExactGroupID = ""
				f.ExactGroupConfidence = ConfidenceNone
			}
			if f.SimilarGroupID == groupID {
				f.SimilarGroupID = ""
				f.SimilarGroupConfidence = ConfidenceNone
				f.SimilarGroupKind = SimilarKindNone
			}
		}
		delete(table, groupID)
	}
}

// rematchExact reruns content-hash matching for one restored file.
func (r *Resolver) rematchExact(f *MediaFile) error {
	if f.ContentHash == "" {
		return nil
	}
	for _, other := range r.batch.FilesInOrder() {
		if other.ID == f.ID || other.Discarded || other.Flagged {
			continue
		}
		if other.ContentHash == f.ContentHash {
			return r.joinExactGroup(f, other)
		}
	}
	return nil
}

// rematchPerceptual reruns the temporal-window similarity pass scoped to
// one restored file: only live files whose selected timestamps fall within
// the clustering window of the restored file are compared.
func (r *Resolver) rematchPerceptual(f *MediaFile) error {
	if f.PerceptualHash == nil || !f.HasSelectedTimestamp() {
		return nil
	}

	var (
		similarPartners []*MediaFile
		pairConfidence  = ConfidenceHigh
		pairKind        = SimilarKindNone
	)
	for _, other := range r.batch.FilesInOrder() {
		if other.ID == f.ID || other.Discarded || other.Flagged {
			continue
		}
		if other.PerceptualHash == nil || !other.HasSelectedTimestamp() {
			continue
		}
		gap := other.SelectedAt.Sub(f.SelectedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > r.params.ClusterWindow {
			continue
		}
		distance := HammingDistance(*f.PerceptualHash, *other.PerceptualHash)
		switch classifyDistance(distance, r.params) {
		case pairExact:
			if err := r.joinExactGroup(f, other); err != nil {
				return err
			}
		case pairSimilar:
			similarPartners = append(similarPartners, other)
			pairConfidence = minConfidence(pairConfidence, similarConfidence(distance, r.params))
			pairKind = maxKind(pairKind, similarKindForGap(gap, r.params))
		}
	}
	if len(similarPartners) == 0 {
		return nil
	}
	return r.joinSimilarGroup(f, similarPartners, pairConfidence, pairKind)
}

// joinExactGroup attaches a restored file to its match's exact-group,
// creating one when the match is ungrouped. When the restored file already
// landed in an exact-group during the same re-evaluation, the two groups
// merge to keep membership transitive.
func (r *Resolver) joinExactGroup(f, match *MediaFile) error {
	switch {
	case f.ExactGroupID != "" && match.ExactGroupID != "" && f.ExactGroupID != match.ExactGroupID:
		r.mergeExactGroups(f.ExactGroupID, match.ExactGroupID)
	case f.ExactGroupID != "":
		r.addExactMember(f.ExactGroupID, match)
	case match.ExactGroupID != "":
		r.addExactMember(match.ExactGroupID, f)
	default:
		g := &Group{
			ID:         uuid.NewString(),
			Members:    r.sortByBatchOrder([]string{f.ID, match.ID}),
			Confidence: ConfidenceHigh,
			State:      GroupOpen,
		}
		r.batch.ExactGroups[g.ID] = g
		for _, id := range g.Members {
			member := r.batch.Files[id]
			member.ExactGroupID = g.ID
			member.ExactGroupConfidence = ConfidenceHigh
		}
	}
	return nil
}

func (r *Resolver) addExactMember(groupID string, f *MediaFile) {
	g := r.batch.ExactGroups[groupID]
	if !contains(g.Members, f.ID) {
		g.Members = r.sortByBatchOrder(append(g.Members, f.ID))
	}
	// Membership changed: the group needs review again.
	g.State = GroupOpen
	f.ExactGroupID = g.ID
	f.ExactGroupConfidence = g.Confidence
}

func (r *Resolver) mergeExactGroups(dstID, srcID string) {
	dst := r.batch.ExactGroups[dstID]
	src := r.batch.ExactGroups[srcID]
	for _, id := range src.Members {
		if !contains(dst.Members, id) {
			dst.Members = append(dst.Members, id)
		}
		member := r.batch.Files[id]
		member.ExactGroupID = dst.ID
		member.ExactGroupConfidence = dst.Confidence
	}
	dst.Members = r.sortByBatchOrder(dst.Members)
	dst.State = GroupOpen
	delete(r.batch.ExactGroups, srcID)
}

// joinSimilarGroup attaches a restored file to the similar-group of its
// partners. Partners spanning several groups collapse into one, and
// ungrouped partners are pulled in, keeping membership transitive. The
// resulting group takes the most conservative confidence observed.
func (r *Resolver) joinSimilarGroup(f *MediaFile, partners []*MediaFile, confidence Confidence, kind SimilarKind) error {
	var target *Group
	for _, p := range partners {
		if p.SimilarGroupID == "" {
			continue
		}
		g := r.batch.SimilarGroups[p.SimilarGroupID]
		if g == nil {
			return fmt.Errorf("%w: file %s references missing similar group %s", ErrInvariant, p.ID, p.SimilarGroupID)
		}
		if target == nil {
			target = g
			continue
		}
		if g.ID != target.ID {
			for _, id := range g.Members {
				if !contains(target.Members, id) {
					target.Members = append(target.Members, id)
				}
			}
			target.Confidence = minConfidence(target.Confidence, g.Confidence)
			target.Kind = maxKind(target.Kind, g.Kind)
			delete(r.batch.SimilarGroups, g.ID)
		}
	}
	if target == nil {
		target = &Group{
			ID:         uuid.NewString(),
			State:      GroupOpen,
			Confidence: confidence,
			Kind:       kind,
		}
		r.batch.SimilarGroups[target.ID] = target
	}

	for _, p := range partners {
		if !contains(target.Members, p.ID) {
			target.Members = append(target.Members, p.ID)
		}
	}
	if !contains(target.Members, f.ID) {
		target.Members = append(target.Members, f.ID)
	}
	target.Members = r.sortByBatchOrder(target.Members)
	target.Confidence = minConfidence(target.Confidence, confidence)
	target.Kind = maxKind(target.Kind, kind)
	target.State = GroupOpen

	for _, id := range target.Members {
		member := r.batch.Files[id]
		member.SimilarGroupID = target.ID
		member.SimilarGroupConfidence = target.Confidence
		member.SimilarGroupKind = target.Kind
	}
	return nil
}

// sortByBatchOrder orders file ids by their ingest position.
func (r *Resolver) sortByBatchOrder(ids []string) []string {
	index := make(map[string]int, len(r.batch.Order))
	for i, id := range r.batch.Order {
		index[id] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return index[ids[i]] < index[ids[j]]
	})
	return ids
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
