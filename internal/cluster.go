package internal

import (
	"sort"
	"time"
)

// clusterByTime partitions files into temporal clusters: maximal runs in
// which each file sits within window of the previous one. This bounds the
// perceptual comparison space, since re-encodes and burst/panorama frames
// overwhelmingly preserve the original capture timestamp. Only files with
// both a selected timestamp and a perceptual hash participate; clusters of
// one are dropped because there is nothing to compare.
//
// A gap of exactly window stays in the running cluster.
func clusterByTime(files []*MediaFile, window time.Duration) [][]*MediaFile {
	eligible := make([]*MediaFile, 0, len(files))
	for _, f := range files {
		if f.Flagged {
			continue
		}
		if f.HasSelectedTimestamp() && f.PerceptualHash != nil {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	// Stable sort keeps batch order for identical timestamps, which keeps
	// cluster contents deterministic.
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].SelectedAt.Before(eligible[j].SelectedAt)
	})

	var clusters [][]*MediaFile
	current := []*MediaFile{eligible[0]}
	for _, f := range eligible[1:] {
		gap := f.SelectedAt.Sub(current[len(current)-1].SelectedAt)
		if gap > window {
			if len(current) >= 2 {
				clusters = append(clusters, current)
			}
			current = []*MediaFile{f}
			continue
		}
		current = append(current, f)
	}
	if len(current) >= 2 {
		clusters = append(clusters, current)
	}
	return clusters
}
