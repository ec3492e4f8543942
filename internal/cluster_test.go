package internal

import (
	"testing"
	"time"
)

func timedFile(id string, at time.Time) *MediaFile {
	hash := uint64(0)
	return &MediaFile{
		ID:             id,
		SelectedAt:     at,
		PerceptualHash: &hash,
	}
}

func TestClusterByTime_BoundaryStays(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Second

	files := []*MediaFile{
		timedFile("a", base),
		timedFile("b", base.Add(window)),
	}

	clusters := clusterByTime(files, window)
	if len(clusters) != 1 {
		t.Fatalf("Expected one cluster for a gap of exactly the window, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 {
		t.Errorf("Expected both files in the cluster, got %d", len(clusters[0]))
	}
}

func TestClusterByTime_BeyondWindowSplits(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Second

	files := []*MediaFile{
		timedFile("a", base),
		timedFile("b", base.Add(time.Second)),
		timedFile("c", base.Add(window+time.Second+time.Nanosecond)),
		timedFile("d", base.Add(window+2*time.Second)),
	}

	clusters := clusterByTime(files, window)
	if len(clusters) != 2 {
		t.Fatalf("Expected two clusters, got %d", len(clusters))
	}
	if clusters[0][0].ID != "a" || clusters[1][0].ID != "c" {
		t.Errorf("Unexpected cluster anchors: %s, %s", clusters[0][0].ID, clusters[1][0].ID)
	}
}

func TestClusterByTime_ChainExtendsCluster(t *testing.T) {
	// Each file is within the window of its predecessor even though the
	// first and last are far apart; the run stays one cluster.
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Second

	files := []*MediaFile{
		timedFile("a", base),
		timedFile("b", base.Add(4*time.Second)),
		timedFile("c", base.Add(8*time.Second)),
		timedFile("d", base.Add(12*time.Second)),
	}

	clusters := clusterByTime(files, window)
	if len(clusters) != 1 {
		t.Fatalf("Expected one chained cluster, got %d", len(clusters))
	}
	if len(clusters[0]) != 4 {
		t.Errorf("Expected all four files, got %d", len(clusters[0]))
	}
}

func TestClusterByTime_SingletonsDropped(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	files := []*MediaFile{
		timedFile("a", base),
		timedFile("b", base.Add(time.Minute)),
		timedFile("c", base.Add(2*time.Minute)),
	}

	clusters := clusterByTime(files, 5*time.Second)
	if len(clusters) != 0 {
		t.Errorf("Expected no clusters from isolated files, got %d", len(clusters))
	}
}

func TestClusterByTime_IneligibleFilesSkipped(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	noTimestamp := timedFile("no-ts", time.Time{})
	noHash := &MediaFile{ID: "no-hash", SelectedAt: base}
	flagged := timedFile("flagged", base)
	flagged.Flagged = true

	files := []*MediaFile{
		timedFile("a", base),
		noTimestamp,
		noHash,
		flagged,
		timedFile("b", base.Add(time.Second)),
	}

	clusters := clusterByTime(files, 5*time.Second)
	if len(clusters) != 1 {
		t.Fatalf("Expected one cluster, got %d", len(clusters))
	}
	if len(clusters[0]) != 2 {
		t.Fatalf("Expected only the two eligible files, got %d", len(clusters[0]))
	}
	for _, f := range clusters[0] {
		if f.ID != "a" && f.ID != "b" {
			t.Errorf("Unexpected member %s", f.ID)
		}
	}
}

func TestClusterByTime_UnsortedInput(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	files := []*MediaFile{
		timedFile("late", base.Add(3*time.Second)),
		timedFile("early", base),
		timedFile("mid", base.Add(time.Second)),
	}

	clusters := clusterByTime(files, 5*time.Second)
	if len(clusters) != 1 {
		t.Fatalf("Expected one cluster, got %d", len(clusters))
	}
	if clusters[0][0].ID != "early" || clusters[0][2].ID != "late" {
		t.Errorf("Cluster not sorted by timestamp: %s ... %s", clusters[0][0].ID, clusters[0][2].ID)
	}
}
