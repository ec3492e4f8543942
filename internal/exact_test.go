package internal

import (
	"strings"
	"testing"
)

func hashOf(c byte) string {
	return strings.Repeat(string(c), 64)
}

func TestGroupByContentHash_PairsAndSingletons(t *testing.T) {
	files := []*MediaFile{
		{ID: "a", ContentHash: hashOf('a')},
		{ID: "b", ContentHash: hashOf('b')},
		{ID: "c", ContentHash: hashOf('a')},
		{ID: "d", ContentHash: hashOf('c')},
		{ID: "e", ContentHash: hashOf('c')},
		{ID: "f", ContentHash: hashOf('c')},
	}

	groups := groupByContentHash(files)
	if len(groups) != 2 {
		t.Fatalf("Expected two groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].ID != "a" || groups[0][1].ID != "c" {
		t.Errorf("Unexpected first group: %v", ids(groups[0]))
	}
	if len(groups[1]) != 3 {
		t.Errorf("Expected triple in second group, got %v", ids(groups[1]))
	}
}

func TestGroupByContentHash_SkipsUnhashedAndFlagged(t *testing.T) {
	files := []*MediaFile{
		{ID: "a", ContentHash: hashOf('a')},
		{ID: "b", ContentHash: ""},
		{ID: "c", ContentHash: hashOf('a'), Flagged: true},
		{ID: "d", ContentHash: hashOf('a')},
	}

	groups := groupByContentHash(files)
	if len(groups) != 1 {
		t.Fatalf("Expected one group, got %d", len(groups))
	}
	got := ids(groups[0])
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Errorf("Expected only live hashed files, got %v", got)
	}
}

func ids(files []*MediaFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	return out
}
