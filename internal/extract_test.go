package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFilenameTimestamp_Patterns(t *testing.T) {
	cases := []struct {
		name string
		want time.Time
	}{
		{"IMG_20240601_100000.jpg", time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)},
		{"20240601_100000.mp4", time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)},
		{"PXL_20231215-083045.jpg", time.Date(2023, 12, 15, 8, 30, 45, 0, time.Local)},
		{"2024-06-01 10.00.00.jpg", time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)},
		{"2024-06-01_10.00.00.png", time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)},
	}
	for _, tc := range cases {
		ts, ok := filenameTimestamp(tc.name)
		if !ok {
			t.Errorf("%s: expected a timestamp", tc.name)
			continue
		}
		if !ts.Equal(tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, ts)
		}
	}
}

func TestFilenameTimestamp_NoMatch(t *testing.T) {
	for _, name := range []string{"photo.jpg", "IMG_1234.jpg", "vacation-day-2.png"} {
		if _, ok := filenameTimestamp(name); ok {
			t.Errorf("%s: expected no timestamp", name)
		}
	}
}

func TestContentHash(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.jpg")
	path2 := filepath.Join(dir, "b.jpg")
	path3 := filepath.Join(dir, "c.jpg")
	os.WriteFile(path1, []byte("same bytes"), 0644)
	os.WriteFile(path2, []byte("same bytes"), 0644)
	os.WriteFile(path3, []byte("other bytes"), 0644)

	hash1, err := ContentHash(path1)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	hash2, _ := ContentHash(path2)
	hash3, _ := ContentHash(path3)

	if !isHexDigest(hash1) {
		t.Errorf("Expected a SHA-256 hex digest, got %q", hash1)
	}
	if hash1 != hash2 {
		t.Errorf("Identical bytes hashed differently")
	}
	if hash1 == hash3 {
		t.Errorf("Different bytes produced the same hash")
	}
}

func TestContentHash_MissingFile(t *testing.T) {
	if _, err := ContentHash("/nonexistent/file.jpg"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestExtractor_CandidatesFallBackToFilesystem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IMG_20240601_100000.jpg")
	os.WriteFile(path, []byte("not a real jpeg"), 0644)

	ex, err := NewExtractor(false)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	defer ex.Close()

	candidates := ex.Candidates(path)

	var haveFilename, haveFilesystem bool
	for _, c := range candidates {
		switch c.Source {
		case SourceFilename:
			haveFilename = true
			want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
			if !c.Value.Equal(want) {
				t.Errorf("Filename candidate: expected %v, got %v", want, c.Value)
			}
			if c.Weight != SourceFilename.DefaultWeight() {
				t.Errorf("Filename candidate: unexpected weight %d", c.Weight)
			}
		case SourceFilesystem:
			haveFilesystem = true
		case SourceExifOriginal, SourceExifDigitized, SourceExifModified:
			t.Errorf("Unexpected EXIF candidate from an undecodable file")
		}
	}
	if !haveFilename || !haveFilesystem {
		t.Errorf("Expected filename and filesystem candidates, got %+v", candidates)
	}
}
